package pipeline

import (
	"context"
)

// Result is a tagged generation outcome. InsufficientContext signals that
// the retrieved context did not support an answer, so the caller should fall
// back rather than surface Text. The classification still leans on the
// adequacy gate because the hosted model emits refusal boilerplate instead
// of a structural failure signal, but callers only ever branch on the flag.
type Result struct {
	Text                string
	Detailed            string
	InsufficientContext bool
}

// AnswerGenerator formats retrieved context into prompts and produces a
// primary answer plus a separate detailed explanation from two independent
// generations over the same context.
type AnswerGenerator struct {
	client Generator
	gate   *AdequacyGate
}

// NewAnswerGenerator builds a generator over the given model client.
func NewAnswerGenerator(client Generator, gate *AdequacyGate) *AnswerGenerator {
	return &AnswerGenerator{client: client, gate: gate}
}

// FromDocuments answers the query from the given document context.
func (g *AnswerGenerator) FromDocuments(ctx context.Context, query, docContext string) (Result, error) {
	answer, err := g.client.Generate(ctx, answerPrompt(query, docContext))
	if err != nil {
		return Result{}, err
	}

	detailed, err := g.client.Generate(ctx, detailedPrompt(query, docContext))
	if err != nil {
		return Result{}, err
	}

	return Result{
		Text:                answer,
		Detailed:            detailed,
		InsufficientContext: !g.gate.Adequate(answer),
	}, nil
}

// FromKnowledge answers the query from the model's own knowledge, used when
// local documents are insufficient. It returns the generated overview
// alongside the answers so the caller can surface it as the source snippet.
func (g *AnswerGenerator) FromKnowledge(ctx context.Context, query string) (Result, string, error) {
	overview, err := g.client.Generate(ctx, knowledgePrompt(query))
	if err != nil {
		return Result{}, "", err
	}
	if overview == "" {
		overview = "No information available"
	}

	context := "Source: Web Search Result for: " + query + "\nContent: " + overview

	answer, err := g.client.Generate(ctx, knowledgeAnswerPrompt(query, context))
	if err != nil {
		return Result{}, "", err
	}

	detailed, err := g.client.Generate(ctx, knowledgeDetailedPrompt(query, context))
	if err != nil {
		return Result{}, "", err
	}

	return Result{Text: answer, Detailed: detailed}, overview, nil
}

// Followup generates a follow-up question for a selected passage.
func (g *AnswerGenerator) Followup(ctx context.Context, selectedText, passageContext, documentName string) (string, error) {
	return g.client.Generate(ctx, followupPrompt(selectedText, passageContext, documentName))
}
