package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"campusquery/internal/models"
)

// scripted pairs a prompt substring with the canned response for it.
type scripted struct {
	promptContains string
	response       string
}

// mockModel is a scripted Generator. Responses are matched in order against
// prompt substrings so the different prompt shapes can be told apart.
type mockModel struct {
	mu         sync.Mutex
	script     []scripted
	shouldFail bool
	prompts    []string
}

func (m *mockModel) Generate(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prompts = append(m.prompts, prompt)
	if m.shouldFail {
		return "", errors.New("model unavailable")
	}
	for _, s := range m.script {
		if strings.Contains(prompt, s.promptContains) {
			return s.response, nil
		}
	}
	return "default response with enough words to clear the adequacy threshold comfortably", nil
}

func (m *mockModel) promptCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

const (
	docAnswerMarker       = "university documents, provide a comprehensive answer"
	docDetailedMarker     = "university documents, provide a detailed"
	overviewMarker        = "act as a web search assistant"
	webAnswerMarker       = "web search information, provide a comprehensive answer"
	webDetailedMarker     = "web search information, provide a detailed"
	followupMarker        = "follow-up question"
	adequateAnswer        = "Tuition for undergraduates is **$5000 per semester**, due by the first day of classes each term."
	adequateDetail        = "**In-depth analysis**: tuition covers instruction and student services; payment plans are available."
	inadequateBoilerplate = "No relevant information found in the provided documents."
)

func TestFromDocuments(t *testing.T) {
	model := &mockModel{script: []scripted{
		{docAnswerMarker, adequateAnswer},
		{docDetailedMarker, adequateDetail},
	}}
	g := NewAnswerGenerator(model, NewAdequacyGate(50))

	result, err := g.FromDocuments(context.Background(), "what are the fees?", "Document: Fees.txt\nContent: tuition info")
	if err != nil {
		t.Fatalf("FromDocuments failed: %v", err)
	}

	if result.Text != adequateAnswer {
		t.Errorf("Expected answer %q, got %q", adequateAnswer, result.Text)
	}
	if result.Detailed != adequateDetail {
		t.Errorf("Expected detailed %q, got %q", adequateDetail, result.Detailed)
	}
	if result.InsufficientContext {
		t.Error("Expected adequate answer to clear the gate")
	}
	if model.promptCount() != 2 {
		t.Errorf("Expected 2 generations, got %d", model.promptCount())
	}
}

func TestFromDocuments_FlagsInadequateAnswer(t *testing.T) {
	model := &mockModel{script: []scripted{
		{docAnswerMarker, inadequateBoilerplate},
		{docDetailedMarker, adequateDetail},
	}}
	g := NewAnswerGenerator(model, NewAdequacyGate(50))

	result, err := g.FromDocuments(context.Background(), "obscure question", "Document: Fees.txt\nContent: tuition info")
	if err != nil {
		t.Fatalf("FromDocuments failed: %v", err)
	}
	if !result.InsufficientContext {
		t.Error("Expected boilerplate answer to be flagged as insufficient context")
	}
}

func TestFromDocuments_PropagatesError(t *testing.T) {
	g := NewAnswerGenerator(&mockModel{shouldFail: true}, NewAdequacyGate(50))

	if _, err := g.FromDocuments(context.Background(), "q", "ctx"); err == nil {
		t.Fatal("Expected error from failing model")
	}
}

func TestFromKnowledge(t *testing.T) {
	model := &mockModel{script: []scripted{
		{overviewMarker, "OVERVIEW: parking permits cost $120 per year."},
		{webAnswerMarker, adequateAnswer},
		{webDetailedMarker, adequateDetail},
	}}
	g := NewAnswerGenerator(model, NewAdequacyGate(50))

	result, overview, err := g.FromKnowledge(context.Background(), "parking permits")
	if err != nil {
		t.Fatalf("FromKnowledge failed: %v", err)
	}

	if overview != "OVERVIEW: parking permits cost $120 per year." {
		t.Errorf("Unexpected overview: %q", overview)
	}
	if result.Text != adequateAnswer || result.Detailed != adequateDetail {
		t.Errorf("Unexpected result: %+v", result)
	}
	if model.promptCount() != 3 {
		t.Errorf("Expected 3 generations, got %d", model.promptCount())
	}
}

func TestFromKnowledge_EmptyOverviewDefaults(t *testing.T) {
	model := &mockModel{script: []scripted{
		{overviewMarker, ""},
		{webAnswerMarker, adequateAnswer},
		{webDetailedMarker, adequateDetail},
	}}
	g := NewAnswerGenerator(model, NewAdequacyGate(50))

	_, overview, err := g.FromKnowledge(context.Background(), "anything")
	if err != nil {
		t.Fatalf("FromKnowledge failed: %v", err)
	}
	if overview != "No information available" {
		t.Errorf("Expected default overview, got %q", overview)
	}
}

func TestFollowupGeneration(t *testing.T) {
	model := &mockModel{script: []scripted{
		{followupMarker, "What happens if a payment deadline is missed?"},
	}}
	g := NewAnswerGenerator(model, NewAdequacyGate(50))

	question, err := g.Followup(context.Background(), "Payment is due by the first day of classes.", "", "Fees.txt")
	if err != nil {
		t.Fatalf("Followup failed: %v", err)
	}
	if question != "What happens if a payment deadline is missed?" {
		t.Errorf("Unexpected question: %q", question)
	}

	model.mu.Lock()
	prompt := model.prompts[0]
	model.mu.Unlock()
	if !strings.Contains(prompt, "Fees.txt") {
		t.Error("Expected prompt to name the source document")
	}
	if !strings.Contains(prompt, "Payment is due by the first day of classes.") {
		t.Error("Expected prompt to embed the selected text")
	}
}

func TestBuildContext(t *testing.T) {
	matches := []models.RetrievalMatch{
		{Chunk: models.Chunk{Filename: "Fees.txt", Content: "tuition info"}},
		{Chunk: models.Chunk{Filename: "Library.txt", Content: "opening hours"}},
	}

	got := buildContext(matches)
	want := "Document: Fees.txt\nContent: tuition info\n\nDocument: Library.txt\nContent: opening hours"
	if got != want {
		t.Errorf("buildContext = %q, want %q", got, want)
	}
}
