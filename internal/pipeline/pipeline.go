// Package pipeline orchestrates the retrieval-and-answer flow: load and
// chunk documents, build or reuse the vector index, retrieve context for a
// query, generate answers, and fall back to the knowledge path when the
// documents cannot support an answer.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	apperrors "campusquery/internal/errors"
	"campusquery/internal/models"
	"campusquery/internal/storage"
)

// Interfaces for dependency injection

// Embedder produces embedding vectors for text.
type Embedder interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Generator produces text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// DocumentLoader extracts documents from a directory.
type DocumentLoader interface {
	Load(ctx context.Context, dir string) ([]models.Document, error)
}

// Chunker splits a document into retrieval chunks.
type Chunker interface {
	Chunk(doc models.Document) []models.Chunk
}

// ResponseCache is the slice of the model-response cache the pipeline needs:
// invalidation on rebuild.
type ResponseCache interface {
	Clear() error
}

// Options carries the tunables of the query flow.
type Options struct {
	DocumentsDir string
	TopK         int
	ContextDocs  int
}

// documentConfidence is the constant confidence reported for answers built
// from local documents.
const documentConfidence = 0.8

// fallbackConfidence is the constant confidence reported for knowledge-path
// answers.
const fallbackConfidence = 0.5

// Pipeline is the query system. Its lifecycle state is guarded by a single
// lock; queries read a snapshot of the state, so an in-flight rebuild cannot
// race a query into a half-built index.
type Pipeline struct {
	loader    DocumentLoader
	chunker   Chunker
	embedder  Embedder
	store     storage.VectorStore
	generator *AnswerGenerator
	cache     ResponseCache
	opts      Options

	mu           sync.RWMutex
	state        State
	statusMsg    string
	chunkCount   int
	queryCount   int64
	successCount int64
	lastResult   *models.AnalysisResponse
}

// New creates a pipeline. Zero option values fall back to top-k 5 with 3
// context documents.
func New(l DocumentLoader, c Chunker, e Embedder, s storage.VectorStore, g *AnswerGenerator, rc ResponseCache, opts Options) *Pipeline {
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	if opts.ContextDocs <= 0 {
		opts.ContextDocs = 3
	}
	if opts.ContextDocs > opts.TopK {
		opts.ContextDocs = opts.TopK
	}
	return &Pipeline{
		loader:    l,
		chunker:   c,
		embedder:  e,
		store:     s,
		generator: g,
		cache:     rc,
		opts:      opts,
		state:     StateUninitialized,
		statusMsg: "Starting...",
	}
}

// Start kicks off initialization in the background so the HTTP surface
// stays responsive while documents are loaded and embedded.
func (p *Pipeline) Start() {
	if err := p.begin(StateLoading, "Loading university documents..."); err != nil {
		return
	}
	go p.runInit(context.Background())
}

// Initialize runs a full initialization pass synchronously.
func (p *Pipeline) Initialize(ctx context.Context) error {
	if err := p.begin(StateLoading, "Loading university documents..."); err != nil {
		return err
	}
	return p.runInit(ctx)
}

// Rebuild clears the persisted index and response cache and re-triggers
// initialization in the background. It fails fast if a build is already in
// flight.
func (p *Pipeline) Rebuild() error {
	if err := p.begin(StateRebuilding, "Rebuilding index..."); err != nil {
		return err
	}

	if err := p.store.Clear(); err != nil {
		p.fail(err)
		return err
	}
	if p.cache != nil {
		if err := p.cache.Clear(); err != nil {
			log.Printf("Warning: failed to clear response cache: %v", err)
		}
	}

	go p.runInit(context.Background())
	return nil
}

// begin transitions into an initialization state, rejecting concurrent
// builds.
func (p *Pipeline) begin(state State, msg string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.initializing() {
		return apperrors.ErrRebuildInProgress
	}
	p.state = state
	p.statusMsg = msg
	return nil
}

func (p *Pipeline) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = StateFailed
	p.statusMsg = fmt.Sprintf("Initialization failed: %v", err)
}

// runInit loads documents, reuses the persisted index when its manifest
// still matches the document set, and rebuilds it otherwise.
func (p *Pipeline) runInit(ctx context.Context) error {
	if err := p.buildOrLoad(ctx); err != nil {
		log.Printf("System initialization failed: %v", err)
		p.fail(err)
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = StateReady
	if p.chunkCount == 0 {
		p.statusMsg = "No documents found - web search enabled"
	} else {
		p.statusMsg = "System ready"
	}
	log.Printf("System initialized with %d chunks", p.chunkCount)
	return nil
}

func (p *Pipeline) buildOrLoad(ctx context.Context) error {
	docs, err := p.loader.Load(ctx, p.opts.DocumentsDir)
	if err != nil {
		return fmt.Errorf("failed to load documents: %w", err)
	}

	hash := storage.DocumentSetHash(docs)

	count, err := p.store.Count()
	if err != nil {
		return err
	}
	manifest, err := p.store.Manifest()
	if err != nil {
		return err
	}

	// Fast restart: reuse the persisted index only when the stored manifest
	// proves the document set is unchanged.
	if count > 0 && manifest == hash {
		log.Printf("Reusing persisted index (%d chunks)", count)
		p.setChunkCount(count)
		return nil
	}

	if count > 0 || manifest != "" {
		if err := p.store.Clear(); err != nil {
			return err
		}
	}

	total := 0
	for _, doc := range docs {
		chunks := p.chunker.Chunk(doc)
		p.setStatus(fmt.Sprintf("Indexing %s (%d chunks)...", doc.Filename, len(chunks)))

		for i := range chunks {
			embedding, err := p.embedder.GetEmbedding(ctx, chunks[i].Content)
			if err != nil {
				return fmt.Errorf("failed to embed chunk %d of %s: %w", chunks[i].Index, doc.Filename, err)
			}
			chunks[i].Embedding = embedding

			if err := p.store.AddChunk(&chunks[i]); err != nil {
				return fmt.Errorf("failed to store chunk %d of %s: %w", chunks[i].Index, doc.Filename, err)
			}
			total++
		}
	}

	if err := p.store.SetManifest(hash); err != nil {
		return err
	}

	p.setChunkCount(total)
	return nil
}

func (p *Pipeline) setChunkCount(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chunkCount = n
}

func (p *Pipeline) setStatus(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statusMsg = msg
}

// ProcessQuery answers a query. It fails fast when the system is not ready;
// once past that check it always returns an AnalysisResponse, degraded if
// necessary, never a panic or a raw remote error.
func (p *Pipeline) ProcessQuery(ctx context.Context, query string) (*models.AnalysisResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.ErrEmptyQuery
	}

	p.mu.RLock()
	state := p.state
	p.mu.RUnlock()
	if state != StateReady {
		return nil, apperrors.ErrNotReady
	}

	resp, ok := p.process(ctx, query)
	resp.Query = query

	p.mu.Lock()
	p.queryCount++
	if ok {
		p.successCount++
	}
	p.lastResult = resp
	p.mu.Unlock()

	return resp, nil
}

// process runs the retrieval/generation flow. The boolean reports whether
// the response is a real answer rather than a degraded error carrier.
func (p *Pipeline) process(ctx context.Context, query string) (*models.AnalysisResponse, bool) {
	embedding, err := p.embedder.GetEmbedding(ctx, query)
	if err != nil {
		return degradedResponse(err), false
	}

	matches, err := p.store.Search(embedding, p.opts.TopK)
	if err != nil {
		return degradedResponse(err), false
	}

	// No retrieved context at all: go straight to the knowledge fallback
	// instead of generating from nothing.
	if len(matches) == 0 {
		log.Printf("No relevant documents for query, falling back to web search")
		return p.fallback(ctx, query)
	}

	contextMatches := matches
	if len(contextMatches) > p.opts.ContextDocs {
		contextMatches = contextMatches[:p.opts.ContextDocs]
	}

	result, err := p.generator.FromDocuments(ctx, query, buildContext(contextMatches))
	if err != nil {
		return degradedResponse(err), false
	}

	if result.InsufficientContext {
		log.Printf("Document-based answer inadequate, falling back to web search")
		return p.fallback(ctx, query)
	}

	sources := make([]models.Source, 0, len(matches))
	references := make([]string, 0, len(matches))
	for i, match := range matches {
		source := models.NewDocumentSource(i, match)
		if match.Score <= 0 {
			// Rank decay only when the index supplied no real score.
			source.Relevance = rankDecay(i)
		}
		sources = append(sources, source)
		references = append(references, match.Chunk.Filename)
	}

	return &models.AnalysisResponse{
		Answer:             result.Text,
		DetailedAnswer:     result.Detailed,
		Justification:      fmt.Sprintf("Answer based on %d relevant documents", len(matches)),
		ConfidenceScore:    documentConfidence,
		KeyPoints:          []string{keyPoint(result.Text)},
		DocumentReferences: references,
		Sources:            sources,
		ApplicableSections: []string{},
	}, true
}

// fallback answers from the model's own knowledge. Failures are converted
// into a degraded response carrying the error text.
func (p *Pipeline) fallback(ctx context.Context, query string) (*models.AnalysisResponse, bool) {
	result, overview, err := p.generator.FromKnowledge(ctx, query)
	if err != nil {
		return &models.AnalysisResponse{
			Answer:             fmt.Sprintf("Error during web search: %v", err),
			DetailedAnswer:     fmt.Sprintf("Error during web search: %v", err),
			Justification:      "An error occurred during web search",
			ConfidenceScore:    0,
			KeyPoints:          []string{},
			DocumentReferences: []string{},
			Sources:            []models.Source{},
			ApplicableSections: []string{},
		}, false
	}

	source := models.Source{
		SourceID:       "web_source_1",
		Filename:       "Web Search Result 1",
		Filepath:       "", // no file behind a knowledge-path answer
		ContentPreview: models.Preview(overview),
		ContentSnippet: overview,
		Relevance:      1.0,
		IsWebResult:    true,
	}

	return &models.AnalysisResponse{
		Answer:             "**Information from Web Search:**\n\n" + result.Text,
		DetailedAnswer:     "**Detailed Web Search Information:**\n\n" + result.Detailed,
		Justification:      "Answer based on web search results (no relevant information found in local documents)",
		ConfidenceScore:    fallbackConfidence,
		KeyPoints:          []string{keyPoint(result.Text)},
		DocumentReferences: []string{},
		Sources:            []models.Source{source},
		ApplicableSections: []string{},
	}, true
}

// Followup generates a follow-up question for a selected document passage.
func (p *Pipeline) Followup(ctx context.Context, req models.FollowupRequest) (string, error) {
	p.mu.RLock()
	state := p.state
	p.mu.RUnlock()
	if state != StateReady {
		return "", apperrors.ErrNotReady
	}

	return p.generator.Followup(ctx, req.SelectedText, req.Context, req.DocumentName)
}

// Status returns a snapshot of the system state.
func (p *Pipeline) Status() models.StatusResponse {
	p.mu.RLock()
	defer p.mu.RUnlock()

	successRate := 0.0
	if p.queryCount > 0 {
		successRate = float64(p.successCount) / float64(p.queryCount)
	}

	return models.StatusResponse{
		Ready:            p.state == StateReady,
		Status:           p.statusMsg,
		DocumentCount:    p.chunkCount,
		HasDocuments:     p.chunkCount > 0,
		WebSearchEnabled: true,
		QueryCount:       p.queryCount,
		SuccessRate:      successRate,
	}
}

// LastResult returns the most recent analysis response, if any.
func (p *Pipeline) LastResult() (*models.AnalysisResponse, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.lastResult == nil {
		return nil, false
	}
	return p.lastResult, true
}

func degradedResponse(err error) *models.AnalysisResponse {
	msg := fmt.Sprintf("Error processing query: %v", err)
	return &models.AnalysisResponse{
		Answer:             msg,
		DetailedAnswer:     msg,
		Justification:      "An error occurred",
		ConfidenceScore:    0,
		KeyPoints:          []string{},
		DocumentReferences: []string{},
		Sources:            []models.Source{},
		ApplicableSections: []string{},
	}
}

func rankDecay(rank int) float64 {
	score := 1.0 - float64(rank)*0.2
	if score < 0 {
		score = 0
	}
	return score
}

func keyPoint(answer string) string {
	runes := []rune(answer)
	if len(runes) <= 100 {
		return answer
	}
	return string(runes[:100]) + "..."
}
