// Package models defines the shared data types of the CampusQuery pipeline.
package models

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
)

// Document is the extracted plain text of a single source file.
type Document struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Content  string `json:"content"`
}

// Chunk is a bounded contiguous slice of a document's text, the unit of
// retrieval. Index and Total describe its position within the source
// document for a fixed chunking configuration.
type Chunk struct {
	ID       uuid.UUID `json:"id"`
	Content  string    `json:"content"`
	Filename string    `json:"filename"`
	Path     string    `json:"path"`
	Index    int       `json:"chunk_index"`
	Total    int       `json:"total_chunks"`

	Embedding []float32 `json:"-"`
}

// NewChunk creates a chunk with a fresh identity.
func NewChunk(content, filename, path string, index, total int) Chunk {
	return Chunk{
		ID:       uuid.New(),
		Content:  content,
		Filename: filename,
		Path:     path,
		Index:    index,
		Total:    total,
	}
}

// RetrievalMatch is a chunk with its similarity score, produced per query.
// Score is in [0,1] and decreases with rank; it is similarity-derived when
// the index supplies a distance, rank-derived otherwise.
type RetrievalMatch struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// Source describes one supporting passage in an answer. Sources with an
// empty Filepath come from the knowledge fallback rather than a local
// document, and carry IsWebResult = true.
type Source struct {
	SourceID       string  `json:"source_id"`
	Filename       string  `json:"filename"`
	Filepath       string  `json:"filepath"`
	ContentPreview string  `json:"content_preview"`
	ContentSnippet string  `json:"content_snippet"`
	Relevance      float64 `json:"relevance"`
	IsWebResult    bool    `json:"is_web_result"`
}

// PreviewLength is the number of characters of chunk content surfaced in a
// source preview.
const PreviewLength = 200

// NewDocumentSource builds a Source from a retrieval match at the given rank.
func NewDocumentSource(rank int, match RetrievalMatch) Source {
	abs, err := filepath.Abs(match.Chunk.Path)
	if err != nil {
		abs = match.Chunk.Path
	}
	return Source{
		SourceID:       fmt.Sprintf("source_%d", rank+1),
		Filename:       match.Chunk.Filename,
		Filepath:       abs,
		ContentPreview: Preview(match.Chunk.Content),
		ContentSnippet: match.Chunk.Content,
		Relevance:      match.Score,
	}
}

// Preview truncates content to PreviewLength characters with an ellipsis.
func Preview(content string) string {
	runes := []rune(content)
	if len(runes) <= PreviewLength {
		return content
	}
	return string(runes[:PreviewLength]) + "..."
}

// AnalysisResponse is the structured result of a query. It is produced once
// per query and held as the last result for export.
type AnalysisResponse struct {
	Query              string   `json:"query,omitempty"`
	Answer             string   `json:"answer"`
	DetailedAnswer     string   `json:"detailed_answer"`
	Justification      string   `json:"justification"`
	ConfidenceScore    float64  `json:"confidence_score"`
	KeyPoints          []string `json:"key_points"`
	DocumentReferences []string `json:"document_references"`
	Sources            []Source `json:"sources"`
	ApplicableSections []string `json:"applicable_sections"`
}

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	Query string `json:"query"`
}

// FollowupRequest is the body of POST /api/followup.
type FollowupRequest struct {
	SelectedText string `json:"selected_text"`
	Context      string `json:"context"`
	DocumentName string `json:"document_name"`
}

// FollowupResponse carries a generated follow-up question.
type FollowupResponse struct {
	Question     string `json:"question"`
	SelectedText string `json:"selected_text"`
	DocumentName string `json:"document_name"`
}

// StatusResponse is returned by GET /api/status.
type StatusResponse struct {
	Ready            bool    `json:"ready"`
	Status           string  `json:"status"`
	DocumentCount    int     `json:"document_count"`
	HasDocuments     bool    `json:"has_documents"`
	WebSearchEnabled bool    `json:"web_search_enabled"`
	QueryCount       int64   `json:"query_count"`
	SuccessRate      float64 `json:"success_rate"`
}

// ExportResponse is returned by GET /api/export.
type ExportResponse struct {
	Timestamp      string   `json:"timestamp"`
	Query          string   `json:"query"`
	Answer         string   `json:"answer"`
	DetailedAnswer string   `json:"detailed_answer"`
	Justification  string   `json:"justification"`
	Sources        []string `json:"sources"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// RebuildResponse acknowledges an index rebuild request.
type RebuildResponse struct {
	Message string `json:"message"`
}
