package models

import (
	"strings"
	"testing"
)

func TestPreview(t *testing.T) {
	short := "brief content"
	if Preview(short) != short {
		t.Errorf("Expected short content untouched")
	}

	long := strings.Repeat("x", PreviewLength+50)
	got := Preview(long)
	if len([]rune(got)) != PreviewLength+3 {
		t.Errorf("Expected %d runes, got %d", PreviewLength+3, len([]rune(got)))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("Expected ellipsis, got %q", got)
	}
}

func TestNewDocumentSource(t *testing.T) {
	match := RetrievalMatch{
		Chunk: Chunk{
			Filename: "Fees.txt",
			Path:     "/docs/Fees.txt",
			Content:  "Tuition is $5000 per semester.",
		},
		Score: 0.93,
	}

	src := NewDocumentSource(0, match)
	if src.SourceID != "source_1" {
		t.Errorf("Expected source_1, got %q", src.SourceID)
	}
	if src.Filename != "Fees.txt" {
		t.Errorf("Unexpected filename: %q", src.Filename)
	}
	if src.Filepath == "" {
		t.Error("Expected an absolute filepath for document sources")
	}
	if src.Relevance != 0.93 {
		t.Errorf("Expected relevance carried from match score, got %f", src.Relevance)
	}
	if src.IsWebResult {
		t.Error("Document sources are not web results")
	}
	if src.ContentSnippet != match.Chunk.Content {
		t.Errorf("Unexpected snippet: %q", src.ContentSnippet)
	}

	second := NewDocumentSource(1, match)
	if second.SourceID != "source_2" {
		t.Errorf("Expected source_2, got %q", second.SourceID)
	}
}

func TestNewChunk(t *testing.T) {
	chunk := NewChunk("content", "Fees.txt", "/docs/Fees.txt", 2, 5)
	if chunk.ID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("Expected a fresh chunk ID")
	}
	if chunk.Index != 2 || chunk.Total != 5 {
		t.Errorf("Unexpected position: %d/%d", chunk.Index, chunk.Total)
	}
}
