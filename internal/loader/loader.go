// Package loader reads source files from a documents directory and extracts
// plain text per format. Extraction failures are recovered per file: the
// file is skipped and loading continues.
package loader

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"

	"campusquery/internal/models"
)

// Extractor turns the raw bytes of one file into plain text.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// Loader enumerates a documents directory and extracts text from every file
// with a recognized extension.
type Loader struct {
	extractors map[string]Extractor
}

// New creates a loader with the default extractor per extension.
func New() *Loader {
	text := &TextExtractor{}
	return &Loader{
		extractors: map[string]Extractor{
			".pdf":  NewPDFExtractor(),
			".docx": &DocxExtractor{},
			".txt":  text,
			".md":   text,
		},
	}
}

// WithExtractor overrides the extractor for an extension. Extensions are
// lower-case and include the leading dot.
func (l *Loader) WithExtractor(ext string, e Extractor) *Loader {
	l.extractors[ext] = e
	return l
}

// Load extracts text from every recognized regular file directly under dir.
// A missing directory yields no documents and no error.
func (l *Loader) Load(ctx context.Context, dir string) ([]models.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var documents []models.Document
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		extractor, ok := l.extractors[ext]
		if !ok {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		text, err := extractor.Extract(ctx, path)
		if err != nil {
			log.Printf("Skipping %s: %v", entry.Name(), err)
			continue
		}

		text = Normalize(text)
		if text == "" {
			log.Printf("Skipping %s: no extractable text", entry.Name())
			continue
		}

		documents = append(documents, models.Document{
			Filename: entry.Name(),
			Path:     path,
			Content:  text,
		})
	}

	return documents, nil
}
