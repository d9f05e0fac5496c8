package loader

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"

	apperrors "campusquery/internal/errors"
)

// TextExtractor reads a plain-text or markdown file as-is.
type TextExtractor struct{}

// Extract implements Extractor.
func (e *TextExtractor) Extract(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", apperrors.ErrExtraction.WithCause(err)
	}
	return string(data), nil
}

// CommandRunner abstracts external tool invocation so extraction can be
// tested without the tool installed.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// PDFExtractor extracts text from PDF files by shelling out to pdftotext
// (poppler). The tool writes extracted text to stdout when the output file
// is "-".
type PDFExtractor struct {
	runner CommandRunner
}

// NewPDFExtractor creates a PDF extractor using the local pdftotext binary.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{runner: execRunner{}}
}

// NewPDFExtractorWithRunner creates a PDF extractor with a custom runner.
func NewPDFExtractorWithRunner(r CommandRunner) *PDFExtractor {
	return &PDFExtractor{runner: r}
}

// Extract implements Extractor.
func (e *PDFExtractor) Extract(ctx context.Context, path string) (string, error) {
	out, err := e.runner.Run(ctx, "pdftotext", "-layout", "-nopgbrk", path, "-")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", apperrors.ErrExtraction.WithCause(errors.New("pdftotext not installed (brew install poppler / apt install poppler-utils)"))
		}
		return "", apperrors.ErrExtraction.WithCause(err)
	}
	return string(out), nil
}

// DocxExtractor extracts text from DOCX files. A DOCX is a ZIP archive whose
// word/document.xml holds the body; text lives in <w:t> elements and
// paragraphs end at </w:p>.
type DocxExtractor struct{}

// Extract implements Extractor.
func (e *DocxExtractor) Extract(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", apperrors.ErrExtraction.WithCause(err)
	}

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", apperrors.ErrExtraction.WithCause(err)
	}

	for _, f := range reader.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", apperrors.ErrExtraction.WithCause(err)
		}
		text, err := docxText(rc)
		_ = rc.Close()
		if err != nil {
			return "", apperrors.ErrExtraction.WithCause(err)
		}
		return text, nil
	}

	return "", apperrors.ErrExtraction.WithCause(errors.New("word/document.xml not found"))
}

func docxText(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	var sb strings.Builder
	var inText bool

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteByte('\t')
			case "br":
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}

	return sb.String(), nil
}
