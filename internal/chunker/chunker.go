// Package chunker splits normalized document text into overlapping chunks
// for retrieval indexing. Splitting is recursive over a separator hierarchy:
// paragraph breaks first, then line breaks and sentence punctuation, then
// spaces, falling back to raw character windows only when no separator
// produces pieces within the target size.
package chunker

import (
	"strings"

	"campusquery/internal/models"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// defaultSeparators orders split points from strongest to weakest. The
// trailing empty string means raw character windows.
var defaultSeparators = []string{"\n\n", "\n", ".", "!", "?", ",", " ", ""}

// Splitter splits text into size-bounded chunks with overlap.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

// Option configures the splitter.
type Option func(*Splitter)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// New creates a splitter with the given options.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		separators: defaultSeparators,
	}

	for _, opt := range opts {
		opt(s)
	}

	// Ensure overlap doesn't exceed chunk size
	if s.overlap >= s.chunkSize {
		s.overlap = s.chunkSize / 4
	}

	return s
}

// Chunk splits a document into chunks carrying back-references to the
// source file. Empty and whitespace-only chunks are dropped.
func (s *Splitter) Chunk(doc models.Document) []models.Chunk {
	pieces := s.Split(doc.Content)

	kept := make([]string, 0, len(pieces))
	for _, p := range pieces {
		p = strings.TrimSpace(p)
		if p != "" {
			kept = append(kept, p)
		}
	}

	chunks := make([]models.Chunk, 0, len(kept))
	for i, content := range kept {
		chunks = append(chunks, models.NewChunk(content, doc.Filename, doc.Path, i, len(kept)))
	}
	return chunks
}

// Split splits raw text into strings of at most the chunk size.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.split(text, s.separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	if len(text) <= s.chunkSize {
		return []string{text}
	}

	sep, rest := pickSeparator(text, separators)
	if sep == "" {
		return s.windows(text)
	}

	parts := splitKeepSeparator(text, sep)
	return s.merge(parts, rest)
}

// pickSeparator returns the first separator present in the text and the
// remaining (weaker) separators to recurse with.
func pickSeparator(text string, separators []string) (string, []string) {
	for i, sep := range separators {
		if sep == "" {
			return "", nil
		}
		if strings.Contains(text, sep) {
			return sep, separators[i+1:]
		}
	}
	return "", nil
}

// splitKeepSeparator splits text on sep, keeping the separator attached to
// the preceding piece so the concatenation reconstructs the text.
func splitKeepSeparator(text, sep string) []string {
	split := strings.SplitAfter(text, sep)
	parts := split[:0]
	for _, p := range split {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// merge greedily packs pieces into chunks of at most chunkSize, carrying a
// tail of up to overlap characters into the next chunk. Pieces larger than
// chunkSize are split recursively with the weaker separators.
func (s *Splitter) merge(parts []string, rest []string) []string {
	var chunks []string
	var current []string
	currentLen := 0
	fresh := false // current holds content not yet emitted

	flush := func() {
		if len(current) == 0 || !fresh {
			return
		}
		chunks = append(chunks, strings.Join(current, ""))
		fresh = false

		// Retain trailing pieces up to the overlap budget.
		var tail []string
		tailLen := 0
		for i := len(current) - 1; i >= 0; i-- {
			if tailLen+len(current[i]) > s.overlap {
				break
			}
			tail = append([]string{current[i]}, tail...)
			tailLen += len(current[i])
		}
		current = tail
		currentLen = tailLen
	}

	for _, part := range parts {
		if len(part) > s.chunkSize {
			flush()
			current = nil
			currentLen = 0
			chunks = append(chunks, s.split(part, rest)...)
			continue
		}

		if currentLen+len(part) > s.chunkSize {
			flush()
			// The retained overlap plus the new piece may still exceed the
			// budget; drop the overlap rather than oversize the chunk.
			if currentLen+len(part) > s.chunkSize {
				current = nil
				currentLen = 0
			}
		}

		current = append(current, part)
		currentLen += len(part)
		fresh = true
	}

	flush()

	return chunks
}

// windows falls back to fixed-size character windows with overlap. Slicing
// is by rune so multi-byte text is never cut mid-character.
func (s *Splitter) windows(text string) []string {
	step := s.chunkSize - s.overlap
	if step <= 0 {
		step = s.chunkSize
	}

	runes := []rune(text)
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + s.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
