package chunker

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusquery/internal/models"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		s := New()
		assert.Equal(t, DefaultChunkSize, s.chunkSize)
		assert.Equal(t, DefaultChunkOverlap, s.overlap)
	})

	t.Run("custom values", func(t *testing.T) {
		s := New(WithChunkSize(500), WithOverlap(100))
		assert.Equal(t, 500, s.chunkSize)
		assert.Equal(t, 100, s.overlap)
	})

	t.Run("overlap exceeds chunk size", func(t *testing.T) {
		s := New(WithChunkSize(100), WithOverlap(150))
		assert.Less(t, s.overlap, s.chunkSize)
	})

	t.Run("zero values ignored", func(t *testing.T) {
		s := New(WithChunkSize(0), WithOverlap(-1))
		assert.Equal(t, DefaultChunkSize, s.chunkSize)
		assert.Equal(t, DefaultChunkOverlap, s.overlap)
	})
}

func TestSplit_Empty(t *testing.T) {
	s := New()
	assert.Nil(t, s.Split(""))
	assert.Nil(t, s.Split("   \n\t  "))
}

func TestSplit_SmallText(t *testing.T) {
	s := New(WithChunkSize(100), WithOverlap(20))
	pieces := s.Split("A short piece of text.")
	require.Len(t, pieces, 1)
	assert.Equal(t, "A short piece of text.", pieces[0])
}

func TestSplit_SizeBound(t *testing.T) {
	s := New(WithChunkSize(100), WithOverlap(20))

	texts := []string{
		strings.Repeat("A sentence about tuition fees. ", 40),
		strings.Repeat("paragraph one\n\nparagraph two\n\n", 30),
		strings.Repeat("x", 950), // no separators at all
	}

	for _, text := range texts {
		for _, piece := range s.Split(text) {
			assert.LessOrEqual(t, len(piece), 100, "chunk exceeds size bound: %q", piece)
		}
	}
}

func TestSplit_CoversSourceText(t *testing.T) {
	s := New(WithChunkSize(80), WithOverlap(16))

	text := "Tuition is $5000 per semester. Registration opens in August. " +
		"Late enrolment incurs a $50 fee. Scholarships are awarded each spring. " +
		"Contact the bursar for payment plans."

	joined := strings.Join(s.Split(text), " ")
	for _, word := range strings.Fields(text) {
		assert.Contains(t, joined, word)
	}
}

func TestSplit_OverlapBound(t *testing.T) {
	s := New(WithChunkSize(100), WithOverlap(30))

	var sb strings.Builder
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&sb, "Sentence number %d covers a distinct topic. ", i)
	}
	pieces := s.Split(sb.String())
	require.Greater(t, len(pieces), 1)

	for i := 1; i < len(pieces); i++ {
		overlap := commonAffix(pieces[i-1], pieces[i])
		assert.LessOrEqual(t, overlap, 30, "overlap between chunks %d and %d", i-1, i)
	}
}

// commonAffix returns the length of the longest suffix of a that is a prefix
// of b.
func commonAffix(a, b string) int {
	max := len(a)
	if len(b) < max {
		max = len(b)
	}
	for n := max; n > 0; n-- {
		if strings.HasSuffix(a, b[:n]) {
			return n
		}
	}
	return 0
}

func TestSplit_CharacterWindows(t *testing.T) {
	s := New(WithChunkSize(50), WithOverlap(10))

	text := strings.Repeat("z", 200)
	pieces := s.Split(text)
	require.Greater(t, len(pieces), 1)

	for _, piece := range pieces {
		assert.LessOrEqual(t, len(piece), 50)
	}

	// Windows step by size-overlap, so together they cover the text.
	total := 0
	for _, piece := range pieces {
		total += len(piece)
	}
	assert.GreaterOrEqual(t, total, len(text))
}

func TestSplit_MultiByteWindows(t *testing.T) {
	s := New(WithChunkSize(100), WithOverlap(20))

	// No ASCII separators at all, so splitting falls through to character
	// windows; each rune is 3 bytes.
	text := strings.Repeat("大学の規則集", 100)
	pieces := s.Split(text)
	require.Greater(t, len(pieces), 1)

	for i, piece := range pieces {
		assert.True(t, utf8.ValidString(piece), "chunk %d is not valid UTF-8", i)
		assert.LessOrEqual(t, len([]rune(piece)), 100, "chunk %d exceeds size in runes", i)
	}

	assert.True(t, strings.HasPrefix(pieces[0], "大学の規則集"))
	assert.True(t, strings.HasSuffix(pieces[len(pieces)-1], "大学の規則集"))
}

func TestChunk_Metadata(t *testing.T) {
	s := New(WithChunkSize(60), WithOverlap(10))

	doc := models.Document{
		Filename: "Fees.txt",
		Path:     "/docs/Fees.txt",
		Content:  strings.Repeat("Tuition is due at the start of each semester. ", 10),
	}

	chunks := s.Chunk(doc)
	require.NotEmpty(t, chunks)

	for i, chunk := range chunks {
		assert.Equal(t, "Fees.txt", chunk.Filename)
		assert.Equal(t, "/docs/Fees.txt", chunk.Path)
		assert.Equal(t, i, chunk.Index)
		assert.Equal(t, len(chunks), chunk.Total)
		assert.NotEmpty(t, strings.TrimSpace(chunk.Content))
		assert.NotEqual(t, "", chunk.ID.String())
	}
}

func TestChunk_DropsWhitespaceChunks(t *testing.T) {
	s := New(WithChunkSize(10), WithOverlap(0))

	doc := models.Document{
		Filename: "sparse.txt",
		Content:  "word\n\n\n\n\n\n\n\n\n\n\n\nother",
	}

	for _, chunk := range s.Chunk(doc) {
		assert.NotEmpty(t, strings.TrimSpace(chunk.Content))
	}
}
