// Package storage provides vector storage implementations for chunk
// embeddings.
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"sort"
	"sync"

	"campusquery/internal/models"
)

// VectorStore persists chunks with their embeddings and supports
// nearest-neighbour search. Implementations return matches ranked by
// decreasing similarity, with the real similarity score threaded through.
type VectorStore interface {
	AddChunk(chunk *models.Chunk) error
	Search(embedding []float32, topK int) ([]models.RetrievalMatch, error)
	Count() (int, error)
	Manifest() (string, error)
	SetManifest(hash string) error
	Clear() error
	Close() error
}

// DocumentSetHash returns a stable content hash over a document set, stored
// alongside the index so a restart can tell whether the persisted index
// still matches the documents on disk.
func DocumentSetHash(docs []models.Document) string {
	sorted := make([]models.Document, len(docs))
	copy(sorted, docs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Filename < sorted[j].Filename })

	h := sha256.New()
	for _, d := range sorted {
		h.Write([]byte(d.Filename))
		h.Write([]byte{0})
		h.Write([]byte(d.Content))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// MemoryVectorStore is an in-memory store using exhaustive cosine search.
// It backs tests and small document sets.
type MemoryVectorStore struct {
	mu       sync.RWMutex
	chunks   []*models.Chunk
	manifest string
}

// NewMemoryVectorStore creates an empty in-memory store.
func NewMemoryVectorStore() *MemoryVectorStore {
	return &MemoryVectorStore{}
}

// AddChunk implements VectorStore.
func (m *MemoryVectorStore) AddChunk(chunk *models.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = append(m.chunks, chunk)
	return nil
}

// Search implements VectorStore.
func (m *MemoryVectorStore) Search(embedding []float32, topK int) ([]models.RetrievalMatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.chunks) == 0 {
		return nil, nil
	}

	matches := make([]models.RetrievalMatch, 0, len(m.chunks))
	for _, chunk := range m.chunks {
		similarity := cosineSimilarity(embedding, chunk.Embedding)
		matches = append(matches, models.RetrievalMatch{
			Chunk: *chunk,
			// Map [-1,1] cosine into [0,1].
			Score: (float64(similarity) + 1) / 2,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if topK < len(matches) {
		matches = matches[:topK]
	}
	return matches, nil
}

// Count implements VectorStore.
func (m *MemoryVectorStore) Count() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks), nil
}

// Manifest implements VectorStore.
func (m *MemoryVectorStore) Manifest() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.manifest, nil
}

// SetManifest implements VectorStore.
func (m *MemoryVectorStore) SetManifest(hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.manifest = hash
	return nil
}

// Clear implements VectorStore.
func (m *MemoryVectorStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = nil
	m.manifest = ""
	return nil
}

// Close implements VectorStore.
func (m *MemoryVectorStore) Close() error {
	return nil
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float32
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}
