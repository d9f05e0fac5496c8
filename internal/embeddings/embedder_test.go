package embeddings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"campusquery/internal/config"
	apperrors "campusquery/internal/errors"
)

func TestGetEmbedding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("Expected path /api/embeddings, got %s", r.URL.Path)
		}

		var req map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if req["model"] != "nomic-embed-text" {
			t.Errorf("Expected model nomic-embed-text, got %v", req["model"])
		}
		if req["prompt"] != "tuition fees" {
			t.Errorf("Expected prompt 'tuition fees', got %v", req["prompt"])
		}

		json.NewEncoder(w).Encode(map[string][]float32{"embedding": {0.1, 0.2, 0.3}})
	}))
	defer server.Close()

	e := NewEmbedder(config.OllamaConfig{BaseURL: server.URL, EmbeddingModel: "nomic-embed-text"}, 3)

	embedding, err := e.GetEmbedding(context.Background(), "tuition fees")
	if err != nil {
		t.Fatalf("GetEmbedding failed: %v", err)
	}
	if len(embedding) != 3 {
		t.Errorf("Expected 3 dimensions, got %d", len(embedding))
	}
}

func TestGetEmbedding_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string][]float32{"embedding": {0.5}})
	}))
	defer server.Close()

	e := NewEmbedder(config.OllamaConfig{BaseURL: server.URL, EmbeddingModel: "nomic-embed-text"}, 3)

	embedding, err := e.GetEmbedding(context.Background(), "retry me")
	if err != nil {
		t.Fatalf("GetEmbedding failed after retries: %v", err)
	}
	if len(embedding) != 1 {
		t.Errorf("Expected 1 dimension, got %d", len(embedding))
	}
	if calls.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls.Load())
	}
}

func TestGetEmbedding_HonoursConfiguredRetryBound(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	e := NewEmbedder(config.OllamaConfig{BaseURL: server.URL, EmbeddingModel: "nomic-embed-text"}, 1)

	if _, err := e.GetEmbedding(context.Background(), "always failing"); err == nil {
		t.Fatal("Expected error after exhausting retries")
	}
	if calls.Load() != 2 {
		t.Errorf("Expected 1 retry after the initial attempt, got %d attempts", calls.Load())
	}
}

func TestGetEmbedding_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer server.Close()

	e := NewEmbedder(config.OllamaConfig{BaseURL: server.URL, EmbeddingModel: "nomic-embed-text"}, 3)

	_, err := e.GetEmbedding(context.Background(), "rejected")
	if err == nil {
		t.Fatal("Expected error for 4xx response")
	}
	if !errors.Is(err, apperrors.ErrEmbedding) {
		t.Errorf("Expected embedding error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("Expected 1 attempt for client error, got %d", calls.Load())
	}
}

func TestGetEmbedding_EmptyVector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string][]float32{"embedding": {}})
	}))
	defer server.Close()

	e := NewEmbedder(config.OllamaConfig{BaseURL: server.URL, EmbeddingModel: "nomic-embed-text"}, 3)

	if _, err := e.GetEmbedding(context.Background(), "empty"); err == nil {
		t.Fatal("Expected error for empty embedding")
	}
}
