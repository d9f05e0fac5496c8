// Package embeddings wraps the hosted embedding endpoint.
package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"campusquery/internal/config"
	apperrors "campusquery/internal/errors"
)

// Embedder calls an Ollama-compatible embeddings endpoint.
type Embedder struct {
	baseURL    string
	model      string
	apiKey     string
	client     *http.Client
	maxRetries int
}

// NewEmbedder creates an embedder from the provider configuration.
// maxRetries bounds retries of transient failures; values <= 0 fall back to
// 3.
func NewEmbedder(cfg config.OllamaConfig, maxRetries int) *Embedder {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Embedder{
		baseURL:    cfg.BaseURL,
		model:      cfg.EmbeddingModel,
		apiKey:     cfg.APIKey,
		client:     &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
	}
}

// GetEmbedding returns the embedding vector for the given text. Transient
// provider failures (connection errors, 429, 5xx) are retried with
// exponential backoff, honouring Retry-After when present.
func (e *Embedder) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	reqBody := map[string]interface{}{
		"model":  e.model,
		"prompt": text,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	url := e.baseURL + "/api/embeddings"

	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if e.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+e.apiKey)
		}

		resp, err := e.client.Do(req)
		if err != nil {
			if attempt < e.maxRetries {
				if err := sleep(ctx, retryDelay(attempt)); err != nil {
					return nil, err
				}
				continue
			}
			return nil, apperrors.ErrEmbedding.WithCause(err)
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			delay := retryDelay(attempt)
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if secs, err := strconv.Atoi(ra); err == nil {
					delay = time.Duration(secs) * time.Second
				}
			}
			_ = resp.Body.Close()
			if attempt < e.maxRetries {
				if err := sleep(ctx, delay); err != nil {
					return nil, err
				}
				continue
			}
			return nil, apperrors.ErrEmbedding.WithCause(fmt.Errorf("embeddings request failed: %s", resp.Status))
		}

		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return nil, apperrors.ErrEmbedding.WithCause(err)
		}

		if resp.StatusCode >= 300 {
			return nil, apperrors.ErrEmbedding.WithCause(fmt.Errorf("embeddings request failed: %s", resp.Status))
		}

		var result struct {
			Embedding []float32 `json:"embedding"`
		}
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, apperrors.ErrEmbedding.WithCause(err)
		}

		if len(result.Embedding) == 0 {
			return nil, apperrors.ErrEmbedding.WithCause(fmt.Errorf("no embedding returned"))
		}

		return result.Embedding, nil
	}
}

func retryDelay(attempt int) time.Duration {
	base := 200 * time.Millisecond
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
