package llm

import (
	"context"
	"log"
	"time"

	"golang.org/x/time/rate"

	"campusquery/internal/cache"
	apperrors "campusquery/internal/errors"
)

// Generator produces text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// SafeClient wraps a Generator with an exact-match prompt cache, a minimum
// inter-call interval and bounded retries with exponential backoff. A cache
// hit never touches the network or the rate limiter.
type SafeClient struct {
	remote     Generator
	cache      *cache.Cache
	limiter    *rate.Limiter
	maxRetries int
	baseDelay  time.Duration
}

// NewSafeClient builds the wrapper. callsPerMinute throttles outbound calls
// to one per 60/callsPerMinute seconds; maxRetries and baseDelay control the
// backoff schedule (baseDelay * 2^attempt).
func NewSafeClient(remote Generator, c *cache.Cache, callsPerMinute, maxRetries int, baseDelay time.Duration) *SafeClient {
	if callsPerMinute <= 0 {
		callsPerMinute = 10
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if baseDelay <= 0 {
		baseDelay = 5 * time.Second
	}
	return &SafeClient{
		remote:     remote,
		cache:      c,
		limiter:    rate.NewLimiter(rate.Limit(float64(callsPerMinute)/60.0), 1),
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
	}
}

// Generate returns the model response for the prompt, consulting the cache
// first and storing the result on success.
func (s *SafeClient) Generate(ctx context.Context, prompt string) (string, error) {
	if content, ok := s.cache.Get(prompt); ok {
		return content, nil
	}

	var lastErr error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", err
		}

		content, err := s.remote.Generate(ctx, prompt)
		if err == nil {
			if err := s.cache.Set(prompt, content); err != nil {
				log.Printf("Warning: failed to cache response: %v", err)
			}
			return content, nil
		}
		lastErr = err

		if attempt < s.maxRetries-1 {
			delay := s.baseDelay << attempt
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return "", apperrors.ErrGeneration.WithCause(lastErr)
}
