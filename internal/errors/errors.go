// Package errors defines the error taxonomy of the query pipeline.
package errors

// StandardError represents a standard application error.
type StandardError struct {
	Type    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *StandardError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *StandardError) Unwrap() error {
	return e.Cause
}

// Is matches errors by type, so a WithCause copy still matches its
// sentinel.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	return ok && t.Type == e.Type
}

// WithCause adds a cause to the error.
func (e *StandardError) WithCause(cause error) *StandardError {
	return &StandardError{
		Type:    e.Type,
		Message: e.Message,
		Cause:   cause,
	}
}

// ErrNotReady indicates the system has not finished initializing. Operations
// fail fast with this error instead of reaching for the network.
var ErrNotReady = &StandardError{
	Type:    "SYSTEM_NOT_READY",
	Message: "system not ready",
}

// ErrRebuildInProgress indicates an index rebuild is already running.
var ErrRebuildInProgress = &StandardError{
	Type:    "REBUILD_IN_PROGRESS",
	Message: "index rebuild already in progress",
}

// ErrEmptyQuery indicates a query request with no usable text.
var ErrEmptyQuery = &StandardError{
	Type:    "EMPTY_QUERY",
	Message: "empty query",
}

// ErrExtraction indicates a per-file text extraction failure. These are
// recovered by skipping the file.
var ErrExtraction = &StandardError{
	Type:    "EXTRACTION_FAILED",
	Message: "text extraction failed",
}

// ErrGeneration indicates the remote model call failed after exhausting
// retries.
var ErrGeneration = &StandardError{
	Type:    "GENERATION_FAILED",
	Message: "text generation failed",
}

// ErrEmbedding indicates the remote embedding call failed.
var ErrEmbedding = &StandardError{
	Type:    "EMBEDDING_FAILED",
	Message: "embedding failed",
}
