package reembed

import "errors"

var (
	// ErrInvalidAttempts is returned when a Backoff allows no attempts.
	ErrInvalidAttempts = errors.New("attempts must be greater than 0")

	// ErrEmbeddingMismatch is returned when the embedder returns a different
	// number of vectors than texts sent.
	ErrEmbeddingMismatch = errors.New("embedding count mismatch")
)
