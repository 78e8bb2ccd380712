// Package llm holds the chunk-proposing LLM backends. Every failure a
// provider returns wraps ErrProviderUnavailable or ErrInvalidResponse so the
// caller can fall back to another chunking method.
package llm

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

var (
	ErrProviderUnavailable = errors.New("llm: provider unavailable")
	ErrInvalidResponse     = errors.New("llm: invalid response")
	ErrInputTooLarge       = errors.New("llm: input exceeds token budget")
)

// ProposalRequest asks a provider to propose chunk boundaries for text.
type ProposalRequest struct {
	Text              string
	DocumentType      string // Hint such as "contract" or "specification"
	PreserveStructure bool   // Ask the model to keep numbered clauses and lists whole
}

// Proposal is one chunk proposed by a provider.
type Proposal struct {
	Content       string  `json:"content"`
	SectionLabel  string  `json:"section_label"`
	SemanticTheme string  `json:"semantic_theme"`
	Confidence    float64 `json:"confidence"`
}

// Provider is an interchangeable chunk proposer.
type Provider interface {
	Name() string
	ProposeChunks(ctx context.Context, req ProposalRequest) ([]Proposal, error)
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

func (e *RetryableError) Unwrap() error { return ErrProviderUnavailable }

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

// MaxRetries bounds the attempts made for one request.
const MaxRetries = 3

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

// withRetry runs call up to MaxRetries times while it fails with a retryable
// error. Waiting stops as soon as ctx is done.
func withRetry[T any](ctx context.Context, backoff func(int) time.Duration, call func() (T, error)) (T, error) {
	var zero T
	var err error
	for attempt := 0; attempt < MaxRetries; attempt++ {
		var out T
		out, err = call()
		if err == nil {
			return out, nil
		}
		if !IsRetryable(err) || attempt == MaxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("%w: %w", ErrProviderUnavailable, ctx.Err())
		case <-time.After(backoff(attempt)):
		}
	}
	return zero, err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
