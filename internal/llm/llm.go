// Package llm dispatches prompts to the configured model provider and turns
// the replies into typed values, repairing malformed JSON where it can.
package llm

import (
	"context"
	"errors"
)

var (
	// ErrInvalidJSON is returned when no recovery stage produced parseable JSON.
	ErrInvalidJSON = errors.New("model returned invalid JSON")
	// ErrEmptyResponse is returned when the provider answered with no text.
	ErrEmptyResponse = errors.New("model returned an empty response")
)

// Request is a single completion request.
type Request struct {
	System string
	Prompt string
	// Model overrides the provider default when set.
	Model       string
	Temperature *float64
	MaxTokens   int
	// JSON asks the provider for a JSON-only reply when it supports it.
	JSON bool
}

// Provider is implemented by each model vendor.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// TransientError marks a provider failure that may succeed on retry.
type TransientError struct {
	err error
}

func (e *TransientError) Error() string { return e.err.Error() }

func (e *TransientError) Unwrap() error { return e.err }

// NewTransientError wraps an error as transient (retryable).
func NewTransientError(err error) error {
	return &TransientError{err: err}
}

// IsTransient returns true if the error is transient and should be retried.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// Float is a helper for Request.Temperature.
func Float(v float64) *float64 { return &v }
