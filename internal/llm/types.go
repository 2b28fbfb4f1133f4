// Package llm provides the generative backend client used for narrative
// synthesis and question answering.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmptyCompletion is returned when the backend answers successfully but
// produces no usable text. Callers treat it like any other backend failure.
var ErrEmptyCompletion = errors.New("backend returned no usable text")

// GenerateRequest is one bounded text completion request.
type GenerateRequest struct {
	Prompt string

	// MaxTokens bounds the output length. Zero uses the provider default.
	MaxTokens int
}

// GenerateResponse carries the completion text and token accounting.
type GenerateResponse struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Provider is a generative text backend. Implementations make exactly one
// attempt per call; retry and fallback policy live with the caller.
type Provider interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
	ModelID() string
}

// APIError represents a non-success response from the backend.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("gemini api error (status %d %s): %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("gemini api error (status %d %s)", e.StatusCode, e.Status)
}
