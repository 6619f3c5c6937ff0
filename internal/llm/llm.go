// Package llm wraps the hosted chat model used for answers, generation, and grading.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmptyResponse is wrapped in a ModelInvocationError when the model returns no text.
var ErrEmptyResponse = errors.New("model returned an empty response")

// Client sends one rendered prompt and returns the model's raw text.
// Calls block for the full round trip and are never retried.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f(ctx, prompt).
func (f ClientFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// ModelInvocationError reports a failed or empty model call.
type ModelInvocationError struct {
	Model string
	Err   error
}

func (e *ModelInvocationError) Error() string {
	return fmt.Sprintf("model %s invocation failed: %v", e.Model, e.Err)
}

func (e *ModelInvocationError) Unwrap() error { return e.Err }
