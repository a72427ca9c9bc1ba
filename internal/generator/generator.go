package generator

import (
	"context"
	"errors"
)

var (
	// ErrEmptyResponse is returned when the model produced no usable text.
	ErrEmptyResponse = errors.New("generator: model returned empty response")
)

// Generator produces text for a tool invocation. Implementations must
// return ErrEmptyResponse (possibly wrapped) when the upstream model
// yields no text, and must never return ("", nil).
type Generator interface {
	Generate(ctx context.Context, toolKey, input string) (string, error)
}
