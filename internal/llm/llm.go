package llm

import (
	"context"
	"errors"
)

// Client abstracts text-generation providers. Implementations send a prompt
// and return the raw model output, which is expected (but not guaranteed) to
// contain a JSON object.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ErrNotConfigured is returned by the placeholder client.
var ErrNotConfigured = errors.New("llm client not configured")

// PlaceholderClient is a stub implementation until provider wiring is added.
type PlaceholderClient struct{}

// Generate returns ErrNotConfigured.
func (PlaceholderClient) Generate(ctx context.Context, prompt string) (string, error) {
	_ = ctx
	_ = prompt
	return "", ErrNotConfigured
}

// Preview truncates raw model output for diagnostic logging.
func Preview(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
