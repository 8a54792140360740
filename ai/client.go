// Package ai wraps the external generative-AI capability behind a single
// operation: submit a text prompt, receive text back. Calls may fail or time
// out; callers own the fallback behavior.
package ai

import "context"

// Client is the AI capability boundary. Implementations must honor context
// cancellation and return an error for transport failures, timeouts, and
// empty responses alike.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
