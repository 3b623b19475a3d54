// Package ai sends summarization prompts to a chat-completion model.
package ai

import (
	"context"
	"strings"
)

// DefaultSystemPrompt describes the analyst role given to the model on every request
const DefaultSystemPrompt = "As an AI co-owner of a GitHub repository, you are responsible for conducting a comprehensive analysis of GitHub issues. Your analytic focus encompasses distinct elements, including the issue's title, associated labels, body text, the identity of the issue's creator, their role, and the nature of the comments on the issue. Utilizing these data points, your task is to generate a succinct, context-aware summary of the issue."

// Options controls a single completion request
type Options struct {
	Model        string
	SystemPrompt string
	// Restart drops any history recorded for the conversation before sending the prompt
	Restart     bool
	Temperature float32
}

// Completer provides chat completions grouped by conversation
type Completer interface {
	// Complete sends prompt as the next user turn of conversationID and returns the reply text
	Complete(ctx context.Context, conversationID, prompt string, opts Options) (string, error)
}

// NoopCompleter provides a fallback implementation that returns the prompt without AI processing
type NoopCompleter struct{}

// NewNoopCompleter creates a new no-op completer
func NewNoopCompleter() *NoopCompleter {
	return &NoopCompleter{}
}

// Complete returns the trimmed prompt text
func (n *NoopCompleter) Complete(_ context.Context, _, prompt string, _ Options) (string, error) {
	return strings.TrimSpace(prompt), nil
}
