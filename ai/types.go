// Package ai talks to an OpenAI-compatible chat-completions provider.
package ai

import (
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// ErrorPrefix starts every degraded buffered-mode answer.
	ErrorPrefix = "Error calling AI API: "
	// NoResponseMessage follows ErrorPrefix when the provider returns no choices.
	NoResponseMessage = "no response from AI"

	completionsPath = "/chat/completions"
)

// ErrNoResponse is returned by a buffered call whose response holds no choices.
var ErrNoResponse = errors.New(NoResponseMessage)

// Degrade renders a buffered-call failure as the text answer shown to users.
func Degrade(err error) string {
	return ErrorPrefix + err.Error()
}

// ChatMessage is one role-tagged turn sent upstream.
type ChatMessage struct {
	Role    string
	Content string
}

func toOpenAIMessages(msgs []ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

// UpstreamError is returned when the provider answers with a non-success status.
type UpstreamError struct {
	StatusCode int
	// Body holds the drained error body, truncated.
	Body string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream API error: status %d", e.StatusCode)
}
