package llm

import (
	"context"
	"fmt"

	"github.com/truenorth/chartsql/internal/chat"
)

// Reply is the raw text a model produced for one invocation.
type Reply struct {
	Content string
	// Structured is set when the model path was asked for a bare JSON object,
	// so the content should decode directly without looking for fences.
	Structured bool
	Provider   string
	Model      string
}

// Model sends a system prompt plus ordered history and returns the model's reply.
// Transport and provider failures are returned as *InvocationError.
type Model interface {
	Invoke(ctx context.Context, systemPrompt string, history []chat.Turn) (Reply, error)
}

type InvocationError struct {
	Provider string
	Model    string
	Err      error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("model invocation failed provider=%s model=%s: %v", e.Provider, e.Model, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func buildMessages(systemPrompt string, history []chat.Turn) []message {
	messages := make([]message, 0, len(history)+1)
	if systemPrompt != "" {
		messages = append(messages, message{Role: "system", Content: systemPrompt})
	}
	for _, turn := range history {
		role := "user"
		if turn.Role == chat.RoleAssistant {
			role = "assistant"
		}
		messages = append(messages, message{Role: role, Content: turn.Content})
	}
	return messages
}
