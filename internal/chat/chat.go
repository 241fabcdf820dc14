package chat

import (
	"context"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a conversation. Turns are never modified after append.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

type Conversation struct {
	ConversationID string    `json:"conversationId"`
	Title          string    `json:"title"`
	CreatedAt      time.Time `json:"createdAt"`
}

// MemoryStore is an append-only turn log keyed by conversation id.
// Read returns every appended turn in append order, or an empty slice.
type MemoryStore interface {
	Append(ctx context.Context, conversationID string, turn Turn) error
	Read(ctx context.Context, conversationID string) ([]Turn, error)
}

// TitleStore records conversations for listing. Page is zero based.
type TitleStore interface {
	SaveTitle(ctx context.Context, conversationID, title string) error
	ListTitles(ctx context.Context, page, limit int) ([]Conversation, error)
}

// Store is a backend holding both logs.
type Store interface {
	MemoryStore
	TitleStore
	HealthCheck(ctx context.Context) error
	Close() error
}
