package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Sessions issues conversation ids and maintains the turn log around one request.
type Sessions struct {
	memory MemoryStore
	titles TitleStore
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

func NewSessions(memory MemoryStore, titles TitleStore, logger *slog.Logger) (*Sessions, error) {
	if memory == nil {
		return nil, fmt.Errorf("memory store is required")
	}
	if titles == nil {
		return nil, fmt.Errorf("title store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sessions{
		memory: memory,
		titles: titles,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}, nil
}

// EnsureConversationID returns id when it is not blank. Otherwise it generates a
// new id and records title against it.
func (s *Sessions) EnsureConversationID(ctx context.Context, id, title string) (string, error) {
	if strings.TrimSpace(id) != "" {
		return id, nil
	}
	id = s.newID()
	if err := s.titles.SaveTitle(ctx, id, title); err != nil {
		return "", fmt.Errorf("save conversation title: %w", err)
	}
	s.logger.InfoContext(ctx, "generated conversation id", slog.String("conversation_id", id))
	return id, nil
}

func (s *Sessions) AppendUserTurn(ctx context.Context, id, content string) error {
	return s.append(ctx, id, RoleUser, content)
}

func (s *Sessions) AppendAssistantTurn(ctx context.Context, id, content string) error {
	return s.append(ctx, id, RoleAssistant, content)
}

// FullHistory returns every turn of the conversation. The history is not windowed.
func (s *Sessions) FullHistory(ctx context.Context, id string) ([]Turn, error) {
	turns, err := s.memory.Read(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("read conversation %s: %w", id, err)
	}
	return turns, nil
}

func (s *Sessions) append(ctx context.Context, id string, role Role, content string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("conversation id is required")
	}
	turn := Turn{Role: role, Content: content, CreatedAt: s.now()}
	if err := s.memory.Append(ctx, id, turn); err != nil {
		return fmt.Errorf("append %s turn to %s: %w", role, id, err)
	}
	return nil
}
