package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/truenorth/chartsql/internal/chat"
)

// Store keeps turns in chat_memory and titles in chat_history.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping chat store db: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Append(ctx context.Context, conversationID string, turn chat.Turn) error {
	createdAt := turn.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	query := `
INSERT INTO chat_memory (conversation_id, role, content, created_at)
VALUES ($1, $2, $3, $4)`
	if _, err := s.db.ExecContext(ctx, query, conversationID, string(turn.Role), turn.Content, createdAt); err != nil {
		return fmt.Errorf("insert chat turn: %w", err)
	}
	return nil
}

func (s *Store) Read(ctx context.Context, conversationID string) ([]chat.Turn, error) {
	query := `
SELECT role, content, created_at
FROM chat_memory
WHERE conversation_id = $1
ORDER BY turn_id`
	rows, err := s.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("query chat turns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	turns := make([]chat.Turn, 0)
	for rows.Next() {
		var (
			role string
			turn chat.Turn
		)
		if err := rows.Scan(&role, &turn.Content, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat turn: %w", err)
		}
		turn.Role = chat.Role(role)
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat turns: %w", err)
	}
	return turns, nil
}

func (s *Store) SaveTitle(ctx context.Context, conversationID, title string) error {
	query := `
INSERT INTO chat_history (conversation_id, title)
VALUES ($1, $2)
ON CONFLICT (conversation_id) DO NOTHING`
	if _, err := s.db.ExecContext(ctx, query, conversationID, title); err != nil {
		return fmt.Errorf("insert chat history: %w", err)
	}
	return nil
}

func (s *Store) ListTitles(ctx context.Context, page, limit int) ([]chat.Conversation, error) {
	if page < 0 || limit <= 0 {
		return []chat.Conversation{}, nil
	}
	query := `
SELECT conversation_id, title, created_at
FROM chat_history
ORDER BY created_at DESC, conversation_id
LIMIT $1 OFFSET $2`
	rows, err := s.db.QueryContext(ctx, query, limit, page*limit)
	if err != nil {
		return nil, fmt.Errorf("query chat history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	conversations := make([]chat.Conversation, 0)
	for rows.Next() {
		var conversation chat.Conversation
		if err := rows.Scan(&conversation.ConversationID, &conversation.Title, &conversation.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat history: %w", err)
		}
		conversations = append(conversations, conversation)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat history: %w", err)
	}
	return conversations, nil
}
