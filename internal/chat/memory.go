package chat

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemStore keeps conversations in process memory.
type MemStore struct {
	mu     sync.RWMutex
	turns  map[string][]Turn
	titles map[string]Conversation
	now    func() time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{
		turns:  map[string][]Turn{},
		titles: map[string]Conversation{},
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemStore) Append(_ context.Context, conversationID string, turn Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns[conversationID] = append(m.turns[conversationID], turn)
	return nil
}

func (m *MemStore) Read(_ context.Context, conversationID string) ([]Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	turns := m.turns[conversationID]
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (m *MemStore) SaveTitle(_ context.Context, conversationID, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.titles[conversationID]; ok {
		return nil
	}
	m.titles[conversationID] = Conversation{ConversationID: conversationID, Title: title, CreatedAt: m.now()}
	return nil
}

func (m *MemStore) ListTitles(_ context.Context, page, limit int) ([]Conversation, error) {
	m.mu.RLock()
	all := make([]Conversation, 0, len(m.titles))
	for _, conversation := range m.titles {
		all = append(all, conversation)
	}
	m.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ConversationID < all[j].ConversationID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return Page(all, page, limit), nil
}

func (m *MemStore) HealthCheck(context.Context) error {
	return nil
}

func (m *MemStore) Close() error {
	return nil
}

// Page slices a newest-first listing. Out of range pages are empty.
func Page(all []Conversation, page, limit int) []Conversation {
	if page < 0 || limit <= 0 {
		return []Conversation{}
	}
	start := page * limit
	if start >= len(all) {
		return []Conversation{}
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}
