package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
)

// CachedTitles fronts a TitleStore with a short-lived listing cache.
// Saving a title flushes every cached page.
type CachedTitles struct {
	next  TitleStore
	cache *cache.Cache
}

func NewCachedTitles(next TitleStore, ttl time.Duration) *CachedTitles {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedTitles{next: next, cache: cache.New(ttl, 2*ttl)}
}

func (c *CachedTitles) SaveTitle(ctx context.Context, conversationID, title string) error {
	if err := c.next.SaveTitle(ctx, conversationID, title); err != nil {
		return err
	}
	c.cache.Flush()
	return nil
}

func (c *CachedTitles) ListTitles(ctx context.Context, page, limit int) ([]Conversation, error) {
	key := fmt.Sprintf("titles:%d:%d", page, limit)
	if cached, ok := c.cache.Get(key); ok {
		return cached.([]Conversation), nil
	}
	conversations, err := c.next.ListTitles(ctx, page, limit)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, conversations, cache.DefaultExpiration)
	return conversations, nil
}
