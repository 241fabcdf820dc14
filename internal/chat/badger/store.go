package badger

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/truenorth/chartsql/internal/chat"
)

const (
	turnPrefix  = "turn:"
	seqPrefix   = "seq:"
	titlePrefix = "title:"

	maxConflictRetries = 64
)

// Store is an embedded conversation store. Turn keys are
// turn:<conversation>\x00<big-endian sequence> so a prefix scan yields append order.
type Store struct {
	db  *badger.DB
	now func() time.Time
}

// Open opens or creates the store in dir. An empty dir keeps everything in memory.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger chat store: %w", err)
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) HealthCheck(context.Context) error {
	if s.db.IsClosed() {
		return fmt.Errorf("badger chat store is closed")
	}
	return nil
}

func (s *Store) Append(ctx context.Context, conversationID string, turn chat.Turn) error {
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = s.now()
	}
	value, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("encode chat turn: %w", err)
	}

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.db.Update(func(txn *badger.Txn) error {
			seq, err := nextSequence(txn, conversationID)
			if err != nil {
				return err
			}
			return txn.Set(turnKey(conversationID, seq), value)
		})
		if errors.Is(err, badger.ErrConflict) && attempt < maxConflictRetries {
			continue
		}
		if err != nil {
			return fmt.Errorf("append chat turn: %w", err)
		}
		return nil
	}
}

func (s *Store) Read(_ context.Context, conversationID string) ([]chat.Turn, error) {
	turns := make([]chat.Turn, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = turnScanPrefix(conversationID)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var turn chat.Turn
				if err := json.Unmarshal(val, &turn); err != nil {
					return err
				}
				turns = append(turns, turn)
				return nil
			})
			if err != nil {
				return fmt.Errorf("decode chat turn: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read chat turns: %w", err)
	}
	return turns, nil
}

func (s *Store) SaveTitle(_ context.Context, conversationID, title string) error {
	value, err := json.Marshal(chat.Conversation{ConversationID: conversationID, Title: title, CreatedAt: s.now()})
	if err != nil {
		return fmt.Errorf("encode chat history: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		key := []byte(titlePrefix + conversationID)
		if _, err := txn.Get(key); err == nil {
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, value)
	})
	if err != nil {
		return fmt.Errorf("save chat history: %w", err)
	}
	return nil
}

func (s *Store) ListTitles(_ context.Context, page, limit int) ([]chat.Conversation, error) {
	all := make([]chat.Conversation, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(titlePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var conversation chat.Conversation
				if err := json.Unmarshal(val, &conversation); err != nil {
					return err
				}
				all = append(all, conversation)
				return nil
			})
			if err != nil {
				return fmt.Errorf("decode chat history: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list chat history: %w", err)
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ConversationID < all[j].ConversationID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return chat.Page(all, page, limit), nil
}

func nextSequence(txn *badger.Txn, conversationID string) (uint64, error) {
	key := []byte(seqPrefix + conversationID)
	var seq uint64
	item, err := txn.Get(key)
	switch {
	case err == nil:
		if err := item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("corrupt sequence for %q", conversationID)
			}
			seq = binary.BigEndian.Uint64(val)
			return nil
		}); err != nil {
			return 0, err
		}
	case errors.Is(err, badger.ErrKeyNotFound):
	default:
		return 0, err
	}

	seq++
	encoded := make([]byte, 8)
	binary.BigEndian.PutUint64(encoded, seq)
	if err := txn.Set(key, encoded); err != nil {
		return 0, err
	}
	return seq, nil
}

func turnScanPrefix(conversationID string) []byte {
	return []byte(turnPrefix + conversationID + "\x00")
}

func turnKey(conversationID string, seq uint64) []byte {
	key := turnScanPrefix(conversationID)
	encoded := make([]byte, 8)
	binary.BigEndian.PutUint64(encoded, seq)
	return append(key, encoded...)
}
