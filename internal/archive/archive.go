// Package archive keeps a copy of successful query results in object storage.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/truenorth/chartsql/internal/query"
	"github.com/truenorth/chartsql/internal/storage"
)

// Record is one successful result to archive.
type Record struct {
	ConversationID    string
	Query             string
	VisualizationType string
	Columns           []string
	Rows              []query.Row
	CreatedAt         time.Time
}

type Archiver interface {
	Archive(ctx context.Context, record Record) error
}

// Noop discards every record.
type Noop struct{}

func (Noop) Archive(context.Context, Record) error { return nil }

// ObjectStoreArchiver writes each record as a parquet object under prefix.
type ObjectStoreArchiver struct {
	store  storage.ObjectStore
	prefix string
	logger *slog.Logger
}

func NewObjectStoreArchiver(store storage.ObjectStore, prefix string, logger *slog.Logger) (*ObjectStoreArchiver, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ObjectStoreArchiver{store: store, prefix: prefix, logger: logger}, nil
}

func (a *ObjectStoreArchiver) Archive(ctx context.Context, record Record) error {
	if len(record.Rows) == 0 {
		return nil
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	key, err := storage.BuildResultArchivePath(a.prefix, record.ConversationID, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("build archive path: %w", err)
	}
	encoded, err := EncodeRows(record)
	if err != nil {
		return fmt.Errorf("encode archive rows: %w", err)
	}
	info, err := a.store.Put(ctx, key, bytes.NewReader(encoded.Data), int64(len(encoded.Data)), storage.PutOptions{
		ContentType: storage.ContentTypeParquet,
	})
	if err != nil {
		return fmt.Errorf("put archive object %s: %w", key, err)
	}
	a.logger.InfoContext(ctx, "query result archived",
		slog.String("conversation_id", record.ConversationID),
		slog.String("key", info.Key),
		slog.Int64("rows", encoded.RecordCount),
		slog.Int64("bytes", info.Size),
	)
	return nil
}
