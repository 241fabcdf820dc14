package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

var ErrObjectNotFound = errors.New("object not found")

// ContentTypeParquet is the media type archived results and lake files are written with.
const ContentTypeParquet = "application/vnd.apache.parquet"

type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

type PutOptions struct {
	ContentType string
}

// ObjectStore is the slice of an S3 bucket the service needs: the archive
// writes result files and the lake data source lists and downloads table files.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, opts PutOptions) (ObjectInfo, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// List returns every object below prefix, keys relative to the store root.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}

// ParquetObjects keeps the .parquet entries of objects in listing order.
func ParquetObjects(objects []ObjectInfo) []ObjectInfo {
	out := make([]ObjectInfo, 0, len(objects))
	for _, object := range objects {
		if strings.HasSuffix(object.Key, ".parquet") {
			out = append(out, object)
		}
	}
	return out
}
