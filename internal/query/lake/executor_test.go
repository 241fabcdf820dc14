package lake

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"

	"github.com/truenorth/chartsql/internal/query"
	"github.com/truenorth/chartsql/internal/storage"
)

type customer struct {
	ID   int64  `parquet:"id"`
	City string `parquet:"city"`
}

func TestExecuteReadsParquetThroughObjectStore(t *testing.T) {
	first, err := buildParquet([]customer{{ID: 1, City: "Zagreb"}, {ID: 2, City: "Split"}})
	if err != nil {
		t.Fatalf("buildParquet() error = %v", err)
	}
	second, err := buildParquet([]customer{{ID: 3, City: "Zagreb"}})
	if err != nil {
		t.Fatalf("buildParquet() error = %v", err)
	}

	store := &memoryStore{objects: map[string][]byte{
		"lake/customers/part-1.parquet": first,
		"lake/customers/part-2.parquet": second,
		"lake/customers/_SUCCESS":       []byte("ok"),
	}}
	executor, err := NewExecutor(store, []Table{{Name: "customers", Prefix: "lake/customers/"}}, discardLogger())
	if err != nil {
		t.Fatalf("NewExecutor() error = %v", err)
	}

	result, err := executor.Execute(context.Background(), "SELECT city, COUNT(*) AS total FROM customers GROUP BY city ORDER BY city;")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("rows = %d", len(result.Rows))
	}
	city, _ := result.Rows[1].Get("city")
	total, _ := result.Rows[1].Get("total")
	if city != "Zagreb" || total != int64(2) {
		t.Fatalf("row = %#v", result.Rows[1])
	}
	if len(result.Columns) != 2 || result.Columns[1] != "total" {
		t.Fatalf("Columns = %#v", result.Columns)
	}
}

func TestExecuteReturnsDecimalsAsFloats(t *testing.T) {
	payload, err := buildParquet([]customer{{ID: 1, City: "Zagreb"}, {ID: 2, City: "Split"}})
	if err != nil {
		t.Fatalf("buildParquet() error = %v", err)
	}
	store := &memoryStore{objects: map[string][]byte{"lake/customers/part-1.parquet": payload}}
	executor, err := NewExecutor(store, []Table{{Name: "customers", Prefix: "lake/customers/"}}, discardLogger())
	if err != nil {
		t.Fatalf("NewExecutor() error = %v", err)
	}

	result, err := executor.Execute(context.Background(), "SELECT city, CAST(id AS DECIMAL(10,2)) + 0.25 AS premium FROM customers ORDER BY id")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	premium, _ := result.Rows[1].Get("premium")
	if premium != 2.25 {
		t.Fatalf("premium = %#v (%T), want 2.25", premium, premium)
	}
}

func TestExecuteClassifiesUnknownTable(t *testing.T) {
	payload, err := buildParquet([]customer{{ID: 1, City: "Zagreb"}})
	if err != nil {
		t.Fatalf("buildParquet() error = %v", err)
	}
	store := &memoryStore{objects: map[string][]byte{"lake/customers/part-1.parquet": payload}}
	executor, err := NewExecutor(store, []Table{{Name: "customers", Prefix: "lake/customers/"}}, discardLogger())
	if err != nil {
		t.Fatalf("NewExecutor() error = %v", err)
	}

	_, err = executor.Execute(context.Background(), "SELECT * FROM policies")
	var execErr *query.ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("Execute() error = %v, want *query.ExecutionError", err)
	}
	if execErr.SQL != "SELECT * FROM policies" {
		t.Fatalf("SQL = %q", execErr.SQL)
	}
}

func TestParseTables(t *testing.T) {
	tables, err := ParseTables("customers=lake/customers, policies=/lake/policies/")
	if err != nil {
		t.Fatalf("ParseTables() error = %v", err)
	}
	if len(tables) != 2 {
		t.Fatalf("tables = %#v", tables)
	}
	if tables[1].Name != "policies" || tables[1].Prefix != "lake/policies/" {
		t.Fatalf("tables[1] = %#v", tables[1])
	}

	for _, raw := range []string{"", "customers", "=lake/x", "a=lake/a,a=lake/b", "a=../x"} {
		if _, err := ParseTables(raw); err == nil {
			t.Fatalf("ParseTables(%q) expected error", raw)
		}
	}
}

func buildParquet(rows []customer) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[customer](buf)
	if _, err := writer.Write(rows); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memoryStore struct {
	objects map[string][]byte
}

func (m *memoryStore) Put(context.Context, string, io.Reader, int64, storage.PutOptions) (storage.ObjectInfo, error) {
	return storage.ObjectInfo{}, nil
}

func (m *memoryStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	payload, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(payload)), nil
}

func (m *memoryStore) List(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	objects := make([]storage.ObjectInfo, 0)
	for key, payload := range m.objects {
		if strings.HasPrefix(key, prefix) {
			objects = append(objects, storage.ObjectInfo{Key: key, Size: int64(len(payload))})
		}
	}
	return objects, nil
}
