package lake

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/truenorth/chartsql/internal/query"
	"github.com/truenorth/chartsql/internal/storage"
)

// Table maps a view name to the object store prefix holding its parquet files.
type Table struct {
	Name   string
	Prefix string
}

// ParseTables reads "orders=lake/orders,users=lake/users".
func ParseTables(raw string) ([]Table, error) {
	tables := make([]Table, 0)
	seen := map[string]bool{}
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, location, ok := strings.Cut(entry, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid lake table entry %q", entry)
		}
		prefix, err := storage.TablePrefix(location)
		if err != nil {
			return nil, fmt.Errorf("lake table %q: %w", name, err)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate lake table %q", name)
		}
		seen[name] = true
		tables = append(tables, Table{Name: name, Prefix: prefix})
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("at least one lake table is required")
	}
	return tables, nil
}

// Executor answers queries with an in-process DuckDB over parquet views.
type Executor struct {
	store  storage.ObjectStore
	tables []Table
	logger *slog.Logger
}

func NewExecutor(store storage.ObjectStore, tables []Table, logger *slog.Logger) (*Executor, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("at least one lake table is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{store: store, tables: tables, logger: logger}, nil
}

func (e *Executor) HealthCheck(ctx context.Context) error {
	for _, table := range e.tables {
		if _, err := e.store.List(ctx, table.Prefix); err != nil {
			return fmt.Errorf("list lake table %q: %w", table.Name, err)
		}
	}
	return nil
}

func (e *Executor) Execute(ctx context.Context, sqlText string) (query.Result, error) {
	statement := query.StripTrailingSemicolons(sqlText)
	if statement == "" {
		return query.Result{}, &query.ExecutionError{SQL: sqlText, Message: "sql is required"}
	}

	start := time.Now()
	workDir, err := os.MkdirTemp("", "chartsql-lake-")
	if err != nil {
		return query.Result{}, fmt.Errorf("create query temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	groupedPaths, err := e.download(ctx, workDir)
	if err != nil {
		return query.Result{}, err
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return query.Result{}, fmt.Errorf("open duckdb: %w", err)
	}
	defer func() { _ = db.Close() }()

	for _, table := range e.tables {
		localPaths := groupedPaths[table.Name]
		if len(localPaths) == 0 {
			continue
		}
		viewSQL := fmt.Sprintf(`CREATE OR REPLACE VIEW %s AS SELECT * FROM read_parquet(%s)`, quoteIdent(table.Name), quoteStringArray(localPaths))
		if _, err := db.ExecContext(ctx, viewSQL); err != nil {
			return query.Result{}, fmt.Errorf("create view for table %q: %w", table.Name, err)
		}
	}

	result, err := run(ctx, db, statement)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return query.Result{}, ctxErr
		}
		e.logger.WarnContext(ctx, "lake query failed", slog.String("sql", sqlText), slog.Any("error", err))
		return query.Result{}, query.NewExecutionError(sqlText, err)
	}
	result.Duration = time.Since(start)
	return result, nil
}

func (e *Executor) download(ctx context.Context, workDir string) (map[string][]string, error) {
	groupedPaths := map[string][]string{}
	for _, table := range e.tables {
		objects, err := e.store.List(ctx, table.Prefix)
		if err != nil {
			return nil, fmt.Errorf("list lake table %q: %w", table.Name, err)
		}
		objects = storage.ParquetObjects(objects)
		sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })

		for index, object := range objects {
			reader, err := e.store.Get(ctx, object.Key)
			if err != nil {
				return nil, fmt.Errorf("get object %q: %w", object.Key, err)
			}
			localPath := filepath.Join(workDir, fmt.Sprintf("%s_%d.parquet", sanitizeFileComponent(table.Name), index))
			if err := writeFile(localPath, reader); err != nil {
				_ = reader.Close()
				return nil, fmt.Errorf("write local parquet file %q: %w", localPath, err)
			}
			if err := reader.Close(); err != nil {
				return nil, fmt.Errorf("close object %q: %w", object.Key, err)
			}
			groupedPaths[table.Name] = append(groupedPaths[table.Name], localPath)
		}
	}
	return groupedPaths, nil
}

func run(ctx context.Context, db *sql.DB, statement string) (query.Result, error) {
	rows, err := db.QueryContext(ctx, statement)
	if err != nil {
		return query.Result{}, err
	}
	defer func() { _ = rows.Close() }()
	return query.ScanRows(rows)
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func quoteStringArray(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, value := range values {
		quoted = append(quoted, `'`+strings.ReplaceAll(value, `'`, `''`)+`'`)
	}
	return "[" + strings.Join(quoted, ",") + "]"
}

func sanitizeFileComponent(value string) string {
	value = strings.ReplaceAll(value, "/", "_")
	value = strings.ReplaceAll(value, "..", "_")
	if value == "" {
		return "table"
	}
	return value
}
