package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/truenorth/chartsql/internal/query"
)

type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ReadOnly        bool
}

func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.Driver) == "" {
		return nil, fmt.Errorf("data source driver is required")
	}
	if strings.TrimSpace(cfg.DSN) == "" && cfg.Driver != "duckdb" {
		return nil, fmt.Errorf("data source dsn is required")
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open data source %s: %w", cfg.Driver, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping data source %s: %w", cfg.Driver, err)
	}
	return db, nil
}

// Executor runs generated statements through database/sql.
type Executor struct {
	db       *sql.DB
	readOnly bool
	logger   *slog.Logger
}

// NewExecutor wraps db. When readOnly is set and the driver supports it,
// every statement runs inside a read-only transaction that is rolled back.
func NewExecutor(db *sql.DB, driver string, readOnly bool, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		db:       db,
		readOnly: readOnly && readOnlyTxDrivers[driver],
		logger:   logger,
	}
}

func (e *Executor) HealthCheck(ctx context.Context) error {
	if err := e.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping data source: %w", err)
	}
	return nil
}

func (e *Executor) Execute(ctx context.Context, sqlText string) (query.Result, error) {
	statement := query.StripTrailingSemicolons(sqlText)
	if statement == "" {
		return query.Result{}, &query.ExecutionError{SQL: sqlText, Message: "sql is required"}
	}

	start := time.Now()
	result, err := e.run(ctx, statement)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return query.Result{}, ctxErr
		}
		e.logger.WarnContext(ctx, "query execution failed", slog.String("sql", sqlText), slog.Any("error", err))
		return query.Result{}, query.NewExecutionError(sqlText, err)
	}
	result.Duration = time.Since(start)
	e.logger.InfoContext(ctx, "query executed",
		slog.Int("rows", len(result.Rows)),
		slog.Int64("duration_ms", result.Duration.Milliseconds()),
	)
	return result, nil
}

func (e *Executor) run(ctx context.Context, statement string) (query.Result, error) {
	if !e.readOnly {
		return scan(e.db.QueryContext(ctx, statement))
	}

	tx, err := e.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return query.Result{}, fmt.Errorf("begin read-only tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	return scan(tx.QueryContext(ctx, statement))
}

func scan(rows *sql.Rows, err error) (query.Result, error) {
	if err != nil {
		return query.Result{}, err
	}
	defer func() { _ = rows.Close() }()
	return query.ScanRows(rows)
}
