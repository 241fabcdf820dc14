package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/truenorth/chartsql/internal/query"
)

func TestExecuteReturnsOrderedRows(t *testing.T) {
	db, mock := newSQLMock(t)
	executor := NewExecutor(db, "sqlserver", true, discardLogger())

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT city, COUNT(*) AS total FROM customers GROUP BY city`)).
		WillReturnRows(sqlmock.NewRows([]string{"city", "total"}).
			AddRow([]byte("Zagreb"), int64(12)).
			AddRow("Split", int64(4)))

	result, err := executor.Execute(context.Background(), "SELECT city, COUNT(*) AS total FROM customers GROUP BY city;")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(result.Columns) != 2 || result.Columns[0] != "city" || result.Columns[1] != "total" {
		t.Fatalf("Columns = %#v", result.Columns)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("rows = %d", len(result.Rows))
	}
	city, _ := result.Rows[0].Get("city")
	if city != "Zagreb" {
		t.Fatalf("city = %#v, want byte slice normalized to string", city)
	}
	total, _ := result.Rows[1].Get("total")
	if total != int64(4) {
		t.Fatalf("total = %#v", total)
	}
	assertSQLMock(t, mock)
}

func TestExecuteReturnsDecimalColumnsAsNumbers(t *testing.T) {
	db, mock := newSQLMock(t)
	executor := NewExecutor(db, "sqlserver", false, discardLogger())

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT region, premium, fee, balance FROM policies`)).
		WillReturnRows(sqlmock.NewRowsWithColumnDefinition(
			sqlmock.NewColumn("region").OfType("VARCHAR", ""),
			sqlmock.NewColumn("premium").OfType("DECIMAL", ""),
			sqlmock.NewColumn("fee").OfType("MONEY", ""),
			sqlmock.NewColumn("balance").OfType("NUMERIC", ""),
		).
			AddRow("north", []byte("10.50"), "$1,234.50", "NaN").
			AddRow("south", "-3.25", "-$0.75", nil))

	result, err := executor.Execute(context.Background(), "SELECT region, premium, fee, balance FROM policies")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	tests := []struct {
		row    int
		column string
		want   any
	}{
		{0, "region", "north"},
		{0, "premium", json.Number("10.50")},
		{0, "fee", json.Number("1234.50")},
		{0, "balance", "NaN"},
		{1, "premium", json.Number("-3.25")},
		{1, "fee", json.Number("-0.75")},
		{1, "balance", nil},
	}
	for _, tt := range tests {
		got, _ := result.Rows[tt.row].Get(tt.column)
		if got != tt.want {
			t.Fatalf("row %d %s = %#v (%T), want %#v", tt.row, tt.column, got, got, tt.want)
		}
	}

	encoded, err := json.Marshal(result.Rows[0])
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	if string(encoded) != `{"region":"north","premium":10.50,"fee":1234.50,"balance":"NaN"}` {
		t.Fatalf("json = %s", encoded)
	}
	assertSQLMock(t, mock)
}

func TestExecuteConvertsDuckDBDecimals(t *testing.T) {
	db, err := Open(context.Background(), Config{Driver: "duckdb"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	executor := NewExecutor(db, "duckdb", false, discardLogger())

	result, err := executor.Execute(context.Background(),
		`SELECT label, premium FROM (VALUES ('a', CAST(10.50 AS DECIMAL(10,2))), ('b', CAST(4.25 AS DECIMAL(10,2)))) AS t(label, premium) ORDER BY label`)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("rows = %d", len(result.Rows))
	}
	premium, _ := result.Rows[0].Get("premium")
	if premium != 10.5 {
		t.Fatalf("premium = %#v (%T), want 10.5", premium, premium)
	}
	encoded, err := json.Marshal(result.Rows[1])
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	if string(encoded) != `{"label":"b","premium":4.25}` {
		t.Fatalf("json = %s", encoded)
	}
}

func TestExecuteUsesReadOnlyTransactionWhenSupported(t *testing.T) {
	db, mock := newSQLMock(t)
	executor := NewExecutor(db, "pgx", true, discardLogger())

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 AS one`)).
		WillReturnRows(sqlmock.NewRows([]string{"one"}).AddRow(int64(1)))
	mock.ExpectRollback()

	result, err := executor.Execute(context.Background(), "SELECT 1 AS one")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("rows = %d", len(result.Rows))
	}
	assertSQLMock(t, mock)
}

func TestExecuteClassifiesDatabaseErrors(t *testing.T) {
	db, mock := newSQLMock(t)
	executor := NewExecutor(db, "mysql", false, discardLogger())

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT nope FROM customers`)).
		WillReturnError(errors.New(`Unknown column 'nope' in 'field list'`))

	_, err := executor.Execute(context.Background(), "SELECT nope FROM customers")
	var execErr *query.ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("Execute() error = %v, want *query.ExecutionError", err)
	}
	if execErr.SQL != "SELECT nope FROM customers" {
		t.Fatalf("SQL = %q", execErr.SQL)
	}
	if execErr.Message != `Unknown column 'nope' in 'field list'` {
		t.Fatalf("Message = %q", execErr.Message)
	}
	assertSQLMock(t, mock)
}

func TestExecuteReturnsContextErrorWhenCanceled(t *testing.T) {
	db, _ := newSQLMock(t)
	executor := NewExecutor(db, "sqlite", false, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := executor.Execute(ctx, "SELECT 1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Execute() error = %v, want context.Canceled", err)
	}
}

func TestExecuteRejectsBlankStatement(t *testing.T) {
	db, _ := newSQLMock(t)
	executor := NewExecutor(db, "clickhouse", false, discardLogger())

	_, err := executor.Execute(context.Background(), " ; ")
	var execErr *query.ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("Execute() error = %v, want *query.ExecutionError", err)
	}
}

func TestOpenRequiresDriverAndDSN(t *testing.T) {
	if _, err := Open(context.Background(), Config{DSN: "x"}); err == nil {
		t.Fatal("expected error for empty driver")
	}
	if _, err := Open(context.Background(), Config{Driver: "pgx"}); err == nil {
		t.Fatal("expected error for empty DSN")
	}
}

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func assertSQLMock(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
