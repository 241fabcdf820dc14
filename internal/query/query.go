package query

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Row is one result row: column names paired with values in result order.
type Row struct {
	Columns []string
	Values  []any
}

func NewRow(columns []string, values []any) Row {
	return Row{Columns: columns, Values: values}
}

// Get returns the value of the first column named column.
func (r Row) Get(column string) (any, bool) {
	for i, name := range r.Columns {
		if name == column && i < len(r.Values) {
			return r.Values[i], true
		}
	}
	return nil, false
}

// MarshalJSON encodes the row as an object whose keys keep result order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		var value any
		if i < len(r.Values) {
			value = r.Values[i]
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode column %q: %w", name, err)
		}
		buf.Write(encoded)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type Result struct {
	Columns  []string
	Rows     []Row
	Duration time.Duration
}

// Executor runs one statement against the configured data source.
// A rejected statement is reported as *ExecutionError.
type Executor interface {
	Execute(ctx context.Context, sql string) (Result, error)
}

// ExecutionError is a statement the data source refused to run.
type ExecutionError struct {
	SQL     string
	Message string
}

func (e *ExecutionError) Error() string {
	return "query execution failed: " + e.Message
}

func NewExecutionError(sqlText string, err error) *ExecutionError {
	message := "unknown error"
	if err != nil {
		message = err.Error()
	}
	return &ExecutionError{SQL: sqlText, Message: message}
}

var aliasPattern = regexp.MustCompile(`(?i)\s+as\s+`)

// ExtractColumns lexically derives output column names from the first
// SELECT ... FROM span. Commas inside function calls split incorrectly.
func ExtractColumns(sqlText string) []string {
	upper := strings.ToUpper(sqlText)
	selectIndex := strings.Index(upper, "SELECT")
	fromIndex := strings.Index(upper, "FROM")
	if selectIndex == -1 || fromIndex == -1 || fromIndex < selectIndex+len("SELECT") {
		return []string{}
	}

	clause := strings.TrimSpace(sqlText[selectIndex+len("SELECT") : fromIndex])
	columns := make([]string, 0)
	for _, part := range strings.Split(clause, ",") {
		part = strings.TrimSpace(part)
		if pieces := aliasPattern.Split(part, -1); len(pieces) > 1 {
			columns = append(columns, strings.TrimSpace(pieces[1]))
			continue
		}
		columns = append(columns, part)
	}
	return columns
}

// NormalizeValue converts driver values into JSON-friendly scalars.
func NormalizeValue(value any) any {
	switch typed := value.(type) {
	case []byte:
		return string(typed)
	case time.Time:
		return typed.UTC().Format(time.RFC3339Nano)
	case decimalFloat:
		return typed.Float64()
	default:
		return typed
	}
}

func StripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
