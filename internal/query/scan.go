package query

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// decimalFloat matches driver decimal types such as duckdb.Decimal.
type decimalFloat interface {
	Float64() float64
}

// ScanRows drains rows into a Result, normalizing every value by its column type.
// The caller closes rows.
func ScanRows(rows *sql.Rows) (Result, error) {
	columns, err := rows.Columns()
	if err != nil {
		return Result{}, fmt.Errorf("query columns: %w", err)
	}
	dbTypes := make([]string, len(columns))
	if columnTypes, err := rows.ColumnTypes(); err == nil && len(columnTypes) == len(columns) {
		for i, columnType := range columnTypes {
			dbTypes[i] = columnType.DatabaseTypeName()
		}
	}

	resultRows := make([]Row, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return Result{}, fmt.Errorf("scan row: %w", err)
		}
		for i := range values {
			values[i] = NormalizeColumnValue(dbTypes[i], values[i])
		}
		resultRows = append(resultRows, NewRow(columns, values))
	}
	if err := rows.Err(); err != nil {
		return Result{}, fmt.Errorf("iterate rows: %w", err)
	}
	return Result{Columns: columns, Rows: resultRows}, nil
}

// NormalizeColumnValue is NormalizeValue plus decimal handling. Drivers hand
// DECIMAL, NUMERIC and MONEY columns back as text; those become json.Number so
// they serialize as numbers and count towards summaries.
func NormalizeColumnValue(databaseType string, value any) any {
	if !isDecimalType(databaseType) {
		return NormalizeValue(value)
	}
	switch typed := value.(type) {
	case string:
		return decimalNumber(typed)
	case []byte:
		return decimalNumber(string(typed))
	default:
		return NormalizeValue(value)
	}
}

func isDecimalType(databaseType string) bool {
	name := strings.ToUpper(strings.TrimSpace(databaseType))
	for _, prefix := range []string{"DECIMAL", "NUMERIC", "MONEY", "SMALLMONEY"} {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

var jsonNumberPattern = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

// decimalNumber strips currency formatting ("$1,234.50") and returns the text
// unchanged when it still is not a JSON number, e.g. NUMERIC 'NaN'.
func decimalNumber(raw string) any {
	cleaned := strings.TrimSpace(raw)
	sign := ""
	if strings.HasPrefix(cleaned, "-") {
		sign = "-"
		cleaned = cleaned[1:]
	}
	cleaned = strings.ReplaceAll(strings.TrimPrefix(cleaned, "$"), ",", "")
	cleaned = sign + cleaned
	if !jsonNumberPattern.MatchString(cleaned) {
		return raw
	}
	return json.Number(cleaned)
}
