package response

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/truenorth/chartsql/internal/query"
)

var summaryTypes = map[string]bool{
	"number": true,
	"table":  true,
}

// SummaryBearing reports whether a visualization type gets a DataSummary.
func SummaryBearing(visualizationType string) bool {
	return summaryTypes[visualizationType]
}

// Summarize aggregates valueField over the rows where it holds a number.
// A blank valueField yields a count-only summary. It returns nil for no rows
// and when no row has a numeric value for a named field.
func Summarize(rows []query.Row, valueField string) *Summary {
	if len(rows) == 0 {
		return nil
	}
	if strings.TrimSpace(valueField) == "" {
		return &Summary{TotalRecords: len(rows)}
	}
	var (
		count  int
		total  float64
		lo, hi float64
	)
	for _, row := range rows {
		raw, ok := row.Get(valueField)
		if !ok {
			continue
		}
		value, ok := numeric(raw)
		if !ok {
			continue
		}
		if count == 0 || value < lo {
			lo = value
		}
		if count == 0 || value > hi {
			hi = value
		}
		total += value
		count++
	}
	if count == 0 {
		return nil
	}
	average := total / float64(count)
	return &Summary{
		TotalRecords: len(rows),
		Total:        &total,
		Average:      &average,
		Min:          &lo,
		Max:          &hi,
	}
}

func numeric(value any) (float64, bool) {
	var out float64
	switch typed := value.(type) {
	case int:
		out = float64(typed)
	case int8:
		out = float64(typed)
	case int16:
		out = float64(typed)
	case int32:
		out = float64(typed)
	case int64:
		out = float64(typed)
	case uint:
		out = float64(typed)
	case uint8:
		out = float64(typed)
	case uint16:
		out = float64(typed)
	case uint32:
		out = float64(typed)
	case uint64:
		out = float64(typed)
	case float32:
		out = float64(typed)
	case float64:
		out = typed
	case json.Number:
		parsed, err := typed.Float64()
		if err != nil {
			return 0, false
		}
		out = parsed
	default:
		return 0, false
	}
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0, false
	}
	return out, true
}
