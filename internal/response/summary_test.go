package response

import (
	"encoding/json"
	"testing"

	"github.com/truenorth/chartsql/internal/query"
)

func rows(column string, values ...any) []query.Row {
	out := make([]query.Row, 0, len(values))
	for _, v := range values {
		out = append(out, query.NewRow([]string{"label", column}, []any{"x", v}))
	}
	return out
}

func TestSummarizeNumericSubset(t *testing.T) {
	data := rows("amount", int64(10), "n/a", nil, 20.5, json.Number("1.5"), int32(-2))
	got := Summarize(data, "amount")
	if got == nil {
		t.Fatal("Summarize() = nil")
	}
	if got.TotalRecords != 6 {
		t.Fatalf("TotalRecords = %d", got.TotalRecords)
	}
	if got.Total == nil || *got.Total != 30 {
		t.Fatalf("Total = %v", got.Total)
	}
	if got.Average == nil || *got.Average != 7.5 {
		t.Fatalf("Average = %v, want total over the four numeric values", got.Average)
	}
	if got.Min == nil || got.Max == nil || *got.Min != -2 || *got.Max != 20.5 {
		t.Fatalf("Min/Max = %v/%v", got.Min, got.Max)
	}
}

func TestSummarizeCountsRowsWithoutValueField(t *testing.T) {
	for _, field := range []string{"", "  "} {
		got := Summarize(rows("amount", 1, 2, 3), field)
		if got == nil || got.TotalRecords != 3 {
			t.Fatalf("Summarize(%q) = %#v, want three records", field, got)
		}
		if got.Total != nil || got.Average != nil || got.Min != nil || got.Max != nil {
			t.Fatalf("Summarize(%q) aggregates = %#v, want none", field, got)
		}
		encoded, err := json.Marshal(got)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		if string(encoded) != `{"totalRecords":3}` {
			t.Fatalf("encoded = %s", encoded)
		}
	}
}

func TestSummarizeNilWithoutNumericValues(t *testing.T) {
	if got := Summarize(rows("amount", "a", nil, true), "amount"); got != nil {
		t.Fatalf("Summarize() = %#v, want nil", got)
	}
	if got := Summarize(rows("amount", 1, 2), "missing"); got != nil {
		t.Fatalf("Summarize(missing) = %#v, want nil", got)
	}
	if got := Summarize(nil, ""); got != nil {
		t.Fatalf("Summarize(no rows, no field) = %#v, want nil", got)
	}
	if got := Summarize(nil, "amount"); got != nil {
		t.Fatalf("Summarize(no rows) = %#v, want nil", got)
	}
}

func TestSummaryBearing(t *testing.T) {
	for _, kind := range []string{"number", "table"} {
		if !SummaryBearing(kind) {
			t.Fatalf("SummaryBearing(%q) = false", kind)
		}
	}
	for _, kind := range []string{"bar", "line", "pie", ""} {
		if SummaryBearing(kind) {
			t.Fatalf("SummaryBearing(%q) = true", kind)
		}
	}
}
