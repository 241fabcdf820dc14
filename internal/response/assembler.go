package response

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/truenorth/chartsql/internal/answer"
	"github.com/truenorth/chartsql/internal/observability"
	"github.com/truenorth/chartsql/internal/query"
)

type Assembler struct {
	executor query.Executor
	logger   *slog.Logger
}

func NewAssembler(executor query.Executor, logger *slog.Logger) (*Assembler, error) {
	if executor == nil {
		return nil, fmt.Errorf("query executor is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{executor: executor, logger: logger}, nil
}

// Assemble executes the answer's query, if any, and builds the outward Final.
// A rejected query is returned as the executor's error unchanged so callers
// can match *query.ExecutionError.
func (a *Assembler) Assemble(ctx context.Context, ans answer.ModelAnswer) (Final, error) {
	if !ans.IsValid {
		return Invalid(ans.ErrorMessage), nil
	}

	final := Final{
		VisualizationType: ans.VisualizationType,
		ChartConfig:       ans.ChartConfig.Clone(),
		Explanation:       ans.Explanation,
		IsValid:           true,
	}

	sqlText := strings.TrimSpace(ans.Query)
	if sqlText == "" {
		return final, nil
	}

	start := time.Now()
	result, err := a.executor.Execute(ctx, sqlText)
	observability.ObserveQueryExecution(err, time.Since(start))
	if err != nil {
		return Final{}, err
	}

	final.Query = sqlText
	final.Columns = Columns(ans, result)
	final.Data = result.Rows
	if final.Data == nil {
		final.Data = []query.Row{}
	}
	if SummaryBearing(ans.VisualizationType) {
		valueField := ""
		if ans.ChartConfig != nil {
			valueField = ans.ChartConfig.ValueField
		}
		final.Summary = Summarize(result.Rows, valueField)
	}
	a.logger.DebugContext(ctx, "answer assembled",
		slog.String("trace_id", observability.TraceIDFromContext(ctx)),
		slog.String("visualization_type", ans.VisualizationType),
		slog.Int("rows", len(result.Rows)),
		slog.Bool("summary", final.Summary != nil),
	)
	return final, nil
}
