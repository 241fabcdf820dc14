package observability

import (
	"context"
	"io"
	"log/slog"

	"github.com/truenorth/chartsql/internal/config"
)

type ctxKey string

const (
	traceIDKey  ctxKey = "trace_id"
	clientIDKey ctxKey = "client_id"
)

func NewLogger(cfg config.Config, writer io.Writer) *slog.Logger {
	if writer == nil {
		writer = io.Discard
	}
	var handler slog.Handler
	if cfg.Observability.LogJSON {
		handler = slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: cfg.Observability.LogLevel})
	} else {
		handler = slog.NewTextHandler(writer, &slog.HandlerOptions{Level: cfg.Observability.LogLevel})
	}
	return slog.New(handler).With(
		slog.String("service", cfg.Service.Name),
		slog.String("profile", string(cfg.Profile)),
	)
}

func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

func TraceIDFromContext(ctx context.Context) string {
	value, ok := ctx.Value(traceIDKey).(string)
	if !ok {
		return ""
	}
	return value
}

// ContextWithClientID records the authenticated API client for request scoped logs.
func ContextWithClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, clientIDKey, clientID)
}

func ClientIDFromContext(ctx context.Context) string {
	value, _ := ctx.Value(clientIDKey).(string)
	return value
}

// RequestLogger tags logger with the trace and client ids carried by ctx.
// Empty ids are left out.
func RequestLogger(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	attrs := make([]any, 0, 2)
	if traceID := TraceIDFromContext(ctx); traceID != "" {
		attrs = append(attrs, slog.String("trace_id", traceID))
	}
	if clientID := ClientIDFromContext(ctx); clientID != "" {
		attrs = append(attrs, slog.String("client_id", clientID))
	}
	if len(attrs) == 0 {
		return logger
	}
	return logger.With(attrs...)
}
