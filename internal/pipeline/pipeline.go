// Package pipeline turns a chat message into a chart-ready answer, retrying
// with a fallback model when the generated SQL fails to run.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"time"

	"github.com/truenorth/chartsql/internal/answer"
	"github.com/truenorth/chartsql/internal/archive"
	"github.com/truenorth/chartsql/internal/chat"
	"github.com/truenorth/chartsql/internal/llm"
	"github.com/truenorth/chartsql/internal/observability"
	"github.com/truenorth/chartsql/internal/query"
	"github.com/truenorth/chartsql/internal/response"
)

const DefaultMaxRetries = 2

const (
	ExhaustedMessage  = "We tried to recover from an error, but were unable to process your request. Please try rephrasing your question."
	UnexpectedMessage = "An unexpected error occurred. Please try again."
)

const (
	pathPrimary  = "primary"
	pathFallback = "fallback"
)

type Config struct {
	// MaxRetries bounds fallback attempts after the primary call. Zero means DefaultMaxRetries.
	MaxRetries           int
	SystemPrompt         string
	// FallbackSystemPrompt is sent on the fallback path. Empty means SystemPrompt.
	FallbackSystemPrompt string
}

// Assembler executes a parsed answer and builds the outward response.
type Assembler interface {
	Assemble(ctx context.Context, ans answer.ModelAnswer) (response.Final, error)
}

type Deps struct {
	Sessions  *chat.Sessions
	Primary   llm.Model
	Fallback  llm.Model
	Assembler Assembler
	// Archiver is optional.
	Archiver archive.Archiver
	Logger   *slog.Logger
}

type Pipeline struct {
	maxRetries     int
	systemPrompt   string
	fallbackPrompt string
	sessions       *chat.Sessions
	primary        llm.Model
	fallback       llm.Model
	assembler      Assembler
	archiver       archive.Archiver
	logger         *slog.Logger
	locks          *chat.KeyedMutex
	now            func() time.Time
}

func New(cfg Config, deps Deps) (*Pipeline, error) {
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max retries must be >= 0")
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("sessions are required")
	}
	if deps.Primary == nil {
		return nil, fmt.Errorf("primary model is required")
	}
	if deps.Fallback == nil {
		return nil, fmt.Errorf("fallback model is required")
	}
	if deps.Assembler == nil {
		return nil, fmt.Errorf("assembler is required")
	}
	if deps.Archiver == nil {
		deps.Archiver = archive.Noop{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.FallbackSystemPrompt == "" {
		cfg.FallbackSystemPrompt = cfg.SystemPrompt
	}
	return &Pipeline{
		maxRetries:     cfg.MaxRetries,
		systemPrompt:   cfg.SystemPrompt,
		fallbackPrompt: cfg.FallbackSystemPrompt,
		sessions:       deps.Sessions,
		primary:        deps.Primary,
		fallback:       deps.Fallback,
		assembler:      deps.Assembler,
		archiver:       deps.Archiver,
		logger:         deps.Logger,
		locks:          chat.NewKeyedMutex(),
		now:            func() time.Time { return time.Now().UTC() },
	}, nil
}

// ProcessMessage runs one user message through the model, query and retry
// steps. It always returns a Final; failures surface as IsValid=false.
// Messages for the same conversation are processed one at a time.
func (p *Pipeline) ProcessMessage(ctx context.Context, conversationID, userMessage string) (final response.Final) {
	start := time.Now()
	logger := observability.RequestLogger(ctx, p.logger)

	conversationID, err := p.sessions.EnsureConversationID(ctx, conversationID, userMessage)
	if err != nil {
		logger.ErrorContext(ctx, "conversation setup failed", slog.Any("error", err))
		observability.IncrementPipelineOutcome(string(FailureUnexpected))
		return response.Invalid(UnexpectedMessage)
	}
	logger = logger.With(slog.String("conversation_id", conversationID))

	unlock := p.locks.Lock(conversationID)
	defer unlock()

	defer func() {
		if recovered := recover(); recovered != nil {
			logger.ErrorContext(ctx, "pipeline panic",
				slog.Any("panic", recovered),
				slog.String("stack", string(debug.Stack())),
			)
			observability.IncrementPipelineOutcome(string(FailureUnexpected))
			final = response.Invalid(UnexpectedMessage)
			final.ConversationID = conversationID
		}
	}()

	final, failure := p.run(ctx, logger, conversationID, userMessage)
	outcome := "success"
	if failure != nil {
		outcome = string(failure.Kind)
		logger.WarnContext(ctx, "message not answered",
			slog.String("outcome", outcome),
			slog.String("error", failure.Error()),
		)
	}
	observability.IncrementPipelineOutcome(outcome)
	logger.InfoContext(ctx, "message processed",
		slog.String("outcome", outcome),
		slog.Bool("is_valid", final.IsValid),
		slog.String("duration", time.Since(start).String()),
	)

	final.ConversationID = conversationID
	return final
}

func (p *Pipeline) run(ctx context.Context, logger *slog.Logger, conversationID, userMessage string) (response.Final, *Failure) {
	if err := p.sessions.AppendUserTurn(ctx, conversationID, userMessage); err != nil {
		return response.Invalid(UnexpectedMessage), &Failure{Kind: FailureUnexpected, Err: err}
	}
	history, err := p.sessions.FullHistory(ctx, conversationID)
	if err != nil {
		return response.Invalid(UnexpectedMessage), &Failure{Kind: FailureUnexpected, Err: err}
	}

	ans, err := p.invoke(ctx, logger, pathPrimary, p.primary, p.systemPrompt, history)
	if err != nil {
		// The primary path being unreachable is not something a fallback attempt corrects.
		return response.Invalid(UnexpectedMessage), &Failure{Kind: FailureModelInvocation, Err: err}
	}
	final, failure := p.attempt(ctx, ans)

	var lastQuery *Failure
	for attempt := 1; failure != nil && failure.retryable(); attempt++ {
		if failure.Kind == FailureQueryExecution {
			lastQuery = failure
		}
		if attempt > p.maxRetries {
			return response.Invalid(ExhaustedMessage), &Failure{Kind: FailureRetriesExhausted, Err: failure}
		}
		if err := ctx.Err(); err != nil {
			return response.Invalid(UnexpectedMessage), &Failure{Kind: FailureUnexpected, Err: err}
		}

		observability.IncrementFallbackAttempt()
		logger.InfoContext(ctx, "fallback attempt",
			slog.Int("attempt", attempt),
			slog.Int("max_retries", p.maxRetries),
			slog.String("previous_failure", string(failure.Kind)),
		)
		retryHistory := append(slices.Clone(history), chat.Turn{
			Role:      chat.RoleUser,
			Content:   recoveryInstruction(failure, lastQuery),
			CreatedAt: p.now(),
		})
		ans, err := p.invoke(ctx, logger, pathFallback, p.fallback, p.fallbackPrompt, retryHistory)
		if err != nil {
			failure = &Failure{Kind: FailureModelInvocation, Err: err}
			continue
		}
		final, failure = p.attempt(ctx, ans)
	}

	switch {
	case failure == nil:
		p.remember(ctx, logger, conversationID, final)
		p.archive(ctx, logger, conversationID, final)
		return final, nil
	case failure.Kind == FailureDeclined:
		p.remember(ctx, logger, conversationID, final)
		return final, failure
	default:
		return response.Invalid(UnexpectedMessage), failure
	}
}

func (p *Pipeline) invoke(ctx context.Context, logger *slog.Logger, path string, model llm.Model, systemPrompt string, history []chat.Turn) (answer.ModelAnswer, error) {
	start := time.Now()
	reply, err := model.Invoke(ctx, systemPrompt, history)
	observability.ObserveModelInvocation(path, err, time.Since(start))
	if err != nil {
		logger.WarnContext(ctx, "model invocation failed", slog.String("path", path), slog.Any("error", err))
		return answer.ModelAnswer{}, err
	}
	parsed := answer.Parse(reply, logger)
	logger.DebugContext(ctx, "model reply parsed",
		slog.String("path", path),
		slog.String("provider", reply.Provider),
		slog.String("model", reply.Model),
		slog.String("kind", string(parsed.Kind)),
		slog.Bool("is_valid", parsed.Answer.IsValid),
	)
	return parsed.Answer, nil
}

// attempt assembles one parsed answer and classifies anything that went wrong.
func (p *Pipeline) attempt(ctx context.Context, ans answer.ModelAnswer) (response.Final, *Failure) {
	if !ans.IsValid {
		final := response.Invalid(ans.ErrorMessage)
		return final, &Failure{Kind: FailureDeclined, Message: final.ErrorMessage}
	}
	final, err := p.assembler.Assemble(ctx, ans)
	if err != nil {
		var execErr *query.ExecutionError
		if errors.As(err, &execErr) {
			return response.Final{}, &Failure{Kind: FailureQueryExecution, SQL: execErr.SQL, Message: execErr.Message, Err: err}
		}
		return response.Final{}, &Failure{Kind: FailureUnexpected, Err: err}
	}
	return final, nil
}

// remember stores the final answer as the assistant turn. The stored copy has
// no conversation id.
func (p *Pipeline) remember(ctx context.Context, logger *slog.Logger, conversationID string, final response.Final) {
	final.ConversationID = ""
	encoded, err := json.Marshal(final)
	if err != nil {
		logger.ErrorContext(ctx, "encode assistant turn failed", slog.Any("error", err))
		return
	}
	if err := p.sessions.AppendAssistantTurn(ctx, conversationID, string(encoded)); err != nil {
		logger.ErrorContext(ctx, "append assistant turn failed", slog.Any("error", err))
	}
}

func (p *Pipeline) archive(ctx context.Context, logger *slog.Logger, conversationID string, final response.Final) {
	if final.Query == "" || len(final.Data) == 0 {
		return
	}
	err := p.archiver.Archive(ctx, archive.Record{
		ConversationID:    conversationID,
		Query:             final.Query,
		VisualizationType: final.VisualizationType,
		Columns:           final.Columns,
		Rows:              final.Data,
		CreatedAt:         p.now(),
	})
	if err != nil {
		logger.WarnContext(ctx, "archive query result failed", slog.Any("error", err))
	}
}
