package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/truenorth/chartsql/internal/api"
	"github.com/truenorth/chartsql/internal/archive"
	"github.com/truenorth/chartsql/internal/auth"
	"github.com/truenorth/chartsql/internal/chat"
	chatbadger "github.com/truenorth/chartsql/internal/chat/badger"
	chatpostgres "github.com/truenorth/chartsql/internal/chat/postgres"
	"github.com/truenorth/chartsql/internal/config"
	"github.com/truenorth/chartsql/internal/llm"
	"github.com/truenorth/chartsql/internal/observability"
	"github.com/truenorth/chartsql/internal/pipeline"
	"github.com/truenorth/chartsql/internal/query"
	"github.com/truenorth/chartsql/internal/query/lake"
	"github.com/truenorth/chartsql/internal/query/sqldb"
	"github.com/truenorth/chartsql/internal/response"
	"github.com/truenorth/chartsql/internal/storage"
	s3store "github.com/truenorth/chartsql/internal/storage/s3"
)

type healthCheckedExecutor interface {
	query.Executor
	HealthCheck(ctx context.Context) error
}

// history lists titles through the cache and reads turns from the store.
type history struct {
	*chat.CachedTitles
	chat.MemoryStore
}

func main() {
	cfg, err := config.LoadFromEnv("chartsql-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	ctx := context.Background()

	store, err := openChatStore(ctx, cfg.Store)
	if err != nil {
		logger.Error("failed to open chat store", slog.String("backend", cfg.Store.Backend), slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	titles := chat.NewCachedTitles(store, cfg.Store.TitleCacheTTL)
	sessions, err := chat.NewSessions(store, titles, logger)
	if err != nil {
		logger.Error("failed to initialize sessions", slog.Any("error", err))
		os.Exit(1)
	}

	var bucket *s3store.Store
	if cfg.DataSource.Driver == config.DriverLake || cfg.Archive.Enabled {
		bucket, err = s3store.New(ctx, s3store.Config{
			Endpoint:         cfg.ObjectStore.Endpoint,
			Region:           cfg.ObjectStore.Region,
			Bucket:           cfg.ObjectStore.Bucket,
			AccessKeyID:      cfg.ObjectStore.AccessKeyID,
			SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
			UseSSL:           cfg.ObjectStore.UseSSL,
			Prefix:           cfg.ObjectStore.Prefix,
			AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
		})
		if err != nil {
			logger.Error("failed to initialize object store", slog.Any("error", err))
			os.Exit(1)
		}
	}
	var objectStore storage.ObjectStore
	if bucket != nil {
		objectStore = bucket
	}

	executor, closeExecutor, err := openDataSource(ctx, cfg.DataSource, objectStore, logger)
	if err != nil {
		logger.Error("failed to open data source", slog.String("driver", cfg.DataSource.Driver), slog.Any("error", err))
		os.Exit(1)
	}
	defer closeExecutor()

	var archiver archive.Archiver = archive.Noop{}
	if cfg.Archive.Enabled {
		archiver, err = archive.NewObjectStoreArchiver(objectStore, cfg.Archive.Prefix, logger)
		if err != nil {
			logger.Error("failed to initialize result archive", slog.Any("error", err))
			os.Exit(1)
		}
	}

	primary, err := llm.New(ctx, cfg.AI.Primary)
	if err != nil {
		logger.Error("failed to initialize primary model", slog.Any("error", err))
		os.Exit(1)
	}
	fallback, err := llm.New(ctx, cfg.AI.Fallback)
	if err != nil {
		logger.Error("failed to initialize fallback model", slog.Any("error", err))
		os.Exit(1)
	}
	systemPrompt, err := llm.LoadSystemPrompt(cfg.AI.SystemPromptPath)
	if err != nil {
		logger.Error("failed to load system prompt", slog.Any("error", err))
		os.Exit(1)
	}

	assembler, err := response.NewAssembler(executor, logger)
	if err != nil {
		logger.Error("failed to initialize response assembler", slog.Any("error", err))
		os.Exit(1)
	}
	processor, err := pipeline.New(pipeline.Config{
		MaxRetries:           pipeline.DefaultMaxRetries,
		SystemPrompt:         llm.SystemPromptFor(systemPrompt, cfg.AI.Primary.JSONMode),
		FallbackSystemPrompt: llm.SystemPromptFor(systemPrompt, cfg.AI.Fallback.JSONMode),
	}, pipeline.Deps{
		Sessions:  sessions,
		Primary:   primary,
		Fallback:  fallback,
		Assembler: assembler,
		Archiver:  archiver,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("failed to initialize chat pipeline", slog.Any("error", err))
		os.Exit(1)
	}

	checks := []api.ReadinessCheck{store.HealthCheck, executor.HealthCheck}
	if bucket != nil {
		checks = append(checks, api.CheckObjectStoreConfig(cfg), bucket.HealthCheck)
	}
	deps := api.Dependencies{
		Logger:            logger,
		Readiness:         api.CombineReadinessChecks(checks...),
		DependencyTimeout: time.Second,
		Chat:              processor,
		History:           history{CachedTitles: titles, MemoryStore: store},
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("store", cfg.Store.Backend),
			slog.String("driver", cfg.DataSource.Driver),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}

func openChatStore(ctx context.Context, cfg config.StoreConfig) (chat.Store, error) {
	switch cfg.Backend {
	case config.StoreBackendPostgres:
		db, err := chatpostgres.Open(ctx, chatpostgres.DBConfig{
			DSN:             cfg.DSN,
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxIdleTime: cfg.ConnMaxIdleTime,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
		})
		if err != nil {
			return nil, err
		}
		return chatpostgres.NewStore(db), nil
	case config.StoreBackendBadger:
		store, err := chatbadger.Open(cfg.BadgerDir)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StoreBackendMemory:
		return chat.NewMemStore(), nil
	default:
		return nil, fmt.Errorf("unsupported chat store backend %q", cfg.Backend)
	}
}

func openDataSource(ctx context.Context, cfg config.DataSourceConfig, objectStore storage.ObjectStore, logger *slog.Logger) (healthCheckedExecutor, func(), error) {
	if cfg.Driver == config.DriverLake {
		tables, err := lake.ParseTables(cfg.LakeTables)
		if err != nil {
			return nil, nil, err
		}
		executor, err := lake.NewExecutor(objectStore, tables, logger)
		if err != nil {
			return nil, nil, err
		}
		return executor, func() {}, nil
	}

	db, err := sqldb.Open(ctx, sqldb.Config{
		Driver:          cfg.Driver,
		DSN:             cfg.DSN,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ReadOnly:        cfg.ReadOnly,
	})
	if err != nil {
		return nil, nil, err
	}
	return sqldb.NewExecutor(db, cfg.Driver, cfg.ReadOnly, logger), func() { _ = db.Close() }, nil
}
