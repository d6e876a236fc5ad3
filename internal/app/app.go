// Package app assembles the application from its components.
//
// Setup wires configuration, logging, the database pool, the Gemini
// client, the knowledge store, the conversation registry, and the chat
// engine into an App. Entry points (CLI commands) call Setup once and
// Close on exit.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"golang.org/x/time/rate"

	"github.com/sibylhq/sibyl/db"
	"github.com/sibylhq/sibyl/internal/chat"
	"github.com/sibylhq/sibyl/internal/config"
	"github.com/sibylhq/sibyl/internal/conversation"
	"github.com/sibylhq/sibyl/internal/document"
	"github.com/sibylhq/sibyl/internal/googleai"
	"github.com/sibylhq/sibyl/internal/knowledge"
	"github.com/sibylhq/sibyl/internal/log"
	"github.com/sibylhq/sibyl/internal/observability"
)

// Model calls are throttled to one per second with a small burst; the
// pipeline never retries, so the limiter only smooths concurrent load.
const modelCallsPerSecond = 1

// App is the assembled application.
type App struct {
	Config    *config.Config
	Logger    log.Logger
	Pool      *pgxpool.Pool
	Gemini    *googleai.Client
	Knowledge *knowledge.Store
	Records   *document.RecordLoader
	Registry  *conversation.Registry
	Engine    *chat.Engine

	tracingShutdown func(context.Context) error
}

// Setup initializes every component. On error all partially
// initialized resources are released before returning.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if err := cfg.RequireGeminiAPIKey(); err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: logger}
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup after failed setup", "error", err)
			}
		}
	}()

	if cfg.Tracing.Enabled {
		shutdown, err := observability.Setup(ctx, observability.Config{
			Endpoint:    cfg.Tracing.Endpoint,
			ServiceName: cfg.Tracing.ServiceName,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("setting up tracing: %w", err)
		}
		a.tracingShutdown = shutdown
	}

	pool, err := providePool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Pool = pool

	gemini, err := googleai.New(ctx, googleai.Config{
		APIKey:        cfg.GeminiAPIKey,
		ChatModel:     cfg.ChatModel,
		EmbedderModel: cfg.EmbedderModel,
		EmbedderDim:   cfg.EmbedderDim,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	a.Gemini = gemini

	a.Knowledge = knowledge.New(pool, gemini, cfg.Collection, logger)
	a.Records = document.NewRecordLoader(pool, cfg.Collection, logger)

	snapshots := conversation.NewStore(pool, logger)
	a.Registry = conversation.NewRegistry(cfg.SessionCapacity, cfg.SessionTTL, snapshots, logger)

	engineCfg := chat.Config{
		WebLoader:       document.NewWebLoader(logger),
		Embedder:        gemini,
		Store:           a.Knowledge,
		Registry:        a.Registry,
		Completer:       gemini,
		Logger:          logger,
		TopKBrowser:     cfg.TopKBrowser,
		TopKDatabase:    cfg.TopKDatabase,
		DistanceCutoff:  cfg.DistanceCutoff,
		MaxAnswerTokens: cfg.MaxAnswerTokens,
		Persona:         personaFromConfig(cfg.Persona),
		RateLimiter:     rate.NewLimiter(rate.Limit(modelCallsPerSecond), 1),
	}

	if cfg.Search.APIKey != "" && cfg.Search.EngineID != "" {
		searchLoader, err := document.NewSearchLoader(ctx,
			cfg.Search.APIKey, cfg.Search.EngineID, cfg.Search.ResultCount, logger)
		if err != nil {
			return nil, fmt.Errorf("creating search loader: %w", err)
		}
		engineCfg.SearchLoader = searchLoader
	}

	engine, err := chat.New(engineCfg)
	if err != nil {
		return nil, fmt.Errorf("creating chat engine: %w", err)
	}
	a.Engine = engine

	return a, nil
}

// Close releases all resources. Safe to call on a partially
// initialized App.
func (a *App) Close() error {
	if a.Pool != nil {
		a.Pool.Close()
	}
	if a.tracingShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.tracingShutdown(ctx); err != nil {
			return fmt.Errorf("shutting down tracer: %w", err)
		}
	}
	return nil
}

// providePool runs migrations and opens a connection pool with
// pgvector types registered on every connection.
func providePool(ctx context.Context, cfg *config.Config, logger log.Logger) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

func personaFromConfig(p config.PersonaConfig) chat.Persona {
	return chat.Persona{
		Enabled:      p.Enabled,
		PatientName:  p.PatientName,
		Diagnosis:    p.Diagnosis,
		Prescription: p.Prescription,
		Appointment:  p.Appointment,
		Notes:        p.Notes,
	}
}
