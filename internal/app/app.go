// Package app wires configuration, tracing, storage and the agent factory
// for the CLI commands.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"scribe/internal/agent"
	"scribe/internal/config"
	"scribe/internal/db"
	"scribe/internal/dify"
	"scribe/internal/history"
	"scribe/internal/trace"
)

type App struct {
	Config  *config.Config
	Manager *agent.Manager
	History *history.Store

	database      *db.DB
	traceShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{Config: cfg}

	if cfg.Trace.Enabled {
		shutdown, err := trace.Init(ctx, trace.Config{
			Endpoint: cfg.Trace.Endpoint,
			URLPath:  cfg.Trace.URLPath,
			APIKey:   cfg.Trace.APIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("initializing tracing: %w", err)
		}
		a.traceShutdown = shutdown
	}

	factory, err := agent.NewFactory(cfg.Dify.BaseURL, cfg.Dify.APIKey,
		dify.WithTimeout(time.Duration(cfg.Dify.TimeoutSeconds)*time.Second))
	if err != nil {
		return nil, err
	}
	a.Manager = agent.NewManager(factory)

	database, err := db.Open(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := database.Migrate(); err != nil {
		database.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	a.database = database
	a.History = history.NewStore(database)

	return a, nil
}

// Agent fetches a traced agent of the given type from the manager cache.
func (a *App) Agent(t agent.Type, opts agent.Options) (agent.Agent, error) {
	ag, err := a.Manager.Get(t, opts)
	if err != nil {
		return nil, err
	}
	return agent.WithTrace(ag), nil
}

// Record stores a run, logging instead of failing when the audit trail is
// unavailable.
func (a *App) Record(ctx context.Context, t agent.Type, query string, resp agent.Response) {
	if _, err := a.History.RecordRun(ctx, t, query, resp); err != nil {
		slog.Warn("failed to record run", "agent", t, "error", err)
	}
}

func (a *App) Close(ctx context.Context) {
	if a.database != nil {
		a.database.Close()
	}
	if a.traceShutdown != nil {
		if err := a.traceShutdown(ctx); err != nil {
			slog.Warn("trace shutdown failed", "error", err)
		}
	}
}
