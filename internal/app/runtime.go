// Package app builds the insights runtime from configuration. Both
// binaries share it.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/agent"
	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/analysis"
	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/cache"
	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/config"
	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/knowledge"
	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/nlq"
	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/observability"
	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/report"
	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/storage"
)

// Runtime owns the long-lived resources behind an Agent.
type Runtime struct {
	Config *config.Config
	Logger *observability.Logger
	Store  *storage.Store
	Cache  cache.Client
	Agent  *agent.Agent
}

// NewLogger creates the service logger described by cfg.
func NewLogger(cfg *config.Config, service string) *observability.Logger {
	name := cfg.Observability.ServiceName
	if service != "" {
		name = service
	}
	return observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: name,
	})
}

// Build opens the store and cache and wires the agent. On error every
// resource opened so far is closed.
func Build(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*Runtime, error) {
	if logger == nil {
		logger = NewLogger(cfg, "")
	}
	rt := &Runtime{Config: cfg, Logger: logger}

	store, err := storage.Open(cfg.Database.Driver, cfg.DatabaseDSN(), poolOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	rt.Store = store

	c, err := cache.New(cache.Options{
		Driver:     cfg.Cache.Driver,
		MaxEntries: cfg.Cache.MaxEntries,
		Redis: cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			PoolSize: cfg.Cache.Redis.PoolSize,
			Prefix:   cfg.Cache.Redis.Prefix,
		},
	})
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("open cache: %w", err)
	}
	rt.Cache = c

	lex := nlq.DefaultLexicon()
	if cfg.Engine.LexiconFile != "" {
		if lex, err = nlq.LoadLexicon(cfg.Engine.LexiconFile); err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("load lexicon: %w", err)
		}
	}

	var enhancer knowledge.Enhancer
	if cfg.Knowledge.Enabled {
		enhancer = knowledge.NewGlossary()
	}

	repo := storage.NewCampaignRepository(store.DB())
	rt.Agent, err = agent.New(ctx, agent.Options{
		Store:             store,
		Catalog:           storage.NewCampaignCatalog(repo, c, cfg.Cache.TTL),
		Lexicon:           lex,
		KnownUTMCampaigns: cfg.Engine.KnownUTMCampaigns,
		Enhancer:          enhancer,
		EnhanceTimeout:    cfg.Knowledge.Timeout,
		Analysis: analysis.Options{
			Currency: cfg.Report.Currency,
			Goals:    Goals(cfg.Goals),
		},
		Report: report.Options{
			Currency:     cfg.Report.Currency,
			MaxTableRows: cfg.Report.MaxTableRows,
		},
		Logger: logger,
	})
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("create agent: %w", err)
	}

	logger.Info().
		Str("database", cfg.Database.Driver).
		Str("cache", cfg.Cache.Driver).
		Bool("knowledge", enhancer != nil).
		Int("goals", len(cfg.Goals)).
		Msg("Insights runtime ready")
	return rt, nil
}

// Goals converts configured goals.
func Goals(in []config.GoalConfig) []analysis.Goal {
	if len(in) == 0 {
		return nil
	}
	out := make([]analysis.Goal, 0, len(in))
	for _, g := range in {
		out = append(out, analysis.Goal{
			Metric:      g.Metric,
			Plan:        g.Plan,
			Period:      g.Period,
			Description: g.Description,
		})
	}
	return out
}

// Close releases the cache and the store.
func (rt *Runtime) Close() error {
	var errs []error
	if rt.Cache != nil {
		if err := rt.Cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache: %w", err))
		}
	}
	if rt.Store != nil {
		if err := rt.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}

func poolOptions(cfg *config.Config) storage.PoolOptions {
	if cfg.Database.Driver == "postgres" {
		return storage.PoolOptions{
			MaxOpenConns:    cfg.Database.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Database.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.Postgres.ConnMaxLifetime,
		}
	}
	return storage.PoolOptions{MaxOpenConns: cfg.Database.SQLite.MaxOpenConns}
}
