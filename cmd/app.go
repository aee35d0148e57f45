// File: cmd/app.go
package cmd

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/notecrawl/internal/auth"
	"github.com/xkilldash9x/notecrawl/internal/browser"
	"github.com/xkilldash9x/notecrawl/internal/config"
	"github.com/xkilldash9x/notecrawl/internal/fetch"
	"github.com/xkilldash9x/notecrawl/internal/harvest"
	"github.com/xkilldash9x/notecrawl/internal/mcp"
	"github.com/xkilldash9x/notecrawl/internal/orchestrator"
	"github.com/xkilldash9x/notecrawl/internal/search"
	"github.com/xkilldash9x/notecrawl/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// service is what the commands drive. *orchestrator.Orchestrator satisfies it.
type service interface {
	mcp.Service
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// app is the wired object graph behind every browser-backed command.
type app struct {
	svc   service
	pacer *harvest.Pacer
	pool  *pgxpool.Pool
}

// newApp wires the browser launcher, harvesting stack and persistence into an
// orchestrator. The postgres mirror is only attached when a database URL is
// configured.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	pacer := harvest.NewPacer(nil, nil)
	harvester := harvest.New(pacer, logger)

	savers := store.Multi{store.NewFiles(cfg.Storage(), logger)}
	var pool *pgxpool.Pool
	if url := cfg.Database().URL; url != "" {
		var err error
		if pool, err = store.Connect(ctx, url); err != nil {
			return nil, err
		}
		pg := store.NewPostgres(pool, logger)
		if err := pg.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		savers = append(savers, pg)
		logger.Info("Postgres mirror enabled.")
	}

	orch, err := orchestrator.New(cfg.Session(), orchestrator.Deps{
		Launcher: browser.NewLauncher(cfg.Browser(), logger),
		Searcher: search.New(cfg.Harvest(), cfg.Fetch(), harvester, logger),
		Fetcher:  fetch.New(cfg.Fetch(), cfg.Harvest(), harvester, pacer, logger),
		Prober:   auth.NewProber(cfg.Fetch().PageLoadTimeout, cfg.Session().LoginProbeWait, logger),
		Saver:    savers,
	}, logger)
	if err != nil {
		if pool != nil {
			pool.Close()
		}
		return nil, fmt.Errorf("failed to build orchestrator: %w", err)
	}
	return &app{svc: orch, pacer: pacer, pool: pool}, nil
}

// Close stops the browser and releases the database pool.
func (a *app) Close(ctx context.Context) error {
	err := a.svc.Stop(ctx)
	if a.pool != nil {
		a.pool.Close()
	}
	return err
}

// withSession builds the app, starts the browser, runs fn and tears everything
// down again.
func (c *cli) withSession(ctx context.Context, fn func(ctx context.Context, a *app) error) error {
	a, err := c.newApp(ctx, c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			c.logger.Warn("Failed to stop browser cleanly.", zap.Error(err))
		}
	}()

	if err := a.svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	return fn(ctx, a)
}
