package app

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/songcatalog-backend/internal/data/db"
	apphttp "github.com/yungbote/songcatalog-backend/internal/http"
	"github.com/yungbote/songcatalog-backend/internal/jobs/validation"
	"github.com/yungbote/songcatalog-backend/internal/observability"
	"github.com/yungbote/songcatalog-backend/internal/platform/dbctx"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
	"github.com/yungbote/songcatalog-backend/internal/services"
	"github.com/yungbote/songcatalog-backend/internal/temporalx/temporalworker"
)

// Mode selects which parts of the process get wired.
type Mode int

const (
	ModeServe Mode = iota
	ModeWorker
	ModeAdmin
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Clients  Clients
	Repos    Repos
	Services Services
	Metrics  *observability.Metrics
	Server   *apphttp.Server

	pg           *db.PostgresService
	otelShutdown func(context.Context) error
}

func New(ctx context.Context, log *logger.Logger, cfg Config, mode Mode) (*App, error) {
	metrics := observability.Init(log)
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})

	pg, err := db.NewPostgresService(cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	theDB := pg.DB()
	if cfg.AutoMigrate || mode == ModeAdmin {
		if err := db.AutoMigrateAll(theDB); err != nil {
			_ = pg.Close()
			return nil, fmt.Errorf("postgres automigrate: %w", err)
		}
	}
	metrics.RegisterDB(log, theDB)

	a := &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Metrics:      metrics,
		pg:           pg,
		otelShutdown: otelShutdown,
	}
	if mode == ModeAdmin {
		adminCfg := cfg
		adminCfg.Dispatch = DispatchInline
		adminCfg.Pool.Workers = 0
		a.Repos = wireRepos(theDB, log)
		a.Services, err = wireServices(theDB, log, adminCfg, a.Repos, Clients{})
		if err != nil {
			a.Close()
			return nil, err
		}
		return a, nil
	}

	clientsCfg := cfg
	if mode == ModeWorker {
		// the worker validates through Temporal but never dispatches
		clientsCfg.Dispatch = DispatchTemporal
	}
	a.Clients, err = wireClients(ctx, log, clientsCfg, mode == ModeServe)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Repos = wireRepos(theDB, log)
	a.Services, err = wireServices(theDB, log, clientsCfg, a.Repos, a.Clients)
	if err != nil {
		a.Close()
		return nil, err
	}

	if err := a.seedAnalysisTypes(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if mode == ModeServe {
		a.Server = wireServer(log, cfg, wireHandlers(log, theDB, a.Services), metrics)
	}
	return a, nil
}

func (a *App) seedAnalysisTypes(ctx context.Context) error {
	raw, err := services.LoadAnalysisTypeSeed(a.Cfg.SeedFile)
	if err != nil {
		return err
	}
	n, err := services.SeedAnalysisTypes(dbctx.Context{Ctx: ctx}, a.Log, a.Services.AnalysisType, raw)
	if err != nil {
		return fmt.Errorf("seed analysis types: %w", err)
	}
	if n > 0 {
		a.Log.Info("Seeded analysis types", "count", n)
	}
	return nil
}

// Serve runs the HTTP API with its background validation until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized for serving")
	}
	g, gctx := errgroup.WithContext(ctx)

	if pool := a.Services.ValidatorPool; pool != nil {
		pool.Start(gctx)
		defer pool.Stop()
	}
	validation.NewSweeper(a.Log, a.Repos.Upload, a.Services.Dispatcher, a.Cfg.Sweeper).Start(gctx)

	if a.Services.Lineage != nil && a.Clients.EventBus != nil {
		g.Go(func() error {
			return a.Services.Lineage.Run(gctx, a.Clients.EventBus)
		})
	}
	g.Go(func() error {
		a.Log.Info("HTTP server listening", "addr", a.Cfg.HTTP.Addr)
		return a.Server.Run(gctx)
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// RunWorker polls the Temporal validation queue until ctx is done.
func (a *App) RunWorker(ctx context.Context) error {
	runner, err := temporalworker.NewRunner(a.Log, a.Cfg.Temporal, a.Clients.Temporal, a.Services.Validation)
	if err != nil {
		return err
	}
	if err := runner.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.Close()
	if a.pg != nil {
		_ = a.pg.Close()
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
