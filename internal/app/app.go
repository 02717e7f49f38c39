package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/reperio/internal/batch"
	"github.com/ternarybob/reperio/internal/browser"
	"github.com/ternarybob/reperio/internal/common"
	"github.com/ternarybob/reperio/internal/handlers"
	"github.com/ternarybob/reperio/internal/ingest"
	"github.com/ternarybob/reperio/internal/scraper"
	storage "github.com/ternarybob/reperio/internal/storage/badger"
	"github.com/ternarybob/reperio/internal/workers"
)

// App wires the application's services for the configured mode. The API
// surface and the worker fleet share one process in "both" mode and split
// across processes otherwise; the queue store is the only shared state.
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	DB          *storage.BadgerDB
	Queue       *storage.JobQueue
	Maintenance *storage.Maintenance

	Pool   *browser.Pool
	Engine *scraper.Engine
	Fleet  *workers.Fleet

	IngestService *ingest.Service
	Aggregator    *batch.Aggregator
	BatchHandler  *handlers.BatchHandler
	StreamHandler *handlers.StreamHandler
}

// New builds the application graph for the configured mode.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	db, err := storage.NewBadgerDB(logger, &cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open queue store: %w", err)
	}
	a.DB = db
	a.Queue = storage.NewJobQueue(db, cfg.Queue, logger)
	a.Maintenance = storage.NewMaintenance(a.Queue, logger)

	a.Aggregator = batch.NewAggregator(a.Queue, logger)

	if cfg.RunsAPI() {
		a.IngestService = ingest.NewService(cfg.Ingest, a.Queue, logger)
		a.BatchHandler = handlers.NewBatchHandler(cfg.Ingest, a.IngestService, a.Aggregator, logger)
		a.StreamHandler = handlers.NewStreamHandler(a.Aggregator, logger)
	}

	if cfg.RunsWorkers() {
		poolCfg := browser.DefaultConfig()
		poolCfg.MaxInstances = cfg.Browser.MaxInstances
		poolCfg.LaunchTimeout = cfg.Browser.Timeout
		poolCfg.Headless = cfg.Browser.Headless
		poolCfg.MaxUses = cfg.Browser.MaxUses

		pool, err := browser.NewPool(poolCfg, logger)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to start browser pool: %w", err)
		}
		a.Pool = pool
		a.Engine = scraper.New(scraper.DefaultConfig(), logger)
		a.Fleet = workers.NewFleet(cfg.Workers, a.Queue, pool, a.Engine, logger)
	}

	return a, nil
}

// Start launches the background services.
func (a *App) Start(ctx context.Context) error {
	if err := a.Maintenance.Start(); err != nil {
		return err
	}
	if a.Fleet != nil {
		a.Fleet.Start(ctx)
	}
	return nil
}

// Close shuts the services down in dependency order: stop dispatch, wait
// for workers, then release browsers and the store.
func (a *App) Close() {
	a.Queue.Drain()
	if a.Fleet != nil {
		a.Fleet.Stop()
	}
	a.Maintenance.Stop()
	if a.Pool != nil {
		a.Pool.Close()
	}
	if err := a.DB.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Queue store close failed")
	}
	a.Logger.Info().Msg("Application stopped")
}
