package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/ternarybob/reperio/internal/browser"
	"github.com/ternarybob/reperio/internal/common"
	"github.com/ternarybob/reperio/internal/models"
	"github.com/ternarybob/reperio/internal/scraper"
	storage "github.com/ternarybob/reperio/internal/storage/badger"
)

// heartbeatInterval is how often an in-flight job refreshes its liveness
// marker. Must stay well under the queue's stall interval.
const heartbeatInterval = 10 * time.Second

// Fleet runs the scrape workers: each worker loops claim -> browser ->
// scrape -> terminal outcome until the queue drains or the context ends.
type Fleet struct {
	cfg    common.WorkersConfig
	queue  *storage.JobQueue
	pool   *browser.Pool
	engine *scraper.Engine
	logger arbor.ILogger

	cancel context.CancelFunc
	group  *errgroup.Group
}

// NewFleet creates the worker fleet.
func NewFleet(cfg common.WorkersConfig, queue *storage.JobQueue, pool *browser.Pool, engine *scraper.Engine, logger arbor.ILogger) *Fleet {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Fleet{
		cfg:    cfg,
		queue:  queue,
		pool:   pool,
		engine: engine,
		logger: logger,
	}
}

// Start launches the worker goroutines.
func (f *Fleet) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.group, runCtx = errgroup.WithContext(runCtx)

	for i := 0; i < f.cfg.Concurrency; i++ {
		workerID := common.NewWorkerID()
		f.group.Go(func() error {
			return f.runWorker(runCtx, workerID)
		})
	}

	f.logger.Info().Int("concurrency", f.cfg.Concurrency).Msg("Worker fleet started")
}

// Stop cancels the workers and waits for in-flight jobs to reach a terminal
// outcome or abandon via context.
func (f *Fleet) Stop() {
	if f.cancel != nil {
		f.cancel()
	}
	if f.group != nil {
		_ = f.group.Wait()
	}
	f.logger.Info().Msg("Worker fleet stopped")
}

// runWorker is one claim loop. Job-level errors never kill the loop; only
// context cancellation and queue drain end it.
func (f *Fleet) runWorker(ctx context.Context, workerID string) error {
	for {
		job, err := f.queue.NextJob(ctx, workerID)
		if err != nil {
			if err == storage.ErrDraining || ctx.Err() != nil {
				return nil
			}
			f.logger.Warn().Err(err).Str("worker_id", workerID).Msg("Job claim failed")
			continue
		}

		f.process(ctx, job)
	}
}

// process drives one job through the checkpoints: 10 on entry, 20 once a
// browser tab is ready, 90 after extraction, 100 via the terminal write.
func (f *Fleet) process(ctx context.Context, job *models.Job) {
	log := f.logger.WithCorrelationId(job.ID)
	log.Info().
		Str("batch_id", job.BatchID).
		Int("index", job.Index).
		Int("attempt", job.Attempts).
		Str("name", job.Input.Name).
		Msg("Job started")

	stopHeartbeat := f.startHeartbeat(ctx, job.ID)
	defer stopHeartbeat()

	defer func() {
		if r := recover(); r != nil {
			// Panic text can carry raw page content; keep the stored reason generic.
			log.Error().Str("panic", fmt.Sprint(r)).Msg("Job panicked")
			f.fail(job.ID, "internal worker error")
		}
	}()

	_ = f.queue.UpdateProgress(ctx, job.ID, 10)

	inst, err := f.pool.Acquire(ctx)
	if err != nil {
		f.fail(job.ID, err.Error())
		return
	}
	defer f.pool.Release(inst)

	loc := scraper.DetectLocale(job.Input)
	tabCtx, closeTab, err := browser.NewJobContext(inst, browser.JobProfile{
		UserAgent: loc.UserAgent,
		Timezone:  loc.Timezone,
	})
	if err != nil {
		f.fail(job.ID, fmt.Sprintf("browser context setup failed: %v", err))
		return
	}
	defer closeTab()

	_ = f.queue.UpdateProgress(ctx, job.ID, 20)

	result, err := f.engine.Scrape(tabCtx, job.Input)
	if err != nil {
		f.fail(job.ID, err.Error())
		return
	}

	_ = f.queue.UpdateProgress(ctx, job.ID, 90)

	if err := f.queue.Complete(context.Background(), job.ID, result); err != nil {
		log.Warn().Err(err).Msg("Failed to store job result")
		return
	}
	log.Info().Str("status", string(result.Status)).Msg("Job finished")
}

// fail records the attempt outcome. A terminal write uses a fresh context so
// shutdown cancellation cannot lose the outcome.
func (f *Fleet) fail(jobID, reason string) {
	if err := f.queue.Fail(context.Background(), jobID, reason); err != nil {
		f.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to record job failure")
	}
}

// startHeartbeat refreshes the job's liveness marker until the returned stop
// func runs.
func (f *Fleet) startHeartbeat(ctx context.Context, jobID string) func() {
	hbCtx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-hbCtx.Done():
				return
			case <-ticker.C:
				_ = f.queue.Heartbeat(hbCtx, jobID)
			}
		}
	}()
	return cancel
}
