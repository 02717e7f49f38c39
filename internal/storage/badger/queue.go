package badger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/reperio/internal/common"
	"github.com/ternarybob/reperio/internal/models"
)

// ErrDraining is returned from NextJob once the queue has been told to stop
// handing out work.
var ErrDraining = errors.New("queue is draining")

// ErrJobNotFound is returned for operations on unknown job IDs.
var ErrJobNotFound = errors.New("job not found")

// claimPollInterval bounds the wait between claim attempts so backoff
// deadlines (NotBefore) are observed without an explicit timer per job.
const claimPollInterval = 500 * time.Millisecond

// JobQueue is the durable FIFO job queue over Badger. Jobs survive process
// restarts; dispatch order is batch creation time, then row index.
type JobQueue struct {
	db     *BadgerDB
	logger arbor.ILogger
	cfg    common.QueueConfig

	mu       sync.Mutex
	notify   chan struct{}
	done     chan struct{}
	draining bool
}

// NewJobQueue creates a job queue over an open database.
func NewJobQueue(db *BadgerDB, cfg common.QueueConfig, logger arbor.ILogger) *JobQueue {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBackoffBase <= 0 {
		cfg.RetryBackoffBase = 2 * time.Second
	}
	return &JobQueue{
		db:     db,
		logger: logger,
		cfg:    cfg,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Enqueue persists one waiting job and wakes a claimer.
func (q *JobQueue) Enqueue(ctx context.Context, job *models.Job) error {
	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	job.State = models.JobStateWaiting
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	// Dereference on store: badgerhold keys by type name, and *Job vs Job
	// would land under different prefixes.
	if err := q.db.Store().Upsert(job.ID, *job); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	q.wake()
	return nil
}

// EnqueueAll persists a batch of jobs all-or-nothing: any failure removes
// the jobs already written for that batch before returning.
func (q *JobQueue) EnqueueAll(ctx context.Context, jobs []models.Job) error {
	for i := range jobs {
		if err := q.Enqueue(ctx, &jobs[i]); err != nil {
			if len(jobs) > 0 {
				if delErr := q.DeleteBatch(ctx, jobs[0].BatchID); delErr != nil {
					q.logger.Warn().Err(delErr).Str("batch_id", jobs[0].BatchID).Msg("Partial batch cleanup failed")
				}
			}
			return fmt.Errorf("batch enqueue failed at job %d: %w", i, err)
		}
	}
	return nil
}

// NextJob blocks until a dispatchable job can be claimed for the worker, the
// context ends, or the queue drains. Claiming marks the job active and counts
// the attempt.
func (q *JobQueue) NextJob(ctx context.Context, workerID string) (*models.Job, error) {
	ticker := time.NewTicker(claimPollInterval)
	defer ticker.Stop()

	for {
		q.mu.Lock()
		if q.draining {
			q.mu.Unlock()
			return nil, ErrDraining
		}
		job, err := q.claimNext(workerID)
		q.mu.Unlock()
		if err != nil {
			return nil, err
		}
		if job != nil {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.done:
			return nil, ErrDraining
		case <-q.notify:
		case <-ticker.C:
		}
	}
}

// claimNext picks the oldest dispatchable waiting job and flips it active.
// Caller holds the queue mutex, which serializes claims across local workers.
func (q *JobQueue) claimNext(workerID string) (*models.Job, error) {
	var waiting []models.Job
	if err := q.db.Store().Find(&waiting, badgerhold.Where("State").Eq(models.JobStateWaiting).Index("State")); err != nil {
		return nil, fmt.Errorf("failed to query waiting jobs: %w", err)
	}

	now := time.Now().UTC()
	dispatchable := waiting[:0]
	for _, j := range waiting {
		if !j.NotBefore.After(now) {
			dispatchable = append(dispatchable, j)
		}
	}
	if len(dispatchable) == 0 {
		return nil, nil
	}

	sort.Slice(dispatchable, func(i, k int) bool {
		if !dispatchable[i].CreatedAt.Equal(dispatchable[k].CreatedAt) {
			return dispatchable[i].CreatedAt.Before(dispatchable[k].CreatedAt)
		}
		return dispatchable[i].Index < dispatchable[k].Index
	})

	job := dispatchable[0]
	job.State = models.JobStateActive
	job.Attempts++
	job.WorkerID = workerID
	job.StartedAt = timePtr(now)
	job.LastHeartbeat = timePtr(now)

	if err := q.db.Store().Upsert(job.ID, job); err != nil {
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	q.logger.Debug().
		Str("job_id", job.ID).
		Str("worker_id", workerID).
		Int("attempt", job.Attempts).
		Msg("Job claimed")

	return &job, nil
}

// UpdateProgress records a progress checkpoint. Terminal jobs ignore late
// progress writes.
func (q *JobQueue) UpdateProgress(ctx context.Context, jobID string, progress int) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	job, err := q.get(jobID)
	if err != nil {
		return err
	}
	if job.State.Terminal() {
		return nil
	}
	job.Progress = progress
	return q.db.Store().Upsert(job.ID, *job)
}

// Heartbeat refreshes the active job's liveness marker.
func (q *JobQueue) Heartbeat(ctx context.Context, jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, err := q.get(jobID)
	if err != nil {
		return err
	}
	if job.State != models.JobStateActive {
		return nil
	}
	job.LastHeartbeat = timePtr(time.Now().UTC())
	return q.db.Store().Upsert(job.ID, *job)
}

// Complete moves a job to its completed terminal state with the scrape
// result. Completing an already-terminal job is a no-op.
func (q *JobQueue) Complete(ctx context.Context, jobID string, result *models.ScrapeResult) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, err := q.get(jobID)
	if err != nil {
		return err
	}
	if job.State.Terminal() {
		return nil
	}

	job.State = models.JobStateCompleted
	job.Progress = 100
	job.Result = result
	job.FinishedAt = timePtr(time.Now().UTC())
	job.WorkerID = ""
	if err := q.db.Store().Upsert(job.ID, *job); err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}

	q.logger.Debug().Str("job_id", jobID).Int("attempts", job.Attempts).Msg("Job completed")
	return nil
}

// Fail records an attempt failure. Jobs with attempts left go back to
// waiting with exponential backoff; exhausted jobs become terminal failures
// carrying the reason. Failing an already-terminal job is a no-op.
func (q *JobQueue) Fail(ctx context.Context, jobID string, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, err := q.get(jobID)
	if err != nil {
		return err
	}
	if job.State.Terminal() {
		return nil
	}

	if job.Attempts < q.cfg.MaxAttempts {
		backoff := q.cfg.RetryBackoffBase << (job.Attempts - 1)
		job.State = models.JobStateWaiting
		job.NotBefore = time.Now().UTC().Add(backoff)
		job.WorkerID = ""
		job.LastHeartbeat = nil
		if err := q.db.Store().Upsert(job.ID, *job); err != nil {
			return fmt.Errorf("failed to requeue job: %w", err)
		}
		q.logger.Debug().
			Str("job_id", jobID).
			Int("attempt", job.Attempts).
			Dur("backoff", backoff).
			Str("reason", reason).
			Msg("Job attempt failed, requeued")
		q.wake()
		return nil
	}

	job.State = models.JobStateFailed
	job.Progress = 100
	job.FailureReason = reason
	job.FinishedAt = timePtr(time.Now().UTC())
	job.WorkerID = ""
	if err := q.db.Store().Upsert(job.ID, *job); err != nil {
		return fmt.Errorf("failed to fail job: %w", err)
	}

	q.logger.Info().
		Str("job_id", jobID).
		Int("attempts", job.Attempts).
		Str("reason", reason).
		Msg("Job failed terminally")
	return nil
}

// GetJob returns one job by ID.
func (q *JobQueue) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.get(jobID)
}

// ListBatch returns all observable jobs of a batch ordered by row index.
// Evicted jobs are simply absent.
func (q *JobQueue) ListBatch(ctx context.Context, batchID string) ([]models.Job, error) {
	var jobs []models.Job
	if err := q.db.Store().Find(&jobs, badgerhold.Where("BatchID").Eq(batchID).Index("BatchID")); err != nil {
		return nil, fmt.Errorf("failed to list batch jobs: %w", err)
	}
	sort.Slice(jobs, func(i, k int) bool { return jobs[i].Index < jobs[k].Index })
	return jobs, nil
}

// DeleteBatch removes every job of a batch.
func (q *JobQueue) DeleteBatch(ctx context.Context, batchID string) error {
	if batchID == "" {
		return nil
	}
	if err := q.db.Store().DeleteMatching(&models.Job{}, badgerhold.Where("BatchID").Eq(batchID).Index("BatchID")); err != nil {
		return fmt.Errorf("failed to delete batch: %w", err)
	}
	return nil
}

// ReclaimStalled requeues or fails active jobs whose worker stopped
// heartbeating for the stall interval. Returns the number reclaimed.
func (q *JobQueue) ReclaimStalled(ctx context.Context) (int, error) {
	q.mu.Lock()
	var active []models.Job
	err := q.db.Store().Find(&active, badgerhold.Where("State").Eq(models.JobStateActive).Index("State"))
	q.mu.Unlock()
	if err != nil {
		return 0, fmt.Errorf("failed to query active jobs: %w", err)
	}

	cutoff := time.Now().UTC().Add(-q.cfg.StallInterval)
	reclaimed := 0
	for _, job := range active {
		stalled := job.LastHeartbeat == nil || job.LastHeartbeat.Before(cutoff)
		if !stalled {
			continue
		}
		if err := q.Fail(ctx, job.ID, "worker stalled"); err != nil {
			q.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to reclaim stalled job")
			continue
		}
		reclaimed++
	}

	if reclaimed > 0 {
		q.logger.Info().Int("reclaimed", reclaimed).Msg("Stalled jobs reclaimed")
	}
	return reclaimed, nil
}

// Sweep evicts terminal jobs beyond the retention window: the newest
// RetainCompleted completed and RetainFailed failed jobs survive.
func (q *JobQueue) Sweep(ctx context.Context) (int, error) {
	evicted := 0
	for _, window := range []struct {
		state models.JobState
		keep  int
	}{
		{models.JobStateCompleted, q.cfg.RetainCompleted},
		{models.JobStateFailed, q.cfg.RetainFailed},
	} {
		n, err := q.evictBeyond(window.state, window.keep)
		if err != nil {
			return evicted, err
		}
		evicted += n
	}
	if evicted > 0 {
		q.logger.Debug().Int("evicted", evicted).Msg("Retention sweep finished")
	}
	return evicted, nil
}

func (q *JobQueue) evictBeyond(state models.JobState, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	var jobs []models.Job
	if err := q.db.Store().Find(&jobs, badgerhold.Where("State").Eq(state).Index("State")); err != nil {
		return 0, fmt.Errorf("failed to query %s jobs: %w", state, err)
	}
	if len(jobs) <= keep {
		return 0, nil
	}

	// Newest first by finish time; everything past the keep window goes.
	sort.Slice(jobs, func(i, k int) bool {
		ti, tk := jobs[i].FinishedAt, jobs[k].FinishedAt
		switch {
		case ti == nil:
			return false
		case tk == nil:
			return true
		default:
			return ti.After(*tk)
		}
	})

	evicted := 0
	for _, job := range jobs[keep:] {
		if err := q.db.Store().Delete(job.ID, models.Job{}); err != nil {
			q.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to evict job")
			continue
		}
		evicted++
	}
	return evicted, nil
}

// Drain stops dispatching: subsequent NextJob calls return ErrDraining and
// blocked claimers are woken.
func (q *JobQueue) Drain() {
	q.mu.Lock()
	if q.draining {
		q.mu.Unlock()
		return
	}
	q.draining = true
	q.mu.Unlock()
	close(q.done)
}

// get fetches one job. Caller holds the mutex.
func (q *JobQueue) get(jobID string) (*models.Job, error) {
	var job models.Job
	if err := q.db.Store().Get(jobID, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

func (q *JobQueue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
