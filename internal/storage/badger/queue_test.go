package badger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/reperio/internal/common"
	"github.com/ternarybob/reperio/internal/models"
)

func newTestQueue(t *testing.T, cfg common.QueueConfig) *JobQueue {
	t.Helper()

	db, err := NewBadgerDB(common.GetLogger(), &common.StoreConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewJobQueue(db, cfg, common.GetLogger())
}

func testJob(batchID string, index int) models.Job {
	return models.Job{
		ID:      fmt.Sprintf("job_%s_%d", batchID, index),
		BatchID: batchID,
		Index:   index,
		Input:   models.InputRecord{Name: fmt.Sprintf("Business %d", index), City: "Zürich"},
	}
}

func TestJobQueue_ClaimOrder(t *testing.T) {
	q := newTestQueue(t, common.QueueConfig{MaxAttempts: 3, RetryBackoffBase: time.Second})
	ctx := context.Background()

	jobs := []models.Job{testJob("batch_a", 0), testJob("batch_a", 1), testJob("batch_a", 2)}
	require.NoError(t, q.EnqueueAll(ctx, jobs))

	for i := 0; i < 3; i++ {
		claimed, err := q.NextJob(ctx, "worker_1")
		require.NoError(t, err)
		assert.Equal(t, i, claimed.Index, "jobs must dispatch in row order")
		assert.Equal(t, models.JobStateActive, claimed.State)
		assert.Equal(t, 1, claimed.Attempts)
		assert.NotNil(t, claimed.StartedAt)
	}
}

func TestJobQueue_CompleteIsIdempotent(t *testing.T) {
	q := newTestQueue(t, common.QueueConfig{MaxAttempts: 3, RetryBackoffBase: time.Second})
	ctx := context.Background()

	job := testJob("batch_b", 0)
	require.NoError(t, q.Enqueue(ctx, &job))
	claimed, err := q.NextJob(ctx, "worker_1")
	require.NoError(t, err)

	result := models.NewScrapeResult()
	result.Status = models.ScrapeStatusSuccess
	result.FullName = "Bäckerei Müller"
	require.NoError(t, q.Complete(ctx, claimed.ID, result))

	// A late duplicate terminal write must not alter the stored outcome.
	require.NoError(t, q.Complete(ctx, claimed.ID, models.NewScrapeResult()))
	require.NoError(t, q.Fail(ctx, claimed.ID, "late failure"))

	stored, err := q.GetJob(ctx, claimed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStateCompleted, stored.State)
	assert.Equal(t, 100, stored.Progress)
	assert.Equal(t, "Bäckerei Müller", stored.Result.FullName)
	assert.Empty(t, stored.FailureReason)
	assert.NotNil(t, stored.FinishedAt)
}

func TestJobQueue_FailRetriesWithBackoff(t *testing.T) {
	q := newTestQueue(t, common.QueueConfig{MaxAttempts: 3, RetryBackoffBase: 2 * time.Second})
	ctx := context.Background()

	job := testJob("batch_c", 0)
	require.NoError(t, q.Enqueue(ctx, &job))

	claimed, err := q.NextJob(ctx, "worker_1")
	require.NoError(t, err)
	before := time.Now().UTC()
	require.NoError(t, q.Fail(ctx, claimed.ID, "navigation_timeout"))

	stored, err := q.GetJob(ctx, claimed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStateWaiting, stored.State)
	assert.Equal(t, 1, stored.Attempts)
	assert.Empty(t, stored.FailureReason, "retryable failures carry no terminal reason")

	// First retry backs off by the base delay.
	delay := stored.NotBefore.Sub(before)
	assert.GreaterOrEqual(t, delay, 1900*time.Millisecond)
	assert.LessOrEqual(t, delay, 2500*time.Millisecond)
}

func TestJobQueue_FailTerminalAfterMaxAttempts(t *testing.T) {
	q := newTestQueue(t, common.QueueConfig{MaxAttempts: 2, RetryBackoffBase: time.Millisecond})
	ctx := context.Background()

	job := testJob("batch_d", 0)
	require.NoError(t, q.Enqueue(ctx, &job))

	for attempt := 1; attempt <= 2; attempt++ {
		claimed, err := q.NextJob(ctx, "worker_1")
		require.NoError(t, err)
		assert.Equal(t, attempt, claimed.Attempts)
		require.NoError(t, q.Fail(ctx, claimed.ID, "Business not found with any search strategy"))
	}

	stored, err := q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStateFailed, stored.State)
	assert.Equal(t, "Business not found with any search strategy", stored.FailureReason)
	assert.NotNil(t, stored.FinishedAt)
}

func TestJobQueue_ReclaimStalled(t *testing.T) {
	q := newTestQueue(t, common.QueueConfig{
		MaxAttempts:      1,
		RetryBackoffBase: time.Millisecond,
		StallInterval:    50 * time.Millisecond,
	})
	ctx := context.Background()

	job := testJob("batch_e", 0)
	require.NoError(t, q.Enqueue(ctx, &job))
	claimed, err := q.NextJob(ctx, "worker_gone")
	require.NoError(t, err)

	// Heartbeat still fresh: nothing to reclaim.
	n, err := q.ReclaimStalled(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	time.Sleep(80 * time.Millisecond)
	n, err = q.ReclaimStalled(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := q.GetJob(ctx, claimed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStateFailed, stored.State)
	assert.Equal(t, "worker stalled", stored.FailureReason)
}

func TestJobQueue_SweepRetention(t *testing.T) {
	q := newTestQueue(t, common.QueueConfig{
		MaxAttempts:      1,
		RetryBackoffBase: time.Millisecond,
		RetainCompleted:  2,
		RetainFailed:     1,
	})
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		job := testJob("batch_f", i)
		require.NoError(t, q.Enqueue(ctx, &job))
		claimed, err := q.NextJob(ctx, "worker_1")
		require.NoError(t, err)
		if i < 3 {
			require.NoError(t, q.Complete(ctx, claimed.ID, models.NewScrapeResult()))
		} else {
			require.NoError(t, q.Fail(ctx, claimed.ID, "extraction incomplete: name"))
		}
		time.Sleep(5 * time.Millisecond) // distinct finish timestamps
	}

	evicted, err := q.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, evicted, "one completed job beyond the keep window")

	remaining, err := q.ListBatch(ctx, "batch_f")
	require.NoError(t, err)
	assert.Len(t, remaining, 3)

	// The oldest completed job is the one evicted.
	for _, j := range remaining {
		assert.NotEqual(t, 0, j.Index)
	}
}

func TestJobQueue_DrainStopsDispatch(t *testing.T) {
	q := newTestQueue(t, common.QueueConfig{MaxAttempts: 1, RetryBackoffBase: time.Millisecond})
	ctx := context.Background()

	job := testJob("batch_g", 0)
	require.NoError(t, q.Enqueue(ctx, &job))

	q.Drain()
	q.Drain() // repeat drain must be safe

	_, err := q.NextJob(ctx, "worker_1")
	assert.ErrorIs(t, err, ErrDraining)
}

func TestJobQueue_EnqueueAllRollsBackPartialBatch(t *testing.T) {
	q := newTestQueue(t, common.QueueConfig{MaxAttempts: 1, RetryBackoffBase: time.Millisecond})
	ctx := context.Background()

	jobs := []models.Job{testJob("batch_h", 0), {BatchID: "batch_h", Index: 1}} // second job has no ID
	err := q.EnqueueAll(ctx, jobs)
	require.Error(t, err)

	remaining, err := q.ListBatch(ctx, "batch_h")
	require.NoError(t, err)
	assert.Empty(t, remaining, "partial batch must be removed on enqueue failure")
}
