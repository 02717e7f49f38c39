package batch

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/reperio/internal/common"
	"github.com/ternarybob/reperio/internal/models"
	storage "github.com/ternarybob/reperio/internal/storage/badger"
)

func newTestAggregator(t *testing.T) (*Aggregator, *storage.JobQueue) {
	t.Helper()

	db, err := storage.NewBadgerDB(common.GetLogger(), &common.StoreConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	queue := storage.NewJobQueue(db, common.QueueConfig{MaxAttempts: 1, RetryBackoffBase: time.Millisecond}, common.GetLogger())
	return NewAggregator(queue, common.GetLogger()), queue
}

// seedBatch enqueues n jobs and drives the first completed of them to
// success and the next failed of them to terminal failure.
func seedBatch(t *testing.T, queue *storage.JobQueue, batchID string, total, completed, failed int) {
	t.Helper()
	ctx := context.Background()

	for i := 0; i < total; i++ {
		job := models.Job{
			ID:      fmt.Sprintf("job_%s_%d", batchID, i),
			BatchID: batchID,
			Index:   i,
			Input:   models.InputRecord{Name: fmt.Sprintf("Business %d", i), Address: fmt.Sprintf("Gasse %d", i)},
		}
		require.NoError(t, queue.Enqueue(ctx, &job))
	}

	for i := 0; i < completed+failed; i++ {
		claimed, err := queue.NextJob(ctx, "worker_test")
		require.NoError(t, err)
		if i < completed {
			result := models.NewScrapeResult()
			result.Status = models.ScrapeStatusSuccess
			result.FullName = "Café Sprüngli"
			result.FullAddress = "Bahnhofstrasse 21, 8001 Zürich"
			result.Phone = "+41 44 224 46 46"
			result.Rating = "4.5"
			result.ReviewsCount = "2847"
			result.OpeningHours["Monday"] = "07:30 - 18:30"
			result.OpeningHours["Sunday"] = "Closed"
			require.NoError(t, queue.Complete(ctx, claimed.ID, result))
		} else {
			require.NoError(t, queue.Fail(ctx, claimed.ID, "Business not found with any search strategy"))
		}
	}
}

func TestAggregator_StatusBuckets(t *testing.T) {
	agg, queue := newTestAggregator(t)
	seedBatch(t, queue, "batch_mix", 4, 2, 1)

	status, err := agg.Status(context.Background(), "batch_mix")
	require.NoError(t, err)

	assert.Equal(t, 4, status.Total)
	assert.Equal(t, 2, status.Completed)
	assert.Equal(t, 1, status.Failed)
	assert.Equal(t, 1, status.Waiting)
	assert.Equal(t, 75, status.Percentage)
	assert.Equal(t, StateProcessing, status.State)
	assert.NotNil(t, status.CreatedAt)
	assert.NotNil(t, status.LastProcessedAt)
	assert.NotNil(t, status.EstimatedTimeRemaining)
	assert.Len(t, status.Results, 3)
}

func TestAggregator_OverallStates(t *testing.T) {
	tests := []struct {
		name                     string
		total, completed, failed int
		want                     string
	}{
		{"all waiting", 3, 0, 0, StateQueued},
		{"all completed", 2, 2, 0, StateCompleted},
		{"terminal with failures", 3, 2, 1, StateCompletedWithErrors},
		{"mixed", 3, 1, 0, StateProcessing},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg, queue := newTestAggregator(t)
			batchID := fmt.Sprintf("batch_state_%d", i)
			seedBatch(t, queue, batchID, tt.total, tt.completed, tt.failed)

			status, err := agg.Status(context.Background(), batchID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, status.State)
		})
	}
}

func TestAggregator_UnknownBatch(t *testing.T) {
	agg, _ := newTestAggregator(t)
	_, err := agg.Status(context.Background(), "batch_missing")
	assert.ErrorIs(t, err, ErrBatchNotFound)
}

func TestAggregator_ResultRows(t *testing.T) {
	agg, queue := newTestAggregator(t)
	seedBatch(t, queue, "batch_rows", 2, 1, 1)

	status, err := agg.Status(context.Background(), "batch_rows")
	require.NoError(t, err)
	require.Len(t, status.Results, 2)

	success := status.Results[0]
	assert.Equal(t, "Café Sprüngli", success.Name)
	assert.Equal(t, "success", success.Status)
	assert.Equal(t, "07:30 - 18:30", success.MondayHours)
	assert.Equal(t, "Closed", success.SundayHours)
	assert.NotEmpty(t, success.Timestamp)

	failed := status.Results[1]
	assert.Equal(t, "failed", failed.Status)
	assert.Equal(t, "Business 1", failed.Name, "failed rows fall back to the input record")
	assert.Equal(t, "Business not found with any search strategy", failed.FailureReason)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{42 * time.Second, "42s"},
		{95 * time.Second, "1m 35s"},
		{2*time.Hour + 5*time.Minute, "2h 5m"},
		{0, "0s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.d))
	}
}

func TestExport_CSV(t *testing.T) {
	agg, queue := newTestAggregator(t)
	seedBatch(t, queue, "batch_export", 2, 1, 1)

	data, filename, err := agg.Export(context.Background(), "batch_export")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(filename, "scraping-results-"))
	assert.True(t, strings.HasSuffix(filename, ".csv"))

	// UTF-8 BOM prefix.
	require.True(t, len(data) > 3)
	assert.Equal(t, []byte{0xEF, 0xBB, 0xBF}, data[:3])

	lines := strings.Split(strings.TrimRight(string(data[3:]), "\r\n"), "\r\n")
	require.Len(t, lines, 3, "header plus two terminal rows")

	assert.Equal(t,
		"Name,Rating,Reviews Count,Phone,Address,Website,Category,"+
			"Monday Hours,Tuesday Hours,Wednesday Hours,Thursday Hours,"+
			"Friday Hours,Saturday Hours,Sunday Hours,Status",
		lines[0])

	// The success row: address contains a comma, so it must be quoted.
	assert.Contains(t, lines[1], `"Bahnhofstrasse 21, 8001 Zürich"`)
	assert.Contains(t, lines[1], "Café Sprüngli")
	assert.True(t, strings.HasSuffix(lines[1], ",success"))
	assert.True(t, strings.HasSuffix(lines[2], ",failed"))
}

func TestCSVCell(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"has, comma", `"has, comma"`},
		{`say "hi"`, `"say ""hi"""`},
		{"line\nbreak", "line break"},
		{"  padded  ", "padded"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, csvCell(tt.in))
	}
}
