package batch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/reperio/internal/models"
	storage "github.com/ternarybob/reperio/internal/storage/badger"
)

// ErrBatchNotFound is returned when no observable job carries the batch ID.
var ErrBatchNotFound = errors.New("batch not found")

// Overall batch states derived from the job buckets.
const (
	StateQueued              = "queued"
	StateProcessing          = "processing"
	StateCompleted           = "completed"
	StateCompletedWithErrors = "completed_with_errors"
)

// Status is the batch roll-up returned by the status endpoint.
type Status struct {
	BatchID                string      `json:"batchId"`
	State                  string      `json:"state"`
	Total                  int         `json:"total"`
	Completed              int         `json:"completed"`
	Failed                 int         `json:"failed"`
	Processing             int         `json:"processing"`
	Waiting                int         `json:"waiting"`
	Percentage             int         `json:"percentage"`
	CreatedAt              *time.Time  `json:"createdAt"`
	LastProcessedAt        *time.Time  `json:"lastProcessedAt"`
	EstimatedTimeRemaining *string     `json:"estimatedTimeRemaining"`
	Results                []ResultRow `json:"results"`
}

// ResultRow is the flattened per-job view: the export-row keys plus
// coordinates, the job's batch index, and its terminal timestamp.
type ResultRow struct {
	JobID          string `json:"jobId"`
	Index          int    `json:"index"`
	Attempts       int    `json:"attempts"`
	Name           string `json:"name"`
	Rating         string `json:"rating"`
	ReviewsCount   string `json:"reviewsCount"`
	Phone          string `json:"phone"`
	Address        string `json:"address"`
	Website        string `json:"website"`
	Category       string `json:"category"`
	MondayHours    string `json:"mondayHours"`
	TuesdayHours   string `json:"tuesdayHours"`
	WednesdayHours string `json:"wednesdayHours"`
	ThursdayHours  string `json:"thursdayHours"`
	FridayHours    string `json:"fridayHours"`
	SaturdayHours  string `json:"saturdayHours"`
	SundayHours    string `json:"sundayHours"`
	Status         string `json:"status"`
	Latitude       string `json:"latitude"`
	Longitude      string `json:"longitude"`
	FailureReason  string `json:"failureReason,omitempty"`
	Timestamp      string `json:"timestamp"`
}

// Aggregator rolls queue state up into batch-level status and export rows.
// It tolerates partial retention eviction: counts cover observable jobs only.
type Aggregator struct {
	queue  *storage.JobQueue
	logger arbor.ILogger
}

// NewAggregator creates a batch aggregator over the queue.
func NewAggregator(queue *storage.JobQueue, logger arbor.ILogger) *Aggregator {
	return &Aggregator{queue: queue, logger: logger}
}

// Status computes the batch roll-up. Unknown batch IDs return
// ErrBatchNotFound.
func (a *Aggregator) Status(ctx context.Context, batchID string) (*Status, error) {
	jobs, err := a.queue.ListBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrBatchNotFound, batchID)
	}

	status := &Status{BatchID: batchID, Total: len(jobs), Results: []ResultRow{}}

	var createdAt, lastProcessed *time.Time
	for i := range jobs {
		job := &jobs[i]
		switch job.State {
		case models.JobStateCompleted:
			status.Completed++
		case models.JobStateFailed:
			status.Failed++
		case models.JobStateActive:
			status.Processing++
		default:
			status.Waiting++
		}

		if createdAt == nil || job.CreatedAt.Before(*createdAt) {
			t := job.CreatedAt
			createdAt = &t
		}
		if job.FinishedAt != nil && (lastProcessed == nil || job.FinishedAt.After(*lastProcessed)) {
			t := *job.FinishedAt
			lastProcessed = &t
		}

		if job.State.Terminal() {
			status.Results = append(status.Results, flattenJob(job))
		}
	}

	status.CreatedAt = createdAt
	status.LastProcessedAt = lastProcessed
	status.Percentage = int(math.Round(float64(status.Completed+status.Failed) * 100 / float64(status.Total)))
	status.State = overallState(status)
	status.EstimatedTimeRemaining = estimateRemaining(status, createdAt)

	return status, nil
}

// Jobs returns the batch's observable jobs in row order.
func (a *Aggregator) Jobs(ctx context.Context, batchID string) ([]models.Job, error) {
	jobs, err := a.queue.ListBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrBatchNotFound, batchID)
	}
	return jobs, nil
}

func overallState(s *Status) string {
	terminal := s.Completed + s.Failed
	switch {
	case terminal == s.Total && s.Failed == 0:
		return StateCompleted
	case terminal == s.Total:
		return StateCompletedWithErrors
	case s.Processing == 0 && s.Waiting == s.Total:
		return StateQueued
	default:
		return StateProcessing
	}
}

// estimateRemaining projects the remaining time from the observed completion
// rate. Nil when there is nothing to project from or nothing left.
func estimateRemaining(s *Status, createdAt *time.Time) *string {
	remaining := s.Waiting + s.Processing
	terminal := s.Completed + s.Failed
	if remaining == 0 || terminal == 0 || createdAt == nil {
		return nil
	}

	elapsed := time.Since(*createdAt)
	if elapsed <= 0 {
		return nil
	}
	estimate := time.Duration(float64(elapsed) / float64(terminal) * float64(remaining))
	rendered := formatDuration(estimate)
	return &rendered
}

// formatDuration renders an estimate as "Hh Mm", "Mm Ss", or "Ss".
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Round(time.Second).Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// flattenJob builds the per-job result row. Failed jobs fall back to the
// input record for name/address so the row stays identifiable.
func flattenJob(job *models.Job) ResultRow {
	row := ResultRow{
		JobID:    job.ID,
		Index:    job.Index,
		Attempts: job.Attempts,
		Name:     job.Input.Name,
		Status:   "failed",
	}
	if job.FinishedAt != nil {
		row.Timestamp = job.FinishedAt.UTC().Format(time.RFC3339)
	}

	if job.State == models.JobStateFailed {
		row.Address = job.Input.Address
		row.FailureReason = job.FailureReason
		return row
	}

	r := job.Result
	if r == nil {
		return row
	}
	row.Status = string(r.Status)
	if r.FullName != "" {
		row.Name = r.FullName
	}
	row.Rating = r.Rating
	row.ReviewsCount = r.ReviewsCount
	row.Phone = r.Phone
	row.Address = r.FullAddress
	row.Website = r.Website
	row.Category = r.Category
	row.Latitude = r.Latitude
	row.Longitude = r.Longitude
	row.MondayHours = r.OpeningHours["Monday"]
	row.TuesdayHours = r.OpeningHours["Tuesday"]
	row.WednesdayHours = r.OpeningHours["Wednesday"]
	row.ThursdayHours = r.OpeningHours["Thursday"]
	row.FridayHours = r.OpeningHours["Friday"]
	row.SaturdayHours = r.OpeningHours["Saturday"]
	row.SundayHours = r.OpeningHours["Sunday"]
	return row
}
