package models

import "time"

// JobState is the lifecycle state of a queued scrape job.
// Transitions are monotonic: waiting -> active -> {completed, failed},
// with a retry moving active back to waiting until attempts are exhausted.
type JobState string

const (
	JobStateWaiting   JobState = "waiting"
	JobStateActive    JobState = "active"
	JobStateCompleted JobState = "completed"
	JobStateFailed    JobState = "failed"
)

// Terminal reports whether the state is final.
func (s JobState) Terminal() bool {
	return s == JobStateCompleted || s == JobStateFailed
}

// InputRecord is one normalized CSV row. Keys are matched case-insensitively
// at ingest; values keep their original Unicode verbatim.
type InputRecord struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
}

// Enqueueable reports whether the record carries enough identity to search on.
// At minimum one of name or address must be non-empty.
func (r InputRecord) Enqueueable() bool {
	return r.Name != "" || r.Address != ""
}

// Job is the queue's unit of scheduling: one scrape task for one input record.
type Job struct {
	ID      string      `badgerhold:"key" json:"jobId"`
	BatchID string      `badgerhold:"index" json:"batchId"`
	Index   int         `json:"index"` // position within the batch, fixed at ingest
	Input   InputRecord `json:"input"`

	State    JobState `badgerhold:"index" json:"state"`
	Attempts int      `json:"attempts"`
	Progress int      `json:"progress"`

	CreatedAt  time.Time  `json:"createdAt"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`

	// NotBefore delays re-dispatch after a retryable failure (exponential backoff).
	NotBefore     time.Time  `json:"-"`
	WorkerID      string     `json:"-"`
	LastHeartbeat *time.Time `json:"-"`

	Result        *ScrapeResult `json:"result,omitempty"`
	FailureReason string        `json:"failureReason,omitempty"`
}
