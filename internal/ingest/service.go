package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/reperio/internal/charset"
	"github.com/ternarybob/reperio/internal/common"
	"github.com/ternarybob/reperio/internal/models"
	storage "github.com/ternarybob/reperio/internal/storage/badger"
)

// ErrNoRecords is returned when the CSV parses but holds no enqueueable row.
var ErrNoRecords = errors.New("csv contains no enqueueable records")

// ErrTooManyRows is returned when the CSV exceeds the configured row limit.
var ErrTooManyRows = errors.New("csv exceeds the row limit")

// Summary is the synchronous upload reply. JobsCreated equals the number of
// durable jobs observable in the queue when the reply is sent.
type Summary struct {
	BatchID     string `json:"batchId"`
	JobsCreated int    `json:"jobsCreated"`
	Encoding    string `json:"encoding"`
	BOMRemoved  bool   `json:"bomRemoved"`
}

// Service turns an uploaded CSV body into a durable batch of queued jobs.
type Service struct {
	cfg    common.IngestConfig
	queue  *storage.JobQueue
	logger arbor.ILogger
}

// NewService creates the ingest service.
func NewService(cfg common.IngestConfig, queue *storage.JobQueue, logger arbor.ILogger) *Service {
	return &Service{cfg: cfg, queue: queue, logger: logger}
}

// Ingest decodes the buffered CSV body, parses the rows, and enqueues them
// as one batch. Two-phase: all rows are parsed before the first enqueue, so
// a parse error never leaves partial jobs behind; an enqueue error removes
// the jobs already written.
func (s *Service) Ingest(ctx context.Context, body []byte) (*Summary, error) {
	text, encoding, bomRemoved, err := charset.Decode(body)
	if err != nil {
		return nil, err
	}

	records, err := s.parse(text)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	batchID := common.NewBatchID()
	now := time.Now().UTC()
	jobs := make([]models.Job, 0, len(records))
	for i, rec := range records {
		jobs = append(jobs, models.Job{
			ID:        common.NewJobID(),
			BatchID:   batchID,
			Index:     i,
			Input:     rec,
			CreatedAt: now,
		})
	}

	if err := s.queue.EnqueueAll(ctx, jobs); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("batch_id", batchID).
		Int("jobs_created", len(jobs)).
		Str("encoding", encoding).
		Bool("bom_removed", bomRemoved).
		Msg("Batch ingested")

	return &Summary{
		BatchID:     batchID,
		JobsCreated: len(jobs),
		Encoding:    encoding,
		BOMRemoved:  bomRemoved,
	}, nil
}

// parse reads the decoded text as CSV: header row required, column names
// matched case-insensitively after trimming, empty lines skipped. Rows
// without at least a name or address are dropped.
func (s *Service) parse(text string) ([]models.InputRecord, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1 // ragged rows tolerated; missing cells read as empty
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv parse error: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNoRecords
	}
	if s.cfg.MaxRows > 0 && len(rows)-1 > s.cfg.MaxRows {
		return nil, fmt.Errorf("%w: %d rows, limit %d", ErrTooManyRows, len(rows)-1, s.cfg.MaxRows)
	}

	columns := headerIndex(rows[0])

	var records []models.InputRecord
	for _, row := range rows[1:] {
		if isEmptyRow(row) {
			continue
		}
		rec := models.InputRecord{
			Name:       cell(row, columns["name"]),
			Address:    cell(row, columns["address"]),
			City:       cell(row, columns["city"]),
			PostalCode: firstNonEmpty(cell(row, columns["postcode"]), cell(row, columns["postal_code"])),
		}
		if rec.Enqueueable() {
			records = append(records, rec)
		}
	}
	return records, nil
}

// headerIndex maps trimmed lowercase header names to column positions.
// Unknown headers are carried too; lookups for absent names return -1 via
// the map's zero-value handling in cell.
func headerIndex(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if name != "" {
			if _, seen := columns[name]; !seen {
				columns[name] = i + 1 // 1-based so the zero value means absent
			}
		}
	}
	return columns
}

func cell(row []string, pos int) string {
	if pos <= 0 || pos > len(row) {
		return ""
	}
	return strings.TrimSpace(row[pos-1])
}

func isEmptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
