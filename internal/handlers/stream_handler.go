package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/reperio/internal/batch"
)

// streamPollInterval is the fixed server-side tick between progress frames.
const streamPollInterval = 2 * time.Second

// StreamHandler serves the per-batch progress stream as server-sent events.
// Frames: connected once, progress per tick, result per newly-terminal job
// in completion order, complete then close, error on internal failure.
type StreamHandler struct {
	aggregator *batch.Aggregator
	logger     arbor.ILogger

	// pollInterval is overridable for tests.
	pollInterval time.Duration
}

// NewStreamHandler creates the stream handler.
func NewStreamHandler(aggregator *batch.Aggregator, logger arbor.ILogger) *StreamHandler {
	return &StreamHandler{
		aggregator:   aggregator,
		logger:       logger,
		pollInterval: streamPollInterval,
	}
}

// Stream handles GET /api/v1/scraping-batch/{batchId}/stream.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request, batchID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, http.StatusInternalServerError, "stream_error", "Streaming not supported")
		return
	}

	// Unknown batches 404 before the stream is committed.
	status, err := h.aggregator.Status(r.Context(), batchID)
	if err != nil {
		if errors.Is(err, batch.ErrBatchNotFound) {
			WriteError(w, http.StatusNotFound, "not_found", "Unknown batch")
			return
		}
		WriteError(w, http.StatusInternalServerError, "stream_error", "Failed to read batch status")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	h.writeFrame(w, "connected", map[string]interface{}{
		"batchId":   batchID,
		"message":   "Subscribed to batch progress",
		"timestamp": timestamp(),
	})
	flusher.Flush()

	// Jobs terminal before subscription replay as result frames on the first
	// tick; clients deduplicate by jobId.
	seenJobs := make(map[string]bool)

	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	for {
		if done := h.tick(w, flusher, batchID, status, seenJobs); done {
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		status, err = h.aggregator.Status(r.Context(), batchID)
		if err != nil {
			h.logger.Warn().Err(err).Str("batch_id", batchID).Msg("Stream poll failed")
			h.writeFrame(w, "error", map[string]interface{}{
				"batchId":   batchID,
				"message":   "Failed to read batch progress",
				"timestamp": timestamp(),
			})
			flusher.Flush()
			return
		}
	}
}

// tick emits one round of frames from a status snapshot. Returns true when
// the stream is finished.
func (h *StreamHandler) tick(w http.ResponseWriter, flusher http.Flusher, batchID string, status *batch.Status, seenJobs map[string]bool) bool {
	h.writeFrame(w, "progress", map[string]interface{}{
		"batchId":                batchID,
		"state":                  status.State,
		"total":                  status.Total,
		"completed":              status.Completed,
		"failed":                 status.Failed,
		"processing":             status.Processing,
		"waiting":                status.Waiting,
		"percentage":             status.Percentage,
		"estimatedTimeRemaining": status.EstimatedTimeRemaining,
		"timestamp":              timestamp(),
	})

	for _, row := range newTerminalRows(status, seenJobs) {
		h.writeFrame(w, "result", row)
	}
	flusher.Flush()

	if status.Completed+status.Failed == status.Total {
		h.writeFrame(w, "complete", map[string]interface{}{
			"batchId":   batchID,
			"completed": status.Completed,
			"total":     status.Total,
			"message":   "Batch processing finished",
			"timestamp": timestamp(),
		})
		flusher.Flush()
		return true
	}
	return false
}

// newTerminalRows returns the unseen terminal rows in completion order and
// marks them seen.
func newTerminalRows(status *batch.Status, seenJobs map[string]bool) []batch.ResultRow {
	rows := make([]batch.ResultRow, 0, len(status.Results))
	for _, row := range status.Results {
		if seenJobs[row.JobID] {
			continue
		}
		seenJobs[row.JobID] = true
		rows = append(rows, row)
	}
	// Status lists rows in batch index order; completion order follows the
	// terminal timestamps.
	for i := 1; i < len(rows); i++ {
		for k := i; k > 0 && rows[k].Timestamp < rows[k-1].Timestamp; k-- {
			rows[k], rows[k-1] = rows[k-1], rows[k]
		}
	}
	return rows
}

// writeFrame emits one named SSE frame with a JSON payload.
func (h *StreamHandler) writeFrame(w http.ResponseWriter, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn().Err(err).Str("event", event).Msg("Failed to marshal stream frame")
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
