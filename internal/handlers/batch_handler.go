package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/reperio/internal/batch"
	"github.com/ternarybob/reperio/internal/common"
	"github.com/ternarybob/reperio/internal/ingest"
)

// BatchHandler serves the upload, status, results, and export endpoints.
type BatchHandler struct {
	cfg        common.IngestConfig
	ingest     *ingest.Service
	aggregator *batch.Aggregator
	logger     arbor.ILogger
}

// NewBatchHandler creates the batch handler.
func NewBatchHandler(cfg common.IngestConfig, ingestSvc *ingest.Service, aggregator *batch.Aggregator, logger arbor.ILogger) *BatchHandler {
	return &BatchHandler{
		cfg:        cfg,
		ingest:     ingestSvc,
		aggregator: aggregator,
		logger:     logger,
	}
}

// Upload handles POST /api/v1/scraping-batch: one multipart file part named
// "file" with a .csv suffix. The reply is sent only after every job is
// durable.
func (h *BatchHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if err := r.ParseMultipartForm(h.cfg.MaxUploadBytes); err != nil {
		WriteError(w, http.StatusBadRequest, "csv_parse_error", "Invalid multipart upload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "csv_parse_error", "Missing file part 'file'")
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		WriteError(w, http.StatusBadRequest, "csv_parse_error", "File must have a .csv suffix")
		return
	}

	// The encoding detector needs the whole byte stream.
	body, err := io.ReadAll(io.LimitReader(file, h.cfg.MaxUploadBytes+1))
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "csv_parse_error", "Failed to read upload")
		return
	}
	if int64(len(body)) > h.cfg.MaxUploadBytes {
		WriteError(w, http.StatusBadRequest, "csv_parse_error", "Upload exceeds the size limit")
		return
	}

	summary, err := h.ingest.Ingest(r.Context(), body)
	if err != nil {
		h.logger.Warn().Err(err).Str("filename", header.Filename).Msg("Batch ingest failed")
		switch {
		case errors.Is(err, ingest.ErrNoRecords), errors.Is(err, ingest.ErrTooManyRows):
			WriteError(w, http.StatusBadRequest, "csv_parse_error", err.Error())
		case strings.HasPrefix(err.Error(), "encoding_error"):
			WriteError(w, http.StatusInternalServerError, "encoding_error", "CSV could not be decoded")
		case strings.HasPrefix(err.Error(), "csv parse error"):
			WriteError(w, http.StatusInternalServerError, "csv_parse_error", "CSV could not be parsed")
		default:
			WriteError(w, http.StatusInternalServerError, "enqueue_error", "Failed to enqueue batch")
		}
		return
	}

	WriteJSON(w, http.StatusOK, summary)
}

// Status handles GET /api/v1/scraping-batch/{batchId}.
func (h *BatchHandler) Status(w http.ResponseWriter, r *http.Request, batchID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	status, err := h.aggregator.Status(r.Context(), batchID)
	if err != nil {
		if errors.Is(err, batch.ErrBatchNotFound) {
			WriteError(w, http.StatusNotFound, "not_found", "Unknown batch")
			return
		}
		h.logger.Error().Err(err).Str("batch_id", batchID).Msg("Batch status failed")
		WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to read batch status")
		return
	}

	WriteJSON(w, http.StatusOK, status)
}

// Results handles GET /api/v1/scraping-batch/{batchId}/results: the
// terminal rows without the roll-up envelope.
func (h *BatchHandler) Results(w http.ResponseWriter, r *http.Request, batchID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	status, err := h.aggregator.Status(r.Context(), batchID)
	if err != nil {
		if errors.Is(err, batch.ErrBatchNotFound) {
			WriteError(w, http.StatusNotFound, "not_found", "Unknown batch")
			return
		}
		h.logger.Error().Err(err).Str("batch_id", batchID).Msg("Batch results failed")
		WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to read batch results")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"batchId": batchID,
		"results": status.Results,
	})
}

// Export handles GET /api/v1/scraping-batch/{batchId}/export.
func (h *BatchHandler) Export(w http.ResponseWriter, r *http.Request, batchID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	data, filename, err := h.aggregator.Export(r.Context(), batchID)
	if err != nil {
		if errors.Is(err, batch.ErrBatchNotFound) {
			WriteError(w, http.StatusNotFound, "not_found", "Unknown batch")
			return
		}
		h.logger.Error().Err(err).Str("batch_id", batchID).Msg("Batch export failed")
		WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to export batch")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
