package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/peak-importer/internal/api/middleware"
	"github.com/dvloznov/peak-importer/internal/config"
	infra "github.com/dvloznov/peak-importer/internal/infra/bigquery"
	"github.com/dvloznov/peak-importer/internal/jobs"
	"github.com/dvloznov/peak-importer/internal/pipeline"
)

// ExtractHandler runs the extraction pipeline synchronously for callers
// that already have document text in hand.
type ExtractHandler struct {
	pipe *pipeline.Pipeline
	log  zerolog.Logger
}

// NewExtractHandler creates a new synchronous extraction handler.
func NewExtractHandler(pipe *pipeline.Pipeline, log zerolog.Logger) *ExtractHandler {
	return &ExtractHandler{pipe: pipe, log: log}
}

// ExtractRow handles POST /api/extract
func (h *ExtractHandler) ExtractRow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text         string          `json:"text"`
		Filename     string          `json:"filename"`
		ClientTaxID  string          `json:"client_tax_id"`
		PlatformHint string          `json:"platform_hint"`
		Config       json.RawMessage `json:"config"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Text == "" && req.Filename == "" {
		middleware.WriteError(w, http.StatusBadRequest, "text or filename is required")
		return
	}

	cfg := config.Default()
	if len(req.Config) > 0 {
		parsed, err := config.FromJSON(req.Config)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid config")
			return
		}
		cfg = parsed
	}

	result := h.pipe.ExtractRow(r.Context(), pipeline.Input{
		Text:         req.Text,
		Filename:     req.Filename,
		ClientTaxID:  req.ClientTaxID,
		PlatformHint: req.PlatformHint,
		Cfg:          cfg,
	})

	h.log.Info().
		Str("filename", req.Filename).
		Str("platform", result.Platform).
		Int("error_count", len(result.Errors)).
		Msg("Synchronous extraction completed")

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"platform":     result.Platform,
		"row":          result.Row.Map(),
		"errors":       result.Errors,
		"needs_review": len(result.Errors) > 0 || result.Row.PaymentMethod == "",
	})
}

// DocumentsHandler handles document upload and extraction enqueueing.
type DocumentsHandler struct {
	publisher jobs.Publisher
	bucket    string
	log       zerolog.Logger
}

// NewDocumentsHandler creates a new documents handler.
func NewDocumentsHandler(publisher jobs.Publisher, bucket string, log zerolog.Logger) *DocumentsHandler {
	return &DocumentsHandler{
		publisher: publisher,
		bucket:    bucket,
		log:       log,
	}
}

// CreateUploadURL handles POST /api/documents/upload-url
func (h *DocumentsHandler) CreateUploadURL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Filename    string `json:"filename"`
		ContentType string `json:"content_type"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Filename == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Filename is required")
		return
	}

	objectName := fmt.Sprintf("uploads/%s/%s", time.Now().Format("2006/01/02"), uuid.New().String()+"-"+req.Filename)
	gcsURI := fmt.Sprintf("gs://%s/%s", h.bucket, objectName)
	documentID := uuid.New().String()

	// For local development with user credentials, return direct upload URL.
	// In production with service accounts, this would use signed URLs.
	uploadURL := fmt.Sprintf("/api/documents/upload/%s?object_name=%s&filename=%s", documentID, url.QueryEscape(objectName), url.QueryEscape(req.Filename))

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"upload_url":  uploadURL,
		"gcs_uri":     gcsURI,
		"object_name": objectName,
		"document_id": documentID,
	})
}

// UploadDocument handles POST /api/documents/upload/:documentId
// Direct upload endpoint for local development with user credentials.
func (h *DocumentsHandler) UploadDocument(w http.ResponseWriter, r *http.Request, documentID string) {
	ctx := r.Context()

	objectName := r.URL.Query().Get("object_name")
	if objectName == "" {
		middleware.WriteError(w, http.StatusBadRequest, "object_name is required")
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/pdf"
	}

	gcsURI := fmt.Sprintf("gs://%s/%s", h.bucket, objectName)

	client, err := storage.NewClient(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create storage client")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to upload file")
		return
	}
	defer client.Close()

	wc := client.Bucket(h.bucket).Object(objectName).NewWriter(ctx)
	wc.ContentType = contentType

	written, err := io.Copy(wc, r.Body)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to write to GCS")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to upload file")
		return
	}

	if err := wc.Close(); err != nil {
		h.log.Error().Err(err).Msg("Failed to close GCS writer")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to upload file")
		return
	}

	filename := r.URL.Query().Get("filename")
	if filename == "" {
		filename = "document.pdf"
	}
	if idx := strings.Index(filename, "?"); idx > 0 {
		filename = filename[:idx]
	}
	filename = filepath.Base(filename)

	h.log.Info().
		Str("document_id", documentID).
		Str("gcs_uri", gcsURI).
		Str("filename", filename).
		Int64("bytes", written).
		Msg("File uploaded successfully")

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"document_id": documentID,
		"gcs_uri":     gcsURI,
		"filename":    filename,
		"status":      "uploaded",
	})
}

// EnqueueExtraction handles POST /api/documents/extract
func (h *DocumentsHandler) EnqueueExtraction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GCSURI       string          `json:"gcs_uri"`
		TextGCSURI   string          `json:"text_gcs_uri"`
		Filename     string          `json:"filename"`
		BatchID      string          `json:"batch_id"`
		ClientTaxID  string          `json:"client_tax_id"`
		PlatformHint string          `json:"platform_hint"`
		Config       json.RawMessage `json:"config"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.GCSURI == "" {
		middleware.WriteError(w, http.StatusBadRequest, "gcs_uri is required")
		return
	}

	job := &jobs.ExtractDocumentJob{
		BatchID:      req.BatchID,
		GCSURI:       req.GCSURI,
		TextGCSURI:   req.TextGCSURI,
		Filename:     req.Filename,
		ClientTaxID:  req.ClientTaxID,
		PlatformHint: req.PlatformHint,
		Config:       req.Config,
	}

	if err := h.publisher.PublishExtractDocument(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue extraction job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue extraction job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("gcs_uri", req.GCSURI).Msg("Extraction job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}

// RowsHandler serves stored accounting rows.
type RowsHandler struct {
	sink infra.RowSink
	log  zerolog.Logger
}

// NewRowsHandler creates a new rows handler.
func NewRowsHandler(sink infra.RowSink, log zerolog.Logger) *RowsHandler {
	return &RowsHandler{sink: sink, log: log}
}

// ListBatchRows handles GET /api/batches/{id}/rows
func (h *RowsHandler) ListBatchRows(w http.ResponseWriter, r *http.Request, batchID string) {
	ctx := r.Context()

	var (
		rows []*infra.PeakRowRecord
		err  error
	)
	if r.URL.Query().Get("needs_review") == "true" {
		rows, err = h.sink.ListRowsNeedingReview(ctx, batchID)
	} else {
		rows, err = h.sink.ListPeakRowsByBatch(ctx, batchID)
	}
	if err != nil {
		h.log.Error().Err(err).Str("batch_id", batchID).Msg("Failed to list rows")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list rows")
		return
	}

	if rows == nil {
		rows = []*infra.PeakRowRecord{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"rows":  rows,
		"count": len(rows),
	})
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	filter := jobs.JobFilter{
		BatchID: query.Get("batch_id"),
		Status:  jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
