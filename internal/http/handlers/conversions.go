package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/KLcoding01/K-AI-Scribe-sub000/internal/conversion"
	"github.com/KLcoding01/K-AI-Scribe-sub000/pkg/logging"
)

const maxConversionBytes = 1 << 20

// ConversionEnqueuer accepts a document for async conversion. Satisfied by
// *conversion.Publisher.
type ConversionEnqueuer interface {
	Enqueue(ctx context.Context, document, targetFormat string) (string, error)
}

// JobReader looks up conversion jobs. Satisfied by *conversion.JobStore.
type JobReader interface {
	GetJob(ctx context.Context, jobID string) (*conversion.JobRecord, error)
}

// OutputReader fetches stored documents by key. Satisfied by
// *conversion.DocumentStore.
type OutputReader interface {
	Get(ctx context.Context, key string) (string, error)
}

// ConversionsHandler exposes the async conversion pipeline over HTTP.
type ConversionsHandler struct {
	publisher ConversionEnqueuer
	jobs      JobReader
	docs      OutputReader
	logger    *logging.Logger
}

// NewConversionsHandler creates a conversions handler.
func NewConversionsHandler(publisher ConversionEnqueuer, jobs JobReader, docs OutputReader, logger *logging.Logger) *ConversionsHandler {
	if publisher == nil || jobs == nil || docs == nil {
		panic("handlers: conversion dependencies cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ConversionsHandler{publisher: publisher, jobs: jobs, docs: docs, logger: logger}
}

type createConversionRequest struct {
	Document     string `json:"document"`
	TargetFormat string `json:"target_format"`
}

type createConversionResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// CreateConversion handles POST /conversions. The document is stored and a
// job is queued; the caller polls the job endpoint for the result.
func (h *ConversionsHandler) CreateConversion(w http.ResponseWriter, r *http.Request) {
	var req createConversionRequest
	body := http.MaxBytesReader(w, r.Body, maxConversionBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	jobID, err := h.publisher.Enqueue(r.Context(), req.Document, req.TargetFormat)
	if err != nil {
		if errors.Is(err, conversion.ErrEmptyDocument) || errors.Is(err, conversion.ErrEmptyTargetFormat) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("enqueue conversion failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not enqueue conversion")
		return
	}

	writeJSON(w, http.StatusAccepted, createConversionResponse{
		JobID:  jobID,
		Status: string(conversion.JobStatusPending),
	})
}

type conversionJobResponse struct {
	JobID        string `json:"job_id"`
	Status       string `json:"status"`
	TargetFormat string `json:"target_format"`
	FailureKind  string `json:"failure_kind,omitempty"`
	Output       string `json:"output,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// GetConversionJob handles GET /conversions/jobs/{jobID}. Completed jobs
// include the converted document fetched from the document store.
func (h *ConversionsHandler) GetConversionJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "missing job ID")
		return
	}

	job, err := h.jobs.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, conversion.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		h.logger.Error("get conversion job failed", "error", err, "job_id", jobID)
		writeError(w, http.StatusInternalServerError, "could not load job")
		return
	}

	resp := conversionJobResponse{
		JobID:        job.JobID,
		Status:       string(job.Status),
		TargetFormat: job.TargetFormat,
		FailureKind:  job.FailureKind,
		CreatedAt:    job.CreatedAt,
		UpdatedAt:    job.UpdatedAt,
	}
	if job.Status == conversion.JobStatusCompleted && job.OutputKey != "" {
		output, err := h.docs.Get(r.Context(), job.OutputKey)
		if err != nil {
			h.logger.Error("fetch conversion output failed", "error", err, "job_id", jobID)
			writeError(w, http.StatusInternalServerError, "could not load converted document")
			return
		}
		resp.Output = output
	}

	writeJSON(w, http.StatusOK, resp)
}
