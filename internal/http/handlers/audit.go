package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/KLcoding01/K-AI-Scribe-sub000/internal/compliance"
	"github.com/KLcoding01/K-AI-Scribe-sub000/pkg/logging"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// AuditQuerier reads audit events. Satisfied by *compliance.AuditService.
type AuditQuerier interface {
	QueryEvents(ctx context.Context, filter compliance.AuditFilter) ([]compliance.AuditEvent, error)
}

// AuditHandler serves the admin audit query endpoint.
type AuditHandler struct {
	audit  AuditQuerier
	logger *logging.Logger
}

// NewAuditHandler creates an audit handler.
func NewAuditHandler(audit AuditQuerier, logger *logging.Logger) *AuditHandler {
	if audit == nil {
		panic("handlers: audit service cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AuditHandler{audit: audit, logger: logger}
}

// QueryEvents handles GET /admin/audit. Filters come from query params:
// event_type, content_hash, start, end (RFC 3339), limit, offset.
func (h *AuditHandler) QueryEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := compliance.AuditFilter{
		EventType:   compliance.AuditEventType(q.Get("event_type")),
		ContentHash: q.Get("content_hash"),
		Limit:       defaultAuditLimit,
	}

	if v := q.Get("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start time")
			return
		}
		filter.StartTime = t
	}
	if v := q.Get("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end time")
			return
		}
		filter.EndTime = t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		if n > maxAuditLimit {
			n = maxAuditLimit
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		filter.Offset = n
	}

	events, err := h.audit.QueryEvents(r.Context(), filter)
	if err != nil {
		h.logger.Error("audit query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not query audit events")
		return
	}
	if events == nil {
		events = []compliance.AuditEvent{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}
