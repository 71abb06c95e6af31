package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/KLcoding01/K-AI-Scribe-sub000/internal/llm"
	"github.com/KLcoding01/K-AI-Scribe-sub000/internal/notes"
	"github.com/KLcoding01/K-AI-Scribe-sub000/internal/phi"
	"github.com/KLcoding01/K-AI-Scribe-sub000/pkg/logging"
)

// maxDictationBytes bounds request bodies; dictations past this size are
// rejected before any processing.
const maxDictationBytes = 1 << 20

// NoteService generates notes from dictation. Satisfied by *notes.Service.
type NoteService interface {
	GenerateNote(ctx context.Context, dictation string, noteType notes.NoteType) (*notes.Note, error)
	GenerateStructuredNote(ctx context.Context, dictation string) (*notes.StructuredNote, error)
}

// NotesHandler exposes note generation over HTTP.
type NotesHandler struct {
	svc    NoteService
	logger *logging.Logger
}

// NewNotesHandler creates a notes handler.
func NewNotesHandler(svc NoteService, logger *logging.Logger) *NotesHandler {
	if svc == nil {
		panic("handlers: note service cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &NotesHandler{svc: svc, logger: logger}
}

type generateNoteRequest struct {
	Dictation  string `json:"dictation"`
	NoteType   string `json:"note_type"`
	Structured bool   `json:"structured"`
}

// GenerateNote handles POST /notes:generate.
func (h *NotesHandler) GenerateNote(w http.ResponseWriter, r *http.Request) {
	var req generateNoteRequest
	body := http.MaxBytesReader(w, r.Body, maxDictationBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	noteType, err := notes.ParseNoteType(req.NoteType)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Structured {
		note, err := h.svc.GenerateStructuredNote(r.Context(), req.Dictation)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, note)
		return
	}

	note, err := h.svc.GenerateNote(r.Context(), req.Dictation, noteType)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// writeServiceError maps generation failures onto HTTP statuses. A blocked
// request carries categories and the reference hash, never the flagged text.
func (h *NotesHandler) writeServiceError(w http.ResponseWriter, err error) {
	var blocked *phi.BlockedError
	if errors.As(err, &blocked) {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:      blocked.Error(),
			Code:       phi.BlockedCode,
			Categories: blocked.CategoryNames(),
			Ref:        blocked.ContentHash,
		})
		return
	}
	if errors.Is(err, notes.ErrEmptyDictation) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if errors.Is(err, llm.ErrUnconfigured) {
		writeError(w, http.StatusServiceUnavailable, "note generation is not configured")
		return
	}
	var timeout *llm.TimeoutError
	if errors.As(err, &timeout) {
		writeError(w, http.StatusGatewayTimeout, "note generation timed out")
		return
	}
	var malformed *llm.MalformedResponseError
	if errors.As(err, &malformed) {
		writeError(w, http.StatusBadGateway, "model returned an unusable response")
		return
	}
	h.logger.Error("note generation failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}
