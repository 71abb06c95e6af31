package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/KLcoding01/K-AI-Scribe-sub000/internal/llm"
	"github.com/KLcoding01/K-AI-Scribe-sub000/internal/notes"
	"github.com/KLcoding01/K-AI-Scribe-sub000/internal/phi"
)

type fakeNoteService struct {
	note       *notes.Note
	structured *notes.StructuredNote
	err        error

	gotDictation string
	gotType      notes.NoteType
}

func (f *fakeNoteService) GenerateNote(ctx context.Context, dictation string, noteType notes.NoteType) (*notes.Note, error) {
	f.gotDictation = dictation
	f.gotType = noteType
	if f.err != nil {
		return nil, f.err
	}
	return f.note, nil
}

func (f *fakeNoteService) GenerateStructuredNote(ctx context.Context, dictation string) (*notes.StructuredNote, error) {
	f.gotDictation = dictation
	if f.err != nil {
		return nil, f.err
	}
	return f.structured, nil
}

func postNote(t *testing.T, h *NotesHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/notes:generate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.GenerateNote(rec, req)
	return rec
}

func TestGenerateNoteSuccess(t *testing.T) {
	svc := &fakeNoteService{note: &notes.Note{
		Type:        notes.NoteTypeSOAP,
		Content:     "S: PT-XXXX reports improvement.",
		ContentHash: "abc123def456",
		GeneratedAt: time.Now().UTC(),
	}}
	h := NewNotesHandler(svc, nil)

	rec := postNote(t, h, `{"dictation":"Pt ambulating 100 ft.","note_type":"soap"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got notes.Note
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Content != svc.note.Content {
		t.Fatalf("unexpected content %q", got.Content)
	}
	if svc.gotType != notes.NoteTypeSOAP {
		t.Fatalf("expected soap note type, got %q", svc.gotType)
	}
}

func TestGenerateNoteDefaultsToSOAP(t *testing.T) {
	svc := &fakeNoteService{note: &notes.Note{Content: "note"}}
	h := NewNotesHandler(svc, nil)

	rec := postNote(t, h, `{"dictation":"Pt seen for eval."}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.gotType != notes.NoteTypeSOAP {
		t.Fatalf("expected default soap, got %q", svc.gotType)
	}
}

func TestGenerateNoteBlockedIsUnprocessable(t *testing.T) {
	svc := &fakeNoteService{err: &phi.BlockedError{
		Categories:  []phi.Category{phi.CategorySSN, phi.CategoryPhone},
		ContentHash: "deadbeef0123",
	}}
	h := NewNotesHandler(svc, nil)

	rec := postNote(t, h, `{"dictation":"SSN 123-45-6789"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if resp.Code != phi.BlockedCode {
		t.Fatalf("expected code %q, got %q", phi.BlockedCode, resp.Code)
	}
	if len(resp.Categories) != 2 {
		t.Fatalf("expected 2 categories, got %v", resp.Categories)
	}
	if resp.Ref != "deadbeef0123" {
		t.Fatalf("expected reference hash, got %q", resp.Ref)
	}
	if strings.Contains(rec.Body.String(), "123-45-6789") {
		t.Fatalf("response must not echo flagged text: %s", rec.Body.String())
	}
}

func TestGenerateNoteErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"empty dictation", notes.ErrEmptyDictation, http.StatusBadRequest},
		{"unconfigured", llm.ErrUnconfigured, http.StatusServiceUnavailable},
		{"timeout", &llm.TimeoutError{Timeout: 45 * time.Second, Err: context.DeadlineExceeded}, http.StatusGatewayTimeout},
		{"malformed", &llm.MalformedResponseError{Sample: "oops"}, http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewNotesHandler(&fakeNoteService{err: tc.err}, nil)
			rec := postNote(t, h, `{"dictation":"some text"}`)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestGenerateNoteBadNoteType(t *testing.T) {
	h := NewNotesHandler(&fakeNoteService{}, nil)
	rec := postNote(t, h, `{"dictation":"text","note_type":"haiku"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGenerateNoteInvalidBody(t *testing.T) {
	h := NewNotesHandler(&fakeNoteService{}, nil)
	rec := postNote(t, h, `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGenerateStructuredNote(t *testing.T) {
	svc := &fakeNoteService{structured: &notes.StructuredNote{
		Subjective: "Reports less pain.",
		Objective:  "Ambulated 100 ft.",
		Assessment: "Progressing.",
		Plan:       "Continue plan of care.",
	}}
	h := NewNotesHandler(svc, nil)

	rec := postNote(t, h, `{"dictation":"Pt reports less pain.","structured":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got notes.StructuredNote
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Plan != "Continue plan of care." {
		t.Fatalf("unexpected plan %q", got.Plan)
	}
}
