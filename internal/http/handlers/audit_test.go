package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/KLcoding01/K-AI-Scribe-sub000/internal/compliance"
)

type fakeAuditQuerier struct {
	events    []compliance.AuditEvent
	err       error
	gotFilter compliance.AuditFilter
}

func (f *fakeAuditQuerier) QueryEvents(ctx context.Context, filter compliance.AuditFilter) ([]compliance.AuditEvent, error) {
	f.gotFilter = filter
	return f.events, f.err
}

func queryAudit(t *testing.T, h *AuditHandler, rawQuery string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/admin/audit?"+rawQuery, nil)
	rec := httptest.NewRecorder()
	h.QueryEvents(rec, req)
	return rec
}

func TestQueryEventsDefaults(t *testing.T) {
	q := &fakeAuditQuerier{events: []compliance.AuditEvent{
		{ID: "ev-1", EventType: compliance.EventPHIBlocked, ContentHash: "abc123"},
	}}
	h := NewAuditHandler(q, nil)

	rec := queryAudit(t, h, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if q.gotFilter.Limit != defaultAuditLimit {
		t.Fatalf("expected default limit %d, got %d", defaultAuditLimit, q.gotFilter.Limit)
	}
	var resp struct {
		Events []compliance.AuditEvent `json:"events"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Events) != 1 || resp.Events[0].ID != "ev-1" {
		t.Fatalf("unexpected events %+v", resp.Events)
	}
}

func TestQueryEventsFilters(t *testing.T) {
	q := &fakeAuditQuerier{}
	h := NewAuditHandler(q, nil)

	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	rec := queryAudit(t, h, "event_type=phi.blocked&content_hash=abc&start=2026-08-01T00:00:00Z&limit=10&offset=20")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if q.gotFilter.EventType != compliance.EventPHIBlocked {
		t.Fatalf("expected event type filter, got %q", q.gotFilter.EventType)
	}
	if q.gotFilter.ContentHash != "abc" {
		t.Fatalf("expected content hash filter, got %q", q.gotFilter.ContentHash)
	}
	if !q.gotFilter.StartTime.Equal(start) {
		t.Fatalf("expected start %v, got %v", start, q.gotFilter.StartTime)
	}
	if q.gotFilter.Limit != 10 || q.gotFilter.Offset != 20 {
		t.Fatalf("expected limit/offset forwarded, got %d/%d", q.gotFilter.Limit, q.gotFilter.Offset)
	}
}

func TestQueryEventsLimitClamped(t *testing.T) {
	q := &fakeAuditQuerier{}
	h := NewAuditHandler(q, nil)

	rec := queryAudit(t, h, "limit=9999")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if q.gotFilter.Limit != maxAuditLimit {
		t.Fatalf("expected limit clamped to %d, got %d", maxAuditLimit, q.gotFilter.Limit)
	}
}

func TestQueryEventsBadParams(t *testing.T) {
	h := NewAuditHandler(&fakeAuditQuerier{}, nil)
	for _, raw := range []string{"start=yesterday", "limit=0", "limit=x", "offset=-1"} {
		rec := queryAudit(t, h, raw)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("query %q: expected 400, got %d", raw, rec.Code)
		}
	}
}

func TestQueryEventsEmptyResultIsArray(t *testing.T) {
	h := NewAuditHandler(&fakeAuditQuerier{}, nil)
	rec := queryAudit(t, h, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"events":[]`) {
		t.Fatalf("expected empty events array, got %s", body)
	}
}
