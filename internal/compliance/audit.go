// Package compliance persists the audit trail the guardrail depends on.
// Audit rows carry event metadata, categories, and content hashes only;
// dictation and generated notes are never stored here.
package compliance

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditEventType represents the type of compliance event.
type AuditEventType string

const (
	// EventPHIBlocked is logged when the gatekeeper refuses a request.
	EventPHIBlocked AuditEventType = "phi.blocked"
	// EventNoteGenerated is logged when a note generation completes.
	EventNoteGenerated AuditEventType = "note.generated"
	// EventConversionCompleted is logged when a template conversion job finishes.
	EventConversionCompleted AuditEventType = "conversion.completed"
	// EventConversionFailed is logged when a template conversion job fails.
	EventConversionFailed AuditEventType = "conversion.failed"
)

// AuditEvent is an immutable audit record.
type AuditEvent struct {
	ID          string          `json:"id"`
	EventType   AuditEventType  `json:"event_type"`
	RequestID   string          `json:"request_id,omitempty"`
	ContentHash string          `json:"content_hash,omitempty"`
	Details     json.RawMessage `json:"details,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// AuditDetails carries event-specific metadata. Every field is derived
// data; none may hold source text.
type AuditDetails struct {
	// For phi.blocked
	Categories []string `json:"categories,omitempty"`

	// For note.generated
	DurationMS int64 `json:"duration_ms,omitempty"`

	// For conversion events
	JobID        string `json:"job_id,omitempty"`
	TargetFormat string `json:"target_format,omitempty"`
	FailureKind  string `json:"failure_kind,omitempty"`
}

// AuditFilter narrows a QueryEvents call.
type AuditFilter struct {
	EventType   AuditEventType
	ContentHash string
	StartTime   time.Time
	EndTime     time.Time
	Limit       int
	Offset      int
}

// AuditService handles audit logging against Postgres.
type AuditService struct {
	db *sql.DB
}

func NewAuditService(db *sql.DB) *AuditService {
	if db == nil {
		panic("compliance: db cannot be nil")
	}
	return &AuditService{db: db}
}

// LogEvent records one audit event.
func (s *AuditService) LogEvent(ctx context.Context, event AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO audit_events (
			id, event_type, request_id, content_hash, details, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		nullString(event.RequestID),
		nullString(event.ContentHash),
		event.Details,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("compliance: failed to log audit event: %w", err)
	}
	return nil
}

// RecordBlock satisfies the gatekeeper's recorder hook. Only the
// category names and the content hash reach the row.
func (s *AuditService) RecordBlock(ctx context.Context, categories []string, contentHash string) error {
	detailsJSON, _ := json.Marshal(AuditDetails{Categories: categories})

	return s.LogEvent(ctx, AuditEvent{
		EventType:   EventPHIBlocked,
		ContentHash: contentHash,
		Details:     detailsJSON,
	})
}

// RecordNoteGenerated satisfies the notes service recorder hook.
func (s *AuditService) RecordNoteGenerated(ctx context.Context, contentHash string, durationMS int64) error {
	detailsJSON, _ := json.Marshal(AuditDetails{DurationMS: durationMS})

	return s.LogEvent(ctx, AuditEvent{
		EventType:   EventNoteGenerated,
		ContentHash: contentHash,
		Details:     detailsJSON,
	})
}

// RecordConversionCompleted logs a finished conversion job.
func (s *AuditService) RecordConversionCompleted(ctx context.Context, jobID, targetFormat, contentHash string) error {
	detailsJSON, _ := json.Marshal(AuditDetails{JobID: jobID, TargetFormat: targetFormat})

	return s.LogEvent(ctx, AuditEvent{
		EventType:   EventConversionCompleted,
		ContentHash: contentHash,
		Details:     detailsJSON,
	})
}

// RecordConversionFailed logs a failed conversion job. failureKind is a
// coarse classifier such as "timeout" or "malformed", never error text
// that could embed content.
func (s *AuditService) RecordConversionFailed(ctx context.Context, jobID, targetFormat, failureKind string) error {
	detailsJSON, _ := json.Marshal(AuditDetails{JobID: jobID, TargetFormat: targetFormat, FailureKind: failureKind})

	return s.LogEvent(ctx, AuditEvent{
		EventType: EventConversionFailed,
		Details:   detailsJSON,
	})
}

// QueryEvents retrieves audit events with filters, newest first.
func (s *AuditService) QueryEvents(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	query := `
		SELECT id, event_type, request_id, content_hash, details, created_at
		FROM audit_events
		WHERE 1=1
	`
	var args []interface{}
	argIdx := 1

	if filter.EventType != "" {
		query += fmt.Sprintf(" AND event_type = $%d", argIdx)
		args = append(args, filter.EventType)
		argIdx++
	}
	if filter.ContentHash != "" {
		query += fmt.Sprintf(" AND content_hash = $%d", argIdx)
		args = append(args, filter.ContentHash)
		argIdx++
	}
	if !filter.StartTime.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, filter.StartTime)
		argIdx++
	}
	if !filter.EndTime.IsZero() {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, filter.EndTime)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("compliance: failed to query audit events: %w", err)
	}
	defer rows.Close()

	var events []AuditEvent
	for rows.Next() {
		var e AuditEvent
		var requestID, contentHash sql.NullString
		if err := rows.Scan(&e.ID, &e.EventType, &requestID, &contentHash, &e.Details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("compliance: failed to scan audit event: %w", err)
		}
		e.RequestID = requestID.String
		e.ContentHash = contentHash.String
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("compliance: audit event rows: %w", err)
	}
	return events, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
