package notes

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/KLcoding01/K-AI-Scribe-sub000/internal/llm"
	"github.com/KLcoding01/K-AI-Scribe-sub000/internal/phi"
	"github.com/KLcoding01/K-AI-Scribe-sub000/pkg/logging"
)

// ErrEmptyDictation means the request had nothing generatable in it,
// either because it was empty or because scrubbing removed everything.
var ErrEmptyDictation = errors.New("notes: dictation is empty after redaction")

// Authorizer is the guardrail contract: scrubbed text or an error,
// never the raw input.
type Authorizer interface {
	Authorize(ctx context.Context, raw string) (string, error)
}

// Generator runs model completions. Satisfied by *llm.Caller.
type Generator interface {
	Text(ctx context.Context, system []string, messages []llm.ChatMessage) (string, error)
	JSON(ctx context.Context, system []string, messages []llm.ChatMessage, out any) error
}

// NoteRecorder persists a generation event for compliance review.
type NoteRecorder interface {
	RecordNoteGenerated(ctx context.Context, contentHash string, durationMS int64) error
}

// Note is a generated document. Content is derived exclusively from
// scrubbed dictation.
type Note struct {
	Type        NoteType  `json:"type"`
	Content     string    `json:"content"`
	ContentHash string    `json:"content_hash"`
	GeneratedAt time.Time `json:"generated_at"`
}

// StructuredNote is the JSON-shaped SOAP output.
type StructuredNote struct {
	Subjective string `json:"subjective"`
	Objective  string `json:"objective"`
	Assessment string `json:"assessment"`
	Plan       string `json:"plan"`
}

// Service generates notes from dictation. The gatekeeper decision is
// not optional and not cached: every call re-authorizes its input.
type Service struct {
	gate     Authorizer
	gen      Generator
	recorder NoteRecorder
	logger   *logging.Logger
}

type ServiceOption func(*Service)

func WithNoteRecorder(r NoteRecorder) ServiceOption {
	return func(s *Service) { s.recorder = r }
}

func WithServiceLogger(l *logging.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

func NewService(gate Authorizer, gen Generator, opts ...ServiceOption) *Service {
	if gate == nil {
		panic("notes: authorizer cannot be nil")
	}
	if gen == nil {
		panic("notes: generator cannot be nil")
	}
	s := &Service{gate: gate, gen: gen, logger: logging.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateNote authorizes the dictation and produces a note of the
// requested type. A gatekeeper block propagates unchanged so callers
// can distinguish it from provider failures.
func (s *Service) GenerateNote(ctx context.Context, dictation string, noteType NoteType) (*Note, error) {
	safe, err := s.authorize(ctx, dictation)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	text, err := s.gen.Text(ctx,
		[]string{systemPrompt(noteType, false)},
		[]llm.ChatMessage{{Role: llm.ChatRoleUser, Content: safe}},
	)
	if err != nil {
		return nil, err
	}

	note := &Note{
		Type:        noteType,
		Content:     text,
		ContentHash: phi.ContentHash(safe),
		GeneratedAt: time.Now().UTC(),
	}
	s.finish(ctx, note.ContentHash, len(safe), len(text), time.Since(start))
	return note, nil
}

// GenerateStructuredNote is GenerateNote with a JSON-shaped SOAP result.
func (s *Service) GenerateStructuredNote(ctx context.Context, dictation string) (*StructuredNote, error) {
	safe, err := s.authorize(ctx, dictation)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var out StructuredNote
	err = s.gen.JSON(ctx,
		[]string{systemPrompt(NoteTypeSOAP, true)},
		[]llm.ChatMessage{{Role: llm.ChatRoleUser, Content: safe}},
		&out,
	)
	if err != nil {
		return nil, err
	}

	s.finish(ctx, phi.ContentHash(safe), len(safe), 0, time.Since(start))
	return &out, nil
}

func (s *Service) authorize(ctx context.Context, dictation string) (string, error) {
	safe, err := s.gate.Authorize(ctx, dictation)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(safe) == "" {
		return "", ErrEmptyDictation
	}
	return safe, nil
}

// finish logs and records the generation. Only hashes and lengths leave
// this package; never the dictation or the note body.
func (s *Service) finish(ctx context.Context, contentHash string, inLen, outLen int, elapsed time.Duration) {
	s.logger.Info("note generated",
		"content_hash", contentHash,
		"input_bytes", inLen,
		"output_bytes", outLen,
		"duration_ms", elapsed.Milliseconds(),
	)
	if s.recorder != nil {
		if err := s.recorder.RecordNoteGenerated(ctx, contentHash, elapsed.Milliseconds()); err != nil {
			s.logger.Error("note audit write failed", "error", err, "content_hash", contentHash)
		}
	}
}
