package notes

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/KLcoding01/K-AI-Scribe-sub000/internal/llm"
	"github.com/KLcoding01/K-AI-Scribe-sub000/internal/phi"
	"github.com/KLcoding01/K-AI-Scribe-sub000/pkg/logging"
)

type fakeGenerator struct {
	text    string
	err     error
	lastSys []string
	lastMsg []llm.ChatMessage
}

func (f *fakeGenerator) Text(_ context.Context, system []string, messages []llm.ChatMessage) (string, error) {
	f.lastSys = system
	f.lastMsg = messages
	return f.text, f.err
}

func (f *fakeGenerator) JSON(ctx context.Context, system []string, messages []llm.ChatMessage, out any) error {
	text, err := f.Text(ctx, system, messages)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(text), out)
}

type noteRecord struct {
	hash string
	ms   int64
}

type fakeNoteRecorder struct {
	records []noteRecord
}

func (f *fakeNoteRecorder) RecordNoteGenerated(_ context.Context, hash string, ms int64) error {
	f.records = append(f.records, noteRecord{hash, ms})
	return nil
}

func newTestService(gen Generator, opts ...ServiceOption) *Service {
	gate := phi.NewGatekeeper(phi.WithLogger(logging.New("error")))
	opts = append([]ServiceOption{WithServiceLogger(logging.New("error"))}, opts...)
	return NewService(gate, gen, opts...)
}

func TestGenerateNote_ScrubsBeforePrompting(t *testing.T) {
	gen := &fakeGenerator{text: "S: PT-XXXX doing well\nO:\nA:\nP:"}
	recorder := &fakeNoteRecorder{}
	svc := newTestService(gen, WithNoteRecorder(recorder))

	note, err := svc.GenerateNote(context.Background(),
		"Patient Name: John Smith\nPt tolerated exercise well.", NoteTypeSOAP)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if note.Type != NoteTypeSOAP || note.Content == "" {
		t.Fatalf("unexpected note: %+v", note)
	}

	if len(gen.lastMsg) != 1 {
		t.Fatalf("expected one user message, got %d", len(gen.lastMsg))
	}
	sent := gen.lastMsg[0].Content
	if strings.Contains(sent, "John") || !strings.Contains(sent, "PT-XXXX") {
		t.Fatalf("unsanitized dictation reached the generator: %q", sent)
	}
	if len(recorder.records) != 1 || recorder.records[0].hash != note.ContentHash {
		t.Fatalf("generation not recorded: %+v", recorder.records)
	}
}

func TestGenerateNote_BlockPropagates(t *testing.T) {
	gen := &fakeGenerator{text: "should never be called"}
	svc := newTestService(gen)

	_, err := svc.GenerateNote(context.Background(), "Patient: Smith cannot attend", NoteTypeSOAP)
	var blocked *phi.BlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("expected BlockedError, got %v", err)
	}
	if gen.lastMsg != nil {
		t.Fatalf("generator called on blocked dictation")
	}
}

func TestGenerateNote_EmptyAfterScrub(t *testing.T) {
	svc := newTestService(&fakeGenerator{text: "x"})
	for _, in := range []string{"", "   \n"} {
		if _, err := svc.GenerateNote(context.Background(), in, NoteTypeSOAP); !errors.Is(err, ErrEmptyDictation) {
			t.Fatalf("expected ErrEmptyDictation for %q, got %v", in, err)
		}
	}
}

func TestGenerateNote_GeneratorErrorsPassThrough(t *testing.T) {
	svc := newTestService(&fakeGenerator{err: llm.ErrUnconfigured})
	_, err := svc.GenerateNote(context.Background(), "Pt tolerated exercise well.", NoteTypeSOAP)
	if !errors.Is(err, llm.ErrUnconfigured) {
		t.Fatalf("expected ErrUnconfigured, got %v", err)
	}
}

func TestGenerateStructuredNote(t *testing.T) {
	gen := &fakeGenerator{text: `{"subjective":"pt doing well","objective":"gait 50 ft","assessment":"improving","plan":"continue"}`}
	svc := newTestService(gen)

	note, err := svc.GenerateStructuredNote(context.Background(), "Pt tolerated exercise well.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if note.Subjective != "pt doing well" || note.Plan != "continue" {
		t.Fatalf("unexpected structured note: %+v", note)
	}
	if len(gen.lastSys) != 1 || !strings.Contains(gen.lastSys[0], "JSON") {
		t.Fatalf("structured prompt missing JSON instruction")
	}
}

func TestParseNoteType(t *testing.T) {
	cases := map[string]NoteType{
		"":           NoteTypeSOAP,
		"soap":       NoteTypeSOAP,
		" SOAP ":     NoteTypeSOAP,
		"progress":   NoteTypeProgress,
		"eval":       NoteTypeEval,
		"evaluation": NoteTypeEval,
	}
	for in, want := range cases {
		got, err := ParseNoteType(in)
		if err != nil || got != want {
			t.Errorf("ParseNoteType(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseNoteType("haiku"); err == nil {
		t.Fatalf("expected error for unknown note type")
	}
}
