package llm

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestMalformedSampleTruncatesOnRuneBoundary(t *testing.T) {
	// Two-byte runes positioned so the byte limit would land mid-rune.
	text := "x" + strings.Repeat("é", maxMalformedSample)
	sample := malformedSample(text)
	if len(sample) > maxMalformedSample {
		t.Fatalf("sample exceeds bound: %d bytes", len(sample))
	}
	if !utf8.ValidString(sample) {
		t.Fatalf("sample is not valid UTF-8: %q", sample)
	}
}

func TestMalformedSampleKeepsShortText(t *testing.T) {
	if got := malformedSample("not json"); got != "not json" {
		t.Fatalf("short text altered: %q", got)
	}
}
