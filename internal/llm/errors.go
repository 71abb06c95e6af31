package llm

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

// ErrUnconfigured means no provider client is wired for the requested
// call. It is a distinct, recoverable condition: the service is up, the
// model just is not configured.
var ErrUnconfigured = errors.New("llm: no provider configured")

// TimeoutError reports that a completion exceeded its deadline. The
// underlying context error is preserved for errors.Is checks.
type TimeoutError struct {
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("llm: completion timed out after %s: %v", e.Timeout, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// maxMalformedSample bounds how much model output a MalformedResponseError
// may carry. Model output is derived from scrubbed input only, but the
// sample is still kept small so error surfaces stay readable and cheap
// to log.
const maxMalformedSample = 200

// MalformedResponseError reports model output that could not be parsed
// into the shape the caller asked for.
type MalformedResponseError struct {
	Sample string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("llm: malformed model response: %v (sample: %q)", e.Err, e.Sample)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// malformedSample cuts on a rune boundary so a multi-byte character
// straddling the limit never leaves an invalid UTF-8 tail in the error.
func malformedSample(text string) string {
	if len(text) <= maxMalformedSample {
		return text
	}
	cut := maxMalformedSample
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
