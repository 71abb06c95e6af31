// Package notes turns authorized dictation into clinical documentation.
// Every generation path runs the dictation through the phi gatekeeper
// before any prompt is assembled.
package notes

import (
	"fmt"
	"strings"
)

// NoteType selects the documentation format to generate.
type NoteType string

const (
	NoteTypeSOAP     NoteType = "soap"
	NoteTypeProgress NoteType = "progress"
	NoteTypeEval     NoteType = "eval"
)

// ParseNoteType normalizes a client-supplied note type.
func ParseNoteType(s string) (NoteType, error) {
	switch NoteType(strings.ToLower(strings.TrimSpace(s))) {
	case NoteTypeSOAP, "":
		return NoteTypeSOAP, nil
	case NoteTypeProgress:
		return NoteTypeProgress, nil
	case NoteTypeEval, "evaluation":
		return NoteTypeEval, nil
	default:
		return "", fmt.Errorf("notes: unknown note type %q", s)
	}
}

const basePrompt = `You are a clinical documentation assistant for outpatient therapy.
You receive de-identified dictation: names, dates, addresses, and contact details
have already been replaced with placeholder tokens such as PT-XXXX or MM/YYYY.
Keep every placeholder token exactly as written. Never invent an identifier.
Write in concise, professional clinical language. Do not add findings that are
not supported by the dictation.`

var notePrompts = map[NoteType]string{
	NoteTypeSOAP: basePrompt + `

Produce a SOAP note with these sections, each on its own line:
S (subjective), O (objective), A (assessment), P (plan).`,

	NoteTypeProgress: basePrompt + `

Produce a progress note: current status, objective measurements compared to
prior visit, response to treatment, and plan for the next visit.`,

	NoteTypeEval: basePrompt + `

Produce an initial evaluation: history, objective findings and standardized
test scores, clinical impression, and a treatment plan with goals.`,
}

const structuredSuffix = `

Return the note as a single JSON object with lowercase string fields
"subjective", "objective", "assessment", and "plan". Return only JSON.`

func systemPrompt(nt NoteType, structured bool) string {
	prompt, ok := notePrompts[nt]
	if !ok {
		prompt = notePrompts[NoteTypeSOAP]
	}
	if structured {
		prompt += structuredSuffix
	}
	return prompt
}

func conversionPrompt(targetFormat string) string {
	return basePrompt + fmt.Sprintf(`

Rewrite the provided note into the %q format. Preserve all clinical content
and all placeholder tokens. Reorganize and relabel sections only.`, targetFormat)
}
