package phi

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// scrubStage is one named step of the redaction pipeline. Stages run in
// order and each receives the output of the previous one.
type scrubStage struct {
	name  string
	apply func(string) string
}

var scrubPipeline = []scrubStage{
	{"normalize_line_endings", normalizeLineEndings},
	{"freeform_contact", scrubFreeformContact},
	{"labeled_identity", scrubLabeledIdentity},
	{"freeform_address", scrubFreeformAddress},
	{"labeled_address", scrubLabeledAddress},
	{"labeled_dates", scrubLabeledDates},
	{"dob_value_dates", scrubDOBValueDates},
	{"freeform_name_comma", scrubNameComma},
}

// Scrub replaces every identifier the pattern library recognizes with
// its category token. Scrubbing an already-scrubbed text is a no-op:
// no replacement token matches any pattern in the library.
func Scrub(text string) string {
	for _, stage := range scrubPipeline {
		text = stage.apply(text)
	}
	return text
}

func normalizeLineEndings(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

func scrubFreeformContact(text string) string {
	text = emailRE.ReplaceAllString(text, TokenEmail)
	text = phoneRE.ReplaceAllString(text, TokenPhone)
	return ssnRE.ReplaceAllString(text, TokenID)
}

// scrubLabeledIdentity rewrites the value of every labeled identity
// line. The label and separator are kept exactly as dictated; only the
// value changes.
func scrubLabeledIdentity(text string) string {
	text = dobLabeledRE.ReplaceAllString(text, "${1} "+TokenDate)
	text = idLabeledRE.ReplaceAllString(text, "${1} "+TokenID)
	text = nameLabeledRE.ReplaceAllString(text, "${1} "+TokenName)
	return providerLabeledRE.ReplaceAllString(text, "${1} "+TokenProvider)
}

func scrubFreeformAddress(text string) string {
	text = streetAddressRE.ReplaceAllString(text, TokenAddress)
	return cityStateZipRE.ReplaceAllString(text, TokenAddress)
}

func scrubLabeledAddress(text string) string {
	return addressLabeledRE.ReplaceAllString(text, "${1} "+TokenAddress)
}

func scrubLabeledDates(text string) string {
	return dateLabeledRE.ReplaceAllString(text, "${1} "+TokenDate)
}

// scrubDOBValueDates catches a date shape sitting after a DOB label when
// the dictated separator is not one the labeled matcher accepts, e.g.
// "DOB 04/12/1951".
func scrubDOBValueDates(text string) string {
	return dobValueDateRE.ReplaceAllString(text, "${1}"+TokenDate)
}

func scrubNameComma(text string) string {
	return nameCommaRE.ReplaceAllString(text, TokenName)
}

// ContentHash returns a short one-way reference for a piece of text. It
// is the only thing ever logged, cached, or alerted on in place of the
// text itself.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:12]
}
