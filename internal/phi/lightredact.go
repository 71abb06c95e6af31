package phi

import (
	"regexp"
	"strings"
)

// identifyingLineRE matches whole lines that carry an identifying label
// of any kind, including the trailing newline so the line disappears
// entirely.
var identifyingLineRE = regexp.MustCompile(
	`(?im)^[ \t]*(?:` + strings.Join(allIdentifyingLabels(), "|") + `)[ \t]*[:#-][^\n]*\n?`,
)

func allIdentifyingLabels() []string {
	var labels []string
	labels = append(labels, nameLabels...)
	labels = append(labels, idLabels...)
	labels = append(labels, dobLabels...)
	labels = append(labels, addressLabels...)
	labels = append(labels, providerLabels...)
	return labels
}

// LightRedact is the relaxed sibling of Scrub for the template
// conversion path: it drops whole labeled identity lines and replaces
// freeform contact details, but runs no detector afterwards. It offers
// strictly lower assurance than the gatekeeper and must never guard a
// path that promises fail-closed behavior.
func LightRedact(text string) string {
	text = normalizeLineEndings(text)
	text = identifyingLineRE.ReplaceAllString(text, "")
	text = emailRE.ReplaceAllString(text, TokenEmail)
	text = phoneRE.ReplaceAllString(text, TokenPhone)
	return ssnRE.ReplaceAllString(text, TokenID)
}
