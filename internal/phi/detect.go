package phi

import "unicode/utf8"

// maxFindingSample bounds the matched-text sample carried on a Finding.
// Findings are an internal diagnostic surface only; samples never reach
// logs, errors, audit rows, or alerts.
const maxFindingSample = 80

// Finding reports one category the detector tripped on, with a bounded
// sample of the first match.
type Finding struct {
	Category Category
	Sample   string
}

// Detect runs every tripwire against text and reports at most one
// Finding per category, in the fixed check order. It is strictly at
// least as suspicious as the scrubber: anything the scrubber would have
// replaced still trips it, plus a handful of broader shapes. A clean
// result from Detect after Scrub is the only green light the gatekeeper
// accepts.
func Detect(text string) []Finding {
	var findings []Finding
	for _, check := range detectorChecks {
		match := check.re.FindString(text)
		if match == "" {
			continue
		}
		findings = append(findings, Finding{
			Category: check.category,
			Sample:   truncateSample(match),
		})
	}
	return findings
}

// FindingCategories flattens findings to their category names.
func FindingCategories(findings []Finding) []string {
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		out = append(out, string(f.Category))
	}
	return out
}

// truncateSample cuts on a rune boundary so a multi-byte character
// straddling the limit never leaves an invalid UTF-8 tail in the sample.
func truncateSample(s string) string {
	if len(s) <= maxFindingSample {
		return s
	}
	cut := maxFindingSample
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
