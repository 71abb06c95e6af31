// Package phi implements the redaction guardrail that sits between raw
// clinical dictation and any outbound LLM call. It scrubs direct
// identifiers from free text, re-verifies the result with a stricter
// tripwire detector, and refuses to proceed when anything identifier-like
// survives.
package phi

import (
	"regexp"
	"strings"
)

// Category identifies a class of identifier the detector can report.
type Category string

const (
	CategoryEmail         Category = "email"
	CategoryPhone         Category = "phone"
	CategorySSN           Category = "ssn"
	CategoryStreetAddress Category = "street_address"
	CategoryCityStateZip  Category = "city_state_zip"
	CategoryDOBLabel      Category = "dob_label"
	CategoryIDLabel       Category = "id_label"
	CategoryNameLabel     Category = "name_label"
	CategoryNameComma     Category = "name_comma"
)

// Replacement tokens. None of these contain digits or a comma followed by
// a capitalized word, so no token re-matches any pattern in the library;
// that is what makes Scrub idempotent.
const (
	TokenEmail    = "[EMAIL]"
	TokenPhone    = "[PHONE]"
	TokenID       = "[ID-XXXX]"
	TokenAddress  = "[ADDRESS]"
	TokenName     = "PT-XXXX"
	TokenProvider = "DR-XXXX"
	TokenDate     = "MM/YYYY"
)

// Label vocabularies. A labeled pattern matches only a single logical
// line: a label from the set, a separator (":", "#", or "-"), then a
// value running to end of line. The label text is always preserved;
// only the value is replaced.
var (
	nameLabels = []string{
		"patient name", "pt name", "full name", "member name", "client name",
		"name", "member", "client",
	}
	// Bare "patient"/"pt" are deliberately detector-only: the scrubber
	// leaves those lines alone to avoid chewing up narrative headers,
	// and the detector treats any residual capitalized value after them
	// as suspicious.
	detectorNameLabels = append([]string{}, append(nameLabels, "patient", "pt")...)

	idLabels = []string{
		"medical record number", "social security number", "social security",
		"member id", "policy number", "account number", "chart number",
		"mrn", "ssn", "policy", "account", "chart",
	}
	dobLabels = []string{
		"date of birth", "birth date", "birthdate", "dob",
	}
	addressLabels = []string{
		"street address", "mailing address", "home address", "address",
	}
	dateLabels = []string{
		"date of service", "start of care", "admission date", "discharge date",
		"evaluation date", "eval date", "visit date", "soc", "dos", "date",
	}
	providerLabels = []string{
		"referring physician", "provider", "physician", "pcp", "doctor",
	}
)

// labeledLineRE builds the one-line "label + separator + value" matcher.
// Group 1 captures the label and separator exactly as written so the
// replacement can keep them verbatim.
func labeledLineRE(labels []string) *regexp.Regexp {
	return regexp.MustCompile(`(?im)^([ \t]*(?:` + strings.Join(labels, "|") + `)[ \t]*[:#-])[ \t]*[^\n]*$`)
}

// Freeform patterns match anywhere, no label required.
var (
	emailRE = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phoneRE = regexp.MustCompile(`\+?1?[-.\s]?\(?[0-9]{3}\)?[-.\s]?[0-9]{3}[-.\s]?[0-9]{4}`)
	ssnRE   = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)

	streetAddressRE = regexp.MustCompile(`\b\d{1,6}[ \t]+[A-Za-z0-9 .'\-]{2,40}[ \t]+(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Lane|Ln|Drive|Dr|Court|Ct|Circle|Cir|Place|Pl|Terrace|Ter|Trail|Trl|Parkway|Pkwy|Highway|Hwy|Way)\b`)
	cityStateZipRE  = regexp.MustCompile(`\b[A-Z][A-Za-z.\-]*(?:[ \t]+[A-Z][A-Za-z.\-]*)*,[ \t]*[A-Z]{2}[ \t]+\d{5}(?:-\d{4})?\b`)

	// "Lastname, Firstname". A bare "First Last" pair is intentionally
	// NOT matched outside a label: the collateral damage against
	// clinical phrasing and equipment names is unacceptable.
	nameCommaRE = regexp.MustCompile(`\b[A-Z][a-z]+,[ \t]+[A-Z][a-z]+\b`)
)

// Labeled matchers used by the scrubber.
var (
	nameLabeledRE     = labeledLineRE(nameLabels)
	idLabeledRE       = labeledLineRE(idLabels)
	dobLabeledRE      = labeledLineRE(dobLabels)
	addressLabeledRE  = labeledLineRE(addressLabels)
	dateLabeledRE     = labeledLineRE(dateLabels)
	providerLabeledRE = labeledLineRE(providerLabels)

	// Belt-and-suspenders: a date shape sitting right after a DOB label
	// even when the separator the labeled matcher expects is missing.
	dobValueDateRE = regexp.MustCompile(`(?i)(\b(?:date of birth|birth ?date|dob)\b[^\n0-9]{0,12})(\d{1,2}[/.\-]\d{1,2}[/.\-]\d{2,4}|\d{1,2}[/.\-]\d{4})`)
)

// Detector tripwires. Per category: the same shape as the scrubber or a
// slightly broader one. Value shapes requiring a digit cannot re-fire on
// replacement tokens, which are digit-free; the name-label value class
// stays case-sensitive inside the (?i) label match for the same reason —
// all-caps tokens like PT-XXXX must not count as a residual name.
var (
	detectDOBLabelRE  = regexp.MustCompile(`(?i)\b(?:date of birth|birth ?date|dob)\b[^\n]{0,20}[0-9]`)
	detectIDLabelRE   = regexp.MustCompile(`(?im)^[ \t]*(?:` + strings.Join(idLabels, "|") + `)[ \t]*[:#-][^\n]{0,40}[0-9]`)
	detectNameLabelRE = regexp.MustCompile(`(?im)^[ \t]*(?:` + strings.Join(detectorNameLabels, "|") + `)[ \t]*[:#-][ \t]*(?:(?-i:[A-Z][a-z]+)[^\n]*)?$`)
)

// detectorCheck pairs a category with its tripwire. Order is fixed and
// part of the contract: findings are reported in this order.
type detectorCheck struct {
	category Category
	re       *regexp.Regexp
}

var detectorChecks = []detectorCheck{
	{CategoryEmail, emailRE},
	{CategoryPhone, phoneRE},
	{CategorySSN, ssnRE},
	{CategoryStreetAddress, streetAddressRE},
	{CategoryCityStateZip, cityStateZipRE},
	{CategoryDOBLabel, detectDOBLabelRE},
	{CategoryIDLabel, detectIDLabelRE},
	{CategoryNameLabel, detectNameLabelRE},
	{CategoryNameComma, nameCommaRE},
}

// Categories returns every category the detector can report, in check
// order.
func Categories() []Category {
	out := make([]Category, 0, len(detectorChecks))
	for _, c := range detectorChecks {
		out = append(out, c.category)
	}
	return out
}
