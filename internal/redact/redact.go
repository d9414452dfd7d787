// Package redact masks personally identifiable information in text before it
// leaves the engine for third-party services such as web search providers.
package redact

import (
	"regexp"
)

// PIIType labels the kind of PII a pattern matches
type PIIType string

const (
	PIITypeEmail      PIIType = "email"
	PIITypePhone      PIIType = "phone"
	PIITypeSSN        PIIType = "ssn"
	PIITypeCreditCard PIIType = "credit_card"
	PIITypeIPAddress  PIIType = "ip_address"
)

type rule struct {
	piiType PIIType
	pattern *regexp.Regexp
}

// Order matters: longer, more specific patterns run first so a credit card
// number is not half-consumed by the phone pattern.
var rules = []rule{
	{PIITypeEmail, regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)},
	{PIITypeCreditCard, regexp.MustCompile(`\b(?:\d[ \-]?){13,16}\b`)},
	{PIITypeSSN, regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{PIITypeIPAddress, regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)},
	{PIITypePhone, regexp.MustCompile(`\b(\+?1[-.]?)?\(?\d{3}\)?[-.]?\d{3}[-.]?\d{4}\b`)},
}

// placeholders per PII type
var placeholders = map[PIIType]string{
	PIITypeEmail:      "[EMAIL]",
	PIITypePhone:      "[PHONE]",
	PIITypeSSN:        "[SSN]",
	PIITypeCreditCard: "[CARD]",
	PIITypeIPAddress:  "[IP]",
}

// Mask replaces every detected PII span in text with a type placeholder and
// reports which types were found.
func Mask(text string) (string, []PIIType) {
	var found []PIIType
	seen := make(map[PIIType]bool)

	for _, r := range rules {
		if !r.pattern.MatchString(text) {
			continue
		}
		text = r.pattern.ReplaceAllString(text, placeholders[r.piiType])
		if !seen[r.piiType] {
			seen[r.piiType] = true
			found = append(found, r.piiType)
		}
	}
	return text, found
}

// Contains reports whether text holds any detectable PII
func Contains(text string) bool {
	for _, r := range rules {
		if r.pattern.MatchString(text) {
			return true
		}
	}
	return false
}
