package models

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxKeywordLength is the upstream limit on a single search term.
const MaxKeywordLength = 100

// geoPattern matches upstream location codes: country ("US"), region
// ("US-CA"), or metro ("US-CA-807"). Empty means worldwide.
var geoPattern = regexp.MustCompile(`^[A-Z]{2}(-[A-Z]{2})?(-\d{3})?$`)

// AnalysisRequest carries the validated inputs of one analysis call.
type AnalysisRequest struct {
	Keywords  []string
	Timeframe Timeframe
	Geo       string
}

// ValidateKeywords normalises and checks a keyword set: whitespace trimmed,
// order preserved, identity case-sensitive. Rejects empty sets, blank or
// overlong terms, and duplicates.
func ValidateKeywords(keywords []string) ([]string, error) {
	if len(keywords) == 0 {
		return nil, NewValidationError("keywords", "at least one keyword is required")
	}

	cleaned := make([]string, 0, len(keywords))
	seen := make(map[string]struct{}, len(keywords))
	for i, kw := range keywords {
		trimmed := strings.TrimSpace(kw)
		if trimmed == "" {
			return nil, NewValidationError("keywords", fmt.Sprintf("keyword %d is empty", i+1))
		}
		if len(trimmed) > MaxKeywordLength {
			return nil, NewValidationError("keywords", fmt.Sprintf("keyword %q exceeds %d characters", trimmed, MaxKeywordLength))
		}
		if _, dup := seen[trimmed]; dup {
			return nil, NewValidationError("keywords", fmt.Sprintf("duplicate keyword %q", trimmed))
		}
		seen[trimmed] = struct{}{}
		cleaned = append(cleaned, trimmed)
	}
	return cleaned, nil
}

// ValidateGeo normalises a location code. Empty input selects worldwide.
func ValidateGeo(geo string) (string, error) {
	normalised := strings.ToUpper(strings.TrimSpace(geo))
	if normalised == "" {
		return "", nil
	}
	if !geoPattern.MatchString(normalised) {
		return "", NewValidationError("geo", fmt.Sprintf("malformed location code %q", normalised))
	}
	return normalised, nil
}
