// Package normalize holds small pure helpers for cleaning scraped values
// before they enter the catalog.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	fourDigitRun  = regexp.MustCompile(`\b\d{4}\b`)
)

// CleanText trims the input and collapses internal whitespace runs to a
// single space. Empty or all-whitespace input returns "".
func CleanText(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return whitespaceRun.ReplaceAllString(trimmed, " ")
}

// ExtractYear returns the first run of exactly four digits in the input as
// an integer, or 0 if none is found. No calendar-range validation is done:
// any four-digit number is accepted.
func ExtractYear(raw string) int {
	match := fourDigitRun.FindString(raw)
	if match == "" {
		return 0
	}
	year, err := strconv.Atoi(match)
	if err != nil {
		return 0
	}
	return year
}
