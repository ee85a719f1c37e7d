// Package validation provides input validation and normalization utilities.
package validation

import (
	"strings"

	"golang.org/x/text/cases"
)

// Fold returns the case-folded form of s for case-insensitive comparison.
// A new Caser is used per call since Casers are not safe for concurrent use.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// ContainsFold reports whether needle occurs in haystack ignoring case.
// needle is expected to be folded already.
func ContainsFold(haystack, foldedNeedle string) bool {
	if foldedNeedle == "" {
		return false
	}
	return strings.Contains(Fold(haystack), foldedNeedle)
}

// NormalizeQuery trims a free-text query and folds it. The result is empty
// for blank input.
func NormalizeQuery(q string) string {
	return Fold(strings.TrimSpace(q))
}
