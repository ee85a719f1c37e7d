package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var usernameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9._]{1,28}[a-z0-9]$`)

// CanonicalUsername strips a leading "@" and surrounding space and folds case.
func CanonicalUsername(raw string) string {
	return Fold(strings.TrimPrefix(strings.TrimSpace(raw), "@"))
}

// ValidateUsername checks the canonical form of a username: 3-30 characters
// of lowercase letters, digits, dots and underscores, starting and ending
// with a letter or digit.
func ValidateUsername(username string) error {
	canonical := CanonicalUsername(username)
	if !usernameRegex.MatchString(canonical) {
		return fmt.Errorf("username %q must be 3-30 characters of letters, digits, '.' or '_', starting and ending with a letter or digit", username)
	}
	return nil
}
