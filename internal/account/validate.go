package account

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MinUsernameChars = 3
	MaxUsernameChars = 20
)

// blockedTerms are substrings that may not appear anywhere in a username.
// The list is deliberately small; the identity provider applies its own
// screening on top of this.
var blockedTerms = []string{
	"admin",
	"moderator",
	"staff",
	"support",
	"system",
}

// ValidateUsername checks a proposed username against length, charset, and
// blocked-term rules. Errors are user-correctable validation failures.
func ValidateUsername(username string) error {
	trimmed := strings.TrimSpace(username)
	if trimmed != username || trimmed == "" {
		return fmt.Errorf("account: username is empty or has surrounding whitespace")
	}
	if !utf8.ValidString(username) {
		return fmt.Errorf("account: username contains invalid UTF-8")
	}

	n := utf8.RuneCountInString(username)
	if n < MinUsernameChars {
		return fmt.Errorf("account: username shorter than %d characters", MinUsernameChars)
	}
	if n > MaxUsernameChars {
		return fmt.Errorf("account: username exceeds %d characters", MaxUsernameChars)
	}

	for _, r := range username {
		if !isUsernameRune(r) {
			return fmt.Errorf("account: username contains disallowed character %q", r)
		}
	}

	lower := strings.ToLower(username)
	for _, term := range blockedTerms {
		if strings.Contains(lower, term) {
			return fmt.Errorf("account: username contains blocked term %q", term)
		}
	}
	return nil
}

// isUsernameRune reports whether r is allowed in a username: ASCII letters,
// digits, underscore.
func isUsernameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '_':
		return true
	}
	return false
}
