package account

import (
	"strings"
	"testing"
)

func TestValidateUsername(t *testing.T) {
	cases := []struct {
		name     string
		username string
		ok       bool
	}{
		{"valid simple", "alice", true},
		{"valid with digits", "alice_42", true},
		{"valid mixed case", "AliceB", true},
		{"empty", "", false},
		{"whitespace only", "   ", false},
		{"surrounding whitespace", " alice ", false},
		{"too short", "ab", false},
		{"too long", strings.Repeat("a", MaxUsernameChars+1), false},
		{"max length ok", strings.Repeat("a", MaxUsernameChars), true},
		{"space inside", "ali ce", false},
		{"punctuation", "alice!", false},
		{"blocked term", "admin_bob", false},
		{"blocked term uppercase", "StaffMember", false},
		{"blocked term embedded", "xXsupportXx", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateUsername(tc.username)
			if tc.ok && err != nil {
				t.Errorf("ValidateUsername(%q) = %v, want nil", tc.username, err)
			}
			if !tc.ok && err == nil {
				t.Errorf("ValidateUsername(%q) = nil, want error", tc.username)
			}
		})
	}
}
