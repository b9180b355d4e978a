package models

import (
	"regexp"
	"strings"
	"time"
)

// Friend is an entry of the shared friends network. Friends are the pool
// participants are selected from when splitting an expense.
type Friend struct {
	// ID is a short stable key derived from the email.
	ID string `json:"id"`

	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`

	// Initials are derived from the name for avatar display.
	Initials string `json:"initials"`

	CreatedAt time.Time `json:"created_at"`
}

var parenthesized = regexp.MustCompile(`\([^)]*\)`)

// Initials derives avatar initials from a display name: the first letters of the
// first and last words, ignoring parenthesized nicknames ("Andy (Xinji) Shi" is "AS").
// A single word yields its first two letters.
func Initials(name string) string {
	words := strings.Fields(parenthesized.ReplaceAllString(name, ""))
	switch {
	case len(words) >= 2:
		return strings.ToUpper(firstRunes(words[0], 1) + firstRunes(words[len(words)-1], 1))
	case len(words) == 1:
		return strings.ToUpper(firstRunes(words[0], 2))
	default:
		return strings.ToUpper(firstRunes(strings.TrimSpace(name), 2))
	}
}

func firstRunes(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}
