// Package phone defines the canonical form of a customer phone number. User
// deduplication is keyed on this form, so every write path normalizes first.
package phone

import (
	"errors"
	"strings"
)

// ErrInvalid is returned when a number cannot be reduced to 10 national digits
var ErrInvalid = errors.New("phone number must reduce to exactly 10 digits")

const nationalLength = 10

// Normalize strips formatting and the Indian country/trunk prefixes and
// returns the 10 digit national number.
//
//	"+91 98765-43210" -> "9876543210"
//	"0091 9876543210" -> "9876543210"
//	"09876543210"     -> "9876543210"
func Normalize(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case len(digits) == nationalLength+4 && strings.HasPrefix(digits, "0091"):
		digits = digits[4:]
	case len(digits) == nationalLength+2 && strings.HasPrefix(digits, "91"):
		digits = digits[2:]
	case len(digits) == nationalLength+1 && strings.HasPrefix(digits, "0"):
		digits = digits[1:]
	}

	if len(digits) != nationalLength {
		return "", ErrInvalid
	}
	return digits, nil
}
