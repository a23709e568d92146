package sms

import (
	"fmt"
	"strings"
)

// NormalizationError reports a phone number that cannot be brought into
// the gateway wire format. The rejected input is kept for diagnostics.
type NormalizationError struct {
	Raw string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("invalid phone format %q: must be 7XXXXXXXX, 07XXXXXXXX, or 2547XXXXXXXX", e.Raw)
}

// Normalize converts local Kenyan phone spellings to the 2547XXXXXXXX
// wire format the gateway expects. It is the single source of truth for
// phone validity, used both at record-write time and at send time.
//
// Accepted shapes after stripping non-digit characters:
//
//	2547XXXXXXXX  (already canonical)
//	07XXXXXXXX    -> 2547XXXXXXXX
//	7XXXXXXXX     -> 2547XXXXXXXX
//	+2547XXXXXXXX -> 2547XXXXXXXX (the "+" is stripped with the rest)
func Normalize(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case len(digits) == 12 && strings.HasPrefix(digits, "2547"):
		return digits, nil
	case len(digits) == 10 && strings.HasPrefix(digits, "07"):
		return "254" + digits[1:], nil
	case len(digits) == 9 && strings.HasPrefix(digits, "7"):
		return "254" + digits, nil
	default:
		return "", &NormalizationError{Raw: raw}
	}
}

// IsCanonical reports whether phone is already in gateway wire format.
func IsCanonical(phone string) bool {
	return len(phone) == 12 && strings.HasPrefix(phone, "2547")
}
