package daraja

import (
	"fmt"
	"strings"
)

const phonePrefix = "254"

// NormalizePhoneNumber canonicalizes a Kenyan MSISDN to "2547XXXXXXXX" form.
// Accepted inputs: leading-zero local ("0712345678"), bare 9-digit
// ("712345678"), "+"-prefixed international, or already-canonical "254...".
// Anything else fails with ErrInvalidPhoneNumber.
func NormalizePhoneNumber(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "+")

	if !isDigits(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPhoneNumber, raw)
	}

	switch {
	case len(s) == 12 && strings.HasPrefix(s, phonePrefix):
		return s, nil
	case len(s) == 10 && strings.HasPrefix(s, "0"):
		return phonePrefix + s[1:], nil
	case len(s) == 9:
		return phonePrefix + s, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPhoneNumber, raw)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}
