package services

import "strings"

// Phone matching is a heuristic, not proof of identity: it authenticates
// "same phone number claimed at registration", nothing more. Country-code
// prefixes differ between what users type on the website and what Telegram
// attests, so the comparison tolerates a prefix on either side.

func normalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PhonesMatch reports whether the registered number and the number the
// platform declared for the chat user refer to the same line. Both are
// stripped to digits; they match when either is a suffix of the other.
func PhonesMatch(registered, declared string) bool {
	reg := normalizePhone(registered)
	dec := normalizePhone(declared)
	if reg == "" || dec == "" {
		return false
	}
	return strings.HasSuffix(reg, dec) || strings.HasSuffix(dec, reg)
}

// MaskedTail renders a number for mismatch diagnostics, exposing only the
// last four digits.
func MaskedTail(raw string) string {
	digits := normalizePhone(raw)
	if len(digits) <= 4 {
		return "XXXXXX" + digits
	}
	return "XXXXXX" + digits[len(digits)-4:]
}
