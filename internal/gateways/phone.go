package gateway

import "strings"

// NormalizePhone converts the phone formats that show up in client records
// ("(555) 123-4567", "555-123-4567", "15551234567") to E.164. Ten digits get
// a +1 country code, eleven digits with a leading 1 get a plus sign. Anything
// else is assumed to already be in an international format and is returned
// unchanged so non-US numbers are not mangled.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case len(digits) == 10:
		return "+1" + digits
	case len(digits) == 11 && digits[0] == '1':
		return "+" + digits
	default:
		return raw
	}
}
