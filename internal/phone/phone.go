package phone

import (
	"regexp"
	"strings"
)

// DefaultCountryCode is prefixed to bare 10-digit numbers, which are assumed
// to be domestic mobiles.
const DefaultCountryCode = "+91"

var canonical = regexp.MustCompile(`^\+\d{8,15}$`)

// Normalize canonicalizes free-form phone input into +<digits>.
// It returns false when the input cannot be turned into a valid number.
func Normalize(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	hasPlus := strings.ContainsRune(raw, '+')

	var b strings.Builder
	b.Grow(len(raw) + 1)
	if hasPlus {
		b.WriteByte('+')
	}
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	p := b.String()

	// International prefix written as 00...
	if strings.HasPrefix(p, "00") {
		p = "+" + p[2:]
	}

	if len(p) == 10 && !strings.HasPrefix(p, "+") {
		p = DefaultCountryCode + p
	}

	if !canonical.MatchString(p) {
		return "", false
	}
	return p, true
}

// Mask hides all but the country prefix and the last four digits, for logs.
func Mask(p string) string {
	if len(p) <= 7 {
		return strings.Repeat("*", len(p))
	}
	return p[:3] + strings.Repeat("*", len(p)-7) + p[len(p)-4:]
}
