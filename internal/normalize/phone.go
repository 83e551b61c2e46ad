// Package normalize holds the pure phone and clock normalization helpers the
// rest of the pipeline depends on. Everything here fails open: input that
// cannot be normalized is returned unchanged so callers can decide what to do.
package normalize

import "strings"

const usCountryCode = "1"

// Phone canonicalizes a raw phone string to E.164-like form. Ten digits get
// the US country code prefixed; eleven digits starting with 1 get a plus.
// Anything else is returned as-is.
func Phone(raw string) string {
	digits := Digits(raw)

	if len(digits) == 10 {
		return "+" + usCountryCode + digits
	}
	if len(digits) == 11 && strings.HasPrefix(digits, usCountryCode) {
		return "+" + digits
	}
	return raw
}

// Digits strips every non-digit character from s.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
