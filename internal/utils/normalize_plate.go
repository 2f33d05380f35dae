package utils

import (
	"strings"
	"unicode"
)

// NormalizePlate trims, upper-cases and collapses internal whitespace runs to a single space.
func NormalizePlate(raw string) string {
	return strings.Join(strings.Fields(strings.ToUpper(raw)), " ")
}

// CompactPlate removes every whitespace rune so "أ ب ج1234" and "أ ب ج 1234" compare equal.
func CompactPlate(raw string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
}
