package util

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// similarChars folds Latin letters onto the Cyrillic letters they are
// visually indistinguishable from, so "Coль" and "Соль" normalize alike.
var similarChars = map[rune]rune{
	'a': 'а',
	'b': 'в',
	'c': 'с',
	'e': 'е',
	'ё': 'е',
	'h': 'н',
	'k': 'к',
	'm': 'м',
	'o': 'о',
	'p': 'р',
	'r': 'г',
	't': 'т',
	'x': 'х',
	'y': 'у',
}

// NormalizeName reduces a display name to its comparison key: lower-cased,
// NFKC-normalized, stripped of everything but Latin/Cyrillic letters and
// digits, with look-alike letters folded together.
func NormalizeName(name string) string {
	folded := norm.NFKC.String(strings.ToLower(name))

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if !isNameRune(r) {
			continue
		}
		if mapped, ok := similarChars[r]; ok {
			r = mapped
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isNameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'а' && r <= 'я', r == 'ё':
		return true
	default:
		return unicode.IsDigit(r)
	}
}

// IsDigits reports whether s is a non-empty run of ASCII digits.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
