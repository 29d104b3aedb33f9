// Package textnorm folds user text into a comparable form.
package textnorm

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases s, trims it and strips diacritics, so "Tucumán " becomes "tucuman".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// LeadingInt parses the digits at the start of s, ignoring leading spaces.
// "2 por favor" yields 2; "hola" yields ok=false.
func LeadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// HasWord reports whether phrase appears in text on word boundaries.
// Both arguments are expected to be folded.
func HasWord(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	words := strings.FieldsFunc(text, notWordRune)
	target := strings.FieldsFunc(phrase, notWordRune)
	if len(target) == 0 {
		return false
	}
	for i := 0; i+len(target) <= len(words); i++ {
		match := true
		for j, w := range target {
			if words[i+j] != w {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func notWordRune(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
