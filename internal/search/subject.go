package search

import (
	"mime"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/emersion/go-message/charset"
)

const (
	fuzzyMinTokenLength = 4
	fuzzyThresholdPct   = 70
)

var wordDecoder = &mime.WordDecoder{CharsetReader: charset.Reader}

// DecodeSubject decodes RFC 2047 encoded words, including adjacent words in
// different charsets. Undecodable input is returned unchanged.
func DecodeSubject(raw string) string {
	decoded, err := wordDecoder.DecodeHeader(raw)
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return strings.TrimSpace(decoded)
}

// MatchSubject reports whether subject matches the keyword pattern, either by
// case-insensitive containment or by fuzzy token overlap.
func MatchSubject(subject, pattern string) bool {
	s := strings.ToLower(strings.TrimSpace(subject))
	p := strings.ToLower(strings.TrimSpace(pattern))
	if s == "" || p == "" {
		return false
	}
	if strings.Contains(s, p) {
		return true
	}
	return fuzzyMatch(s, p)
}

// fuzzyMatch accepts when at least 70% of the pattern tokens longer than three
// characters are a substring of some subject token. Inputs are lower case.
func fuzzyMatch(subject, pattern string) bool {
	var tokens []string
	for _, tok := range strings.Fields(pattern) {
		tok = strings.TrimFunc(tok, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
		if utf8.RuneCountInString(tok) >= fuzzyMinTokenLength {
			tokens = append(tokens, tok)
		}
	}
	if len(tokens) == 0 {
		return false
	}

	subjectTokens := strings.Fields(subject)
	matched := 0
	for _, tok := range tokens {
		for _, st := range subjectTokens {
			if strings.Contains(st, tok) {
				matched++
				break
			}
		}
	}
	return matched*100 >= len(tokens)*fuzzyThresholdPct
}

func matchesAny(subject string, patterns []string) bool {
	for _, p := range patterns {
		if MatchSubject(subject, p) {
			return true
		}
	}
	return false
}
