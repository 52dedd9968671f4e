package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	maxFragment = 200
	scanRadius  = 200
	ellipsis    = "..."
)

// Fragment returns a human-readable excerpt around text[start:end].
// It prefers the whole sentence holding the match and falls back to a window
// trimmed at word boundaries. The result never exceeds maxFragment runes.
func Fragment(text string, start, end int) string {
	if start < 0 || end > len(text) || start >= end {
		return ""
	}
	if s, ok := sentenceAround(text, start, end); ok {
		return s
	}
	return windowAround(text, start, end)
}

func sentenceAround(text string, start, end int) (string, bool) {
	lo := max(0, start-scanRadius)
	hi := min(len(text), end+scanRadius)

	from := -1
	for i := start - 1; i >= lo; i-- {
		if sentenceEnd(text, i) {
			from = i + 1
			break
		}
	}
	if from < 0 {
		if lo > 0 {
			return "", false
		}
		from = 0
	}

	to := -1
	for i := end; i < hi; i++ {
		if sentenceEnd(text, i) {
			to = i + 1
			break
		}
	}
	if to < 0 {
		if hi < len(text) {
			return "", false
		}
		to = len(text)
	}

	sentence := collapseSpaces(strings.TrimSpace(text[from:to]))
	if sentence == "" || utf8.RuneCountInString(sentence) > maxFragment {
		return "", false
	}
	return sentence, true
}

func sentenceEnd(text string, i int) bool {
	switch text[i] {
	case '\n':
		return true
	case '.', '!', '?':
		return i+1 == len(text) || text[i+1] == ' ' || text[i+1] == '\n' || text[i+1] == '\t'
	}
	return false
}

func windowAround(text string, start, end int) string {
	before := []rune(text[:start])
	match := []rune(collapseSpaces(text[start:end]))
	after := []rune(text[end:])

	room := maxFragment - len(match) - 2*len(ellipsis)
	if room <= 0 {
		// A single token longer than the budget has no boundary to cut at.
		if len(match) > maxFragment-len(ellipsis) {
			match = match[:maxFragment-len(ellipsis)]
		}
		return string(match) + ellipsis
	}

	leftRoom := min(len(before), room/2)
	rightRoom := min(len(after), room-leftRoom)
	leftRoom = min(len(before), room-rightRoom)

	left := before[len(before)-leftRoom:]
	cutLeft := leftRoom < len(before)
	if cutLeft && !unicode.IsSpace(before[len(before)-leftRoom-1]) {
		left = dropToFirstSpace(left)
	}

	right := after[:rightRoom]
	cutRight := rightRoom < len(after)
	if cutRight && !unicode.IsSpace(after[rightRoom]) {
		right = dropFromLastSpace(right)
	}

	var b strings.Builder
	if cutLeft {
		b.WriteString(ellipsis)
	}
	b.WriteString(strings.TrimLeftFunc(collapseSpaces(string(left)), unicode.IsSpace))
	b.WriteString(string(match))
	b.WriteString(strings.TrimRightFunc(collapseSpaces(string(right)), unicode.IsSpace))
	// A cut on either side closes the window with a marker.
	if cutLeft || cutRight {
		b.WriteString(ellipsis)
	}
	return b.String()
}

func dropToFirstSpace(rs []rune) []rune {
	for i, r := range rs {
		if unicode.IsSpace(r) {
			return rs[i:]
		}
	}
	return nil
}

func dropFromLastSpace(rs []rune) []rune {
	for i := len(rs) - 1; i >= 0; i-- {
		if unicode.IsSpace(rs[i]) {
			return rs[:i]
		}
	}
	return nil
}

func collapseSpaces(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !space {
				b.WriteByte(' ')
			}
			space = true
			continue
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// truncateWords cuts s to at most limit runes at a word boundary.
func truncateWords(s string, limit int) string {
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	cut := rs[:limit-len(ellipsis)]
	if !unicode.IsSpace(rs[len(cut)]) {
		if trimmed := dropFromLastSpace(cut); len(trimmed) > 0 {
			cut = trimmed
		}
	}
	return strings.TrimRightFunc(string(cut), unicode.IsSpace) + ellipsis
}
