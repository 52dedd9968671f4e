package search

import (
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrUnparseableDate is returned when no parser in the cascade accepts a Date header.
var ErrUnparseableDate = errors.New("unparseable date")

var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 MST",
	"Mon, 2 Jan 2006 15:04 -0700",
	"Monday, 2 January 2006 15:04:05 -0700",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02T15:04:05Z07:00",
}

var (
	headerComment  = regexp.MustCompile(`\([^)]*\)`)
	extraSpaces    = regexp.MustCompile(`\s+`)
	positionalDate = regexp.MustCompile(`(\d{1,2})\s+([A-Za-z]{3})[a-z]*\.?\s+(\d{4})\s+(\d{1,2}):(\d{2})(?::(\d{2}))?\s*([+-]\d{4})?`)
)

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

// ParseTimestamp parses a Date header value. It tries the RFC 5322 parser first,
// then a list of layouts seen in the wild, then a positional scan for
// "D Mon YYYY HH:MM:SS ±zzzz" anywhere in the value.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrUnparseableDate
	}

	if t, err := mail.ParseDate(raw); err == nil {
		return t, nil
	}

	cleaned := strings.TrimSpace(extraSpaces.ReplaceAllString(headerComment.ReplaceAllString(raw, ""), " "))
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t, nil
		}
	}

	if t, ok := parsePositional(cleaned); ok {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseableDate, raw)
}

func parsePositional(s string) (time.Time, bool) {
	m := positionalDate.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}

	month, ok := months[strings.ToLower(m[2])]
	if !ok {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(m[1])
	year, _ := strconv.Atoi(m[3])
	hour, _ := strconv.Atoi(m[4])
	minute, _ := strconv.Atoi(m[5])
	second := 0
	if m[6] != "" {
		second, _ = strconv.Atoi(m[6])
	}
	if day < 1 || day > 31 || hour > 23 || minute > 59 || second > 60 {
		return time.Time{}, false
	}

	loc := time.UTC
	if m[7] != "" {
		sign := 1
		if m[7][0] == '-' {
			sign = -1
		}
		hh, _ := strconv.Atoi(m[7][1:3])
		mm, _ := strconv.Atoi(m[7][3:5])
		loc = time.FixedZone("", sign*(hh*3600+mm*60))
	}
	return time.Date(year, month, day, hour, minute, second, 0, loc), true
}
