package patterns

import (
	"regexp"
)

// Service is a platform whose mails get dedicated matchers and HTML rules.
type Service string

const (
	Unknown Service = ""
	Netflix Service = "netflix"
	Disney  Service = "disney"
	Prime   Service = "prime"
	Max     Service = "max"
)

var serviceMarkers = []struct {
	service Service
	re      *regexp.Regexp
}{
	{Netflix, regexp.MustCompile(`(?i)\bnetflix\b`)},
	{Disney, regexp.MustCompile(`(?i)\bdisney\b`)},
	{Prime, regexp.MustCompile(`(?i)\b(?:prime\s+video|amazon)\b`)},
	{Max, regexp.MustCompile(`(?i)\b(?:hbo\s*max|max)\b`)},
}

// DetectService guesses the sending service from a decoded subject.
func DetectService(subject string) Service {
	for _, m := range serviceMarkers {
		if m.re.MatchString(subject) {
			return m.service
		}
	}
	return Unknown
}
