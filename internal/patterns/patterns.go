// Package patterns holds the ordered matcher lists used to recognise verification
// codes and service deep links. The lists are static and versioned; callers must
// treat them as read-only.
package patterns

import (
	"regexp"
	"strings"

	"github.com/vdavid/vcode/internal/models"
)

// Version identifies the current matcher set. Bump it whenever a list is reordered,
// since confidence tiers are derived from position.
const Version = "2025.06"

const (
	highTierSize   = 8
	mediumTierSize = 7
)

// CodePattern is one numeric code matcher. The first capture group is the code.
type CodePattern struct {
	Name string
	Re   *regexp.Regexp
}

// LinkPattern is one service-specific deep link matcher.
type LinkPattern struct {
	Service Service
	Name    string
	Re      *regexp.Regexp
}

// Code is the single shape an accepted code must have.
var Code = regexp.MustCompile(`^\d{4,8}$`)

// codePatterns runs from most to least specific.
var codePatterns = []CodePattern{
	// high
	{"labelled-code", regexp.MustCompile(`(?i)\b(?:verification|security|access|login|sign[- ]?in|one[- ]time|confirmation)\s+code\s*(?:is)?\s*[:\-]?\s*(\d{4,8})\b`)},
	{"code-is", regexp.MustCompile(`(?i)\bcode\s+is\s*:?\s*(\d{4,8})\b`)},
	{"your-code", regexp.MustCompile(`(?i)\byour\s+code\s*:?\s*(\d{4,8})\b`)},
	{"netflix", regexp.MustCompile(`(?i)\bnetflix\b[^\d]{0,40}\b(\d{4,8})\b`)},
	{"disney", regexp.MustCompile(`(?i)\bdisney\+?[^\d]{0,40}\b(\d{4,8})\b`)},
	{"prime", regexp.MustCompile(`(?i)\b(?:prime\s+video|amazon)\b[^\d]{0,40}\b(\d{4,8})\b`)},
	{"max", regexp.MustCompile(`(?i)\b(?:hbo\s*max|max)\b[^\d]{0,40}\b(\d{4,8})\b`)},
	{"otp", regexp.MustCompile(`(?i)\b(?:otp|passcode|pin)\s*(?:is)?\s*[:\-]?\s*(\d{4,8})\b`)},

	// medium
	{"enter-code", regexp.MustCompile(`(?i)\benter\s+(?:this\s+|the\s+following\s+)?code\b[^\d]{0,30}\b(\d{4,8})\b`)},
	{"use-code", regexp.MustCompile(`(?i)\buse\s+(?:this\s+|the\s+)?code\b[^\d]{0,30}\b(\d{4,8})\b`)},
	{"code-colon", regexp.MustCompile(`(?i)\bcode\s*[:\-]\s*(\d{4,8})\b`)},
	{"is-your", regexp.MustCompile(`(?i)\b(\d{4,8})\s+is\s+your\b`)},
	{"verify-near", regexp.MustCompile(`(?i)\bverif(?:y|ication)\b[^\d]{0,60}\b(\d{4,8})\b`)},
	{"codigo", regexp.MustCompile(`(?i)\bc[óo]digo\b[^\d]{0,30}\b(\d{4,8})\b`)},
	{"code-near", regexp.MustCompile(`(?i)\bcode\b[^\d]{0,40}\b(\d{4,8})\b`)},

	// low
	{"line-alone", regexp.MustCompile(`(?m)^[ \t]*(\d{4,8})[ \t]*$`)},
	{"six-digits", regexp.MustCompile(`\b(\d{6})\b`)},
	{"any-run", regexp.MustCompile(`\b(\d{4,8})\b`)},
}

// CodePatterns returns the ordered code matchers.
func CodePatterns() []CodePattern {
	return codePatterns
}

// TierForRank maps a code pattern position to its confidence tier.
func TierForRank(rank int) models.Confidence {
	switch {
	case rank < 0:
		return models.ConfidenceNone
	case rank < highTierSize:
		return models.ConfidenceHigh
	case rank < highTierSize+mediumTierSize:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

const urlTail = `[^\s"'<>()\[\]]*`

var linkPatterns = []LinkPattern{
	{Netflix, "netflix-travel-verify", regexp.MustCompile(`(?i)https?://(?:www\.)?netflix\.com/account/travel/verify` + urlTail)},
	{Netflix, "netflix-update-household", regexp.MustCompile(`(?i)https?://(?:www\.)?netflix\.com/account/update-primary-location` + urlTail)},
	{Netflix, "netflix-temporary-access", regexp.MustCompile(`(?i)https?://(?:www\.)?netflix\.com/(?:[a-z]{2}(?:-[a-z]{2})?/)?(?:account/travel|ilum|temp-access|accountaccess)` + urlTail)},
	{Disney, "disney-verify", regexp.MustCompile(`(?i)https?://(?:www\.)?disneyplus\.com/(?:[a-z-]+/)?(?:verify|one-time-passcode|otp)` + urlTail)},
	{Prime, "prime-cvf", regexp.MustCompile(`(?i)https?://(?:www\.)?(?:amazon|primevideo)\.[a-z.]+/(?:ap/cvf|ap/verify|a/c/r)` + urlTail)},
	{Max, "max-verify", regexp.MustCompile(`(?i)https?://(?:auth\.|www\.)?(?:max|hbomax)\.com/(?:[a-z-]+/)?(?:verify|activate|device)` + urlTail)},
}

// LinkPatterns returns the service link matchers, putting the ones belonging to
// the given service first. Relative order is otherwise stable.
func LinkPatterns(service Service) []LinkPattern {
	if service == Unknown {
		return linkPatterns
	}
	ordered := make([]LinkPattern, 0, len(linkPatterns))
	for _, p := range linkPatterns {
		if p.Service == service {
			ordered = append(ordered, p)
		}
	}
	for _, p := range linkPatterns {
		if p.Service != service {
			ordered = append(ordered, p)
		}
	}
	return ordered
}

// URL finds absolute http(s) URLs in free text.
var URL = regexp.MustCompile(`(?i)https?://[^\s"'<>()\[\]]+`)

// verificationVocabulary is checked near generic links.
var verificationVocabulary = []string{
	"verify", "verification", "confirm", "sign in", "sign-in", "log in", "login",
	"access", "activate", "code", "one-time", "temporary", "device", "household",
}

// nonVerificationLink marks URLs that never carry an access link.
var nonVerificationLink = regexp.MustCompile(`(?i)(unsubscribe|privacy|terms|legal|help\.|/help|support|preferences|notificationsettings|\.(?:png|jpe?g|gif|svg|webp)(?:\?|$)|/img/|/images?/|tracking|pixel)`)

// HasVerificationVocabulary reports whether text mentions any verification word.
func HasVerificationVocabulary(text string) bool {
	lower := strings.ToLower(text)
	for _, w := range verificationVocabulary {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// IsNoiseLink reports whether a URL is a footer, tracking or image link.
func IsNoiseLink(u string) bool {
	return nonVerificationLink.MatchString(u)
}
