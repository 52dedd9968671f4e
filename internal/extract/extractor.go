// Package extract pulls verification codes and access links out of mail bodies.
package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/jhillyerd/enmime"
	"github.com/vdavid/vcode/internal/models"
	"github.com/vdavid/vcode/internal/patterns"
	"go.uber.org/zap"
)

// Pattern indexes reported for generic links.
const (
	GenericLinkNearVocabulary = 0
	GenericLinkInHref         = 1
)

const (
	vocabularyRadius = 150
	previewLimit     = 500
)

// Extractor runs the link, code, generic link cascade over a body.
// It holds no per-call state and is safe for concurrent use.
type Extractor struct {
	log *zap.Logger
}

// New returns an Extractor logging under the given logger.
func New(log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{log: log.Named("extract")}
}

// ExtractMessage parses a raw RFC 5322 message and extracts from its body.
// It also returns a bounded plain-text preview of the body.
func (e *Extractor) ExtractMessage(raw []byte, subject string) (models.ExtractedArtifact, string, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return models.NoArtifact(), "", fmt.Errorf("failed to parse message: %w", err)
	}
	if subject == "" {
		subject = env.GetHeader("Subject")
	}

	body := env.HTML
	if strings.TrimSpace(body) == "" {
		body = env.Text
	}
	if strings.TrimSpace(body) == "" {
		return models.NoArtifact(), "", nil
	}

	doc := normalize(body, patterns.DetectService(subject))
	return e.extract(doc, subject), Preview(doc.text), nil
}

// Extract runs the cascade over an already decoded body.
func (e *Extractor) Extract(body, subject string) models.ExtractedArtifact {
	return e.extract(normalize(body, patterns.DetectService(subject)), subject)
}

func (e *Extractor) extract(doc document, subject string) models.ExtractedArtifact {
	service := patterns.DetectService(subject)

	if a, ok := findServiceLink(doc, service); ok {
		e.log.Debug("service link matched", zap.String("service", string(service)), zap.Int("pattern", a.PatternIndex))
		return a
	}
	if a, ok := findCode(doc.text); ok {
		e.log.Debug("code matched", zap.Int("pattern", a.PatternIndex), zap.String("confidence", string(a.Confidence)))
		return a
	}
	if a, ok := findGenericLink(doc); ok {
		e.log.Debug("generic link matched", zap.Int("pattern", a.PatternIndex))
		return a
	}
	return models.NoArtifact()
}

func findServiceLink(doc document, service patterns.Service) (models.ExtractedArtifact, bool) {
	for i, p := range patterns.LinkPatterns(service) {
		for _, raw := range p.Re.FindAllString(doc.source, -1) {
			link, ok := cleanURL(raw)
			if !ok {
				continue
			}
			return models.ExtractedArtifact{
				Kind:         models.ArtifactLink,
				Value:        link,
				Confidence:   models.ConfidenceHigh,
				PatternIndex: i,
				Context:      linkContext(doc.text, link),
			}, true
		}
	}
	return models.ExtractedArtifact{}, false
}

func findCode(text string) (models.ExtractedArtifact, bool) {
	urlSpans := patterns.URL.FindAllStringIndex(text, -1)

	for rank, p := range patterns.CodePatterns() {
		tier := patterns.TierForRank(rank)
		for _, m := range p.Re.FindAllStringSubmatchIndex(text, -1) {
			start, end := m[2], m[3]
			code := text[start:end]
			if !patterns.Code.MatchString(code) {
				continue
			}
			if insideAny(urlSpans, start, end) {
				continue
			}
			if tier == models.ConfidenceLow && looksLikeYear(code) {
				continue
			}
			return models.ExtractedArtifact{
				Kind:         models.ArtifactCode,
				Value:        code,
				Confidence:   tier,
				PatternIndex: rank,
				Context:      Fragment(text, start, end),
			}, true
		}
	}
	return models.ExtractedArtifact{}, false
}

func findGenericLink(doc document) (models.ExtractedArtifact, bool) {
	matches := patterns.URL.FindAllStringIndex(doc.source, -1)

	// Links near verification wording beat bare anchors.
	for _, inHref := range []bool{false, true} {
		for _, m := range matches {
			raw := doc.source[m[0]:m[1]]
			if patterns.IsNoiseLink(raw) {
				continue
			}
			link, ok := cleanURL(raw)
			if !ok {
				continue
			}

			index := GenericLinkNearVocabulary
			if inHref {
				if !precededByHref(doc.source, m[0]) {
					continue
				}
				index = GenericLinkInHref
			} else if !patterns.HasVerificationVocabulary(doc.source[max(0, m[0]-vocabularyRadius):m[0]]) {
				continue
			}

			return models.ExtractedArtifact{
				Kind:         models.ArtifactLink,
				Value:        link,
				Confidence:   models.ConfidenceMedium,
				PatternIndex: index,
				Context:      linkContext(doc.text, link),
			}, true
		}
	}
	return models.ExtractedArtifact{}, false
}

// cleanURL drops trailing punctuation and checks the result is an absolute http(s) URL.
func cleanURL(raw string) (string, bool) {
	link := strings.TrimRight(raw, ".,;:!?")
	u, err := url.Parse(link)
	if err != nil {
		return "", false
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", false
	}
	return link, true
}

func precededByHref(source string, at int) bool {
	prefix := strings.ToLower(source[max(0, at-8):at])
	return strings.Contains(prefix, "href=")
}

func linkContext(text, link string) string {
	if i := strings.Index(text, link); i >= 0 {
		return Fragment(text, i, i+len(link))
	}
	lower := strings.ToLower(text)
	for _, w := range []string{"verify", "confirm", "access", "sign in", "code"} {
		if i := strings.Index(lower, w); i >= 0 {
			return Fragment(text, i, i+len(w))
		}
	}
	return truncateWords(collapseSpaces(text), maxFragment)
}

func insideAny(spans [][]int, start, end int) bool {
	for _, s := range spans {
		if start >= s[0] && end <= s[1] {
			return true
		}
	}
	return false
}

func looksLikeYear(code string) bool {
	return len(code) == 4 && (strings.HasPrefix(code, "19") || strings.HasPrefix(code, "20"))
}

// Preview returns the normalized body bounded for display.
func Preview(text string) string {
	return truncateWords(collapseSpaces(text), previewLimit)
}
