package extract

import (
	"io"
	"mime/quotedprintable"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jaytaylor/html2text"
	"github.com/vdavid/vcode/internal/patterns"
	"golang.org/x/net/html"
)

var (
	styleBlock  = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style\s*>`)
	scriptBlock = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	headBlock   = regexp.MustCompile(`(?is)<head\b[^>]*>.*?</head\s*>`)
	htmlMarker  = regexp.MustCompile(`(?i)<(?:html|body|div|table|td|p|br|a|span)\b`)
	qpEscape    = regexp.MustCompile(`=(?:\r?\n|3D|[C-F][0-9A-F]=[89AB][0-9A-F])`)
	blankLines  = regexp.MustCompile(`\n[ \t]*\n(?:[ \t]*\n)+`)
)

// document is a body reduced to what the matchers look at.
// source keeps markup (entity-decoded) for href lookups; text is readable prose.
type document struct {
	source string
	text   string
	isHTML bool
}

func normalize(body string, service patterns.Service) document {
	body = decodeQuotedPrintable(body)

	if !htmlMarker.MatchString(body) {
		text := html.UnescapeString(body)
		return document{source: text, text: tidy(text)}
	}

	stripped := headBlock.ReplaceAllString(body, "")
	stripped = styleBlock.ReplaceAllString(stripped, "")
	stripped = scriptBlock.ReplaceAllString(stripped, "")

	doc := document{source: html.UnescapeString(stripped), isHTML: true}

	generic, err := html2text.FromString(stripped, html2text.Options{TextOnly: true})
	if err != nil {
		generic = tagPattern.ReplaceAllString(doc.source, " ")
	}

	if primary, ok := serviceText(stripped, service); ok {
		doc.text = tidy(primary + "\n\n" + generic)
	} else {
		doc.text = tidy(generic)
	}
	return doc
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// decodeQuotedPrintable decodes bodies that still carry QP escapes: soft line
// breaks, an escaped "=" or an escaped UTF-8 lead and continuation byte pair.
// Bodies that fail to decode, or decode to invalid UTF-8, are returned unchanged.
func decodeQuotedPrintable(body string) string {
	if !qpEscape.MatchString(body) {
		return body
	}
	decoded, err := io.ReadAll(quotedprintable.NewReader(strings.NewReader(body)))
	if err != nil || !utf8.Valid(decoded) {
		return body
	}
	return string(decoded)
}

func tidy(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\u00a0", " ")
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
