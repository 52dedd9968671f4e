package extract

import (
	"strings"

	"github.com/vdavid/vcode/internal/patterns"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// serviceHints are class or id fragments that mark the block holding the code
// in each service's templates.
var serviceHints = map[patterns.Service][]string{
	patterns.Netflix: {"lrg-number", "otp", "code", "copy"},
	patterns.Disney:  {"otp", "passcode", "code"},
	patterns.Prime:   {"otp", "cvf", "verification", "code"},
	patterns.Max:     {"verification", "code", "otp"},
}

// serviceText returns the text of the hinted blocks, one per line.
func serviceText(doc string, service patterns.Service) (string, bool) {
	hints, ok := serviceHints[service]
	if !ok {
		return "", false
	}

	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return "", false
	}

	var blocks []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Head:
				return
			}
			if hinted(n, hints) {
				if text := strings.TrimSpace(collapseSpaces(innerText(n))); text != "" {
					blocks = append(blocks, text)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	if len(blocks) == 0 {
		return "", false
	}
	return strings.Join(blocks, "\n"), true
}

func hinted(n *html.Node, hints []string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" && a.Key != "id" {
			continue
		}
		v := strings.ToLower(a.Val)
		for _, h := range hints {
			if strings.Contains(v, h) {
				return true
			}
		}
	}
	return false
}

func innerText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			b.WriteByte(' ')
		case html.ElementNode:
			if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
