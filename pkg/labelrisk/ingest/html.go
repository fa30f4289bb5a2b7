package ingest

import (
	"strings"

	"golang.org/x/net/html"
)

// looksLikeHTML is a cheap check for pasted product-page markup.
func looksLikeHTML(s string) bool {
	lt := strings.IndexByte(s, '<')
	return lt >= 0 && strings.IndexByte(s[lt:], '>') > 0
}

// StripHTML returns the text content of an HTML fragment. List items and
// table cells become comma separated so each one tokenizes on its own.
func StripHTML(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}

	var buf strings.Builder
	var extractText func(*html.Node)
	extractText = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "head":
				return
			}
		}
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extractText(c)
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "li", "td", "th", "dt", "dd":
				buf.WriteString(", ")
			case "br", "p", "div", "section", "tr", "ul", "ol", "dl", "h1", "h2", "h3", "h4", "h5", "h6":
				buf.WriteString("\n")
			}
		}
	}
	extractText(doc)

	return strings.TrimSpace(buf.String())
}
