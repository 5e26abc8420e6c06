package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/doctree"
	"golang.org/x/net/html"
)

// HTMLParser handles HTML files.
type HTMLParser struct{}

func (p *HTMLParser) Parse(ctx context.Context, r io.Reader, filename string) ([]doctree.Element, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return htmlElements(doc), nil
}

var blockTags = map[string]bool{
	"p": true, "li": true, "blockquote": true, "pre": true, "dd": true, "dt": true,
	"table": true, "ul": true, "ol": true, "dl": true, "div": true, "section": true,
	"article": true, "main": true, "aside": true, "header": true, "footer": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// htmlElements walks an HTML (or Tika XHTML) tree in document order. Tika
// wraps every PDF page in <div class="page">, which drives page numbers.
func htmlElements(doc *html.Node) []doctree.Element {
	var elements []doctree.Element
	page := 0

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			elements = appendText(elements, doctree.KindOther, n.Data, page)
			return
		case html.ElementNode:
			if headingLevel(n.Data) > 0 {
				elements = appendText(elements, doctree.KindTitle, textContent(n), page)
				return
			}
			switch n.Data {
			case "script", "style", "nav", "head", "noscript":
				return
			case "header":
				elements = appendText(elements, doctree.KindHeader, textContent(n), page)
				return
			case "footer":
				elements = appendText(elements, doctree.KindFooter, textContent(n), page)
				return
			case "table":
				if el, ok := tableElement(n, page); ok {
					elements = append(elements, el)
				}
				return
			case "p", "li", "blockquote", "pre", "dd", "dt", "caption":
				elements = appendText(elements, doctree.KindOther, textContent(n), page)
				return
			case "div":
				if hasClass(n, "page") {
					page++
				} else if !hasBlockChild(n) {
					elements = appendText(elements, doctree.KindOther, textContent(n), page)
					return
				}
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if body := findBody(doc); body != nil {
		walk(body)
	} else {
		walk(doc)
	}
	return elements
}

func tableElement(n *html.Node, page int) (doctree.Element, bool) {
	var rows []string
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			var cells []string
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
					if t := textContent(c); t != "" {
						cells = append(cells, t)
					}
				}
			}
			if len(cells) > 0 {
				rows = append(rows, strings.Join(cells, " "))
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	if len(rows) == 0 {
		return doctree.Element{}, false
	}
	return doctree.Element{
		Kind: doctree.KindTable,
		Text: strings.Join(rows, "\n"),
		HTML: renderHTML(n),
		Page: page,
	}, true
}

func renderHTML(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key == "class" {
			for _, c := range strings.Fields(a.Val) {
				if c == class {
					return true
				}
			}
		}
	}
	return false
}

func hasBlockChild(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (blockTags[c.Data] || hasBlockChild(c)) {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && n.Data == "br" {
			buf.WriteString("\n")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
