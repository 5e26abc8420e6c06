package parser

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark. GFM tables become
// table elements carrying their rendered HTML.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(ctx context.Context, r io.Reader, filename string) ([]doctree.Element, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	doc := md.Parser().Parse(text.NewReader(src))

	var elements []doctree.Element
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch node := n.(type) {
		case *ast.Heading:
			elements = appendText(elements, doctree.KindTitle, extractText(node, src), 0)
		case *east.Table:
			var buf bytes.Buffer
			if err := md.Renderer().Render(&buf, src, node); err != nil {
				return nil, err
			}
			if t := tableText(node, src); t != "" {
				elements = append(elements, doctree.Element{
					Kind: doctree.KindTable,
					Text: t,
					HTML: strings.TrimSpace(buf.String()),
				})
			}
		case *ast.List:
			for item := node.FirstChild(); item != nil; item = item.NextSibling() {
				elements = appendText(elements, doctree.KindOther, extractText(item, src), 0)
			}
		case *ast.ThematicBreak, *ast.HTMLBlock:
		default:
			elements = appendText(elements, doctree.KindOther, extractText(n, src), 0)
		}
	}
	return elements, nil
}

func tableText(t *east.Table, src []byte) string {
	var rows []string
	for row := t.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			if c := extractText(cell, src); c != "" {
				cells = append(cells, c)
			}
		}
		if len(cells) > 0 {
			rows = append(rows, strings.Join(cells, " "))
		}
	}
	return strings.Join(rows, "\n")
}

// extractText gets the text content of a goldmark AST node. Leaf blocks such
// as code blocks carry their content as lines rather than inline children.
func extractText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		switch t := n.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
			return
		case *ast.String:
			buf.Write(t.Value)
			return
		}
		if n.FirstChild() == nil && n.Type() == ast.TypeBlock {
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				line := lines.At(i)
				buf.Write(line.Value(src))
			}
			return
		}
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			walk(c)
			if c.Type() == ast.TypeBlock && c.NextSibling() != nil {
				buf.WriteByte('\n')
			}
		}
	}
	walk(n)
	return strings.TrimSpace(buf.String())
}
