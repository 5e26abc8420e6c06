package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/doctree"
	"github.com/fumiama/go-docx"
)

// DOCXParser handles .docx files. Heading and Title paragraph styles become
// title elements and tables keep their structure as HTML.
type DOCXParser struct{}

func (p *DOCXParser) Parse(ctx context.Context, r io.Reader, filename string) ([]doctree.Element, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read docx: %w", err)
	}
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	var elements []doctree.Element
	for _, item := range doc.Document.Body.Items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch it := item.(type) {
		case *docx.Paragraph:
			kind := doctree.KindOther
			if docxHeadingLevel(it) > 0 {
				kind = doctree.KindTitle
			}
			elements = appendText(elements, kind, docxParagraphText(it), 0)
		case *docx.Table:
			rows := docxTableRows(it)
			if t := tableRowsText(rows); t != "" {
				elements = append(elements, doctree.Element{
					Kind: doctree.KindTable,
					Text: t,
					HTML: tableHTML(rows, false),
				})
			}
		}
	}
	return elements, nil
}

func docxTableRows(t *docx.Table) [][]string {
	rows := make([][]string, 0, len(t.TableRows))
	for _, row := range t.TableRows {
		cells := make([]string, 0, len(row.TableCells))
		for _, cell := range row.TableCells {
			var parts []string
			for _, para := range cell.Paragraphs {
				if s := docxParagraphText(para); s != "" {
					parts = append(parts, s)
				}
			}
			cells = append(cells, strings.Join(parts, "\n"))
		}
		rows = append(rows, cells)
	}
	return rows
}

// docxHeadingLevel returns 1-6 for heading styles, 1 for the Title style and
// 0 for anything else.
func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if style == "title" {
		return 1
	}
	if rest, ok := strings.CutPrefix(style, "heading"); ok && len(rest) == 1 && rest[0] >= '1' && rest[0] <= '6' {
		return int(rest[0] - '0')
	}
	return 0
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
