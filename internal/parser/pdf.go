package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"regexp"
	"sort"
	"strings"

	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/doctree"
	pdflib "github.com/ledongthuc/pdf"
)

// PDFParser handles PDF files. Lines are read with their font sizes so
// headings can be told apart from body text. It falls back to plain page
// text, then to pdftotext if enabled.
type PDFParser struct {
	FallbackPdftotext bool
}

// pdfLine is one visual line of a page. Size is 0 when the font size is
// unknown. Break marks a paragraph boundary before the line.
type pdfLine struct {
	Text  string
	Size  float64
	Break bool
}

const (
	titleSizeRatio  = 1.15
	edgeLines       = 2
	paragraphGapMul = 1.6
)

var pageNumberRe = regexp.MustCompile(`(?i)^(page\s*)?[-\x{2013}\s]*\d{1,4}[-\x{2013}\s]*((/|of)\s*\d{1,4})?$`)

func (p *PDFParser) Parse(ctx context.Context, r io.Reader, filename string) ([]doctree.Element, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}

	pages, err := pdfRowPages(data)
	if err != nil || emptyPages(pages) {
		pages, err = pdfPlainPages(data)
	}
	if (err != nil || emptyPages(pages)) && p.FallbackPdftotext {
		pages, err = pdftotextPages(ctx, data)
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}
	return classifyPages(pages), nil
}

func pdfRowPages(data []byte) ([][]pdfLine, error) {
	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	pages := make([][]pdfLine, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, nil)
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		sort.SliceStable(rows, func(a, b int) bool { return rows[a].Position > rows[b].Position })

		var lines []pdfLine
		var prevPos int64
		for j, row := range rows {
			var buf strings.Builder
			size := 0.0
			for k, t := range row.Content {
				if k > 0 {
					prev := row.Content[k-1]
					if prev.W > 0 && t.X-(prev.X+prev.W) > prev.FontSize*0.2 {
						buf.WriteByte(' ')
					}
				}
				buf.WriteString(t.S)
				size = math.Max(size, t.FontSize)
			}
			text := strings.TrimSpace(buf.String())
			if text == "" {
				continue
			}
			gap := j > 0 && float64(prevPos-row.Position) > paragraphGapMul*math.Max(size, 10)
			lines = append(lines, pdfLine{Text: text, Size: size, Break: gap})
			prevPos = row.Position
		}
		pages = append(pages, lines)
	}
	return pages, nil
}

func pdfPlainPages(data []byte) ([][]pdfLine, error) {
	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	pages := make([][]pdfLine, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, nil)
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			pages = append(pages, nil)
			continue
		}
		pages = append(pages, plainLines(text))
	}
	return pages, nil
}

func pdftotextPages(ctx context.Context, data []byte) ([][]pdfLine, error) {
	tmp, err := os.CreateTemp("", "docingest-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	out, err := exec.CommandContext(ctx, "pdftotext", "-layout", tmpPath, "-").Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}
	var pages [][]pdfLine
	for _, page := range strings.Split(string(out), "\f") {
		pages = append(pages, plainLines(page))
	}
	return pages, nil
}

// plainLines splits page text into lines; blank lines become paragraph
// breaks on the following line.
func plainLines(text string) []pdfLine {
	var lines []pdfLine
	brk := false
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimSpace(l)
		if l == "" {
			brk = len(lines) > 0
			continue
		}
		lines = append(lines, pdfLine{Text: l, Break: brk})
		brk = false
	}
	return lines
}

func emptyPages(pages [][]pdfLine) bool {
	for _, p := range pages {
		if len(p) > 0 {
			return false
		}
	}
	return true
}

// classifyPages turns page lines into elements. Lines repeated at the top or
// bottom of most pages and bare page numbers become headers and footers;
// lines set noticeably larger than the body font become titles; the rest is
// grouped into paragraphs.
func classifyPages(pages [][]pdfLine) []doctree.Element {
	body := bodyFontSize(pages)
	repeated := repeatedEdgeLines(pages)

	var elements []doctree.Element
	for i, lines := range pages {
		pageNo := i + 1
		var para []string
		flush := func() {
			elements = appendText(elements, doctree.KindOther, strings.Join(para, "\n"), pageNo)
			para = nil
		}

		for j, line := range lines {
			top := j < edgeLines
			bottom := j >= len(lines)-edgeLines
			if top || bottom {
				key := edgeKey(line.Text)
				if repeated[key] || pageNumberRe.MatchString(line.Text) {
					flush()
					kind := doctree.KindFooter
					if top && !bottom {
						kind = doctree.KindHeader
					}
					elements = appendText(elements, kind, line.Text, pageNo)
					continue
				}
			}

			if body > 0 && line.Size >= body*titleSizeRatio && looksLikeTitle(line.Text) {
				flush()
				elements = appendText(elements, doctree.KindTitle, line.Text, pageNo)
				continue
			}

			if line.Break {
				flush()
			}
			para = append(para, line.Text)
		}
		flush()
	}
	return elements
}

// bodyFontSize returns the font size covering the most characters, rounded
// to half points. It is 0 when no sizes are known.
func bodyFontSize(pages [][]pdfLine) float64 {
	weights := map[float64]int{}
	for _, lines := range pages {
		for _, l := range lines {
			if l.Size > 0 {
				weights[math.Round(l.Size*2)/2] += len(l.Text)
			}
		}
	}
	best, bestWeight := 0.0, 0
	for size, w := range weights {
		if w > bestWeight || (w == bestWeight && size < best) {
			best, bestWeight = size, w
		}
	}
	return best
}

// repeatedEdgeLines finds lines that appear near the top or bottom of at
// least half the pages of a multi-page document.
func repeatedEdgeLines(pages [][]pdfLine) map[string]bool {
	repeated := map[string]bool{}
	if len(pages) < 2 {
		return repeated
	}
	counts := map[string]int{}
	for _, lines := range pages {
		seen := map[string]bool{}
		for j, l := range lines {
			if j < edgeLines || j >= len(lines)-edgeLines {
				key := edgeKey(l.Text)
				if key != "" && !seen[key] {
					seen[key] = true
					counts[key]++
				}
			}
		}
	}
	threshold := (len(pages) + 1) / 2
	for key, n := range counts {
		if n >= threshold && n > 1 {
			repeated[key] = true
		}
	}
	return repeated
}

// edgeKey normalises a line for repetition matching so running headers that
// embed a page number still match across pages.
func edgeKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if r >= '0' && r <= '9' {
			r = '#'
		}
		b.WriteRune(r)
	}
	return b.String()
}
