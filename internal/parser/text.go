package parser

import (
	"bufio"
	"context"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/doctree"
)

const maxTitleRunes = 80

// TextParser handles plain text files. Paragraphs are separated by blank
// lines; a short single-line paragraph without terminal punctuation is taken
// as a title.
type TextParser struct{}

func (p *TextParser) Parse(ctx context.Context, r io.Reader, filename string) ([]doctree.Element, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paragraphs []string
	var current strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		} else {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(line)
		}
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var elements []doctree.Element
	for _, para := range paragraphs {
		kind := doctree.KindOther
		if looksLikeTitle(para) {
			kind = doctree.KindTitle
		}
		elements = appendText(elements, kind, para, 0)
	}
	return elements, nil
}

// looksLikeTitle reports whether a paragraph reads as a heading: one short
// line that does not end like a sentence and contains at least one letter.
func looksLikeTitle(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.Contains(s, "\n") || utf8.RuneCountInString(s) > maxTitleRunes {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(s)
	if strings.ContainsRune(".,;!?。，；！？", last) {
		return false
	}
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}
