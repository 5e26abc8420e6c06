// Package cleaner strips extraction artifacts from partitioned text.
package cleaner

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/doctree"
)

// artifacts are converted to a plain space before anything else runs.
var artifacts = strings.NewReplacer(
	"\ufffd", " ",
	"\u00a0", " ",
	"\u3000", " ",
	"\ufeff", " ",
)

var (
	paragraphSplit = regexp.MustCompile(`\n[ \t\f\v\r]*\n`)
	bulletLine     = regexp.MustCompile(`^\s*([\x{2022}\x{25CF}\x{25AA}\x{25E6}\x{2023}\x{2219}\x{00B7}*-]|\d+[.)])\s+`)
)

// ReplaceArtifacts converts encoding artifacts such as U+FFFD to a single
// space and leaves all other characters alone. It is safe on table HTML.
func ReplaceArtifacts(s string) string {
	return artifacts.Replace(s)
}

// GroupBrokenParagraphs rejoins paragraphs that were hard-wrapped by the
// extractor. Paragraphs are separated by blank lines; lines inside a
// paragraph are joined with a space unless they are bullet items.
func GroupBrokenParagraphs(s string) string {
	paras := paragraphSplit.Split(s, -1)
	out := make([]string, 0, len(paras))
	for _, para := range paras {
		if strings.TrimSpace(para) == "" {
			continue
		}
		lines := strings.Split(para, "\n")
		if bulletLine.MatchString(lines[0]) {
			for _, line := range lines {
				if line = strings.TrimSpace(line); line != "" {
					out = append(out, line)
				}
			}
			continue
		}
		var joined []string
		for _, line := range lines {
			if line = strings.TrimSpace(line); line != "" {
				joined = append(joined, line)
			}
		}
		out = append(out, strings.Join(joined, " "))
	}
	return strings.Join(out, "\n\n")
}

// collapseWhitespace folds every whitespace run, newlines included, into
// one ASCII space and trims the ends.
func collapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// Normalize cleans the text of one element. It is idempotent.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = ReplaceArtifacts(s)
	s = GroupBrokenParagraphs(s)
	return collapseWhitespace(s)
}

// NormalizeElements returns a copy of elems with every Text normalized.
// Table HTML is not touched.
func NormalizeElements(elems []doctree.Element) []doctree.Element {
	out := make([]doctree.Element, len(elems))
	for i, el := range elems {
		el.Text = Normalize(el.Text)
		out[i] = el
	}
	return out
}
