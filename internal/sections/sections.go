// Package sections drops boilerplate back matter (references,
// acknowledgements and the like) from partitioned documents.
package sections

import (
	"strings"

	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/doctree"
)

// Keywords are matched against normalized Title text. Everything from the
// first matching Title to the end of the document is treated as back matter.
var Keywords = []string{
	"ACKNOWLEDGEMENTS",
	"ACKNOWLEDGMENTS",
	"ACKNOWLEDGEMENT",
	"ACKNOWLEDGMENT",
	"BIBLIOGRAPHY",
	"DATAAVAILABILITY",
	"DECLARATIONOFCOMPETINGINTEREST",
	"REFERENCES",
	"SUPPLEMENTARYINFORMATION",
	"SUPPLEMENTARYMATERIALS",
	"SUPPORTINGINFORMATION",
	"参考文献",
	"致谢",
	"謝",
	"謝辞",
}

var titleStripper = strings.NewReplacer(
	" ", "",
	"\n", "",
	"\t", "",
	":", "",
	"\uff1a", "",
)

// NormalizeTitle strips spaces, newlines, tabs and colons (ASCII and
// full-width) and uppercases the result.
func NormalizeTitle(s string) string {
	s = strings.TrimSpace(s)
	s = titleStripper.Replace(s)
	return strings.ToUpper(s)
}

// IsBoilerplate reports whether a title names a back-matter section.
func IsBoilerplate(title string) bool {
	t := NormalizeTitle(title)
	if t == "" {
		return false
	}
	for _, kw := range Keywords {
		if t == kw || strings.Contains(t, kw) {
			return true
		}
	}
	return false
}

// Filter drops Header and Footer elements and truncates the document at the
// first boilerplate Title. The matching Title is dropped too.
func Filter(elems []doctree.Element) []doctree.Element {
	out := make([]doctree.Element, 0, len(elems))
	for _, el := range elems {
		switch el.Kind {
		case doctree.KindTitle:
			if IsBoilerplate(el.Text) {
				return out
			}
		case doctree.KindHeader, doctree.KindFooter:
			continue
		}
		out = append(out, el)
	}
	return out
}
