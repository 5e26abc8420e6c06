package records

import (
	"fmt"
	"strings"

	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/doctree"
)

// Shape selects the property layout a downstream store expects.
type Shape string

const (
	ShapeQA      Shape = "qa"      // question (title), answer (body), source
	ShapeContent Shape = "content" // content (body), source
)

// ParseShape parses a configured record shape.
func ParseShape(s string) (Shape, error) {
	switch sh := Shape(strings.ToLower(strings.TrimSpace(s))); sh {
	case "":
		return ShapeQA, nil
	case ShapeQA, ShapeContent:
		return sh, nil
	default:
		return "", fmt.Errorf("unknown record shape %q", s)
	}
}

// Tag attaches a provenance source and the in-document position to every
// pair.
func Tag(pairs []Pair, source string) []doctree.Record {
	recs := make([]doctree.Record, 0, len(pairs))
	for i, p := range pairs {
		recs = append(recs, doctree.Record{
			Title:  p.Title,
			Body:   p.Body,
			Source: source,
			Index:  i,
		})
	}
	return recs
}

// Properties renders a record in the given shape.
func Properties(r doctree.Record, shape Shape) map[string]any {
	if shape == ShapeContent {
		return map[string]any{
			"content": r.Body,
			"source":  r.Source,
		}
	}
	return map[string]any{
		"question": r.Title,
		"answer":   r.Body,
		"source":   r.Source,
	}
}

// PropertyNames lists the properties Properties emits for shape.
func PropertyNames(shape Shape) []string {
	if shape == ShapeContent {
		return []string{"content", "source"}
	}
	return []string{"question", "answer", "source"}
}
