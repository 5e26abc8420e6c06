// Package records turns merged chunk strings into titled, source-tagged
// records and persists them.
package records

import (
	"fmt"
	"strings"
)

// TitlePolicy decides what happens to a chunk that has no blank-line
// separator between a title and its body.
type TitlePolicy string

const (
	TitleFirstLine TitlePolicy = "first_line" // Use the chunk's first non-empty line.
	TitleUntitled  TitlePolicy = "untitled"   // Use UntitledTitle.
	TitlePrevious  TitlePolicy = "previous"   // Reuse the previous chunk's title.
	TitleSkip      TitlePolicy = "skip"       // Drop the chunk.
	TitleFail      TitlePolicy = "fail"       // Return a MalformedChunkError.
)

// UntitledTitle is the title assigned under TitleUntitled.
const UntitledTitle = "untitled"

const maxFallbackTitle = 200

// ParseTitlePolicy parses a configured policy name.
func ParseTitlePolicy(s string) (TitlePolicy, error) {
	switch p := TitlePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return TitleFirstLine, nil
	case TitleFirstLine, TitleUntitled, TitlePrevious, TitleSkip, TitleFail:
		return p, nil
	default:
		return "", fmt.Errorf("unknown title policy %q", s)
	}
}

// Pair is a chunk body keyed by its title. Titles are not unique.
type Pair struct {
	Title string
	Body  string
}

// MalformedChunkError reports a chunk that could not be given a title.
type MalformedChunkError struct {
	Index   int
	Preview string
}

func (e *MalformedChunkError) Error() string {
	return fmt.Sprintf("chunk %d has no title separator: %q", e.Index, e.Preview)
}

// PairTitles splits each chunk on its first blank line. The first part
// becomes the title and the whole chunk is kept as the body. Chunks without
// a separator are handled according to policy.
func PairTitles(chunks []string, policy TitlePolicy) ([]Pair, error) {
	if policy == "" {
		policy = TitleFirstLine
	}

	pairs := make([]Pair, 0, len(chunks))
	previous := ""

	for i, chunk := range chunks {
		if strings.TrimSpace(chunk) == "" {
			if policy == TitleFail {
				return nil, &MalformedChunkError{Index: i}
			}
			continue
		}

		if head, _, ok := strings.Cut(chunk, "\n\n"); ok {
			pairs = append(pairs, Pair{Title: head, Body: chunk})
			previous = head
			continue
		}

		var title string
		switch policy {
		case TitleUntitled:
			title = UntitledTitle
		case TitlePrevious:
			title = previous
			if title == "" {
				title = firstLine(chunk)
			}
		case TitleSkip:
			continue
		case TitleFail:
			return nil, &MalformedChunkError{Index: i, Preview: truncate(chunk, 60)}
		default:
			title = firstLine(chunk)
		}
		pairs = append(pairs, Pair{Title: title, Body: chunk})
		previous = title
	}

	return pairs, nil
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return truncate(line, maxFallbackTitle)
		}
	}
	return ""
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
