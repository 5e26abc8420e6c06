package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/doctree"
)

// Config controls chunk-by-title behavior.
type Config struct {
	MaxCharacters         int  // Hard ceiling for a chunk, in code points.
	NewAfterChars         int  // Soft ceiling: close the chunk once it reaches this size.
	CombineTextUnderChars int  // Sections shorter than this merge into the next one.
	MultipageSections     bool // When false a page change also starts a section.
}

// DefaultConfig returns a 4096 code point hard limit with multipage sections.
func DefaultConfig() Config {
	return Config{
		MaxCharacters:     4096,
		MultipageSections: true,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxCharacters <= 0 {
		c.MaxCharacters = 4096
	}
	if c.NewAfterChars <= 0 || c.NewAfterChars > c.MaxCharacters {
		c.NewAfterChars = c.MaxCharacters
	}
	if c.CombineTextUnderChars < 0 {
		c.CombineTextUnderChars = 0
	}
	if c.CombineTextUnderChars > c.MaxCharacters {
		c.CombineTextUnderChars = c.MaxCharacters
	}
	return c
}

const elementSep = "\n\n"

// ChunkByTitle groups elements into chunks that never span a Title
// boundary. Text elements are joined with a blank line; tables are always
// isolated into their own chunk.
func ChunkByTitle(elems []doctree.Element, cfg Config) []doctree.Chunk {
	cfg = cfg.withDefaults()

	sections := splitSections(elems, cfg.MultipageSections)
	sections = combineSections(sections, cfg)

	var chunks []doctree.Chunk
	for _, sec := range sections {
		chunks = append(chunks, chunkSection(sec, cfg)...)
	}
	return chunks
}

// splitSections starts a new section at every Title and, unless sections
// may span pages, at every page change.
func splitSections(elems []doctree.Element, multipage bool) [][]doctree.Element {
	var sections [][]doctree.Element
	var cur []doctree.Element
	page := 0

	for _, el := range elems {
		pageBreak := !multipage && el.Page > 0 && page > 0 && el.Page != page
		if len(cur) > 0 && (el.Kind == doctree.KindTitle || pageBreak) {
			sections = append(sections, cur)
			cur = nil
		}
		if el.Page > 0 {
			page = el.Page
		}
		cur = append(cur, el)
	}
	if len(cur) > 0 {
		sections = append(sections, cur)
	}
	return sections
}

// combineSections folds a short section into its successor while the
// combined text still fits a single chunk. Sections holding tables are
// never combined.
func combineSections(sections [][]doctree.Element, cfg Config) [][]doctree.Element {
	if cfg.CombineTextUnderChars == 0 || len(sections) < 2 {
		return sections
	}

	var out [][]doctree.Element
	cur := sections[0]
	for _, next := range sections[1:] {
		curLen := sectionLen(cur)
		if curLen < cfg.CombineTextUnderChars &&
			!hasTable(cur) && !hasTable(next) &&
			curLen+CharCount(elementSep)+sectionLen(next) <= cfg.MaxCharacters {
			cur = append(cur, next...)
			continue
		}
		out = append(out, cur)
		cur = next
	}
	return append(out, cur)
}

func sectionLen(sec []doctree.Element) int {
	n := 0
	count := 0
	for _, el := range sec {
		if el.Text == "" {
			continue
		}
		n += CharCount(el.Text)
		count++
	}
	if count > 1 {
		n += (count - 1) * CharCount(elementSep)
	}
	return n
}

func hasTable(sec []doctree.Element) bool {
	for _, el := range sec {
		if el.Kind.IsTable() {
			return true
		}
	}
	return false
}

func chunkSection(sec []doctree.Element, cfg Config) []doctree.Chunk {
	var chunks []doctree.Chunk
	var buf []string
	bufLen := 0

	flush := func() {
		if len(buf) > 0 {
			chunks = append(chunks, doctree.Chunk{
				Kind: doctree.KindComposite,
				Text: strings.Join(buf, elementSep),
			})
		}
		buf = nil
		bufLen = 0
	}

	for _, el := range sec {
		if el.Kind.IsTable() {
			flush()
			chunks = append(chunks, tableChunks(el, cfg.MaxCharacters)...)
			continue
		}
		if el.Text == "" {
			continue
		}

		n := CharCount(el.Text)
		if n > cfg.MaxCharacters {
			flush()
			for _, part := range splitText(el.Text, cfg.MaxCharacters) {
				chunks = append(chunks, doctree.Chunk{Kind: doctree.KindComposite, Text: part})
			}
			continue
		}

		added := n
		if len(buf) > 0 {
			added += CharCount(elementSep)
			if bufLen+added > cfg.MaxCharacters || bufLen >= cfg.NewAfterChars {
				flush()
				added = n
			}
		}
		buf = append(buf, el.Text)
		bufLen += added
	}
	flush()

	return chunks
}

// tableChunks keeps a table whole when it fits. An oversized table is cut
// into TableChunks carrying text only, since partial HTML is not valid markup.
func tableChunks(el doctree.Element, limit int) []doctree.Chunk {
	if el.Text == "" && el.HTML == "" {
		return nil
	}
	if CharCount(el.Text) <= limit {
		return []doctree.Chunk{{Kind: doctree.KindTable, Text: el.Text, HTML: el.HTML}}
	}
	var out []doctree.Chunk
	for _, part := range splitText(el.Text, limit) {
		out = append(out, doctree.Chunk{Kind: doctree.KindTableChunk, Text: part})
	}
	return out
}

// splitText breaks text into pieces of at most limit code points, preferring
// sentence boundaries, then word boundaries.
func splitText(text string, limit int) []string {
	var result []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if t := strings.TrimSpace(current.String()); t != "" {
			result = append(result, t)
		}
		current.Reset()
		currentLen = 0
	}

	for _, sent := range splitSentences(text) {
		n := CharCount(sent)
		if n > limit {
			flush()
			result = append(result, splitWords(sent, limit)...)
			continue
		}
		if currentLen+n > limit {
			flush()
		}
		current.WriteString(sent)
		currentLen += n
	}
	flush()

	return result
}

// splitSentences cuts text after sentence-ending punctuation. Segments keep
// their trailing whitespace so concatenating them restores the input.
func splitSentences(text string) []string {
	var sentences []string
	start := 0

	for i, r := range text {
		end := -1
		switch r {
		case '.', '!', '?':
			if next := i + 1; next < len(text) && text[next] == ' ' {
				end = next + 1
			}
		case '。', '！', '？', '；':
			end = i + utf8.RuneLen(r)
		}
		if end > start {
			sentences = append(sentences, text[start:end])
			start = end
		}
	}
	if start < len(text) {
		sentences = append(sentences, text[start:])
	}

	return sentences
}

// splitWords packs whitespace-separated words into pieces of at most limit
// code points, hard-cutting any single word that is longer than that.
func splitWords(text string, limit int) []string {
	var result []string
	var current strings.Builder
	currentLen := 0

	for _, word := range strings.Fields(text) {
		for CharCount(word) > limit {
			if currentLen > 0 {
				result = append(result, current.String())
				current.Reset()
				currentLen = 0
			}
			runes := []rune(word)
			result = append(result, string(runes[:limit]))
			word = string(runes[limit:])
		}
		n := CharCount(word)
		if n == 0 {
			continue
		}
		if currentLen > 0 && currentLen+1+n > limit {
			result = append(result, current.String())
			current.Reset()
			currentLen = 0
		}
		if currentLen > 0 {
			current.WriteByte(' ')
			currentLen++
		}
		current.WriteString(word)
		currentLen += n
	}
	if currentLen > 0 {
		result = append(result, current.String())
	}

	return result
}
