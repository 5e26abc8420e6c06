package chunker

import "github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/doctree"

// MinTrailingChars is the size below which a final chunk is folded into its
// predecessor. Chunkers tend to emit a lone page number or stray word as
// the last chunk of a document.
const MinTrailingChars = 10

// Merge flattens chunks into plain strings. Table content (HTML when
// available, else text) is appended on a new line to the preceding text
// chunk, and an undersized trailing entry is folded into the one before it.
func Merge(chunks []doctree.Chunk) []string {
	var out []string

	for _, c := range chunks {
		switch c.Kind {
		case doctree.KindComposite:
			out = append(out, c.Text)
		case doctree.KindTable, doctree.KindTableChunk:
			content := c.Text
			if c.HTML != "" {
				content = c.HTML
			}
			if len(out) > 0 {
				out[len(out)-1] += "\n" + content
			} else {
				out = append(out, content)
			}
		}
	}

	if n := len(out); n >= 2 && CharCount(out[n-1]) < MinTrailingChars {
		out[n-2] += " " + out[n-1]
		out = out[:n-1]
	}

	return out
}
