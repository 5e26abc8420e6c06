// Package parser partitions source documents into layout elements.
package parser

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/doctree"
)

// Parser converts raw document bytes into an ordered list of elements.
type Parser interface {
	Parse(ctx context.Context, r io.Reader, filename string) ([]doctree.Element, error)
}

// Options configures partitioning. Strategy, Languages and ExtractImages are
// only honoured by the Tika backend.
type Options struct {
	Strategy             string   // e.g. "hi_res", "fast", "ocr_only"
	Languages            []string // OCR languages, e.g. "chi_sim"
	ExtractImages        bool
	SkipTableTypes       []string // Extensions whose tables keep text only.
	TikaURL              string
	PDFFallbackPdftotext bool
}

// SupportedExtensions lists file extensions handled without a Tika server.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// tikaExtensions are routed to Tika when a server is configured.
var tikaExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".ppt":  true,
	".pptx": true,
	".xls":  true,
	".xlsx": true,
	".rtf":  true,
	".odt":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".tif":  true,
	".tiff": true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if opts.TikaURL != "" && tikaExtensions[ext] {
		return NewTikaParser(opts), nil
	}
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file can be partitioned with opts.
func IsSupportedExtension(filename string, opts Options) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	if opts.TikaURL != "" && tikaExtensions[ext] {
		return true
	}
	return SupportedExtensions[ext]
}

// ExtractionError wraps any failure to partition a document.
type ExtractionError struct {
	File string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("partition %s: %v", e.File, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Partitioner dispatches documents to the parser for their extension.
type Partitioner struct {
	Options Options
}

// Partition reads r and returns its elements. Every failure, including an
// unsupported extension, is returned as an *ExtractionError.
func (p *Partitioner) Partition(ctx context.Context, r io.Reader, filename string) ([]doctree.Element, error) {
	parser, err := ForFile(filename, p.Options)
	if err != nil {
		return nil, &ExtractionError{File: filename, Err: err}
	}
	elements, err := parser.Parse(ctx, r, filename)
	if err != nil {
		return nil, &ExtractionError{File: filename, Err: err}
	}
	if p.skipTables(filename) {
		elements = dropTableHTML(elements)
	}
	return elements, nil
}

func (p *Partitioner) skipTables(filename string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	return slices.ContainsFunc(p.Options.SkipTableTypes, func(t string) bool {
		return strings.EqualFold(strings.TrimPrefix(t, "."), ext)
	})
}

func dropTableHTML(elements []doctree.Element) []doctree.Element {
	out := make([]doctree.Element, len(elements))
	for i, el := range elements {
		if el.Kind.IsTable() {
			el.HTML = ""
		}
		out[i] = el
	}
	return out
}

// appendText adds a non-empty element, trimming surrounding whitespace.
func appendText(elements []doctree.Element, kind doctree.Kind, text string, page int) []doctree.Element {
	text = strings.TrimSpace(text)
	if text == "" {
		return elements
	}
	return append(elements, doctree.Element{Kind: kind, Text: text, Page: page})
}
