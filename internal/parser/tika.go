package parser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/doctree"
	"github.com/google/go-tika/tika"
	"golang.org/x/net/html"
)

// TikaParser partitions office documents, scanned PDFs and images through an
// Apache Tika server. Tika answers with XHTML, which goes through the same
// element walker as HTML files.
type TikaParser struct {
	client *tika.Client
}

// tikaStrategies maps partition strategies to Tika PDF OCR strategies.
var tikaStrategies = map[string]string{
	"hi_res":   "ocr_and_text_extraction",
	"ocr_only": "ocr_only",
	"fast":     "no_ocr",
	"auto":     "auto",
}

// NewTikaParser builds a parser for the server at opts.TikaURL.
func NewTikaParser(opts Options) *TikaParser {
	header := http.Header{}
	if s, ok := tikaStrategies[strings.ToLower(opts.Strategy)]; ok {
		header.Set("X-Tika-PDFOcrStrategy", s)
	}
	if len(opts.Languages) > 0 {
		header.Set("X-Tika-OCRLanguage", strings.Join(opts.Languages, "+"))
	}
	if opts.ExtractImages {
		header.Set("X-Tika-PDFExtractInlineImages", "true")
	}

	httpClient := &http.Client{
		Timeout:   5 * time.Minute,
		Transport: &headerTransport{header: header, base: http.DefaultTransport},
	}
	return &TikaParser{client: tika.NewClient(httpClient, opts.TikaURL)}
}

func (p *TikaParser) Parse(ctx context.Context, r io.Reader, filename string) ([]doctree.Element, error) {
	body, err := p.client.Parse(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("tika parse: %w", err)
	}
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse tika xhtml: %w", err)
	}
	return htmlElements(doc), nil
}

// headerTransport adds fixed headers to every request.
type headerTransport struct {
	header http.Header
	base   http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.header {
		req.Header[k] = v
	}
	return t.base.RoundTrip(req)
}
