package parser

import (
	"context"
	"strings"
	"testing"

	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/doctree"
)

func TestHTMLParser_Elements(t *testing.T) {
	input := `<html><head><title>ignored</title><script>var a;</script></head><body>
<header>ACME Corp</header>
<h1>Scope</h1>
<p>First <b>bold</b> para.</p>
<div>Loose div text</div>
<table><tr><th>K</th><th>V</th></tr><tr><td>a</td><td>1</td></tr></table>
<footer>Page 1</footer>
</body></html>`

	p := &HTMLParser{}
	elements, err := p.Parse(context.Background(), strings.NewReader(input), "page.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertKinds(t, elements,
		doctree.KindHeader, doctree.KindTitle, doctree.KindOther,
		doctree.KindOther, doctree.KindTable, doctree.KindFooter,
	)
	if elements[2].Text != "First bold para." {
		t.Errorf("expected inline text joined, got %q", elements[2].Text)
	}
	if elements[3].Text != "Loose div text" {
		t.Errorf("expected div text, got %q", elements[3].Text)
	}
	table := elements[4]
	if table.Text != "K V\na 1" {
		t.Errorf("expected table text, got %q", table.Text)
	}
	if !strings.HasPrefix(table.HTML, "<table>") || !strings.Contains(table.HTML, "<td>a</td>") {
		t.Errorf("expected table HTML, got %q", table.HTML)
	}
}

func TestHTMLParser_PageDivs(t *testing.T) {
	input := `<html><body><div class="page"><p>one</p></div><div class="page"><h1>T</h1><p>two</p></div></body></html>`

	p := &HTMLParser{}
	elements, err := p.Parse(context.Background(), strings.NewReader(input), "tika.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertKinds(t, elements, doctree.KindOther, doctree.KindTitle, doctree.KindOther)
	wantPages := []int{1, 2, 2}
	for i, want := range wantPages {
		if elements[i].Page != want {
			t.Errorf("element[%d]: expected page %d, got %d", i, want, elements[i].Page)
		}
	}
}

func TestHTMLParser_EmptyTableDropped(t *testing.T) {
	p := &HTMLParser{}
	elements, err := p.Parse(context.Background(), strings.NewReader("<table><tr><td> </td></tr></table>"), "x.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(elements) != 0 {
		t.Errorf("expected no elements, got %v", elements)
	}
}
