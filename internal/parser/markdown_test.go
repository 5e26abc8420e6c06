package parser

import (
	"context"
	"strings"
	"testing"

	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/doctree"
)

func TestMarkdownParser_HeadingsAndParagraphs(t *testing.T) {
	input := `# Title

Intro text.

## Section A

Section A content.

### Subsection A1

Subsection A1 content.
`
	p := &MarkdownParser{}
	elements, err := p.Parse(context.Background(), strings.NewReader(input), "doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertKinds(t, elements,
		doctree.KindTitle, doctree.KindOther,
		doctree.KindTitle, doctree.KindOther,
		doctree.KindTitle, doctree.KindOther,
	)
	want := []string{"Title", "Intro text.", "Section A", "Section A content.", "Subsection A1", "Subsection A1 content."}
	for i, w := range want {
		if elements[i].Text != w {
			t.Errorf("element[%d]: expected %q, got %q", i, w, elements[i].Text)
		}
	}
}

func TestMarkdownParser_NoHeadings(t *testing.T) {
	input := "Just some plain text.\n\nAnother paragraph here."

	p := &MarkdownParser{}
	elements, err := p.Parse(context.Background(), strings.NewReader(input), "plain.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertKinds(t, elements, doctree.KindOther, doctree.KindOther)
	if elements[1].Text != "Another paragraph here." {
		t.Errorf("expected second paragraph, got %q", elements[1].Text)
	}
}

func TestMarkdownParser_ListsAndCodeBlocks(t *testing.T) {
	input := "# API Reference\n\n- one\n- two\n\n```\nGET /api/users\nPOST /api/users\n```\n"

	p := &MarkdownParser{}
	elements, err := p.Parse(context.Background(), strings.NewReader(input), "api.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertKinds(t, elements, doctree.KindTitle, doctree.KindOther, doctree.KindOther, doctree.KindOther)
	if elements[1].Text != "one" || elements[2].Text != "two" {
		t.Errorf("expected list items as separate elements, got %q and %q", elements[1].Text, elements[2].Text)
	}
	if elements[3].Text != "GET /api/users\nPOST /api/users" {
		t.Errorf("expected code block lines, got %q", elements[3].Text)
	}
}

func TestMarkdownParser_Table(t *testing.T) {
	input := "## Fees\n\n| Item | Amount |\n|------|--------|\n| Audit | 100 |\n"

	p := &MarkdownParser{}
	elements, err := p.Parse(context.Background(), strings.NewReader(input), "fees.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertKinds(t, elements, doctree.KindTitle, doctree.KindTable)
	table := elements[1]
	if table.Text != "Item Amount\nAudit 100" {
		t.Errorf("expected flattened table text, got %q", table.Text)
	}
	if !strings.HasPrefix(table.HTML, "<table>") || !strings.Contains(table.HTML, "<td>Audit</td>") {
		t.Errorf("expected rendered table HTML, got %q", table.HTML)
	}
}
