package ledger

import (
	"context"
	"path/filepath"
	"testing"
)

func openTest(t *testing.T) (*Ledger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	l, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l, path
}

func TestSeenAfterMark(t *testing.T) {
	ctx := context.Background()
	l, _ := openTest(t)

	seen, err := l.Seen(ctx, "law/a.pdf", "h1")
	if err != nil || seen {
		t.Fatalf("expected unseen document, got %v, %v", seen, err)
	}
	if err := l.Mark(ctx, Entry{RelPath: "law/a.pdf", ContentHash: "h1", Source: "a", Records: 3}); err != nil {
		t.Fatalf("Mark: %v", err)
	}
	if seen, _ := l.Seen(ctx, "law/a.pdf", "h1"); !seen {
		t.Error("expected document with same hash to be seen")
	}
	if seen, _ := l.Seen(ctx, "law/a.pdf", "h2"); seen {
		t.Error("expected changed content to be unseen")
	}
}

func TestMarkReplaces(t *testing.T) {
	ctx := context.Background()
	l, _ := openTest(t)

	l.Mark(ctx, Entry{RelPath: "a.pdf", ContentHash: "h1", Source: "a", Records: 1})
	l.Mark(ctx, Entry{RelPath: "a.pdf", ContentHash: "h2", Source: "a", Records: 5})

	entries, err := l.Entries(ctx)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].ContentHash != "h2" || entries[0].Records != 5 {
		t.Errorf("expected updated entry, got %+v", entries[0])
	}
	if entries[0].IngestedAt.IsZero() {
		t.Error("expected ingestion time to be set")
	}
}

func TestForgetAndReset(t *testing.T) {
	ctx := context.Background()
	l, _ := openTest(t)
	l.Mark(ctx, Entry{RelPath: "a.pdf", ContentHash: "h", Source: "a"})
	l.Mark(ctx, Entry{RelPath: "b.pdf", ContentHash: "h", Source: "b"})

	if err := l.Forget(ctx, "a.pdf"); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	if seen, _ := l.Seen(ctx, "a.pdf", "h"); seen {
		t.Error("expected forgotten entry to be unseen")
	}
	if err := l.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if entries, _ := l.Entries(ctx); len(entries) != 0 {
		t.Errorf("expected empty ledger, got %d entries", len(entries))
	}
}

func TestReopenPreservesEntries(t *testing.T) {
	ctx := context.Background()
	l, path := openTest(t)
	l.Mark(ctx, Entry{RelPath: "a.pdf", ContentHash: "h", Source: "a"})
	l.Close()

	l2, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer l2.Close()
	if seen, _ := l2.Seen(ctx, "a.pdf", "h"); !seen {
		t.Error("expected entry to survive reopen")
	}
}
