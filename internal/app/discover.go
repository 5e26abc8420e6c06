package app

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/pipeline"
	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/records"
	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/vectorstore"
)

// Discover walks root and returns a document for every file whose base name
// matches one of patterns. Files are read when a worker picks them up.
func Discover(root string, patterns []string) ([]pipeline.Document, error) {
	for _, p := range patterns {
		if _, err := filepath.Match(p, ""); err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", p, err)
		}
	}

	var docs []pipeline.Document
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !matchAny(d.Name(), patterns) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		docs = append(docs, pipeline.Document{
			Name:    d.Name(),
			RelPath: rel,
			Source:  pipeline.SourceFromFilename(d.Name()),
			Fetch: func(context.Context) ([]byte, error) {
				return os.ReadFile(path)
			},
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].RelPath < docs[j].RelPath })
	return docs, nil
}

// matchAny matches case-insensitively so *.pdf also picks up REPORT.PDF.
func matchAny(name string, patterns []string) bool {
	lower := strings.ToLower(name)
	for _, p := range patterns {
		if ok, _ := filepath.Match(strings.ToLower(p), lower); ok {
			return true
		}
	}
	return false
}

// Reload inserts every persisted record file under dir into collection, in
// slices of batchSize. It returns the number of records inserted.
func Reload(ctx context.Context, dir string, store vectorstore.Store, collection string, batchSize int) (int, error) {
	recs, err := records.LoadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("load records: %w", err)
	}
	if batchSize <= 0 {
		batchSize = vectorstore.DefaultBatchSize
	}

	inserted := 0
	for start := 0; start < len(recs); start += batchSize {
		batch := recs[start:min(start+batchSize, len(recs))]
		if _, err := pipeline.Retry(ctx, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, store.InsertBatch(ctx, collection, batch)
		}); err != nil {
			return inserted, fmt.Errorf("insert records %d-%d: %w", start, start+len(batch), err)
		}
		inserted += len(batch)
	}
	return inserted, nil
}
