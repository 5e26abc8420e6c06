package records

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/doctree"
)

// Sink persists the records of one document. relPath is the document's
// path relative to the input root and determines the output location.
type Sink interface {
	Put(ctx context.Context, relPath string, recs []doctree.Record) (string, error)
}

// FileExt is appended to the original file name of a persisted record file.
const FileExt = ".json"

const textSeparator = "\n----------\n"

// FileSink writes one record file per document under Dir, mirroring the
// input's relative directory, plus a plain-text companion for review.
type FileSink struct {
	Dir       string
	WriteText bool
}

// OutputPath returns where a document's records are written.
func (s *FileSink) OutputPath(relPath string) string {
	return filepath.Join(s.Dir, filepath.Clean(relPath)+FileExt)
}

// SafeName reduces name to a single path element that cannot leave the
// directory it is joined to.
func SafeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	switch name {
	case "", ".", "..", "/":
		return "unnamed"
	}
	return strings.ReplaceAll(name, "..", "_")
}

func (s *FileSink) Put(ctx context.Context, relPath string, recs []doctree.Record) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := s.OutputPath(relPath)
	if rel, err := filepath.Rel(filepath.Clean(s.Dir), path); err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("output path for %q escapes %s", relPath, s.Dir)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	data, err := Encode(recs)
	if err != nil {
		return "", err
	}
	if err := writeFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("write records: %w", err)
	}

	if s.WriteText {
		bodies := make([]string, len(recs))
		for i, r := range recs {
			bodies[i] = r.Body
		}
		txtPath := strings.TrimSuffix(path, FileExt) + ".txt"
		if err := writeFileAtomic(txtPath, []byte(strings.Join(bodies, textSeparator))); err != nil {
			return "", fmt.Errorf("write text view: %w", err)
		}
	}

	return path, nil
}

// Encode serializes records as an indented JSON array. A nil slice encodes
// as an empty array.
func Encode(recs []doctree.Record) ([]byte, error) {
	if recs == nil {
		recs = []doctree.Record{}
	}
	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal records: %w", err)
	}
	return data, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".records-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

// LoadFile reads a record file written by FileSink.
func LoadFile(path string) ([]doctree.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var recs []doctree.Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return recs, nil
}

// LoadDir reads every record file below dir, in lexical path order.
func LoadDir(dir string) ([]doctree.Record, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, FileExt) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	var all []doctree.Record
	for _, p := range paths {
		recs, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		all = append(all, recs...)
	}
	return all, nil
}
