package app

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/pipeline"
	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/records"
	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/zotero"
)

// FileFetcher downloads attachment content by key.
type FileFetcher interface {
	File(ctx context.Context, key string) ([]byte, error)
}

// AttachmentDocuments turns library attachments into pipeline documents.
// Output paths are grouped by collection label and carry the item key, since
// display names repeat across items. Downloads are deferred to the worker and
// retried on transient errors.
func AttachmentDocuments(files FileFetcher, atts []zotero.Attachment) []pipeline.Document {
	docs := make([]pipeline.Document, 0, len(atts))
	for _, att := range atts {
		name := att.Filename()
		docs = append(docs, pipeline.Document{
			Name:    name,
			RelPath: filepath.Join(collectionDir(att.Collection), records.SafeName(outputName(name, att))),
			Source:  att.Name,
			Fetch: func(ctx context.Context) ([]byte, error) {
				return pipeline.Retry(ctx, func(ctx context.Context) ([]byte, error) {
					return files.File(ctx, att.FileKey)
				})
			},
		})
	}
	return docs
}

// outputName inserts the item key before the extension: "Audit Law_I1.pdf".
func outputName(name string, att zotero.Attachment) string {
	key := att.ItemKey
	if key == "" {
		key = att.FileKey
	}
	if key == "" {
		return name
	}
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + "_" + key + ext
}

func collectionDir(label string) string {
	return records.SafeName(strings.NewReplacer("/", "_", "\\", "_").Replace(label))
}
