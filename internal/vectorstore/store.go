// Package vectorstore inserts records into a vector database collection.
package vectorstore

import (
	"context"
	"fmt"

	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/doctree"
)

// Store accepts batches of records for a named collection.
type Store interface {
	InsertBatch(ctx context.Context, collection string, recs []doctree.Record) error
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
