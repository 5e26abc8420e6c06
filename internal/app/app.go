// Package app assembles the ingestion pipeline from configuration. It is
// shared by the server and the batch commands.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/config"
	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/ledger"
	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/parser"
	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/pipeline"
	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/records"
	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/vectorstore"
)

// Components holds the wired pipeline. Weaviate is nil when WEAVIATE_URL is
// unset.
type Components struct {
	Ingestor *pipeline.Ingestor
	Weaviate *vectorstore.Weaviate
}

// Build wires the partitioner, record sinks and vector store. When a store
// is configured its collection is created up front.
func Build(ctx context.Context, cfg config.Config, log *slog.Logger) (*Components, error) {
	sinks := []records.Sink{&records.FileSink{Dir: cfg.OutputDir, WriteText: cfg.WriteText}}

	if cfg.S3Bucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		sinks = append(sinks, &records.S3Sink{
			Client: s3.NewFromConfig(awsCfg),
			Bucket: cfg.S3Bucket,
			Prefix: cfg.S3Prefix,
		})
		log.Info("mirroring records to s3", "bucket", cfg.S3Bucket, "prefix", cfg.S3Prefix)
	}

	c := &Components{
		Ingestor: &pipeline.Ingestor{
			Partitioner: &parser.Partitioner{Options: cfg.Partition()},
			Sinks:       sinks,
			Options: pipeline.Options{
				Chunking:    cfg.Chunking(),
				TitlePolicy: cfg.Policy(),
				Collection:  cfg.WeaviateCollection,
			},
			Stats: pipeline.NewLatencyStats(time.Hour),
			Log:   log.With("component", "ingestor"),
		},
	}

	if cfg.WeaviateURL == "" {
		log.Warn("WEAVIATE_URL not set, records are only written to sinks")
		return c, nil
	}

	store, err := NewStore(cfg, log)
	if err != nil {
		return nil, err
	}
	if err := waitReady(ctx, store); err != nil {
		return nil, fmt.Errorf("weaviate at %s: %w", cfg.WeaviateURL, err)
	}
	if _, err := pipeline.Retry(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, store.EnsureCollection(ctx, cfg.WeaviateCollection)
	}); err != nil {
		return nil, fmt.Errorf("ensure collection %s: %w", cfg.WeaviateCollection, err)
	}
	c.Weaviate = store
	c.Ingestor.Store = store
	return c, nil
}

// OpenLedger opens the ingest ledger and attaches it to the ingestor. It
// returns nil when LEDGER_PATH is unset.
func (c *Components) OpenLedger(ctx context.Context, cfg config.Config) (*ledger.Ledger, error) {
	if cfg.LedgerPath == "" {
		return nil, nil
	}
	l, err := ledger.Open(ctx, cfg.LedgerPath)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", cfg.LedgerPath, err)
	}
	c.Ingestor.Ledger = l
	return l, nil
}

type readiness interface {
	Ready(ctx context.Context) error
}

// waitReady polls r until it is ready, retrying while it reports a
// transient failure.
func waitReady(ctx context.Context, r readiness) error {
	_, err := pipeline.Retry(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.Ready(ctx)
	})
	return err
}

// ListLedger logs every ledger entry and returns how many there are.
func ListLedger(ctx context.Context, log *slog.Logger, l *ledger.Ledger) (int, error) {
	entries, err := l.Entries(ctx)
	if err != nil {
		return 0, fmt.Errorf("list ledger: %w", err)
	}
	for _, e := range entries {
		log.Info("ingested", "rel_path", e.RelPath, "source", e.Source, "records", e.Records,
			"content_hash", e.ContentHash, "ingested_at", e.IngestedAt)
	}
	return len(entries), nil
}

// ForgetPaths drops the ledger entries for relPaths so the next run
// reprocesses those documents.
func ForgetPaths(ctx context.Context, l *ledger.Ledger, relPaths []string) error {
	for _, p := range relPaths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if err := l.Forget(ctx, filepath.Clean(p)); err != nil {
			return fmt.Errorf("forget %s: %w", p, err)
		}
	}
	return nil
}

// NewStore connects to the configured Weaviate instance.
func NewStore(cfg config.Config, log *slog.Logger) (*vectorstore.Weaviate, error) {
	return vectorstore.NewWeaviate(vectorstore.Config{
		URL:        cfg.WeaviateURL,
		APIKey:     cfg.WeaviateAPIKey,
		Vectorizer: cfg.WeaviateVectorizer,
		BatchSize:  cfg.WeaviateBatchSize,
		Shape:      cfg.Shape(),
	}, log)
}

// Summarize logs a batch outcome and returns the number of failed documents.
func Summarize(log *slog.Logger, results []pipeline.Result) int {
	failed, skipped, recs := 0, 0, 0
	for _, res := range results {
		switch {
		case !res.OK():
			failed++
			log.Error("document failed", "doc", res.Document, "error", res.Err)
		case res.Skipped:
			skipped++
		default:
			recs += len(res.Records)
		}
	}
	log.Info("batch complete", "documents", len(results), "failed", failed, "skipped", skipped, "records", recs)
	return failed
}
