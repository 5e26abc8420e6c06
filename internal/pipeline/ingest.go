package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/chunker"
	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/cleaner"
	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/doctree"
	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/ledger"
	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/records"
	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/sections"
	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/vectorstore"
)

// Partitioner splits a raw document into layout elements.
type Partitioner interface {
	Partition(ctx context.Context, r io.Reader, filename string) ([]doctree.Element, error)
}

// Document is one unit of work. Data may be left nil when Fetch is set, so
// remote files are only downloaded once a worker picks them up.
type Document struct {
	Name    string // file name; its extension selects the parser
	RelPath string // output location relative to the sink roots
	Source  string // provenance tag stored with every record
	Data    []byte
	Fetch   func(ctx context.Context) ([]byte, error)
}

// SourceFromFilename strips directories and the final extension.
func SourceFromFilename(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Ledger remembers ingested content so unchanged documents can be skipped.
type Ledger interface {
	Seen(ctx context.Context, relPath, contentHash string) (bool, error)
	Mark(ctx context.Context, e ledger.Entry) error
}

// Options configures the record-building pass.
type Options struct {
	Chunking    chunker.Config
	TitlePolicy records.TitlePolicy
	Collection  string
}

// Result is the outcome of one document.
type Result struct {
	Document string
	Records  []doctree.Record
	Outputs  []string
	Inserted int
	Elements int
	Chunks   int
	Skipped  bool     // content unchanged since the last ingestion
	Warnings []string // problems that did not fail the document
	Err      error
}

func (r Result) OK() bool { return r.Err == nil }

// Ingestor runs documents through partition, cleanup, chunking, pairing and
// persistence. Store may be nil to skip vector store insertion, and Ledger
// may be nil to always reprocess.
type Ingestor struct {
	Partitioner Partitioner
	Sinks       []records.Sink
	Store       vectorstore.Store
	Ledger      Ledger
	Reprocess   bool // ignore ledger hits but still record ingestions
	Options     Options
	Stats       *LatencyStats
	Log         *slog.Logger

	backoff func(attempt int) time.Duration
}

// Run processes one document. report, if non-nil, is called on every stage
// transition. The pass is linear: a failing stage ends the document.
func (in *Ingestor) Run(ctx context.Context, doc Document, report func(JobStatus)) Result {
	log := in.logger().With("doc", doc.Name, "source", doc.Source)
	res := Result{Document: doc.Name}
	if report == nil {
		report = func(JobStatus) {}
	}
	fail := func(stage string, err error) Result {
		res.Err = err
		documentsTotal.WithLabelValues(string(StatusFailed)).Inc()
		log.Error("document failed", "stage", stage, "error", err)
		report(StatusFailed)
		return res
	}

	data := doc.Data
	if data == nil && doc.Fetch != nil {
		var err error
		if data, err = doc.Fetch(ctx); err != nil {
			return fail("fetch", fmt.Errorf("fetch %s: %w", doc.Name, err))
		}
	}

	hash := ContentHashHex(data)
	if in.Ledger != nil && !in.Reprocess {
		seen, err := in.Ledger.Seen(ctx, doc.RelPath, hash)
		if err != nil {
			log.Warn("ledger lookup failed, reprocessing", "error", err)
			res.Warnings = append(res.Warnings, fmt.Sprintf("ledger lookup: %v", err))
		} else if seen {
			res.Skipped = true
			documentsTotal.WithLabelValues("skipped").Inc()
			log.Info("document unchanged, skipping", "rel_path", doc.RelPath)
			report(StatusCompleted)
			return res
		}
	}

	report(StatusPartitioning)
	start := time.Now()
	elements, err := in.Partitioner.Partition(ctx, bytes.NewReader(data), doc.Name)
	elapsed := time.Since(start)
	stageDuration.WithLabelValues("partition").Observe(elapsed.Seconds())
	if in.Stats != nil {
		in.Stats.Record(elapsed.Milliseconds())
	}
	if err != nil {
		return fail("partition", err)
	}
	res.Elements = len(elements)
	log.Info("partitioned document", "elements", len(elements), "duration_ms", elapsed.Milliseconds())

	recs, chunks, err := in.build(elements, doc.Source, report)
	res.Chunks = chunks
	if err != nil {
		return fail("pairing", err)
	}
	res.Records = recs
	recordsTotal.Add(float64(len(recs)))

	report(StatusStoring)
	start = time.Now()
	for _, sink := range in.Sinks {
		out, err := sink.Put(ctx, doc.RelPath, recs)
		if err != nil {
			return fail("persist", err)
		}
		res.Outputs = append(res.Outputs, out)
	}
	if in.Store != nil && len(recs) > 0 {
		if err := in.insert(ctx, log, recs); err != nil {
			return fail("insert", err)
		}
		res.Inserted = len(recs)
	}
	stageDuration.WithLabelValues("store").Observe(time.Since(start).Seconds())

	if in.Ledger != nil {
		err := in.Ledger.Mark(ctx, ledger.Entry{
			RelPath:     doc.RelPath,
			ContentHash: hash,
			Source:      doc.Source,
			Records:     len(recs),
		})
		if err != nil {
			log.Warn("ledger update failed", "error", err)
			res.Warnings = append(res.Warnings, fmt.Sprintf("ledger update: %v", err))
		}
	}

	documentsTotal.WithLabelValues(string(StatusCompleted)).Inc()
	log.Info("document complete", "chunks", chunks, "records", len(recs), "inserted", res.Inserted)
	report(StatusCompleted)
	return res
}

// BuildRecords runs the post-partition stages on elements: normalize,
// section filter, chunk by title, merge, artifact cleanup, title pairing and
// source tagging.
func BuildRecords(elements []doctree.Element, source string, opts Options) ([]doctree.Record, error) {
	in := &Ingestor{Options: opts}
	recs, _, err := in.build(elements, source, nil)
	return recs, err
}

func (in *Ingestor) build(elements []doctree.Element, source string, report func(JobStatus)) ([]doctree.Record, int, error) {
	if report == nil {
		report = func(JobStatus) {}
	}

	report(StatusFiltering)
	start := time.Now()
	filtered := sections.Filter(cleaner.NormalizeElements(elements))
	stageDuration.WithLabelValues("filter").Observe(time.Since(start).Seconds())

	report(StatusChunking)
	start = time.Now()
	chunks := chunker.ChunkByTitle(filtered, in.Options.Chunking)
	merged := chunker.Merge(chunks)
	for i, m := range merged {
		merged[i] = cleaner.ReplaceArtifacts(m)
	}
	stageDuration.WithLabelValues("chunk").Observe(time.Since(start).Seconds())

	report(StatusPairing)
	start = time.Now()
	pairs, err := records.PairTitles(merged, in.Options.TitlePolicy)
	if err != nil {
		return nil, len(chunks), err
	}
	recs := records.Tag(pairs, source)
	stageDuration.WithLabelValues("pair").Observe(time.Since(start).Seconds())
	return recs, len(chunks), nil
}

// insert writes records to the store, retrying transient failures.
func (in *Ingestor) insert(ctx context.Context, log *slog.Logger, recs []doctree.Record) error {
	backoff := in.backoff
	if backoff == nil {
		backoff = Backoff
	}
	onRetry := func(attempt int, err error) {
		storeRetries.Inc()
		log.Warn("retryable store error", "attempt", attempt, "error", err)
	}
	_, err := retry(ctx, backoff, onRetry, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, in.Store.InsertBatch(ctx, in.Options.Collection, recs)
	})
	return err
}

// RunBatch processes docs on at most workers goroutines. Results are
// returned in input order; a failing document never affects the others.
func (in *Ingestor) RunBatch(ctx context.Context, docs []Document, workers int) []Result {
	if workers <= 0 {
		workers = 1
	}
	results := make([]Result, len(docs))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, doc := range docs {
		g.Go(func() error {
			defer func() {
				if p := recover(); p != nil {
					in.logger().Error("panic while processing document", "doc", doc.Name, "panic", p, "stack", string(debug.Stack()))
					results[i] = Result{Document: doc.Name, Err: fmt.Errorf("panic: %v", p)}
				}
			}()
			if err := ctx.Err(); err != nil {
				results[i] = Result{Document: doc.Name, Err: err}
				return nil
			}
			results[i] = in.Run(ctx, doc, nil)
			return nil
		})
	}
	g.Wait()
	return results
}

func (in *Ingestor) logger() *slog.Logger {
	if in.Log != nil {
		return in.Log
	}
	return slog.Default()
}
