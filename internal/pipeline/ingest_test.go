package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/chunker"
	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/doctree"
	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/ledger"
	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/parser"
	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/records"
	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/vectorstore"
	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/zotero"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakePartitioner returns canned elements per file name. Names missing from
// docs fail with an ExtractionError.
type fakePartitioner struct {
	docs map[string][]doctree.Element
}

func (f *fakePartitioner) Partition(_ context.Context, r io.Reader, filename string) ([]doctree.Element, error) {
	if _, err := io.ReadAll(r); err != nil {
		return nil, err
	}
	elems, ok := f.docs[filename]
	if !ok {
		return nil, &parser.ExtractionError{File: filename, Err: errors.New("corrupt file")}
	}
	return elems, nil
}

type fakeStore struct {
	mu        sync.Mutex
	failFirst int
	permanent error
	calls     int
	inserted  map[string][]doctree.Record
}

func (s *fakeStore) InsertBatch(_ context.Context, collection string, recs []doctree.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.permanent != nil {
		return s.permanent
	}
	if s.calls <= s.failFirst {
		return &vectorstore.RetryableError{StatusCode: 503, Message: "unavailable"}
	}
	if s.inserted == nil {
		s.inserted = make(map[string][]doctree.Record)
	}
	s.inserted[collection] = append(s.inserted[collection], recs...)
	return nil
}

var auditElements = []doctree.Element{
	{Kind: doctree.KindHeader, Text: "Annual Report 2023"},
	{Kind: doctree.KindTitle, Text: "Scope"},
	{Kind: doctree.KindOther, Text: "Applies to all\nlisted entities."},
	{Kind: doctree.KindTitle, Text: "Audit Opinion"},
	{Kind: doctree.KindOther, Text: "The statements are fair."},
	{Kind: doctree.KindFooter, Text: "3"},
	{Kind: doctree.KindTitle, Text: "References"},
	{Kind: doctree.KindOther, Text: "[1] Standards on Auditing."},
}

func newTestIngestor(store vectorstore.Store, sinks ...records.Sink) *Ingestor {
	return &Ingestor{
		Partitioner: &fakePartitioner{docs: map[string][]doctree.Element{
			"report.pdf": auditElements,
		}},
		Sinks:   sinks,
		Store:   store,
		Options: Options{Chunking: chunker.DefaultConfig(), Collection: "audit"},
		Stats:   NewLatencyStats(time.Hour),
		Log:     testLogger(),
		backoff: func(int) time.Duration { return 0 },
	}
}

func TestBuildRecords(t *testing.T) {
	recs, err := BuildRecords(auditElements, "report", Options{Chunking: chunker.DefaultConfig()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []doctree.Record{
		{Title: "Scope", Body: "Scope\n\nApplies to all listed entities.", Source: "report"},
		{Title: "Audit Opinion", Body: "Audit Opinion\n\nThe statements are fair.", Source: "report", Index: 1},
	}
	if len(recs) != len(want) {
		t.Fatalf("expected %d records, got %d: %+v", len(want), len(recs), recs)
	}
	for i := range want {
		if recs[i] != want[i] {
			t.Errorf("record %d: expected %+v, got %+v", i, want[i], recs[i])
		}
	}
}

func TestBuildRecordsFailPolicy(t *testing.T) {
	elems := []doctree.Element{{Kind: doctree.KindOther, Text: "A paragraph with no heading at all."}}
	_, err := BuildRecords(elems, "x", Options{TitlePolicy: records.TitleFail})
	var malformed *records.MalformedChunkError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedChunkError, got %v", err)
	}
}

func TestRunWritesSinksAndStore(t *testing.T) {
	dir := t.TempDir()
	store := &fakeStore{}
	in := newTestIngestor(store, &records.FileSink{Dir: dir})

	var stages []JobStatus
	res := in.Run(context.Background(), Document{
		Name:    "report.pdf",
		RelPath: "2023/report.pdf",
		Source:  "report",
		Data:    []byte("%PDF"),
	}, func(s JobStatus) { stages = append(stages, s) })

	if !res.OK() {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Elements != len(auditElements) {
		t.Errorf("expected %d elements, got %d", len(auditElements), res.Elements)
	}
	if res.Inserted != 2 || len(store.inserted["audit"]) != 2 {
		t.Errorf("expected 2 inserted records, got %d (%d in store)", res.Inserted, len(store.inserted["audit"]))
	}

	wantPath := filepath.Join(dir, "2023", "report.pdf.json")
	if len(res.Outputs) != 1 || res.Outputs[0] != wantPath {
		t.Fatalf("expected output %q, got %v", wantPath, res.Outputs)
	}
	loaded, err := records.LoadFile(wantPath)
	if err != nil {
		t.Fatalf("load records: %v", err)
	}
	if len(loaded) != 2 || loaded[1].Title != "Audit Opinion" {
		t.Errorf("unexpected persisted records %+v", loaded)
	}

	wantStages := []JobStatus{StatusPartitioning, StatusFiltering, StatusChunking, StatusPairing, StatusStoring, StatusCompleted}
	if fmt.Sprint(stages) != fmt.Sprint(wantStages) {
		t.Errorf("expected stages %v, got %v", wantStages, stages)
	}
	if snap := in.Stats.Snapshot(); snap.Count != 1 {
		t.Errorf("expected one partition latency sample, got %d", snap.Count)
	}
}

func TestRunFetchesLazily(t *testing.T) {
	in := newTestIngestor(nil)
	fetched := false
	res := in.Run(context.Background(), Document{
		Name:   "report.pdf",
		Source: "report",
		Fetch: func(context.Context) ([]byte, error) {
			fetched = true
			return []byte("%PDF"), nil
		},
	}, nil)
	if !res.OK() {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if !fetched {
		t.Error("expected Fetch to be called")
	}
	if res.Inserted != 0 {
		t.Errorf("expected no inserts without a store, got %d", res.Inserted)
	}
}

func TestRunFetchError(t *testing.T) {
	in := newTestIngestor(nil)
	res := in.Run(context.Background(), Document{
		Name:  "report.pdf",
		Fetch: func(context.Context) ([]byte, error) { return nil, errors.New("404") },
	}, nil)
	if res.OK() {
		t.Fatal("expected fetch failure")
	}
}

func TestRunRetriesTransientStoreErrors(t *testing.T) {
	store := &fakeStore{failFirst: 2}
	in := newTestIngestor(store)

	res := in.Run(context.Background(), Document{Name: "report.pdf", Source: "report"}, nil)
	if !res.OK() {
		t.Fatalf("expected success after retries, got %v", res.Err)
	}
	if store.calls != 3 {
		t.Errorf("expected 3 insert attempts, got %d", store.calls)
	}
}

func TestRunGivesUpAfterMaxRetries(t *testing.T) {
	store := &fakeStore{failFirst: 10}
	in := newTestIngestor(store)

	res := in.Run(context.Background(), Document{Name: "report.pdf", Source: "report"}, nil)
	if res.OK() {
		t.Fatal("expected failure")
	}
	if store.calls != MaxRetries {
		t.Errorf("expected %d attempts, got %d", MaxRetries, store.calls)
	}
	if !IsRetryable(res.Err) {
		t.Errorf("expected the last retryable error, got %v", res.Err)
	}
}

func TestRunPermanentStoreError(t *testing.T) {
	store := &fakeStore{permanent: errors.New("unauthorized")}
	in := newTestIngestor(store)

	res := in.Run(context.Background(), Document{Name: "report.pdf", Source: "report"}, nil)
	if res.OK() {
		t.Fatal("expected failure")
	}
	if store.calls != 1 {
		t.Errorf("expected a single attempt, got %d", store.calls)
	}
}

func TestRunExtractionError(t *testing.T) {
	in := newTestIngestor(nil)
	var last JobStatus
	res := in.Run(context.Background(), Document{Name: "broken.pdf"}, func(s JobStatus) { last = s })

	var extractErr *parser.ExtractionError
	if !errors.As(res.Err, &extractErr) {
		t.Fatalf("expected ExtractionError, got %v", res.Err)
	}
	if last != StatusFailed {
		t.Errorf("expected final stage %q, got %q", StatusFailed, last)
	}
}

func TestRunBatchIsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	in := newTestIngestor(&fakeStore{}, &records.FileSink{Dir: dir})

	docs := []Document{
		{Name: "report.pdf", RelPath: "a/report.pdf", Source: "a"},
		{Name: "broken.pdf", RelPath: "b/broken.pdf", Source: "b"},
		{Name: "report.pdf", RelPath: "c/report.pdf", Source: "c"},
	}
	results := in.RunBatch(context.Background(), docs, 2)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !results[0].OK() || !results[2].OK() {
		t.Errorf("expected good documents to succeed, got %v and %v", results[0].Err, results[2].Err)
	}
	if results[1].OK() || results[1].Document != "broken.pdf" {
		t.Errorf("expected broken.pdf to fail in position 1, got %+v", results[1])
	}
	if _, err := os.Stat(filepath.Join(dir, "c", "report.pdf.json")); err != nil {
		t.Errorf("expected output for c/report.pdf: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "b", "broken.pdf.json")); err == nil {
		t.Error("expected no output for the failed document")
	}
}

func TestRunBatchCancelled(t *testing.T) {
	in := newTestIngestor(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := in.RunBatch(ctx, []Document{{Name: "report.pdf"}, {Name: "report.pdf"}}, 1)
	for i, res := range results {
		if !errors.Is(res.Err, context.Canceled) {
			t.Errorf("result %d: expected context.Canceled, got %v", i, res.Err)
		}
	}
}

func TestRetryZoteroErrors(t *testing.T) {
	calls := 0
	got, err := retry(context.Background(), func(int) time.Duration { return 0 }, nil, func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", &zotero.RetryableError{StatusCode: 429}
		}
		return "ok", nil
	})
	if err != nil || got != "ok" {
		t.Fatalf("expected ok, got %q, %v", got, err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestBackoffBounds(t *testing.T) {
	for attempt := range 8 {
		d := Backoff(attempt)
		base := min(time.Duration(1<<attempt)*time.Second, 30*time.Second)
		if d < base || d >= base+base/2 {
			t.Errorf("attempt %d: backoff %v outside [%v, %v)", attempt, d, base, base+base/2)
		}
	}
}

func TestSourceFromFilename(t *testing.T) {
	cases := map[string]string{
		"docs/law/Company Law.pdf": "Company Law",
		"notes.tar.gz":             "notes.tar",
		"README":                   "README",
	}
	for in, want := range cases {
		if got := SourceFromFilename(in); got != want {
			t.Errorf("SourceFromFilename(%q): expected %q, got %q", in, want, got)
		}
	}
}

type memLedger struct {
	mu      sync.Mutex
	entries map[string]ledger.Entry
	markErr error
}

func (m *memLedger) Seen(_ context.Context, relPath, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[relPath]
	return ok && e.ContentHash == hash, nil
}

func (m *memLedger) Mark(_ context.Context, e ledger.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return m.markErr
	}
	m.entries[e.RelPath] = e
	return nil
}

func TestRunSkipsUnchangedDocuments(t *testing.T) {
	store := &fakeStore{}
	in := newTestIngestor(store)
	led := &memLedger{entries: map[string]ledger.Entry{}}
	in.Ledger = led

	doc := Document{Name: "report.pdf", RelPath: "report.pdf", Source: "report", Data: []byte("v1")}
	first := in.Run(context.Background(), doc, nil)
	if !first.OK() || first.Skipped {
		t.Fatalf("expected first run to ingest, got %+v", first)
	}
	if e := led.entries["report.pdf"]; e.Records != 2 || e.ContentHash != ContentHashHex([]byte("v1")) {
		t.Errorf("unexpected ledger entry %+v", e)
	}

	second := in.Run(context.Background(), doc, nil)
	if !second.OK() || !second.Skipped {
		t.Fatalf("expected unchanged document to be skipped, got %+v", second)
	}
	if store.calls != 1 {
		t.Errorf("expected a single insert, got %d", store.calls)
	}

	doc.Data = []byte("v2")
	third := in.Run(context.Background(), doc, nil)
	if third.Skipped || store.calls != 2 {
		t.Errorf("expected changed document to be reprocessed, skipped=%v calls=%d", third.Skipped, store.calls)
	}
}

func TestRunDoesNotMarkFailures(t *testing.T) {
	in := newTestIngestor(&fakeStore{permanent: errors.New("down")})
	led := &memLedger{entries: map[string]ledger.Entry{}}
	in.Ledger = led

	res := in.Run(context.Background(), Document{Name: "report.pdf", RelPath: "report.pdf"}, nil)
	if res.OK() {
		t.Fatal("expected failure")
	}
	if len(led.entries) != 0 {
		t.Errorf("expected no ledger entry for a failed document, got %v", led.entries)
	}
}

func TestRunReportsLedgerFailureAsWarning(t *testing.T) {
	in := newTestIngestor(&fakeStore{})
	in.Ledger = &memLedger{entries: map[string]ledger.Entry{}, markErr: errors.New("disk full")}

	res := in.Run(context.Background(), Document{Name: "report.pdf", RelPath: "report.pdf", Data: []byte("x")}, nil)
	if !res.OK() {
		t.Fatalf("expected ledger failure not to fail the document, got %v", res.Err)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "disk full") {
		t.Errorf("expected one ledger warning, got %v", res.Warnings)
	}
}
