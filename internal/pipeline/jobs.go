package pipeline

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/doctree"
)

// JobStatus represents the state of an ingestion job.
type JobStatus string

const (
	StatusQueued       JobStatus = "queued"
	StatusPartitioning JobStatus = "partitioning"
	StatusFiltering    JobStatus = "filtering"
	StatusChunking     JobStatus = "chunking"
	StatusPairing      JobStatus = "pairing"
	StatusStoring      JobStatus = "storing"
	StatusCompleted    JobStatus = "completed"
	StatusFailed       JobStatus = "failed"
)

// Terminal reports whether no further transitions follow s.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

var (
	ulidMu      sync.Mutex
	ulidEntropy = ulid.Monotonic(rand.Reader, 0)
)

// NewJobID returns a new time-ordered ULID.
func NewJobID() string {
	ulidMu.Lock()
	defer ulidMu.Unlock()
	return ulid.MustNew(ulid.Now(), ulidEntropy).String()
}

// Job tracks the state of a single document ingestion.
type Job struct {
	mu sync.Mutex

	ID       string `json:"job_id"`
	Filename string `json:"filename"`
	RelPath  string `json:"rel_path"`
	Source   string `json:"source"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData []byte
	records  []doctree.Record
	errors   []string
}

// Progress tracks processing progress.
type Progress struct {
	Elements int      `json:"elements"`
	Chunks   int      `json:"chunks"`
	Records  int      `json:"records"`
	Inserted int      `json:"inserted"`
	Outputs  []string `json:"outputs"`
	Errors   []string `json:"errors"`
}

// NewJob creates a queued job for an uploaded file.
func NewJob(filename, source string, data []byte) *Job {
	now := time.Now()
	if source == "" {
		source = SourceFromFilename(filename)
	}
	id := NewJobID()
	return &Job{
		ID:          id,
		Filename:    filename,
		RelPath:     filepath.Join(id, filename),
		Source:      source,
		Status:      StatusQueued,
		Phase:       string(StatusQueued),
		ContentHash: ContentHashHex(data),
		CreatedAt:   now,
		UpdatedAt:   now,
		fileData:    data,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records a non-fatal problem, e.g. a ledger update that failed
// after the records were stored.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetResult copies a finished document's counts and records onto the job and
// moves it to its terminal status. The raw file is released.
func (j *Job) SetResult(res Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Elements = res.Elements
	j.Progress.Chunks = res.Chunks
	j.Progress.Records = len(res.Records)
	j.Progress.Inserted = res.Inserted
	j.Progress.Outputs = res.Outputs
	j.records = res.Records
	j.fileData = nil
	if res.Err != nil {
		j.errors = append(j.errors, res.Err.Error())
		j.Progress.Errors = j.errors
		j.Status = StatusFailed
	} else {
		j.Status = StatusCompleted
	}
	j.Phase = "done"
	j.UpdatedAt = time.Now()
}

// Records returns the records of a completed job.
func (j *Job) Records() []doctree.Record {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.records
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	Filename    string    `json:"filename"`
	Source      string    `json:"source"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	ContentHash string    `json:"content_hash,omitempty"`
	Progress    Progress  `json:"progress"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.Progress.Errors...)
	outputs := append([]string{}, j.Progress.Outputs...)
	p := j.Progress
	p.Errors = errs
	p.Outputs = outputs
	return JobSnapshot{
		ID:          j.ID,
		Filename:    j.Filename,
		Source:      j.Source,
		Status:      j.Status,
		Phase:       j.Phase,
		ContentHash: j.ContentHash,
		Progress:    p,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}

// Document returns the job's file as a pipeline document.
func (j *Job) Document() Document {
	j.mu.Lock()
	defer j.mu.Unlock()
	return Document{
		Name:    j.Filename,
		RelPath: j.RelPath,
		Source:  j.Source,
		Data:    j.fileData,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
