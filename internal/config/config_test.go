package config

import (
	"reflect"
	"testing"
	"time"

	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/records"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"PORT", "WORKER_COUNT", "CHUNK_MAX_CHARS", "TITLE_POLICY", "INPUT_PATTERNS", "SKIP_TABLE_TYPES", "ZOTERO_SKIP_COLLECTIONS", "JOB_TTL"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Port != "8090" {
		t.Errorf("expected port 8090, got %q", cfg.Port)
	}
	if cfg.WorkerCount != 6 {
		t.Errorf("expected 6 workers, got %d", cfg.WorkerCount)
	}
	if cfg.ChunkMaxChars != 4096 {
		t.Errorf("expected max chars 4096, got %d", cfg.ChunkMaxChars)
	}
	if !cfg.ChunkMultipage {
		t.Error("expected multipage sections by default")
	}
	if cfg.JobTTL != time.Hour {
		t.Errorf("expected 1h TTL, got %v", cfg.JobTTL)
	}
	if cfg.Policy() != records.TitleFirstLine {
		t.Errorf("expected first_line policy, got %q", cfg.Policy())
	}
	if cfg.Shape() != records.ShapeQA {
		t.Errorf("expected qa shape, got %q", cfg.Shape())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("WORKER_COUNT", "2")
	t.Setenv("CHUNK_MAX_CHARS", "1000")
	t.Setenv("CHUNK_NEW_AFTER_CHARS", "800")
	t.Setenv("CHUNK_MULTIPAGE_SECTIONS", "false")
	t.Setenv("JOB_TTL", "15m")
	t.Setenv("INPUT_PATTERNS", " *.md , ,*.txt")
	t.Setenv("SKIP_TABLE_TYPES", "")
	t.Setenv("TITLE_POLICY", "skip")

	cfg := Load()
	if cfg.WorkerCount != 2 {
		t.Errorf("expected 2 workers, got %d", cfg.WorkerCount)
	}
	if cfg.JobTTL != 15*time.Minute {
		t.Errorf("expected 15m TTL, got %v", cfg.JobTTL)
	}
	if want := []string{"*.md", "*.txt"}; !reflect.DeepEqual(cfg.InputPatterns, want) {
		t.Errorf("expected patterns %v, got %v", want, cfg.InputPatterns)
	}
	if cfg.SkipTableTypes != nil {
		t.Errorf("expected no skipped table types, got %v", cfg.SkipTableTypes)
	}

	ch := cfg.Chunking()
	if ch.MaxCharacters != 1000 || ch.NewAfterChars != 800 || ch.MultipageSections {
		t.Errorf("unexpected chunking config %+v", ch)
	}
	if cfg.Policy() != records.TitleSkip {
		t.Errorf("expected skip policy, got %q", cfg.Policy())
	}
}

func TestLoadIgnoresInvalidNumbers(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("WORKER_COUNT", "many")
	t.Setenv("MAX_QUEUE_SIZE", "-4")
	t.Setenv("WEAVIATE_BATCH_SIZE", "0")

	cfg := Load()
	if cfg.WorkerCount != 6 {
		t.Errorf("expected fallback worker count 6, got %d", cfg.WorkerCount)
	}
	if cfg.MaxQueueSize != 100 {
		t.Errorf("expected fallback queue size 100, got %d", cfg.MaxQueueSize)
	}
	if cfg.WeaviateBatchSize != 100 {
		t.Errorf("expected fallback batch size 100, got %d", cfg.WeaviateBatchSize)
	}
}

func TestValidate(t *testing.T) {
	base := Config{ChunkMaxChars: 100, TitlePolicy: "first_line", RecordShape: "qa"}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"zero max", func(c *Config) { c.ChunkMaxChars = 0 }, true},
		{"soft above hard", func(c *Config) { c.ChunkNewAfterChars = 101 }, true},
		{"combine above hard", func(c *Config) { c.ChunkCombineUnderChars = 200 }, true},
		{"unknown policy", func(c *Config) { c.TitlePolicy = "guess" }, true},
		{"unknown shape", func(c *Config) { c.RecordShape = "triples" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateServerRequiresAPIKey(t *testing.T) {
	c := Config{ChunkMaxChars: 100}
	if err := c.ValidateServer(); err == nil {
		t.Error("expected error without API key")
	}
	c.APIKey = "secret"
	if err := c.ValidateServer(); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestValidateZoteroRequiresLibrary(t *testing.T) {
	c := Config{ChunkMaxChars: 100}
	if err := c.ValidateZotero(); err == nil {
		t.Error("expected error without library id")
	}
	c.ZoteroLibraryID = "123"
	if err := c.ValidateZotero(); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestPartitionOptions(t *testing.T) {
	c := Config{
		PartitionStrategy:  "fast",
		PartitionLanguages: []string{"chi_sim", "eng"},
		SkipTableTypes:     []string{"xls"},
		TikaURL:            "http://tika:9998",
	}
	opts := c.Partition()
	if opts.Strategy != "fast" || opts.TikaURL != "http://tika:9998" {
		t.Errorf("unexpected options %+v", opts)
	}
	if !reflect.DeepEqual(opts.Languages, []string{"chi_sim", "eng"}) {
		t.Errorf("expected languages copied, got %v", opts.Languages)
	}
}
