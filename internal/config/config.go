package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/chunker"
	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/parser"
	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/records"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Batch input and record output
	InputDir      string
	OutputDir     string
	InputPatterns []string
	WriteText     bool
	LedgerPath    string // SQLite ingest ledger; empty disables skipping

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// Chunking
	ChunkMaxChars          int
	ChunkNewAfterChars     int
	ChunkCombineUnderChars int
	ChunkMultipage         bool

	// Records
	TitlePolicy string
	RecordShape string

	// Partitioning
	PartitionStrategy     string
	PartitionLanguages    []string
	PartitionExtractImage bool
	SkipTableTypes        []string
	TikaURL               string
	PDFFallbackPdftotext  bool

	// Vector store
	WeaviateURL        string
	WeaviateAPIKey     string
	WeaviateCollection string
	WeaviateVectorizer string
	WeaviateBatchSize  int

	// S3 mirror of record files
	S3Bucket string
	S3Prefix string

	// Zotero
	ZoteroLibraryID       string
	ZoteroLibraryType     string
	ZoteroAPIKey          string
	ZoteroSkipCollections []string
	ZoteroCollectionsFile string
	ZoteroNameField       string
}

// Load reads configuration from the environment, after loading a .env file
// from the working directory if one exists.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("DOCINGEST_API_KEY"),

		InputDir:      envOr("INPUT_DIR", "docs"),
		OutputDir:     envOr("OUTPUT_DIR", "docs_output"),
		InputPatterns: envList("INPUT_PATTERNS", []string{"*.pdf", "*.docx"}),
		WriteText:     envBool("WRITE_TEXT", true),
		LedgerPath:    os.Getenv("LEDGER_PATH"),

		WorkerCount:  envInt("WORKER_COUNT", 6),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		ChunkMaxChars:          envInt("CHUNK_MAX_CHARS", 4096),
		ChunkNewAfterChars:     envInt("CHUNK_NEW_AFTER_CHARS", 0),
		ChunkCombineUnderChars: envInt("CHUNK_COMBINE_UNDER_CHARS", 0),
		ChunkMultipage:         envBool("CHUNK_MULTIPAGE_SECTIONS", true),

		TitlePolicy: envOr("TITLE_POLICY", string(records.TitleFirstLine)),
		RecordShape: envOr("RECORD_SHAPE", string(records.ShapeQA)),

		PartitionStrategy:     envOr("PARTITION_STRATEGY", "hi_res"),
		PartitionLanguages:    envList("PARTITION_LANGUAGES", []string{"chi_sim"}),
		PartitionExtractImage: envBool("PARTITION_EXTRACT_IMAGES", false),
		SkipTableTypes:        envList("SKIP_TABLE_TYPES", []string{"jpg", "png", "xls", "xlsx"}),
		TikaURL:               os.Getenv("TIKA_URL"),
		PDFFallbackPdftotext:  envBool("PDF_FALLBACK_PDFTOTEXT", true),

		WeaviateURL:        os.Getenv("WEAVIATE_URL"),
		WeaviateAPIKey:     os.Getenv("WEAVIATE_API_KEY"),
		WeaviateCollection: envOr("WEAVIATE_COLLECTION", "audit"),
		WeaviateVectorizer: envOr("WEAVIATE_VECTORIZER", "text2vec-transformers"),
		WeaviateBatchSize:  envInt("WEAVIATE_BATCH_SIZE", 100),

		S3Bucket: os.Getenv("S3_BUCKET"),
		S3Prefix: envOr("S3_PREFIX", "docs_output"),

		ZoteroLibraryID:       os.Getenv("ZOTERO_LIBRARY_ID"),
		ZoteroLibraryType:     envOr("ZOTERO_LIBRARY_TYPE", "user"),
		ZoteroAPIKey:          os.Getenv("ZOTERO_API_KEY"),
		ZoteroSkipCollections: envList("ZOTERO_SKIP_COLLECTIONS", []string{"2GQGZZMJ", "BG678IY7"}),
		ZoteroCollectionsFile: os.Getenv("ZOTERO_COLLECTIONS_FILE"),
		ZoteroNameField:       envOr("ZOTERO_NAME_FIELD", "nameOfAct"),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 6
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.WeaviateBatchSize <= 0 {
		cfg.WeaviateBatchSize = 100
	}

	return cfg
}

// Validate checks the settings shared by every command.
func (c Config) Validate() error {
	if c.ChunkMaxChars <= 0 {
		return fmt.Errorf("CHUNK_MAX_CHARS must be positive")
	}
	if c.ChunkNewAfterChars < 0 || c.ChunkNewAfterChars > c.ChunkMaxChars {
		return fmt.Errorf("CHUNK_NEW_AFTER_CHARS must be between 0 and CHUNK_MAX_CHARS")
	}
	if c.ChunkCombineUnderChars < 0 || c.ChunkCombineUnderChars > c.ChunkMaxChars {
		return fmt.Errorf("CHUNK_COMBINE_UNDER_CHARS must be between 0 and CHUNK_MAX_CHARS")
	}
	if _, err := records.ParseTitlePolicy(c.TitlePolicy); err != nil {
		return fmt.Errorf("TITLE_POLICY: %w", err)
	}
	if _, err := records.ParseShape(c.RecordShape); err != nil {
		return fmt.Errorf("RECORD_SHAPE: %w", err)
	}
	return nil
}

// ValidateServer additionally checks the HTTP server settings.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return fmt.Errorf("DOCINGEST_API_KEY is required")
	}
	return nil
}

// ValidateZotero additionally checks the Zotero library settings.
func (c Config) ValidateZotero() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.ZoteroLibraryID == "" {
		return fmt.Errorf("ZOTERO_LIBRARY_ID is required")
	}
	return nil
}

// Chunking returns the chunk-by-title settings.
func (c Config) Chunking() chunker.Config {
	return chunker.Config{
		MaxCharacters:         c.ChunkMaxChars,
		NewAfterChars:         c.ChunkNewAfterChars,
		CombineTextUnderChars: c.ChunkCombineUnderChars,
		MultipageSections:     c.ChunkMultipage,
	}
}

// Partition returns the partitioner settings.
func (c Config) Partition() parser.Options {
	return parser.Options{
		Strategy:             c.PartitionStrategy,
		Languages:            c.PartitionLanguages,
		ExtractImages:        c.PartitionExtractImage,
		SkipTableTypes:       c.SkipTableTypes,
		TikaURL:              c.TikaURL,
		PDFFallbackPdftotext: c.PDFFallbackPdftotext,
	}
}

// Policy returns the parsed title policy. Call Validate first.
func (c Config) Policy() records.TitlePolicy {
	p, _ := records.ParseTitlePolicy(c.TitlePolicy)
	return p
}

// Shape returns the parsed record shape. Call Validate first.
func (c Config) Shape() records.Shape {
	s, _ := records.ParseShape(c.RecordShape)
	return s
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envList splits a comma-separated value, dropping empty entries. An unset
// variable yields fallback; a set but empty list yields nil.
func envList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
