package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/fault"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/doctree"
	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/records"
)

const (
	DefaultVectorizer = "text2vec-transformers"
	DefaultBatchSize  = 100
)

// recordNamespace seeds deterministic object IDs so a retried batch
// overwrites objects instead of duplicating them.
var recordNamespace = uuid.MustParse("6f1c8a52-3d4e-4b8f-9a0b-7c2d5e6f8a91")

// Config configures a Weaviate store.
type Config struct {
	URL        string // e.g. http://localhost:8080
	APIKey     string
	Vectorizer string
	BatchSize  int
	Shape      records.Shape
	Headers    map[string]string // e.g. X-OpenAI-Api-Key for hosted vectorizers
}

// Weaviate stores records as objects of one class per collection.
type Weaviate struct {
	client *weaviate.Client
	cfg    Config
	log    *slog.Logger
}

func NewWeaviate(cfg Config, log *slog.Logger) (*Weaviate, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid weaviate url %q", cfg.URL)
	}
	if cfg.Vectorizer == "" {
		cfg.Vectorizer = DefaultVectorizer
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Shape == "" {
		cfg.Shape = records.ShapeQA
	}

	var authConfig auth.Config
	if cfg.APIKey != "" {
		authConfig = auth.ApiKey{Value: cfg.APIKey}
	}
	client, err := weaviate.NewClient(weaviate.Config{
		Host:       u.Host,
		Scheme:     u.Scheme,
		AuthConfig: authConfig,
		Headers:    cfg.Headers,
	})
	if err != nil {
		return nil, fmt.Errorf("create weaviate client: %w", err)
	}

	return &Weaviate{
		client: client,
		cfg:    cfg,
		log:    log.With("component", "weaviate"),
	}, nil
}

// ClassName maps a collection name to a Weaviate class name, which must
// start with an upper-case letter.
func ClassName(collection string) string {
	r, size := utf8.DecodeRuneInString(collection)
	if r == utf8.RuneError {
		return collection
	}
	return string(unicode.ToUpper(r)) + collection[size:]
}

// EnsureCollection creates the collection's class with the configured
// vectorizer and record shape unless it already exists.
func (w *Weaviate) EnsureCollection(ctx context.Context, collection string) error {
	class := ClassName(collection)
	exists, err := w.client.Schema().ClassExistenceChecker().WithClassName(class).Do(ctx)
	if err != nil {
		return classify(fmt.Sprintf("check class %s", class), err)
	}
	if exists {
		return nil
	}

	props := make([]*models.Property, 0, 3)
	for _, name := range records.PropertyNames(w.cfg.Shape) {
		props = append(props, &models.Property{
			Name:     name,
			DataType: []string{"text"},
		})
	}
	err = w.client.Schema().ClassCreator().WithClass(&models.Class{
		Class:       class,
		Description: "Document chunks produced by docingest",
		Vectorizer:  w.cfg.Vectorizer,
		Properties:  props,
	}).Do(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return nil
		}
		return classify(fmt.Sprintf("create class %s", class), err)
	}
	w.log.Info("created collection", "class", class, "vectorizer", w.cfg.Vectorizer, "shape", w.cfg.Shape)
	return nil
}

// InsertBatch inserts recs in sub-batches of Config.BatchSize. Object IDs are
// derived from the collection, source, index and body of each record, so the
// same record gets the same ID however the batch was assembled.
func (w *Weaviate) InsertBatch(ctx context.Context, collection string, recs []doctree.Record) error {
	class := ClassName(collection)
	var failed []error

	for start := 0; start < len(recs); start += w.cfg.BatchSize {
		end := min(start+w.cfg.BatchSize, len(recs))
		objs := make([]*models.Object, 0, end-start)
		for i := start; i < end; i++ {
			objs = append(objs, &models.Object{
				Class:      class,
				ID:         strfmt.UUID(ObjectID(collection, recs[i]).String()),
				Properties: records.Properties(recs[i], w.cfg.Shape),
			})
		}

		resp, err := w.client.Batch().ObjectsBatcher().WithObjects(objs...).Do(ctx)
		if err != nil {
			return classify(fmt.Sprintf("insert batch into %s", class), err)
		}
		for _, obj := range resp {
			if obj.Result == nil || obj.Result.Errors == nil {
				continue
			}
			for _, e := range obj.Result.Errors.Error {
				failed = append(failed, fmt.Errorf("object %s: %s", obj.ID, e.Message))
			}
		}
		w.log.Debug("inserted batch", "class", class, "objects", len(objs))
	}

	if len(failed) > 0 {
		return fmt.Errorf("insert into %s: %d objects failed: %w", class, len(failed), errors.Join(failed...))
	}
	return nil
}

// DeleteCollection drops the collection's class and all its objects.
func (w *Weaviate) DeleteCollection(ctx context.Context, collection string) error {
	class := ClassName(collection)
	if err := w.client.Schema().ClassDeleter().WithClassName(class).Do(ctx); err != nil {
		return classify(fmt.Sprintf("delete class %s", class), err)
	}
	w.log.Info("deleted collection", "class", class)
	return nil
}

// Ready returns nil once the node accepts requests. A node that answers but
// is still starting yields a *RetryableError.
func (w *Weaviate) Ready(ctx context.Context) error {
	ok, err := w.client.Misc().ReadyChecker().Do(ctx)
	if err != nil {
		return classify("readiness check", err)
	}
	if !ok {
		return &RetryableError{StatusCode: http.StatusServiceUnavailable, Message: "node not ready"}
	}
	return nil
}

// ObjectID returns the stable object ID of r within collection.
func ObjectID(collection string, r doctree.Record) uuid.UUID {
	key := collection + "\x00" + r.Source + "\x00" + strconv.Itoa(r.Index) + "\x00" + r.Body
	return uuid.NewSHA1(recordNamespace, []byte(key))
}

// classify wraps transport failures and 429/5xx answers as *RetryableError.
func classify(op string, err error) error {
	var ce *fault.WeaviateClientError
	if errors.As(err, &ce) {
		switch {
		case ce.IsUnexpectedStatusCode && (ce.StatusCode == http.StatusTooManyRequests || ce.StatusCode >= 500):
			return fmt.Errorf("%s: %w", op, &RetryableError{StatusCode: ce.StatusCode, Message: ce.Msg})
		case !ce.IsUnexpectedStatusCode && ce.DerivedFromError != nil:
			return fmt.Errorf("%s: %w", op, &RetryableError{Message: ce.DerivedFromError.Error()})
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
