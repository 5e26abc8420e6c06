package zotero

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultSkipCollections are the repealed and in-house regulation
// collections excluded from ingestion.
var DefaultSkipCollections = []string{"2GQGZZMJ", "BG678IY7"}

// CollectionEntry labels one collection in a collections file.
type CollectionEntry struct {
	Key   string `yaml:"key"`
	Label string `yaml:"label"`
	Skip  bool   `yaml:"skip"`
}

// CollectionsFile is the YAML document:
//
//	collections:
//	  - key: YJRUXNIV
//	    label: national audit standards
//	  - key: 2GQGZZMJ
//	    skip: true
type CollectionsFile struct {
	Collections []CollectionEntry `yaml:"collections"`
}

func LoadCollectionsFile(path string) (*CollectionsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f CollectionsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &f, nil
}

// Filter decides which collections are ingested and how they are labelled.
type Filter struct {
	skip   map[string]bool
	labels map[string]string
}

// NewFilter merges a skip list with an optional collections file.
func NewFilter(skip []string, file *CollectionsFile) Filter {
	f := Filter{skip: map[string]bool{}, labels: map[string]string{}}
	for _, k := range skip {
		f.skip[k] = true
	}
	if file != nil {
		for _, c := range file.Collections {
			if c.Skip {
				f.skip[c.Key] = true
			}
			if c.Label != "" {
				f.labels[c.Key] = c.Label
			}
		}
	}
	return f
}

func (f Filter) Include(key string) bool { return !f.skip[key] }

// Label returns the configured label for a collection, or its own name.
func (f Filter) Label(c Collection) string {
	if l, ok := f.labels[c.Key]; ok {
		return l
	}
	if c.Data.Name != "" {
		return c.Data.Name
	}
	return c.Key
}

// Attachment is a downloadable file found in an included collection.
type Attachment struct {
	Collection  string // collection label
	ItemKey     string
	FileKey     string
	Name        string
	ContentType string // links.attachment.attachmentType, e.g. application/pdf
}

var extByContentType = map[string]string{
	"application/pdf":    ".pdf",
	"application/msword": ".doc",
	"text/html":          ".html",
	"text/plain":         ".txt",
	"text/markdown":      ".md",
	"text/csv":           ".csv",

	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
}

// Filename returns Name with an extension derived from ContentType, so the
// partitioner can pick a backend. Unknown types are assumed to be PDF.
func (a Attachment) Filename() string {
	ext, ok := extByContentType[strings.ToLower(strings.TrimSpace(a.ContentType))]
	if !ok {
		ext = ".pdf"
	}
	name := strings.NewReplacer("/", "_", "\\", "_").Replace(a.Name)
	if strings.EqualFold(path.Ext(name), ext) {
		return name
	}
	return name + ext
}

// Attachments lists the attachments of every included collection, in
// collection then item order. Items without an attachment link are skipped.
func (c *Client) Attachments(ctx context.Context, filter Filter, nameField string) ([]Attachment, error) {
	cols, err := c.Collections(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	var out []Attachment
	for _, col := range cols {
		if !filter.Include(col.Key) {
			continue
		}
		items, err := c.CollectionItems(ctx, col.Key)
		if err != nil {
			return nil, fmt.Errorf("list items of %s: %w", col.Key, err)
		}
		for _, item := range items {
			fileKey, ok := AttachmentKey(item)
			if !ok {
				continue
			}
			out = append(out, Attachment{
				Collection:  filter.Label(col),
				ItemKey:     item.Key,
				FileKey:     fileKey,
				Name:        ItemName(item, nameField),
				ContentType: item.Links.Attachment.Type,
			})
		}
	}
	return out, nil
}
