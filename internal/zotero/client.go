// Package zotero reads collections, items and attachment files from the
// Zotero web API.
package zotero

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultBaseURL   = "https://api.zotero.org"
	DefaultNameField = "nameOfAct"
	apiVersion       = "3"
	pageSize         = 100
)

// Config identifies a library and how to reach it.
type Config struct {
	BaseURL     string
	LibraryID   string
	LibraryType string // "user" or "group"
	APIKey      string
}

// Client communicates with the Zotero web API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.LibraryID == "" {
		return nil, fmt.Errorf("zotero library id is required")
	}
	var prefix string
	switch strings.ToLower(cfg.LibraryType) {
	case "", "user":
		prefix = "users"
	case "group":
		prefix = "groups"
	default:
		return nil, fmt.Errorf("unknown zotero library type %q", cfg.LibraryType)
	}
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/") + "/" + prefix + "/" + url.PathEscape(cfg.LibraryID),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}, nil
}

// Collection is a Zotero collection.
type Collection struct {
	Key  string         `json:"key"`
	Data CollectionData `json:"data"`
}

type CollectionData struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Item is a Zotero item. Data holds the item-type specific fields.
type Item struct {
	Key   string         `json:"key"`
	Data  map[string]any `json:"data"`
	Links Links          `json:"links"`
}

type Links struct {
	Attachment *Link `json:"attachment,omitempty"`
}

type Link struct {
	Href string `json:"href"`
	Type string `json:"attachmentType,omitempty"`
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	msg := e.Message
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, msg)
}

// Collections returns every collection in the library.
func (c *Client) Collections(ctx context.Context) ([]Collection, error) {
	cols, err := fetchAll[Collection](ctx, c, "/collections")
	if err != nil {
		return nil, err
	}
	for i := range cols {
		if cols[i].Key == "" {
			cols[i].Key = cols[i].Data.Key
		}
	}
	return cols, nil
}

// CollectionItems returns every item in a collection, following pagination.
func (c *Client) CollectionItems(ctx context.Context, collectionKey string) ([]Item, error) {
	return fetchAll[Item](ctx, c, "/collections/"+url.PathEscape(collectionKey)+"/items")
}

// File downloads the content of an attachment item.
func (c *Client) File(ctx context.Context, itemKey string) ([]byte, error) {
	resp, err := c.get(ctx, "/items/"+url.PathEscape(itemKey)+"/file", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", itemKey, err)
	}
	return data, nil
}

func fetchAll[T any](ctx context.Context, c *Client, p string) ([]T, error) {
	var all []T
	for start := 0; ; {
		q := url.Values{}
		q.Set("start", strconv.Itoa(start))
		q.Set("limit", strconv.Itoa(pageSize))

		resp, err := c.get(ctx, p, q)
		if err != nil {
			return nil, err
		}
		var page []T
		err = json.NewDecoder(resp.Body).Decode(&page)
		total, totalErr := strconv.Atoi(resp.Header.Get("Total-Results"))
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", p, err)
		}

		all = append(all, page...)
		start += len(page)
		switch {
		case len(page) == 0:
			return all, nil
		case totalErr == nil && start >= total:
			return all, nil
		case totalErr != nil && len(page) < pageSize:
			// Without Total-Results a short page is the last one.
			return all, nil
		}
	}
}

func (c *Client) get(ctx context.Context, p string, q url.Values) (*http.Response, error) {
	u := c.baseURL + p
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Zotero-API-Version", apiVersion)
	if c.apiKey != "" {
		req.Header.Set("Zotero-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RetryableError{Message: err.Error()}
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		return nil, &RetryableError{StatusCode: resp.StatusCode, Message: string(body)}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		return nil, fmt.Errorf("get %s: status %d: %s", p, resp.StatusCode, string(body))
	}
	return resp, nil
}

// AttachmentKey returns the key of the item's attachment, taken from the
// last path segment of links.attachment.href.
func AttachmentKey(item Item) (string, bool) {
	if item.Links.Attachment == nil || item.Links.Attachment.Href == "" {
		return "", false
	}
	u, err := url.Parse(item.Links.Attachment.Href)
	if err != nil {
		return "", false
	}
	key := path.Base(u.Path)
	if key == "" || key == "/" || key == "." {
		return "", false
	}
	return key, true
}

// ItemName returns the item's display name from field, falling back to its
// title and then its key.
func ItemName(item Item, field string) string {
	if field == "" {
		field = DefaultNameField
	}
	for _, f := range []string{field, "title"} {
		if s, ok := item.Data[f].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return item.Key
}
