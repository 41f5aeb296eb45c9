// Package wiki reads record tables from the community wiki. It is a best
// effort secondary source: only the first wikitable of each type's page is
// read and rows are mapped by their header names.
package wiki

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/KirkDiggler/rpg-codex/internal/entities/codex"
	"github.com/KirkDiggler/rpg-codex/internal/errors"
	"github.com/KirkDiggler/rpg-codex/internal/pkg/clock"
	"github.com/KirkDiggler/rpg-codex/internal/repositories/storage"
)

const (
	// DefaultBaseURL is the wiki the pages are read from
	DefaultBaseURL = "https://primalfear.wiki.gg"
	// DefaultCacheTTL is how long extracted rows are kept in local storage
	DefaultCacheTTL = 24 * time.Hour
)

// Config contains configuration options for the wiki client.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	// Storage caches extracted rows (optional)
	Storage   storage.Repository
	Clock     clock.Clock
	CacheTTL  time.Duration
	UserAgent string
	MaxBytes  int64
}

// Validate validates the Config and sets defaults if not provided.
func (cfg *Config) Validate() error {
	if cfg == nil {
		return errors.InvalidArgument("config cannot be nil")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	vb := errors.NewValidationBuilder()
	errors.ValidateURL("BaseURL", cfg.BaseURL, vb)
	if err := vb.Build(); err != nil {
		return err
	}

	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "PrimalFearDex-Bot/1.0"
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 16 << 20
	}
	return nil
}

// Client reads record rows from wiki pages
type Client struct {
	baseURL    string
	httpClient *http.Client
	storage    storage.Repository
	clock      clock.Clock
	cacheTTL   time.Duration
	userAgent  string
	maxBytes   int64
}

// cached is the stored form of one extraction
type cached struct {
	FetchedAt time.Time        `json:"fetched_at"`
	Source    string           `json:"source"`
	Rows      []map[string]any `json:"rows"`
}

// New creates a new wiki client with the given configuration.
func New(cfg *Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: cfg.HTTPClient,
		storage:    cfg.Storage,
		clock:      cfg.Clock,
		cacheTTL:   cfg.CacheTTL,
		userAgent:  cfg.UserAgent,
		maxBytes:   cfg.MaxBytes,
	}, nil
}

// Name identifies the source in logs
func (c *Client) Name() string {
	return "wiki:" + c.baseURL
}

// PageURL returns the wiki page read for a data type
func (c *Client) PageURL(dataType codex.DataType) string {
	title := string(dataType)
	if title != "" {
		title = strings.ToUpper(title[:1]) + title[1:]
	}
	return fmt.Sprintf("%s/wiki/%s", c.baseURL, title)
}

// FetchRecords returns the rows of the first wikitable on the type's page as
// raw record objects. Rows cached within the TTL are served from storage.
func (c *Client) FetchRecords(ctx context.Context, dataType codex.DataType) ([]any, error) {
	if !dataType.Valid() {
		return nil, errors.InvalidArgumentf("unknown data type %q", dataType)
	}

	if rows, ok := c.loadCached(ctx, dataType); ok {
		return toAny(rows), nil
	}

	page, err := c.fetchPage(ctx, dataType)
	if err != nil {
		return nil, err
	}

	rows, err := ExtractTable(page, dataType, c.baseURL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to extract %s from %s", dataType, c.PageURL(dataType))
	}

	c.storeCached(ctx, dataType, rows)
	return toAny(rows), nil
}

func (c *Client) fetchPage(ctx context.Context, dataType codex.DataType) (io.Reader, error) {
	url := c.PageURL(dataType)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.WrapWithCodef(err, errors.CodeInvalidArgument, "failed to build request for %s", url)
	}
	req.Header.Set("Accept", "text/html")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		code := errors.GetCode(err)
		if code != errors.CodeDeadlineExceeded && code != errors.CodeCanceled {
			code = errors.CodeUnavailable
		}
		return nil, errors.WrapWithCodef(err, code, "wiki request for %s failed", dataType)
	}
	defer func() {
		_ = resp.Body.Close() // nolint:errcheck
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Newf(errors.CodeUnavailable, "wiki returned %d for %s", resp.StatusCode, url).
			WithMeta("status", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes))
	if err != nil {
		return nil, errors.WrapWithCodef(err, errors.CodeUnavailable, "failed to read wiki page %s", url)
	}
	return bytes.NewReader(body), nil
}

func (c *Client) loadCached(ctx context.Context, dataType codex.DataType) ([]map[string]any, bool) {
	if c.storage == nil {
		return nil, false
	}

	var entry cached
	found, err := storage.Load(ctx, c.storage, storage.WikiKey(dataType), &entry)
	if err != nil {
		slog.WarnContext(ctx, "ignoring unreadable wiki cache",
			"type", dataType,
			"error", err)
		return nil, false
	}
	if !found || c.clock.Now().Sub(entry.FetchedAt) >= c.cacheTTL || len(entry.Rows) == 0 {
		return nil, false
	}

	slog.DebugContext(ctx, "wiki cache hit", "type", dataType, "rows", len(entry.Rows))
	return entry.Rows, true
}

func (c *Client) storeCached(ctx context.Context, dataType codex.DataType, rows []map[string]any) {
	if c.storage == nil {
		return
	}

	_, err := c.storage.Set(ctx, storage.SetInput{
		Key: storage.WikiKey(dataType),
		Value: cached{
			FetchedAt: c.clock.Now(),
			Source:    c.PageURL(dataType),
			Rows:      rows,
		},
		TTL: c.cacheTTL,
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to cache wiki rows",
			"type", dataType,
			"error", err)
	}
}

func toAny(rows []map[string]any) []any {
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out
}
