// Package datasource is the HTTP client for the record data endpoint
// (GET {base}/{type}.json).
package datasource

//go:generate mockgen -destination=mock/mock_client.go -package=datasourcemock github.com/KirkDiggler/rpg-codex/internal/clients/datasource Client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/KirkDiggler/rpg-codex/internal/entities/codex"
	"github.com/KirkDiggler/rpg-codex/internal/errors"
)

// Client fetches raw record arrays from a data source
type Client interface {
	// FetchRecords returns the elements of the top-level JSON array served
	// for the data type. Elements are returned undecoded beyond generic JSON;
	// schema validation is the caller's concern.
	FetchRecords(ctx context.Context, dataType codex.DataType) ([]any, error)

	// Name identifies the source in logs
	Name() string
}

// Config contains configuration options for the data source client.
type Config struct {
	// BaseURL of the data endpoint, e.g. http://localhost:8081/data
	BaseURL string
	// HTTPClient (optional, defaults to a client without its own timeout;
	// callers bound each request with a context deadline)
	HTTPClient *http.Client
	// MaxBytes caps the response body (optional, defaults to 8MB)
	MaxBytes int64
	// UserAgent sent with requests (optional)
	UserAgent string
}

// Validate validates the Config and sets defaults if not provided.
func (cfg *Config) Validate() error {
	if cfg == nil {
		return errors.InvalidArgument("config cannot be nil")
	}

	vb := errors.NewValidationBuilder()
	errors.ValidateURL("BaseURL", cfg.BaseURL, vb)
	if err := vb.Build(); err != nil {
		return err
	}

	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 8 << 20
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "rpg-codex/1.0"
	}
	return nil
}

type client struct {
	baseURL    string
	httpClient *http.Client
	maxBytes   int64
	userAgent  string
}

// New creates a new data source client with the given configuration.
func New(cfg *Config) (Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: cfg.HTTPClient,
		maxBytes:   cfg.MaxBytes,
		userAgent:  cfg.UserAgent,
	}, nil
}

func (c *client) Name() string {
	return c.baseURL
}

func (c *client) FetchRecords(ctx context.Context, dataType codex.DataType) ([]any, error) {
	url := fmt.Sprintf("%s/%s.json", c.baseURL, dataType)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.WrapWithCodef(err, errors.CodeInvalidArgument, "failed to build request for %s", dataType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		code := errors.GetCode(err)
		if code != errors.CodeDeadlineExceeded && code != errors.CodeCanceled {
			code = errors.CodeUnavailable
		}
		return nil, errors.WrapWithCodef(err, code, "request for %s failed", dataType).
			WithMeta("type", string(dataType))
	}
	defer func() {
		_ = resp.Body.Close() // nolint:errcheck // body fully read or abandoned
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		code := errors.CodeUnavailable
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			code = errors.CodeResourceExhausted
		case resp.StatusCode == http.StatusNotFound:
			code = errors.CodeNotFound
		}
		return nil, errors.Newf(code, "data source returned %d for %s", resp.StatusCode, dataType).
			WithMeta("type", string(dataType)).
			WithMeta("status", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, errors.WrapWithCodef(err, errors.CodeUnavailable, "failed to read %s response", dataType)
	}
	if int64(len(body)) > c.maxBytes {
		return nil, errors.Newf(errors.CodeDataLoss, "%s response exceeds %d bytes", dataType, c.maxBytes)
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.WrapWithCodef(err, errors.CodeDataLoss, "malformed JSON for %s", dataType)
	}

	items, ok := payload.([]any)
	if !ok {
		return nil, errors.DataLossf("expected a JSON array for %s, got %T", dataType, payload)
	}

	return items, nil
}
