// Package gateway resolves a data-type request to a validated record list,
// hiding transient data source failures behind a cache, retries and a
// deterministic fallback set.
package gateway

//go:generate mockgen -destination=mock/mock_service.go -package=gatewaymock github.com/KirkDiggler/rpg-codex/internal/gateway Service

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/KirkDiggler/rpg-codex/internal/entities/codex"
	"github.com/KirkDiggler/rpg-codex/internal/errors"
	"github.com/KirkDiggler/rpg-codex/internal/fallback"
	"github.com/KirkDiggler/rpg-codex/internal/pkg/clock"
)

const (
	// DefaultTTL is how long a successful fetch is served from cache
	DefaultTTL = 5 * time.Minute
	// DefaultMaxAttempts is the number of primary source attempts per miss
	DefaultMaxAttempts = 3
	// DefaultRequestTimeout bounds a single attempt
	DefaultRequestTimeout = 10 * time.Second
	// DefaultBaseDelay is multiplied by the attempt number between attempts
	DefaultBaseDelay = time.Second

	confidencePrimary   = 1.0
	confidenceSecondary = 0.6
)

// Origin tells where a GetData result came from
type Origin string

// Result origins
const (
	OriginCache     Origin = "cache"
	OriginSource    Origin = "source"
	OriginSecondary Origin = "secondary"
	OriginFallback  Origin = "fallback"
)

// Source serves raw record arrays for a data type
type Source interface {
	FetchRecords(ctx context.Context, dataType codex.DataType) ([]any, error)
	Name() string
}

// Service defines the fetch gateway operations
type Service interface {
	// GetData returns validated records for a type. Source failures never
	// surface as errors: after retries the fixed fallback list is returned.
	// Returns errors.InvalidArgument only for a nil input or unknown type.
	GetData(ctx context.Context, input *GetDataInput) (*GetDataOutput, error)

	// ClearCache drops cached entries for one type, or all types when Type
	// is empty
	ClearCache(ctx context.Context, input *ClearCacheInput) (*ClearCacheOutput, error)

	// Stats reports counters since construction
	Stats() Stats
}

// GetDataInput defines the request for records of one type
type GetDataInput struct {
	Type codex.DataType
	// Options only discriminates cache entries
	Options map[string]string
}

// GetDataOutput defines the response for a records request
type GetDataOutput struct {
	Records    []codex.Record
	Origin     Origin
	Confidence float64
	FetchedAt  time.Time
	// Attempts made against the primary source by this resolution (zero for
	// a cache hit)
	Attempts int
	// LastError is the final source error when Origin is OriginFallback
	LastError error
}

// ClearCacheInput defines the request for cache invalidation
type ClearCacheInput struct {
	Type codex.DataType
}

// ClearCacheOutput defines the response for cache invalidation
type ClearCacheOutput struct {
	Removed int
}

// Stats are monotonically increasing gateway counters
type Stats struct {
	CacheHits   int64 `json:"cache_hits"`
	CacheMisses int64 `json:"cache_misses"`
	Requests    int64 `json:"requests"`
	Fallbacks   int64 `json:"fallbacks"`
}

// Config holds the dependencies for the gateway
type Config struct {
	// Source is the primary data endpoint (required)
	Source Source
	// Secondary is tried once after the primary is exhausted (optional)
	Secondary Source
	// Fallback supplies the bundled records (required)
	Fallback fallback.Provider
	// Clock (optional, defaults to real time)
	Clock clock.Clock

	TTL            time.Duration
	MaxAttempts    int
	RequestTimeout time.Duration
	BaseDelay      time.Duration
}

// Validate ensures all required dependencies are provided and sets defaults
func (c *Config) Validate() error {
	if c == nil {
		return errors.InvalidArgument("config cannot be nil")
	}

	vb := errors.NewValidationBuilder()
	if c.Source == nil {
		vb.RequiredField("Source")
	}
	if c.Fallback == nil {
		vb.RequiredField("Fallback")
	}
	if c.MaxAttempts < 0 {
		vb.Field("MaxAttempts", "cannot be negative")
	}
	if err := vb.Build(); err != nil {
		return err
	}

	if c.Clock == nil {
		c.Clock = clock.New()
	}
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	return nil
}

type cacheEntry struct {
	records    []codex.Record
	timestamp  time.Time
	confidence float64
	origin     Origin
}

type gateway struct {
	source         Source
	secondary      Source
	fallback       fallback.Provider
	clock          clock.Clock
	ttl            time.Duration
	maxAttempts    int
	requestTimeout time.Duration
	baseDelay      time.Duration

	mu    sync.RWMutex
	cache map[string]cacheEntry

	inflight singleflight.Group

	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
	requests    atomic.Int64
	fallbacks   atomic.Int64
}

// New creates a gateway with the provided dependencies
func New(cfg *Config) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &gateway{
		source:         cfg.Source,
		secondary:      cfg.Secondary,
		fallback:       cfg.Fallback,
		clock:          cfg.Clock,
		ttl:            cfg.TTL,
		maxAttempts:    cfg.MaxAttempts,
		requestTimeout: cfg.RequestTimeout,
		baseDelay:      cfg.BaseDelay,
		cache:          make(map[string]cacheEntry),
	}, nil
}

// cacheKey joins the type with the options in sorted key order
func cacheKey(t codex.DataType, options map[string]string) string {
	if len(options) == 0 {
		return string(t)
	}
	values := url.Values{}
	for k, v := range options {
		values.Set(k, v)
	}
	return string(t) + "?" + values.Encode()
}

func (g *gateway) GetData(ctx context.Context, input *GetDataInput) (*GetDataOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	if !input.Type.Valid() {
		return nil, errors.InvalidArgumentf("unknown data type %q", input.Type)
	}

	key := cacheKey(input.Type, input.Options)
	if out, ok := g.lookup(key); ok {
		g.cacheHits.Add(1)
		slog.DebugContext(ctx, "gateway cache hit", "type", input.Type, "key", key)
		return out, nil
	}
	g.cacheMisses.Add(1)

	// The shared resolution outlives any single caller; a navigation that is
	// abandoned still fills the cache.
	shared := context.WithoutCancel(ctx)
	ch := g.inflight.DoChan(key, func() (any, error) {
		return g.resolve(shared, key, input.Type), nil
	})

	select {
	case res := <-ch:
		out := *res.Val.(*GetDataOutput)
		out.Records = codex.CloneRecords(out.Records)
		return &out, nil
	case <-ctx.Done():
		g.fallbacks.Add(1)
		slog.WarnContext(ctx, "gateway caller gave up, serving fallback",
			"type", input.Type,
			"error", ctx.Err())
		return &GetDataOutput{
			Records:   g.fallback.Records(input.Type),
			Origin:    OriginFallback,
			FetchedAt: g.clock.Now(),
			LastError: ctx.Err(),
		}, nil
	}
}

func (g *gateway) lookup(key string) (*GetDataOutput, bool) {
	g.mu.RLock()
	entry, ok := g.cache[key]
	g.mu.RUnlock()

	if !ok || g.clock.Now().Sub(entry.timestamp) >= g.ttl {
		return nil, false
	}

	return &GetDataOutput{
		Records:    codex.CloneRecords(entry.records),
		Origin:     OriginCache,
		Confidence: entry.confidence,
		FetchedAt:  entry.timestamp,
	}, true
}

func (g *gateway) store(key string, records []codex.Record, origin Origin, confidence float64) time.Time {
	now := g.clock.Now()
	g.mu.Lock()
	g.cache[key] = cacheEntry{
		records:    records,
		timestamp:  now,
		confidence: confidence,
		origin:     origin,
	}
	g.mu.Unlock()
	return now
}

// resolve runs the attempt loop for one cache key. It always produces a
// result.
func (g *gateway) resolve(ctx context.Context, key string, dataType codex.DataType) *GetDataOutput {
	if out, ok := g.lookup(key); ok {
		return out
	}

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		attempts = attempt
		records, err := g.attempt(ctx, g.source, dataType)
		if err == nil {
			fetchedAt := g.store(key, records, OriginSource, confidencePrimary)
			slog.InfoContext(ctx, "gateway fetched records",
				"type", dataType,
				"source", g.source.Name(),
				"count", len(records),
				"attempt", attempt)
			return &GetDataOutput{
				Records:    records,
				Origin:     OriginSource,
				Confidence: confidencePrimary,
				FetchedAt:  fetchedAt,
				Attempts:   attempt,
			}
		}

		lastErr = err
		slog.WarnContext(ctx, "gateway fetch attempt failed",
			"type", dataType,
			"source", g.source.Name(),
			"attempt", attempt,
			"max_attempts", g.maxAttempts,
			"error", err)

		if attempt < g.maxAttempts {
			g.wait(ctx, time.Duration(attempt)*g.baseDelay)
		}
	}

	if g.secondary != nil {
		records, err := g.attempt(ctx, g.secondary, dataType)
		if err == nil {
			fetchedAt := g.store(key, records, OriginSecondary, confidenceSecondary)
			slog.InfoContext(ctx, "gateway served secondary source",
				"type", dataType,
				"source", g.secondary.Name(),
				"count", len(records))
			return &GetDataOutput{
				Records:    records,
				Origin:     OriginSecondary,
				Confidence: confidenceSecondary,
				FetchedAt:  fetchedAt,
				Attempts:   attempts,
				LastError:  lastErr,
			}
		}
		slog.WarnContext(ctx, "gateway secondary source failed",
			"type", dataType,
			"source", g.secondary.Name(),
			"error", err)
	}

	g.fallbacks.Add(1)
	slog.WarnContext(ctx, "gateway serving fallback data",
		"type", dataType,
		"attempts", attempts,
		"error", lastErr)

	return &GetDataOutput{
		Records:   g.fallback.Records(dataType),
		Origin:    OriginFallback,
		FetchedAt: g.clock.Now(),
		Attempts:  attempts,
		LastError: lastErr,
	}
}

// attempt performs one bounded fetch + validation. An empty valid set is a
// failure.
func (g *gateway) attempt(ctx context.Context, src Source, dataType codex.DataType) ([]codex.Record, error) {
	g.requests.Add(1)

	attemptCtx, cancel := context.WithTimeout(ctx, g.requestTimeout)
	defer cancel()

	raw, err := src.FetchRecords(attemptCtx, dataType)
	if err != nil {
		return nil, err
	}

	records := Materialize(dataType, raw)
	if len(records) == 0 {
		return nil, errors.DataLossf("no valid %s records in %d received", dataType, len(raw)).
			WithMeta("type", string(dataType))
	}
	if dropped := len(raw) - len(records); dropped > 0 {
		slog.DebugContext(ctx, "gateway dropped invalid records",
			"type", dataType,
			"dropped", dropped)
	}
	return records, nil
}

func (g *gateway) wait(ctx context.Context, d time.Duration) {
	select {
	case <-g.clock.After(d):
	case <-ctx.Done():
	}
}

func (g *gateway) ClearCache(_ context.Context, input *ClearCacheInput) (*ClearCacheOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	if input.Type != "" && !input.Type.Valid() {
		return nil, errors.InvalidArgumentf("unknown data type %q", input.Type)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	removed := 0
	for key := range g.cache {
		if input.Type == "" || key == string(input.Type) || hasTypePrefix(key, input.Type) {
			delete(g.cache, key)
			removed++
		}
	}

	return &ClearCacheOutput{Removed: removed}, nil
}

func hasTypePrefix(key string, t codex.DataType) bool {
	prefix := string(t) + "?"
	return len(key) > len(prefix) && key[:len(prefix)] == prefix
}

func (g *gateway) Stats() Stats {
	return Stats{
		CacheHits:   g.cacheHits.Load(),
		CacheMisses: g.cacheMisses.Load(),
		Requests:    g.requests.Load(),
		Fallbacks:   g.fallbacks.Load(),
	}
}
