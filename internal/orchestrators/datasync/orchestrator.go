// Package datasync implements the data loading service
package datasync

import (
	"context"
	"log/slog"
	"time"

	"github.com/KirkDiggler/rpg-codex/internal/entities/codex"
	"github.com/KirkDiggler/rpg-codex/internal/errors"
	"github.com/KirkDiggler/rpg-codex/internal/gateway"
	"github.com/KirkDiggler/rpg-codex/internal/pkg/clock"
	"github.com/KirkDiggler/rpg-codex/internal/repositories/storage"
	"github.com/KirkDiggler/rpg-codex/internal/services/datasync"
	"github.com/KirkDiggler/rpg-codex/internal/store"
)

const (
	// DefaultCheckInterval is how often Run checks freshness
	DefaultCheckInterval = time.Hour
	// DefaultStaleAfter is the age at which persisted data is reloaded
	DefaultStaleAfter = 7 * 24 * time.Hour
)

// persisted is the stored form of one data type
type persisted struct {
	Records   []codex.Record `json:"records"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Config holds the dependencies for the data sync orchestrator
type Config struct {
	Gateway gateway.Service
	Store   store.Store
	Storage storage.Repository
	Clock   clock.Clock

	CheckInterval time.Duration
	StaleAfter    time.Duration
}

// Validate ensures all required dependencies are provided and sets defaults
func (c *Config) Validate() error {
	if c == nil {
		return errors.InvalidArgument("config cannot be nil")
	}

	vb := errors.NewValidationBuilder()
	if c.Gateway == nil {
		vb.RequiredField("Gateway")
	}
	if c.Store == nil {
		vb.RequiredField("Store")
	}
	if c.Storage == nil {
		vb.RequiredField("Storage")
	}
	if err := vb.Build(); err != nil {
		return err
	}

	if c.Clock == nil {
		c.Clock = clock.New()
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = DefaultCheckInterval
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = DefaultStaleAfter
	}
	return nil
}

// Orchestrator implements the datasync.Service interface
type Orchestrator struct {
	gateway       gateway.Service
	store         store.Store
	storage       storage.Repository
	clock         clock.Clock
	checkInterval time.Duration
	staleAfter    time.Duration
}

// Ensure Orchestrator implements the Service interface
var _ datasync.Service = (*Orchestrator)(nil)

// New creates a new data sync orchestrator
func New(cfg *Config) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &Orchestrator{
		gateway:       cfg.Gateway,
		store:         cfg.Store,
		storage:       cfg.Storage,
		clock:         cfg.Clock,
		checkInterval: cfg.CheckInterval,
		staleAfter:    cfg.StaleAfter,
	}, nil
}

// Hydrate restores persisted records into the store
func (o *Orchestrator) Hydrate(ctx context.Context, input *datasync.HydrateInput) (*datasync.HydrateOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	lastRefresh, err := o.lastRefresh(ctx)
	if err != nil {
		return nil, err
	}

	output := &datasync.HydrateOutput{Restored: []codex.DataType{}}
	if !o.fresh(lastRefresh) {
		slog.InfoContext(ctx, "persisted data is stale, skipping hydrate",
			"last_refresh", lastRefresh)
		return output, nil
	}
	output.Fresh = true

	for _, t := range codex.AllDataTypes() {
		var entry persisted
		found, err := storage.Load(ctx, o.storage, storage.DataKey(t), &entry)
		if err != nil {
			slog.WarnContext(ctx, "skipping unreadable persisted data",
				"type", t,
				"error", err)
			continue
		}
		if !found || len(entry.Records) == 0 {
			continue
		}

		if err := o.store.Dispatch(store.SetBucketItems{Type: t, Items: entry.Records}); err != nil {
			slog.WarnContext(ctx, "persisted data rejected by store",
				"type", t,
				"error", err)
			continue
		}
		output.Restored = append(output.Restored, t)
	}

	slog.InfoContext(ctx, "hydrated store from local storage",
		"restored", output.Restored)
	return output, nil
}

// Load fetches each type through the gateway in order
func (o *Orchestrator) Load(ctx context.Context, input *datasync.LoadInput) (*datasync.LoadOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	for _, t := range input.Types {
		if !t.Valid() {
			return nil, errors.InvalidArgumentf("unknown data type %q", t)
		}
	}

	output := &datasync.LoadOutput{
		Loaded:   []codex.DataType{},
		Fallback: []codex.DataType{},
	}
	for i, t := range input.Types {
		if i > 0 && input.Stagger > 0 {
			if err := sleep(ctx, input.Stagger); err != nil {
				return output, err
			}
		}

		isFallback, err := o.loadOne(ctx, t)
		if err != nil {
			return output, err
		}
		if isFallback {
			output.Fallback = append(output.Fallback, t)
		} else {
			output.Loaded = append(output.Loaded, t)
		}
	}

	if len(output.Fallback) > 0 && !o.store.GetState().App.FallbackMode {
		if err := o.store.Dispatch(store.SetFallbackMode{Enabled: true}); err != nil {
			return output, err
		}
	}
	return output, nil
}

// loadOne fetches one type, commits it and persists live results
func (o *Orchestrator) loadOne(ctx context.Context, t codex.DataType) (bool, error) {
	if err := o.store.Dispatch(store.SetBucketLoading{Type: t, Loading: true}); err != nil {
		return false, err
	}

	result, err := o.gateway.GetData(ctx, &gateway.GetDataInput{Type: t})
	if err != nil {
		_ = o.store.Dispatch(store.SetBucketError{Type: t, Error: err.Error()})
		return false, errors.Wrapf(err, "failed to load %s", t)
	}

	isFallback := result.Origin == gateway.OriginFallback
	if err := o.store.Dispatch(store.SetBucketItems{
		Type:     t,
		Items:    result.Records,
		Fallback: isFallback,
	}); err != nil {
		return isFallback, err
	}

	if isFallback {
		slog.WarnContext(ctx, "loaded fallback data",
			"type", t,
			"error", result.LastError)
		return true, nil
	}

	now := o.clock.Now()
	if _, err := o.storage.Set(ctx, storage.SetInput{
		Key:   storage.DataKey(t),
		Value: persisted{Records: result.Records, UpdatedAt: now},
	}); err != nil {
		slog.WarnContext(ctx, "failed to persist data", "type", t, "error", err)
		return false, nil
	}
	if _, err := o.storage.Set(ctx, storage.SetInput{
		Key:   storage.KeyLastDataRefresh,
		Value: now,
	}); err != nil {
		slog.WarnContext(ctx, "failed to record refresh time", "error", err)
	}
	return false, nil
}

// Refresh forces a reload of the given types
func (o *Orchestrator) Refresh(ctx context.Context, input *datasync.RefreshInput) (*datasync.RefreshOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	types := input.Types
	if len(types) == 0 {
		types = codex.AllDataTypes()
	}

	if err := o.store.Dispatch(store.InvalidateCache{}); err != nil {
		return nil, err
	}
	for _, t := range types {
		if _, err := o.gateway.ClearCache(ctx, &gateway.ClearCacheInput{Type: t}); err != nil {
			return nil, err
		}
	}

	loaded, err := o.Load(ctx, &datasync.LoadInput{Types: types})
	if err != nil {
		return nil, err
	}

	version := o.store.GetState().Cache.Version + 1
	if err := o.store.Dispatch(store.SetCacheVersion{Version: version}); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "refreshed data",
		"loaded", loaded.Loaded,
		"fallback", loaded.Fallback,
		"cache_version", version)

	return &datasync.RefreshOutput{
		Loaded:       loaded.Loaded,
		Fallback:     loaded.Fallback,
		CacheVersion: version,
	}, nil
}

// Status reports freshness of the persisted data
func (o *Orchestrator) Status(ctx context.Context, input *datasync.StatusInput) (*datasync.StatusOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	lastRefresh, err := o.lastRefresh(ctx)
	if err != nil {
		return nil, err
	}

	output := &datasync.StatusOutput{
		LastRefresh: lastRefresh,
		Fresh:       o.fresh(lastRefresh),
		Types:       make([]datasync.TypeStatus, 0, len(codex.AllDataTypes())),
	}
	for _, t := range codex.AllDataTypes() {
		status := datasync.TypeStatus{Type: t}
		var entry persisted
		found, err := storage.Load(ctx, o.storage, storage.DataKey(t), &entry)
		if err != nil {
			return nil, err
		}
		if found {
			status.Persisted = true
			status.Count = len(entry.Records)
			status.UpdatedAt = entry.UpdatedAt
		}
		output.Types = append(output.Types, status)
	}
	return output, nil
}

// Run refreshes stale data every check interval until ctx is done
func (o *Orchestrator) Run(ctx context.Context) error {
	ticker := time.NewTicker(o.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := o.Check(ctx); err != nil {
				slog.ErrorContext(ctx, "periodic data check failed", "error", err)
			}
		}
	}
}

// Check refreshes every type when the persisted data is stale
func (o *Orchestrator) Check(ctx context.Context) error {
	lastRefresh, err := o.lastRefresh(ctx)
	if err != nil {
		return err
	}
	if o.fresh(lastRefresh) {
		return nil
	}

	slog.InfoContext(ctx, "persisted data is stale, refreshing",
		"last_refresh", lastRefresh)
	_, err = o.Refresh(ctx, &datasync.RefreshInput{})
	return err
}

func (o *Orchestrator) lastRefresh(ctx context.Context) (time.Time, error) {
	var last time.Time
	if _, err := storage.Load(ctx, o.storage, storage.KeyLastDataRefresh, &last); err != nil {
		return time.Time{}, errors.Wrap(err, "failed to read last refresh time")
	}
	return last, nil
}

func (o *Orchestrator) fresh(lastRefresh time.Time) bool {
	return !lastRefresh.IsZero() && o.clock.Now().Sub(lastRefresh) < o.staleAfter
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
