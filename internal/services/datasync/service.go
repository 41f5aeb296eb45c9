// Package datasync defines the data loading service: hydrating the store from
// local storage, background preloading and periodic resync of stale data.
package datasync

//go:generate mockgen -destination=mock/mock_service.go -package=datasyncmock github.com/KirkDiggler/rpg-codex/internal/services/datasync Service

import (
	"context"
	"time"

	"github.com/KirkDiggler/rpg-codex/internal/entities/codex"
)

// Service loads record data into the store and keeps it fresh
type Service interface {
	// Hydrate fills the store from persisted data when it is still fresh.
	// Nothing is loaded when the last refresh is older than the staleness
	// window.
	Hydrate(ctx context.Context, input *HydrateInput) (*HydrateOutput, error)

	// Load fetches the given types one after another, waiting Stagger
	// between them, and persists live results
	Load(ctx context.Context, input *LoadInput) (*LoadOutput, error)

	// Refresh drops cached data for the given types (all when empty),
	// reloads them and bumps the cache version
	Refresh(ctx context.Context, input *RefreshInput) (*RefreshOutput, error)

	// Status reports the freshness of the persisted data
	Status(ctx context.Context, input *StatusInput) (*StatusOutput, error)

	// Run checks freshness every interval and refreshes stale data until
	// ctx is cancelled
	Run(ctx context.Context) error
}

// HydrateInput defines the request for hydrating the store
type HydrateInput struct{}

// HydrateOutput reports which types were restored
type HydrateOutput struct {
	Restored []codex.DataType
	Fresh    bool
}

// LoadInput defines the request for loading data types
type LoadInput struct {
	Types   []codex.DataType
	Stagger time.Duration
}

// LoadOutput reports how each type was loaded
type LoadOutput struct {
	Loaded   []codex.DataType
	Fallback []codex.DataType
}

// RefreshInput defines the request for a forced reload
type RefreshInput struct {
	Types []codex.DataType
}

// RefreshOutput reports the reload outcome
type RefreshOutput struct {
	Loaded       []codex.DataType
	Fallback     []codex.DataType
	CacheVersion int
}

// StatusInput defines the request for freshness status
type StatusInput struct{}

// StatusOutput reports when data was last refreshed
type StatusOutput struct {
	LastRefresh time.Time    `json:"last_refresh,omitzero"`
	Fresh       bool         `json:"fresh"`
	Types       []TypeStatus `json:"types"`
}

// TypeStatus is the persisted state of one data type
type TypeStatus struct {
	Type      codex.DataType `json:"type"`
	Persisted bool           `json:"persisted"`
	Count     int            `json:"count"`
	UpdatedAt time.Time      `json:"updated_at,omitzero"`
}
