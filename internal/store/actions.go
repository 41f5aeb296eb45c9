package store

import (
	"github.com/KirkDiggler/rpg-codex/internal/entities/codex"
)

// Action is a state transition request. The set of actions is closed: only
// the types in this file implement it.
type Action interface {
	// Name identifies the action in logs and history
	Name() string
	sealed()
}

type action struct{}

func (action) sealed() {}

// SetBucketItems replaces the records of one bucket wholesale and clears its
// loading and error flags
type SetBucketItems struct {
	action
	Type     codex.DataType
	Items    []codex.Record
	Fallback bool
}

// Name implements Action
func (SetBucketItems) Name() string { return "data/setItems" }

// SetBucketLoading flags one bucket as loading
type SetBucketLoading struct {
	action
	Type    codex.DataType
	Loading bool
}

// Name implements Action
func (SetBucketLoading) Name() string { return "data/setLoading" }

// SetBucketError records a load failure for one bucket
type SetBucketError struct {
	action
	Type  codex.DataType
	Error string
}

// Name implements Action
func (SetBucketError) Name() string { return "data/setError" }

// SetLoading sets the global loading flag
type SetLoading struct {
	action
	Loading bool
}

// Name implements Action
func (SetLoading) Name() string { return "ui/setLoading" }

// SetCurrentView records the rendered view and its route parameters
type SetCurrentView struct {
	action
	View   string
	Params map[string]string
}

// Name implements Action
func (SetCurrentView) Name() string { return "ui/setCurrentView" }

// SetFilters replaces the active filter set
type SetFilters struct {
	action
	Filters codex.Filters
}

// Name implements Action
func (SetFilters) Name() string { return "ui/setFilters" }

// ClearFilters empties the active filter set
type ClearFilters struct {
	action
}

// Name implements Action
func (ClearFilters) Name() string { return "ui/clearFilters" }

// SetSearch stores a search query with its results
type SetSearch struct {
	action
	Query   string
	Results []codex.Record
}

// Name implements Action
func (SetSearch) Name() string { return "ui/setSearch" }

// ToggleSidebar flips the sidebar open flag
type ToggleSidebar struct {
	action
}

// Name implements Action
func (ToggleSidebar) Name() string { return "ui/toggleSidebar" }

// SetAppInitialized marks bootstrap as started
type SetAppInitialized struct {
	action
}

// Name implements Action
func (SetAppInitialized) Name() string { return "app/setInitialized" }

// SetAppReady sets the ready flag
type SetAppReady struct {
	action
	Ready bool
}

// Name implements Action
func (SetAppReady) Name() string { return "app/setReady" }

// SetFallbackMode flags that some data is served from the bundled set
type SetFallbackMode struct {
	action
	Enabled bool
}

// Name implements Action
func (SetFallbackMode) Name() string { return "app/setFallbackMode" }

// SetAppError records an application level error; an empty Error clears it
type SetAppError struct {
	action
	Error string
}

// Name implements Action
func (SetAppError) Name() string { return "app/setError" }

// SetCacheVersion records a new persisted data version
type SetCacheVersion struct {
	action
	Version int
}

// Name implements Action
func (SetCacheVersion) Name() string { return "cache/updateVersion" }

// InvalidateCache marks the persisted data as stale
type InvalidateCache struct {
	action
}

// Name implements Action
func (InvalidateCache) Name() string { return "cache/invalidate" }
