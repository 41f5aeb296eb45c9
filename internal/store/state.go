package store

import (
	"time"

	"github.com/KirkDiggler/rpg-codex/internal/entities/codex"
)

// DefaultView is the current view of a fresh state
const DefaultView = "home"

// Bucket holds the loaded records for one data type. An empty Items slice
// means nothing is loaded; Items is never nil in a committed state.
type Bucket struct {
	Items      []codex.Record `json:"items"`
	Loading    bool           `json:"loading"`
	Error      string         `json:"error,omitempty"`
	LastUpdate time.Time      `json:"last_update,omitzero"`
	Fallback   bool           `json:"fallback"`
}

// UIState is the navigation and presentation slice of the state
type UIState struct {
	Loading       bool              `json:"loading"`
	CurrentView   string            `json:"current_view"`
	ViewParams    map[string]string `json:"view_params,omitempty"`
	Filters       codex.Filters     `json:"filters"`
	SearchQuery   string            `json:"search_query"`
	SearchResults []codex.Record    `json:"search_results"`
	SidebarOpen   bool              `json:"sidebar_open"`
}

// AppState holds application lifecycle flags
type AppState struct {
	Initialized  bool      `json:"initialized"`
	Ready        bool      `json:"ready"`
	FallbackMode bool      `json:"fallback_mode"`
	Error        string    `json:"error,omitempty"`
	Version      string    `json:"version"`
	LastUpdate   time.Time `json:"last_update,omitzero"`
}

// CacheState tracks the version of the persisted data set
type CacheState struct {
	Version       int       `json:"version"`
	Invalidated   bool      `json:"invalidated"`
	InvalidatedAt time.Time `json:"invalidated_at,omitzero"`
}

// State is the single application state tree. A State handed out by the
// store is a snapshot; its maps and slices are shared with later states and
// must be treated as read-only.
type State struct {
	Data  map[codex.DataType]Bucket `json:"data"`
	UI    UIState                   `json:"ui"`
	App   AppState                  `json:"app"`
	Cache CacheState                `json:"cache"`
}

// InitialState returns the empty state for an application version
func InitialState(version string) State {
	data := make(map[codex.DataType]Bucket, len(codex.AllDataTypes()))
	for _, t := range codex.AllDataTypes() {
		data[t] = Bucket{Items: []codex.Record{}}
	}

	return State{
		Data: data,
		UI: UIState{
			CurrentView:   DefaultView,
			Filters:       codex.Filters{},
			SearchResults: []codex.Record{},
		},
		App: AppState{Version: version},
	}
}

// Bucket returns the bucket for t, or an empty bucket for an unknown type
func (s State) Bucket(t codex.DataType) Bucket {
	if b, ok := s.Data[t]; ok {
		return b
	}
	return Bucket{Items: []codex.Record{}}
}

// withBucket returns a copy of s whose Data map is cloned and has b under t
func (s State) withBucket(t codex.DataType, b Bucket) State {
	data := make(map[codex.DataType]Bucket, len(s.Data)+1)
	for k, v := range s.Data {
		data[k] = v
	}
	data[t] = b
	s.Data = data
	return s
}
