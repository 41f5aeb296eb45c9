package store

import (
	"log/slog"
	"maps"
	"time"

	"github.com/KirkDiggler/rpg-codex/internal/entities/codex"
)

// Reduce applies a to s and returns the next state. Only the subtree an
// action touches is copied; s itself is never modified. A nil action returns
// s unchanged.
func Reduce(s State, a Action, now time.Time) State {
	switch act := a.(type) {
	case SetBucketItems:
		b := s.Data[act.Type]
		b.Items = act.Items
		b.Loading = false
		b.Error = ""
		b.Fallback = act.Fallback
		b.LastUpdate = now
		return s.withBucket(act.Type, b)

	case SetBucketLoading:
		b := s.Data[act.Type]
		b.Loading = act.Loading
		return s.withBucket(act.Type, b)

	case SetBucketError:
		b := s.Data[act.Type]
		b.Loading = false
		b.Error = act.Error
		return s.withBucket(act.Type, b)

	case SetLoading:
		s.UI.Loading = act.Loading

	case SetCurrentView:
		s.UI.CurrentView = act.View
		s.UI.ViewParams = maps.Clone(act.Params)

	case SetFilters:
		s.UI.Filters = act.Filters.Clone()

	case ClearFilters:
		s.UI.Filters = codex.Filters{}

	case SetSearch:
		s.UI.SearchQuery = act.Query
		s.UI.SearchResults = act.Results

	case ToggleSidebar:
		s.UI.SidebarOpen = !s.UI.SidebarOpen

	case SetAppInitialized:
		s.App.Initialized = true
		s.App.LastUpdate = now

	case SetAppReady:
		s.App.Ready = act.Ready
		s.App.LastUpdate = now

	case SetFallbackMode:
		s.App.FallbackMode = act.Enabled

	case SetAppError:
		s.App.Error = act.Error

	case SetCacheVersion:
		s.Cache.Version = act.Version
		s.Cache.Invalidated = false

	case InvalidateCache:
		s.Cache.Invalidated = true
		s.Cache.InvalidatedAt = now

	default:
		slog.Warn("ignoring unknown action", "action", a)
	}

	return s
}
