package router

import (
	"context"
	"io"
	"maps"

	"github.com/KirkDiggler/rpg-codex/internal/store"
)

// View renders one page of content into the container
type View interface {
	Render(ctx context.Context, container io.Writer, st store.Store, params Params) error
}

// ViewFunc adapts a function to View
type ViewFunc func(ctx context.Context, container io.Writer, st store.Store, params Params) error

// Render implements View
func (f ViewFunc) Render(ctx context.Context, container io.Writer, st store.Store, params Params) error {
	return f(ctx, container, st, params)
}

// StateObserver is implemented by views that re-render on state changes.
// OnStateChange reports whether the current content is out of date.
type StateObserver interface {
	OnStateChange(state store.State) bool
}

// ScrollBehavior tells the page where to leave the viewport after a
// navigation
type ScrollBehavior string

// Scroll behaviors
const (
	ScrollAuto     ScrollBehavior = "auto"
	ScrollTop      ScrollBehavior = "top"
	ScrollPreserve ScrollBehavior = "preserve"
)

// Document is the page metadata owned by the router
type Document struct {
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	OpenGraph   map[string]string `json:"open_graph,omitempty"`
}

func (d Document) clone() Document {
	d.OpenGraph = maps.Clone(d.OpenGraph)
	return d
}

// Page is a committed render of the current route
type Page struct {
	Path     string         `json:"path"`
	ViewID   string         `json:"view_id"`
	Content  string         `json:"content"`
	Document Document       `json:"document"`
	Scroll   ScrollBehavior `json:"scroll"`
}
