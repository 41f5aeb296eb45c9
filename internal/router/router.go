// Package router maps paths to views and drives each navigation through
// validation, data loading, rendering and metadata updates.
package router

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"maps"
	"net/url"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/KirkDiggler/rpg-codex/internal/entities/codex"
	"github.com/KirkDiggler/rpg-codex/internal/errors"
	"github.com/KirkDiggler/rpg-codex/internal/gateway"
	"github.com/KirkDiggler/rpg-codex/internal/pkg/clock"
	"github.com/KirkDiggler/rpg-codex/internal/pkg/idgen"
	"github.com/KirkDiggler/rpg-codex/internal/store"
)

const (
	// DefaultSiteName is appended to every document title
	DefaultSiteName = "Primal Fear Dex"
	// SearchQueryKey is the query string key holding the free text search
	SearchQueryKey = "q"

	maxErrorRecords = 10
)

// Phase is a step of the navigation lifecycle
type Phase string

// Navigation phases
const (
	PhaseIdle       Phase = "idle"
	PhaseValidating Phase = "validating"
	PhaseLoading    Phase = "loading"
	PhaseRendering  Phase = "rendering"
	PhaseMetadata   Phase = "metadata"
	PhaseDone       Phase = "done"
	PhaseError      Phase = "error"
)

// Navigation is the committed current route
type Navigation struct {
	ID        string
	Path      string
	Params    Params
	Route     *Route
	Timestamp time.Time
}

// NavigateInput defines a navigation request
type NavigateInput struct {
	// Path may carry a query string, which becomes the active filters
	Path   string
	Params Params
	Scroll ScrollBehavior
	// Replace overwrites the current history entry instead of pushing
	Replace bool
}

// NavigateOutput describes how a navigation ended
type NavigateOutput struct {
	ID       string
	Path     string
	Route    *Route
	Params   Params
	Phase    Phase
	Trace    []Phase
	Content  string
	Document Document
	Scroll   ScrollBehavior
	// Err is set when Phase is PhaseError
	Err error
	// Blocked is set when BeforeNavigate vetoed the navigation
	Blocked bool
	// Superseded is set when a newer navigation started before this one
	// committed
	Superseded bool
}

func (o *NavigateOutput) enter(p Phase) {
	o.Phase = p
	o.Trace = append(o.Trace, p)
}

// ErrorRecord is a navigation failure kept for diagnostics
type ErrorRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`
	Context   string    `json:"context"`
	Message   string    `json:"message"`
}

// Router defines the view routing operations
type Router interface {
	// Register adds a route. Registration order decides pattern precedence.
	Register(route Route) error
	Routes() []Route

	// Navigate never fails: every error ends in rendered content, either the
	// not-found view, a scoped error panel or the generic error page
	Navigate(ctx context.Context, input *NavigateInput) *NavigateOutput
	Resolve(path string) (*Route, Params, bool)

	// HandlePopState re-navigates to a history location without pushing
	HandlePopState(ctx context.Context, path string) *NavigateOutput
	// HandleLinkClick navigates for internal links; it reports false when the
	// link is left to the browser
	HandleLinkClick(ctx context.Context, href string, optOut bool) (*NavigateOutput, bool)
	Back(ctx context.Context) (*NavigateOutput, bool)

	Current() *Navigation
	Page() Page
	Document() Document
	History() History
	Errors() []ErrorRecord

	// OnPage is called after every committed render
	OnPage(fn func(Page)) (unsubscribe func())

	// Close detaches the router from the store
	Close()
}

// Config holds the dependencies for the router
type Config struct {
	Store   store.Store
	Gateway gateway.Service
	// History (optional, defaults to an in-memory history)
	History     History
	Clock       clock.Clock
	IDGenerator idgen.Generator
	SiteName    string
	// BaseURL prefixes og:url
	BaseURL string
}

// Validate ensures all required dependencies are provided and sets defaults
func (c *Config) Validate() error {
	if c == nil {
		return errors.InvalidArgument("config cannot be nil")
	}

	vb := errors.NewValidationBuilder()
	if c.Store == nil {
		vb.RequiredField("Store")
	}
	if c.Gateway == nil {
		vb.RequiredField("Gateway")
	}
	if err := vb.Build(); err != nil {
		return err
	}

	if c.History == nil {
		c.History = NewMemoryHistory()
	}
	if c.Clock == nil {
		c.Clock = clock.New()
	}
	if c.IDGenerator == nil {
		c.IDGenerator = idgen.NewUUID("nav")
	}
	if c.SiteName == "" {
		c.SiteName = DefaultSiteName
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
	return nil
}

type pageListener struct {
	id uint64
	fn func(Page)
}

type router struct {
	store    store.Store
	gateway  gateway.Service
	history  History
	clock    clock.Clock
	ids      idgen.Generator
	siteName string
	baseURL  string

	// epoch identifies the newest navigation; older ones may not commit
	epoch atomic.Uint64
	// active counts navigations in flight
	active atomic.Int32

	mu        sync.RWMutex
	routes    map[string]*Route
	order     []*Route
	current   *Navigation
	page      Page
	errs      []ErrorRecord
	listeners []pageListener
	nextID    uint64

	unsubscribe func()
}

// New creates a router bound to the store
func New(cfg *Config) (Router, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	r := &router{
		store:    cfg.Store,
		gateway:  cfg.Gateway,
		history:  cfg.History,
		clock:    cfg.Clock,
		ids:      cfg.IDGenerator,
		siteName: cfg.SiteName,
		baseURL:  cfg.BaseURL,
		routes:   make(map[string]*Route),
		page:     Page{Document: Document{Title: cfg.SiteName}, Scroll: ScrollAuto},
	}
	r.unsubscribe = cfg.Store.Subscribe(r.onStateChange)

	return r, nil
}

func (r *router) Register(route Route) error {
	if err := route.validate(); err != nil {
		return errors.Wrapf(err, "invalid route %q", route.Pattern)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.routes[route.Pattern]; exists {
		return errors.Newf(errors.CodeAlreadyExists, "route %q already registered", route.Pattern)
	}
	rt := route
	rt.RequiredData = append([]codex.DataType(nil), route.RequiredData...)
	r.routes[rt.Pattern] = &rt
	r.order = append(r.order, &rt)
	return nil
}

func (r *router) Routes() []Route {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Route, len(r.order))
	for i, rt := range r.order {
		out[i] = *rt
	}
	return out
}

// Resolve matches an exact pattern first, then the first registered pattern
// with the same segment count whose literal segments are equal.
func (r *router) Resolve(path string) (*Route, Params, bool) {
	path, _ = splitQuery(path)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if rt, ok := r.routes[path]; ok {
		params, _ := matchPattern(rt.Pattern, path)
		return rt, params, true
	}
	for _, rt := range r.order {
		if params, ok := matchPattern(rt.Pattern, path); ok {
			return rt, params, true
		}
	}
	return nil, nil, false
}

func (r *router) Navigate(ctx context.Context, input *NavigateInput) *NavigateOutput {
	if input == nil {
		input = &NavigateInput{}
	}
	return r.navigate(ctx, input, false)
}

func (r *router) HandlePopState(ctx context.Context, path string) *NavigateOutput {
	return r.navigate(ctx, &NavigateInput{Path: path, Scroll: ScrollPreserve}, true)
}

func (r *router) HandleLinkClick(ctx context.Context, href string, optOut bool) (*NavigateOutput, bool) {
	if optOut || !strings.HasPrefix(href, "/") || strings.Contains(href, "//") {
		return nil, false
	}
	return r.Navigate(ctx, &NavigateInput{Path: href}), true
}

func (r *router) Back(ctx context.Context) (*NavigateOutput, bool) {
	entry, ok := r.history.Back()
	if !ok {
		return nil, false
	}
	return r.HandlePopState(ctx, entry.Path), true
}

func (r *router) navigate(ctx context.Context, input *NavigateInput, pop bool) (out *NavigateOutput) {
	start := r.clock.Now()
	var epoch uint64
	r.active.Add(1)
	defer r.active.Add(-1)

	path, rawQuery := splitQuery(input.Path)
	out = &NavigateOutput{
		ID:     r.ids.Generate(),
		Path:   path,
		Phase:  PhaseIdle,
		Trace:  []Phase{PhaseIdle},
		Scroll: input.Scroll,
	}
	if out.Scroll == "" {
		out.Scroll = ScrollAuto
	}

	loading := false
	committed := false
	defer func() {
		if rec := recover(); rec != nil {
			err := errors.Internalf("navigation to %s failed: %v", path, rec)
			slog.ErrorContext(ctx, "navigation panicked",
				"path", path,
				"panic", fmt.Sprint(rec),
				"stack", string(debug.Stack()))
			r.recordError(path, "navigation", err)

			var buf bytes.Buffer
			writeGenericError(&buf, input.Path, err)
			out.enter(PhaseError)
			out.Err = err
			out.Content = buf.String()
			out.Document = r.documentFor(nil, path)
			if epoch == 0 {
				epoch = r.epoch.Add(1)
			}
			r.commit(ctx, epoch, out, input.Replace || committed, pop)
		}
		// the last navigation standing clears the flag even when superseded
		if loading && (r.isCurrent(epoch) || r.active.Load() == 1) {
			r.dispatch(ctx, store.SetLoading{Loading: false})
		}
	}()

	// validating
	out.enter(PhaseValidating)
	route, pathParams, ok := r.Resolve(path)
	if !ok {
		epoch = r.epoch.Add(1)
		return r.notFound(ctx, epoch, out, input, pop)
	}

	params := Params{}
	maps.Copy(params, input.Params)
	maps.Copy(params, pathParams)
	out.Route = route
	out.Params = params

	if route.BeforeNavigate != nil {
		allowed, err := route.BeforeNavigate(ctx, params)
		if err != nil || !allowed {
			return r.blocked(ctx, out, err)
		}
	}

	// a vetoed navigation never supersedes the one in flight
	epoch = r.epoch.Add(1)
	r.applyQuery(ctx, rawQuery)

	// loading
	out.enter(PhaseLoading)
	r.dispatch(ctx, store.SetLoading{Loading: true})
	loading = true
	if !r.preload(ctx, epoch, route.RequiredData) {
		return r.superseded(ctx, out)
	}

	// rendering
	out.enter(PhaseRendering)
	r.dispatch(ctx, store.SetCurrentView{View: route.ViewID, Params: params})

	var buf bytes.Buffer
	if err := r.render(ctx, &buf, route, params); err != nil {
		slog.ErrorContext(ctx, "view render failed",
			"path", path,
			"view", route.ViewID,
			"error", err)
		r.recordError(path, "render", err)

		buf.Reset()
		writeComponentError(&buf, route, input.Path, err)
		out.enter(PhaseError)
		out.Err = errors.WrapWithCode(err, errors.CodeInternal, "render failed").
			WithMeta("view", route.ViewID)
		out.Content = buf.String()
		out.Document = r.documentFor(route, path)
		if !r.commit(ctx, epoch, out, input.Replace, pop) {
			return r.superseded(ctx, out)
		}
		loading = false
		return out
	}

	// metadata
	out.enter(PhaseMetadata)
	out.Document = r.documentFor(route, path)
	out.Content = buf.String()

	// done
	out.enter(PhaseDone)
	if !r.commit(ctx, epoch, out, input.Replace, pop) {
		return r.superseded(ctx, out)
	}
	committed = true
	loading = false

	if route.AfterNavigate != nil {
		if err := route.AfterNavigate(ctx, params); err != nil {
			slog.WarnContext(ctx, "after navigate hook failed",
				"path", path,
				"view", route.ViewID,
				"error", err)
		}
	}

	slog.InfoContext(ctx, "navigation complete",
		"path", path,
		"view", route.ViewID,
		"duration", r.clock.Now().Sub(start))

	return out
}

// applyQuery turns the query string into the active filters and search query
func (r *router) applyQuery(ctx context.Context, rawQuery string) {
	filters, err := codex.ParseFilters(rawQuery, SearchQueryKey)
	if err != nil {
		slog.WarnContext(ctx, "ignoring malformed query string",
			"query", rawQuery,
			"error", err)
		r.dispatch(ctx, store.SetFilters{Filters: codex.Filters{}})
		return
	}
	r.dispatch(ctx, store.SetFilters{Filters: filters})

	values, _ := url.ParseQuery(rawQuery)
	query := strings.TrimSpace(values.Get(SearchQueryKey))
	if query != r.store.GetState().UI.SearchQuery {
		r.dispatch(ctx, store.SetSearch{Query: query, Results: []codex.Record{}})
	}
}

// preload fetches every required type concurrently and waits for all of
// them. It reports false when a newer navigation started meanwhile or the
// caller went away; the results then stay in the gateway cache but are not
// committed.
func (r *router) preload(ctx context.Context, epoch uint64, types []codex.DataType) bool {
	if len(types) == 0 {
		return r.isCurrent(epoch)
	}

	results := make([]*gateway.GetDataOutput, len(types))
	errs := make([]error, len(types))

	var g errgroup.Group
	for i, t := range types {
		g.Go(func() error {
			results[i], errs[i] = r.gateway.GetData(ctx, &gateway.GetDataInput{Type: t})
			return nil
		})
	}
	_ = g.Wait()

	if !r.isCurrent(epoch) || ctx.Err() != nil {
		slog.InfoContext(ctx, "discarding results of abandoned navigation",
			"types", types)
		return false
	}

	fallback := false
	for i, t := range types {
		if errs[i] != nil {
			r.dispatch(ctx, store.SetBucketError{Type: t, Error: errs[i].Error()})
			continue
		}
		isFallback := results[i].Origin == gateway.OriginFallback
		fallback = fallback || isFallback
		r.dispatch(ctx, store.SetBucketItems{
			Type:     t,
			Items:    results[i].Records,
			Fallback: isFallback,
		})
	}
	if fallback && !r.store.GetState().App.FallbackMode {
		r.dispatch(ctx, store.SetFallbackMode{Enabled: true})
	}
	return true
}

func (r *router) render(ctx context.Context, w *bytes.Buffer, route *Route, params Params) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Internalf("view %s panicked: %v", route.ViewID, rec)
		}
	}()
	return route.View.Render(ctx, w, r.store, params)
}

func (r *router) notFound(ctx context.Context, epoch uint64, out *NavigateOutput, input *NavigateInput, pop bool) *NavigateOutput {
	err := errors.NotFoundf("route not found: %s", out.Path).
		WithMeta("path", out.Path)
	slog.WarnContext(ctx, "route not found", "path", out.Path)
	r.recordError(out.Path, "routing", err)

	out.enter(PhaseError)
	out.Err = err

	var buf bytes.Buffer
	r.mu.RLock()
	nf, ok := r.routes[NotFoundPattern]
	r.mu.RUnlock()

	if ok {
		params := Params{"originalPath": out.Path, "error": err.Error()}
		r.dispatch(ctx, store.SetCurrentView{View: nf.ViewID, Params: params})
		if rerr := r.render(ctx, &buf, nf, params); rerr != nil {
			buf.Reset()
			writeGenericError(&buf, "/", rerr)
		}
		out.Route = nf
		out.Params = params
		out.Document = r.documentFor(nf, out.Path)
	} else {
		writeGenericError(&buf, "/", err)
		out.Document = r.documentFor(nil, out.Path)
	}
	out.Content = buf.String()

	if !r.commit(ctx, epoch, out, input.Replace, pop) {
		return r.superseded(ctx, out)
	}
	return out
}

func (r *router) blocked(ctx context.Context, out *NavigateOutput, cause error) *NavigateOutput {
	err := errors.Aborted("navigation blocked")
	if cause != nil {
		err = errors.WrapWithCode(cause, errors.CodeAborted, "navigation blocked")
	}
	slog.InfoContext(ctx, "navigation blocked",
		"path", out.Path,
		"view", out.Route.ViewID,
		"error", cause)
	r.recordError(out.Path, "guard", err)

	page := r.Page()
	out.enter(PhaseError)
	out.Err = err
	out.Blocked = true
	out.Content = page.Content
	out.Document = page.Document
	return out
}

func (r *router) superseded(ctx context.Context, out *NavigateOutput) *NavigateOutput {
	slog.InfoContext(ctx, "navigation superseded", "path", out.Path)
	if out.Phase != PhaseError {
		out.enter(PhaseError)
	}
	out.Superseded = true
	if out.Err == nil {
		out.Err = errors.Aborted("navigation superseded")
	}
	return out
}

func (r *router) documentFor(route *Route, path string) Document {
	doc := Document{Title: r.siteName}
	if route != nil {
		doc.Title = route.title(r.siteName)
		doc.Description = route.description()
	}

	doc.OpenGraph = map[string]string{
		"og:title": doc.Title,
		"og:url":   r.baseURL + path,
	}
	if doc.Description != "" {
		doc.OpenGraph["og:description"] = doc.Description
	}
	return doc
}

// commit records a finished navigation as current when no newer one has
// started, and clears the loading flag left by any navigation it replaced
func (r *router) commit(ctx context.Context, epoch uint64, out *NavigateOutput, replace, pop bool) bool {
	r.mu.Lock()
	if r.epoch.Load() != epoch {
		r.mu.Unlock()
		return false
	}

	now := r.clock.Now()
	r.current = &Navigation{
		ID:        out.ID,
		Path:      out.Path,
		Params:    maps.Clone(out.Params),
		Route:     out.Route,
		Timestamp: now,
	}
	viewID := ""
	if out.Route != nil {
		viewID = out.Route.ViewID
	}
	r.page = Page{
		Path:     out.Path,
		ViewID:   viewID,
		Content:  out.Content,
		Document: out.Document.clone(),
		Scroll:   out.Scroll,
	}
	page := r.page
	listeners := append([]pageListener(nil), r.listeners...)
	r.mu.Unlock()

	if r.store.GetState().UI.Loading {
		r.dispatch(ctx, store.SetLoading{Loading: false})
	}

	if !pop {
		entry := HistoryEntry{Path: out.Path, Timestamp: now}
		if replace {
			r.history.Replace(entry)
		} else {
			r.history.Push(entry)
		}
	}

	publish(listeners, page)
	return true
}

func (r *router) isCurrent(epoch uint64) bool {
	return r.epoch.Load() == epoch
}

func (r *router) dispatch(ctx context.Context, a store.Action) {
	if err := r.store.Dispatch(a); err != nil {
		slog.ErrorContext(ctx, "router dispatch failed",
			"action", a.Name(),
			"error", err)
	}
}

// onStateChange re-renders the current view when it observes state and says
// its content is stale. Changes made by a navigation in flight are skipped.
func (r *router) onStateChange(st store.State) {
	if r.active.Load() > 0 {
		return
	}

	r.mu.RLock()
	nav := r.current
	r.mu.RUnlock()
	if nav == nil || nav.Route == nil {
		return
	}

	observer, ok := nav.Route.View.(StateObserver)
	if !ok || !observer.OnStateChange(st) {
		return
	}

	var buf bytes.Buffer
	if err := r.render(context.Background(), &buf, nav.Route, nav.Params); err != nil {
		slog.Error("view re-render failed",
			"view", nav.Route.ViewID,
			"error", err)
		buf.Reset()
		writeComponentError(&buf, nav.Route, nav.Path, err)
	}

	r.mu.Lock()
	if r.current != nav {
		r.mu.Unlock()
		return
	}
	r.page.Content = buf.String()
	page := r.page
	listeners := append([]pageListener(nil), r.listeners...)
	r.mu.Unlock()

	publish(listeners, page)
}

func publish(listeners []pageListener, page Page) {
	for _, l := range listeners {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					slog.Error("page listener panicked", "panic", fmt.Sprint(rec))
				}
			}()
			l.fn(page)
		}()
	}
}

func (r *router) recordError(path, scope string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errs = append(r.errs, ErrorRecord{
		Timestamp: r.clock.Now(),
		Path:      path,
		Context:   scope,
		Message:   err.Error(),
	})
	if len(r.errs) > maxErrorRecords {
		r.errs = append([]ErrorRecord(nil), r.errs[len(r.errs)-maxErrorRecords:]...)
	}
}

func (r *router) Current() *Navigation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current == nil {
		return nil
	}
	nav := *r.current
	nav.Params = maps.Clone(nav.Params)
	return &nav
}

func (r *router) Page() Page {
	r.mu.RLock()
	defer r.mu.RUnlock()
	page := r.page
	page.Document = page.Document.clone()
	return page
}

func (r *router) Document() Document {
	return r.Page().Document
}

func (r *router) History() History {
	return r.history
}

func (r *router) Errors() []ErrorRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]ErrorRecord(nil), r.errs...)
}

func (r *router) OnPage(fn func(Page)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := r.nextID
	r.listeners = append(r.listeners, pageListener{id: id, fn: fn})

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, l := range r.listeners {
			if l.id == id {
				r.listeners = append(r.listeners[:i:i], r.listeners[i+1:]...)
				return
			}
		}
	}
}

func (r *router) Close() {
	if r.unsubscribe != nil {
		r.unsubscribe()
	}
}
