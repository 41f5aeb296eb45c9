// Package web serves the app shell over HTTP. Every page request is one
// router navigation rendered into the layout.
package web

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/KirkDiggler/rpg-codex/internal/entities/codex"
	"github.com/KirkDiggler/rpg-codex/internal/errors"
	"github.com/KirkDiggler/rpg-codex/internal/gateway"
	"github.com/KirkDiggler/rpg-codex/internal/router"
	"github.com/KirkDiggler/rpg-codex/internal/services/datasync"
	"github.com/KirkDiggler/rpg-codex/internal/store"
	"github.com/KirkDiggler/rpg-codex/internal/views"
)

// HandlerConfig holds dependencies for the handler
type HandlerConfig struct {
	Router   router.Router
	Store    store.Store
	Gateway  gateway.Service
	Sync     datasync.Service
	SiteName string
	// BootstrapError reports a fatal startup error (optional)
	BootstrapError func() error
}

// Validate ensures all required dependencies are present
func (c *HandlerConfig) Validate() error {
	if c == nil {
		return errors.InvalidArgument("config cannot be nil")
	}

	vb := errors.NewValidationBuilder()
	if c.Router == nil {
		vb.RequiredField("Router")
	}
	if c.Store == nil {
		vb.RequiredField("Store")
	}
	if c.Gateway == nil {
		vb.RequiredField("Gateway")
	}
	if c.Sync == nil {
		vb.RequiredField("Sync")
	}
	if err := vb.Build(); err != nil {
		return err
	}

	if c.SiteName == "" {
		c.SiteName = router.DefaultSiteName
	}
	if c.BootstrapError == nil {
		c.BootstrapError = func() error { return nil }
	}
	return nil
}

// Handler serves pages, the JSON API and the live update socket
type Handler struct {
	router         router.Router
	store          store.Store
	gateway        gateway.Service
	sync           datasync.Service
	siteName       string
	bootstrapError func() error
	hub            *hub
}

// NewHandler creates a new handler with the given configuration
func NewHandler(cfg *HandlerConfig) (*Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Handler{
		router:         cfg.Router,
		store:          cfg.Store,
		gateway:        cfg.Gateway,
		sync:           cfg.Sync,
		siteName:       cfg.SiteName,
		bootstrapError: cfg.BootstrapError,
		hub:            newHub(cfg.Router),
	}, nil
}

// Routes returns the HTTP routes
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", h.health)
	r.Get("/ws", h.serveWS)

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.getState)
		r.Get("/data/{type}", h.getData)
		r.Post("/cache/clear", h.clearCache)
		r.Post("/refresh", h.refresh)
		r.Get("/sync/status", h.syncStatus)
		r.Get("/errors", h.routerErrors)
	})

	r.Get("/*", h.page)
	return r
}

// Close disconnects every live update client
func (h *Handler) Close() {
	h.hub.close()
}

func (h *Handler) page(w http.ResponseWriter, r *http.Request) {
	if err := h.bootstrapError(); err != nil {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusServiceUnavailable)
		if werr := views.WriteBootstrapError(w, h.siteName, err); werr != nil {
			slog.ErrorContext(r.Context(), "failed to write bootstrap error", "error", werr)
		}
		return
	}

	out := h.router.Navigate(r.Context(), &router.NavigateInput{Path: r.URL.RequestURI()})

	page := router.Page{
		Path:     out.Path,
		Content:  out.Content,
		Document: out.Document,
		Scroll:   out.Scroll,
	}
	if out.Route != nil {
		page.ViewID = out.Route.ViewID
	}

	var buf bytes.Buffer
	err := views.WriteLayout(&buf, &views.LayoutInput{
		SiteName: h.siteName,
		Version:  h.store.GetState().App.Version,
		Page:     page,
	})
	if err != nil {
		writeError(w, r, errors.Wrap(err, "failed to render layout"))
		return
	}

	status := http.StatusOK
	if out.Err != nil {
		status = errors.GetCode(out.Err).HTTPStatus()
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

type healthResponse struct {
	Status       string        `json:"status"`
	Ready        bool          `json:"ready"`
	FallbackMode bool          `json:"fallback_mode"`
	Error        string        `json:"error,omitempty"`
	Gateway      gateway.Stats `json:"gateway"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	app := h.store.GetState().App
	resp := healthResponse{
		Status:       "ok",
		Ready:        app.Ready,
		FallbackMode: app.FallbackMode,
		Error:        app.Error,
		Gateway:      h.gateway.Stats(),
	}

	status := http.StatusOK
	if err := h.bootstrapError(); err != nil {
		resp.Status = "failed"
		resp.Error = err.Error()
		status = http.StatusServiceUnavailable
	} else if !app.Ready {
		resp.Status = "starting"
	}
	writeJSON(w, r, status, resp)
}

func (h *Handler) getState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.store.GetState())
}

type dataResponse struct {
	Type       codex.DataType `json:"type"`
	Origin     gateway.Origin `json:"origin"`
	Confidence float64        `json:"confidence"`
	Attempts   int            `json:"attempts"`
	Records    []codex.Record `json:"records"`
	Error      string         `json:"error,omitempty"`
}

func (h *Handler) getData(w http.ResponseWriter, r *http.Request) {
	dataType, err := codex.ParseDataType(chi.URLParam(r, "type"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var options map[string]string
	if query := r.URL.Query(); len(query) > 0 {
		options = make(map[string]string, len(query))
		for k := range query {
			options[k] = query.Get(k)
		}
	}

	out, err := h.gateway.GetData(r.Context(), &gateway.GetDataInput{Type: dataType, Options: options})
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := dataResponse{
		Type:       dataType,
		Origin:     out.Origin,
		Confidence: out.Confidence,
		Attempts:   out.Attempts,
		Records:    out.Records,
	}
	if out.LastError != nil {
		resp.Error = out.LastError.Error()
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (h *Handler) clearCache(w http.ResponseWriter, r *http.Request) {
	var dataType codex.DataType
	if raw := r.URL.Query().Get("type"); raw != "" {
		t, err := codex.ParseDataType(raw)
		if err != nil {
			writeError(w, r, err)
			return
		}
		dataType = t
	}

	out, err := h.gateway.ClearCache(r.Context(), &gateway.ClearCacheInput{Type: dataType})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]int{"removed": out.Removed})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	input := &datasync.RefreshInput{}
	for _, raw := range r.URL.Query()["type"] {
		t, err := codex.ParseDataType(raw)
		if err != nil {
			writeError(w, r, err)
			return
		}
		input.Types = append(input.Types, t)
	}

	out, err := h.sync.Refresh(r.Context(), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"loaded":        out.Loaded,
		"fallback":      out.Fallback,
		"cache_version": out.CacheVersion,
	})
}

func (h *Handler) syncStatus(w http.ResponseWriter, r *http.Request) {
	out, err := h.sync.Status(r.Context(), &datasync.StatusInput{})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (h *Handler) routerErrors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.router.Errors())
}

type errorResponse struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	if code.HTTPStatus() >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			"path", r.URL.Path,
			"error", err)
	}
	writeJSON(w, r, code.HTTPStatus(), errorResponse{Code: code, Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.WarnContext(r.Context(), "failed to write response", "error", err)
	}
}
