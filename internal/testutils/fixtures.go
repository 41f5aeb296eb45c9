package testutils

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/KirkDiggler/rpg-codex/internal/entities/codex"
	"github.com/KirkDiggler/rpg-codex/internal/testutils/builders"
)

// CreateTestRecords creates one record of type t per name
func CreateTestRecords(t codex.DataType, names ...string) []codex.Record {
	out := make([]codex.Record, 0, len(names))
	for _, name := range names {
		out = append(out, builders.NewRecordBuilder(t).WithName(name).Build())
	}
	return out
}

// DataServer is a test data endpoint whose availability can be switched
type DataServer struct {
	*httptest.Server
	handler  http.Handler
	down     atomic.Bool
	requests atomic.Int64
}

// NewDataServer serves handler until SetDown(true) makes every request fail
// with 503. The server is closed when the test ends.
func NewDataServer(t *testing.T, handler http.Handler) *DataServer {
	ds := &DataServer{handler: handler}
	ds.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ds.requests.Add(1)
		if ds.down.Load() {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		ds.handler.ServeHTTP(w, r)
	}))
	t.Cleanup(ds.Close)
	return ds
}

// SetDown switches the server between failing and serving
func (ds *DataServer) SetDown(down bool) {
	ds.down.Store(down)
}

// Requests returns the number of requests received so far
func (ds *DataServer) Requests() int64 {
	return ds.requests.Load()
}

// WebSocketURL returns the ws:// address of path on an HTTP test server
func WebSocketURL(server *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + path
}
