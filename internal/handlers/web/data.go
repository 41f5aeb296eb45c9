package web

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/KirkDiggler/rpg-codex/internal/entities/codex"
	"github.com/KirkDiggler/rpg-codex/internal/errors"
)

// RawSource supplies records in the data endpoint's wire shape
type RawSource interface {
	Raw(dataType codex.DataType) []map[string]any
}

// DataRoutes serves GET /{type}.json from src, the contract the data source
// client reads
func DataRoutes(src RawSource) http.Handler {
	r := chi.NewRouter()
	r.Get("/{file}", func(w http.ResponseWriter, req *http.Request) {
		file := chi.URLParam(req, "file")
		name, ok := strings.CutSuffix(file, ".json")
		if !ok {
			writeError(w, req, errors.NotFoundf("no data file %s", file))
			return
		}
		dataType, err := codex.ParseDataType(name)
		if err != nil {
			writeError(w, req, errors.NotFoundf("no data file %s", file))
			return
		}
		writeJSON(w, req, http.StatusOK, src.Raw(dataType))
	})
	return r
}
