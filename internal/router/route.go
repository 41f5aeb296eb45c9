package router

import (
	"context"
	"strings"

	"github.com/KirkDiggler/rpg-codex/internal/entities/codex"
	"github.com/KirkDiggler/rpg-codex/internal/errors"
)

// NotFoundPattern registers the view rendered for unmatched paths
const NotFoundPattern = "404"

// Params are the named values bound from a path plus caller supplied extras
type Params map[string]string

// Route binds a path pattern to a view and its data prerequisites.
// Patterns are "/"-separated; a segment starting with ":" binds a parameter.
type Route struct {
	Pattern      string
	ViewID       string
	View         View
	RequiredData []codex.DataType
	Title        string
	Description  string
	// Meta overrides document metadata; "description" replaces Description
	Meta map[string]string

	// BeforeNavigate may veto a navigation by returning false or an error
	BeforeNavigate func(ctx context.Context, params Params) (bool, error)
	// AfterNavigate runs once the view is rendered; its error is logged only
	AfterNavigate func(ctx context.Context, params Params) error
}

func (r *Route) validate() error {
	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("Pattern", r.Pattern, vb)
	errors.ValidateRequired("ViewID", r.ViewID, vb)
	if r.View == nil {
		vb.RequiredField("View")
	}
	for _, seg := range splitPath(r.Pattern) {
		if seg == ":" {
			vb.Field("Pattern", "parameter segment needs a name")
		}
	}
	for _, t := range r.RequiredData {
		if !t.Valid() {
			vb.Fieldf("RequiredData", "unknown data type %q", t)
		}
	}
	return vb.Build()
}

// title renders the document title for this route
func (r *Route) title(siteName string) string {
	if r.Title == "" {
		return siteName
	}
	return r.Title + " - " + siteName
}

func (r *Route) description() string {
	if d := r.Meta["description"]; d != "" {
		return d
	}
	return r.Description
}

// splitPath drops empty segments so "/items/" and "/items" compare equal
func splitPath(p string) []string {
	raw := strings.Split(p, "/")
	out := raw[:0]
	for _, seg := range raw {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

// matchPattern reports whether path fits pattern and returns the bound
// parameters
func matchPattern(pattern, path string) (Params, bool) {
	want := splitPath(pattern)
	got := splitPath(path)
	if len(want) != len(got) {
		return nil, false
	}

	params := Params{}
	for i, seg := range want {
		if strings.HasPrefix(seg, ":") {
			params[seg[1:]] = got[i]
			continue
		}
		if seg != got[i] {
			return nil, false
		}
	}
	return params, true
}

// splitQuery separates a raw path from its query string
func splitQuery(path string) (string, string) {
	if i := strings.IndexByte(path, '#'); i >= 0 {
		path = path[:i]
	}
	p, q, _ := strings.Cut(path, "?")
	if p == "" {
		p = "/"
	}
	return p, q
}
