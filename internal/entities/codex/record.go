package codex

import (
	"fmt"
	"maps"
	"regexp"
	"strings"

	"github.com/KirkDiggler/rpg-toolkit/core"
)

var (
	// slugPattern matches characters that should be replaced in slugs
	slugPattern   = regexp.MustCompile(`[^a-z0-9-]+`)
	hyphenPattern = regexp.MustCompile(`-+`)
)

// Record is one materialized domain entity of a given type. Records are
// immutable once built; store transitions replace whole slices of them.
type Record struct {
	ID          string         `json:"id"`
	Slug        string         `json:"slug"`
	Name        string         `json:"name"`
	Type        DataType       `json:"type"`
	Description string         `json:"description,omitempty"`
	Tier        string         `json:"tier,omitempty"`
	Category    string         `json:"category,omitempty"`
	Attributes  map[string]any `json:"attributes,omitempty"`
	IsFallback  bool           `json:"is_fallback,omitempty"`
}

var _ core.Entity = (*Record)(nil)

// GetID returns the record's ID
func (r *Record) GetID() string {
	return r.ID
}

// GetType returns the record's data type
func (r *Record) GetType() string {
	return string(r.Type)
}

// Field returns the string form of a named field, looking at the fixed
// fields first and then at Attributes. Missing fields return "".
func (r *Record) Field(name string) string {
	switch name {
	case "id":
		return r.ID
	case "slug":
		return r.Slug
	case "name":
		return r.Name
	case "type":
		return string(r.Type)
	case "description":
		return r.Description
	case "tier":
		return r.Tier
	case "category":
		return r.Category
	}

	v, ok := r.Attributes[name]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// CloneRecords copies records and their attribute maps so the copy can be
// written without touching the source
func CloneRecords(records []Record) []Record {
	if records == nil {
		return nil
	}
	out := make([]Record, len(records))
	for i, r := range records {
		r.Attributes = maps.Clone(r.Attributes)
		out[i] = r
	}
	return out
}

// Slugify creates a URL-safe slug from a string
func Slugify(s string) string {
	slug := strings.ToLower(strings.TrimSpace(s))
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = slugPattern.ReplaceAllString(slug, "-")
	slug = hyphenPattern.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// FindBySlug returns the record with the given slug, or nil.
func FindBySlug(records []Record, slug string) *Record {
	for i := range records {
		if records[i].Slug == slug {
			return &records[i]
		}
	}
	return nil
}
