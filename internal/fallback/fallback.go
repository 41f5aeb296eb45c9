// Package fallback holds the bundled sample data set substituted when the
// live data source cannot be reached.
package fallback

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/KirkDiggler/rpg-codex/internal/entities/codex"
	"github.com/KirkDiggler/rpg-codex/internal/errors"
)

//go:embed data/*.json
var dataFS embed.FS

// Provider supplies the fixed fallback list for a data type
type Provider interface {
	Records(dataType codex.DataType) []codex.Record
}

// Set is the embedded sample data, keyed by type
type Set struct {
	byType map[codex.DataType][]codex.Record
}

// Load parses the embedded data files. Every known data type must have a
// non-empty file whose records carry the matching type.
func Load() (*Set, error) {
	set := &Set{byType: make(map[codex.DataType][]codex.Record)}

	for _, t := range codex.AllDataTypes() {
		raw, err := dataFS.ReadFile(fmt.Sprintf("data/%s.json", t))
		if err != nil {
			return nil, errors.Wrapf(err, "missing fallback data for %s", t)
		}

		var records []codex.Record
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, errors.Wrapf(err, "malformed fallback data for %s", t)
		}
		if len(records) == 0 {
			return nil, errors.Internalf("fallback data for %s is empty", t)
		}

		for i := range records {
			if records[i].Type != t {
				return nil, errors.Internalf("fallback record %s has type %q, want %q", records[i].ID, records[i].Type, t)
			}
			records[i].IsFallback = true
		}
		set.byType[t] = records
	}

	return set, nil
}

// MustLoad is Load for program start-up; the embedded files are part of the
// binary so a failure is a build defect.
func MustLoad() *Set {
	set, err := Load()
	if err != nil {
		panic(err)
	}
	return set
}

// Records returns a fresh copy of the fallback list for a type. Every record
// has IsFallback set.
func (s *Set) Records(dataType codex.DataType) []codex.Record {
	out := codex.CloneRecords(s.byType[dataType])
	if out == nil {
		out = []codex.Record{}
	}
	return out
}

// Raw returns the fallback list in the data endpoint's wire shape: one flat
// JSON object per record with attributes merged into the top level.
func (s *Set) Raw(dataType codex.DataType) []map[string]any {
	src := s.byType[dataType]
	out := make([]map[string]any, 0, len(src))
	for i := range src {
		out = append(out, flatten(&src[i]))
	}
	return out
}

func flatten(r *codex.Record) map[string]any {
	m := make(map[string]any, len(r.Attributes)+7)
	for k, v := range r.Attributes {
		m[k] = v
	}
	m["id"] = r.ID
	m["slug"] = r.Slug
	m["name"] = r.Name
	m["type"] = string(r.Type)
	if r.Description != "" {
		m["description"] = r.Description
	}
	if r.Tier != "" {
		m["tier"] = r.Tier
	}
	if r.Category != "" {
		m["category"] = r.Category
	}
	return m
}
