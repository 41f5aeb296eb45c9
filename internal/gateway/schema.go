package gateway

import (
	"strings"

	"github.com/KirkDiggler/rpg-codex/internal/entities/codex"
)

type fieldKind int

const (
	kindString fieldKind = iota
	kindNumber
)

type fieldRule struct {
	name string
	kind fieldKind
}

// requiredFields is the fixed per-type predicate set. id and name are
// required for every type and checked separately.
var requiredFields = map[codex.DataType][]fieldRule{
	codex.DataTypeCreatures:   {{"tier", kindString}, {"category", kindString}, {"diet", kindString}},
	codex.DataTypeItems:       {{"category", kindString}, {"tier", kindString}},
	codex.DataTypeStructures:  {{"category", kindString}, {"tier", kindString}},
	codex.DataTypeResources:   {{"category", kindString}, {"rarity", kindString}},
	codex.DataTypeBosses:      {{"tier", kindString}, {"location", kindString}},
	codex.DataTypeProgression: {{"tier", kindString}, {"level", kindNumber}},
}

// fixed record keys; everything else lands in Attributes
var recordKeys = map[string]bool{
	"id":          true,
	"slug":        true,
	"name":        true,
	"type":        true,
	"description": true,
	"tier":        true,
	"category":    true,
	"is_fallback": true,
}

// Materialize validates raw JSON values against the schema of dataType and
// builds records from the valid ones. Invalid entries and duplicate IDs are
// dropped silently; the result is never nil.
func Materialize(dataType codex.DataType, raw []any) []codex.Record {
	out := make([]codex.Record, 0, len(raw))
	seen := make(map[string]bool, len(raw))

	for _, v := range raw {
		obj, ok := v.(map[string]any)
		if !ok {
			continue
		}
		rec, ok := materialize(dataType, obj)
		if !ok || seen[rec.ID] {
			continue
		}
		seen[rec.ID] = true
		out = append(out, rec)
	}
	return out
}

func materialize(dataType codex.DataType, obj map[string]any) (codex.Record, bool) {
	id, ok := nonEmptyString(obj["id"])
	if !ok {
		return codex.Record{}, false
	}
	name, ok := nonEmptyString(obj["name"])
	if !ok {
		return codex.Record{}, false
	}

	if t, present := obj["type"]; present {
		if s, ok := t.(string); !ok || codex.DataType(s) != dataType {
			return codex.Record{}, false
		}
	}

	for _, rule := range requiredFields[dataType] {
		if !satisfies(obj[rule.name], rule.kind) {
			return codex.Record{}, false
		}
	}

	slug := codex.Slugify(name)
	if raw, present := obj["slug"]; present {
		s, ok := nonEmptyString(raw)
		if !ok {
			return codex.Record{}, false
		}
		slug = s
	}

	rec := codex.Record{
		ID:          id,
		Slug:        slug,
		Name:        name,
		Type:        dataType,
		Description: optionalString(obj["description"]),
		Tier:        optionalString(obj["tier"]),
		Category:    optionalString(obj["category"]),
	}

	for k, v := range obj {
		if recordKeys[k] {
			continue
		}
		if rec.Attributes == nil {
			rec.Attributes = make(map[string]any)
		}
		rec.Attributes[k] = v
	}

	return rec, true
}

func satisfies(v any, kind fieldKind) bool {
	switch kind {
	case kindNumber:
		_, ok := v.(float64)
		return ok
	default:
		_, ok := nonEmptyString(v)
		return ok
	}
}

func nonEmptyString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

func optionalString(v any) string {
	s, _ := v.(string)
	return s
}
