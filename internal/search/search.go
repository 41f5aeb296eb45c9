// Package search filters and ranks records for list views.
package search

import (
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"

	"github.com/KirkDiggler/rpg-codex/internal/entities/codex"
)

// Result is a record with its match score in (0, 1]
type Result struct {
	Record codex.Record `json:"record"`
	Score  float64      `json:"score"`
}

// Apply keeps the records that satisfy every filter key. The input order is
// preserved and the input slice is not modified.
func Apply(records []codex.Record, filters codex.Filters) []codex.Record {
	out := make([]codex.Record, 0, len(records))
	for i := range records {
		if filters.Matches(&records[i]) {
			out = append(out, records[i])
		}
	}
	return out
}

// Search ranks records by how well their name matches query: exact, prefix,
// substring, then by edit distance of the closest name word. Records that
// do not match at all are left out. A limit of zero or less returns every
// match.
func Search(records []codex.Record, query string, limit int) []Result {
	q := normalise(query)
	if q == "" {
		return []Result{}
	}

	results := make([]Result, 0)
	for _, rec := range records {
		score := scoreName(q, normalise(rec.Name))
		if score <= 0 {
			continue
		}
		results = append(results, Result{Record: rec, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score == results[j].Score {
			return results[i].Record.Name < results[j].Record.Name
		}
		return results[i].Score > results[j].Score
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// Records unwraps search results
func Records(results []Result) []codex.Record {
	out := make([]codex.Record, len(results))
	for i, r := range results {
		out[i] = r.Record
	}
	return out
}

// Facets lists the distinct non-empty values of field across records, sorted
func Facets(records []codex.Record, field string) []string {
	seen := map[string]bool{}
	for i := range records {
		if v := records[i].Field(field); v != "" {
			seen[v] = true
		}
	}

	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func scoreName(q, name string) float64 {
	switch {
	case name == "":
		return 0
	case q == name:
		return 1.0
	case strings.HasPrefix(name, q):
		return 0.9
	case strings.Contains(name, q):
		return 0.8
	}

	best := 0.0
	for _, word := range strings.Fields(name) {
		dist := levenshtein.ComputeDistance(q, word)
		if dist > distanceLimit(len(word)) {
			continue
		}
		if score := 0.72 - 0.08*float64(dist); score > best {
			best = score
		}
	}
	return best
}

func distanceLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}

// normalise lower-cases s and collapses everything but letters and digits
// into single spaces
func normalise(s string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space && b.Len() > 0 {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}
