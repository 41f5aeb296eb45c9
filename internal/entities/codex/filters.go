package codex

import (
	"net/url"
	"sort"
	"strings"

	"github.com/KirkDiggler/rpg-codex/internal/errors"
)

// Filters maps a record field name to the set of accepted values. A record
// matches when, for every key, its field equals any of the listed values.
type Filters map[string][]string

// ParseFilters reads a URL query string ("tier=Alpha&tier=Beta") into
// Filters. Blank values and keys in skip are dropped.
func ParseFilters(rawQuery string, skip ...string) (Filters, error) {
	values, err := url.ParseQuery(strings.TrimPrefix(rawQuery, "?"))
	if err != nil {
		return nil, errors.InvalidArgumentf("malformed filter query: %v", err)
	}

	skipped := make(map[string]bool, len(skip))
	for _, k := range skip {
		skipped[k] = true
	}

	out := Filters{}
	for key, vals := range values {
		if skipped[key] || strings.TrimSpace(key) == "" {
			continue
		}
		for _, v := range vals {
			if strings.TrimSpace(v) == "" {
				continue
			}
			out[key] = append(out[key], v)
		}
	}
	return out, nil
}

// Encode renders the filters as a query string with keys in sorted order and
// values in their given order.
func (f Filters) Encode() string {
	values := url.Values{}
	for key, vals := range f {
		for _, v := range vals {
			values.Add(key, v)
		}
	}
	return values.Encode()
}

// Clone returns a deep copy
func (f Filters) Clone() Filters {
	if f == nil {
		return Filters{}
	}
	out := make(Filters, len(f))
	for k, v := range f {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// IsEmpty reports whether no filter value is set
func (f Filters) IsEmpty() bool {
	for _, v := range f {
		if len(v) > 0 {
			return false
		}
	}
	return true
}

// Keys returns the filter keys in sorted order
func (f Filters) Keys() []string {
	keys := make([]string, 0, len(f))
	for k, v := range f {
		if len(v) > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Equal compares two filter sets ignoring empty keys
func (f Filters) Equal(other Filters) bool {
	a, b := f.Keys(), other.Keys()
	if len(a) != len(b) {
		return false
	}
	for i, k := range a {
		if b[i] != k {
			return false
		}
		av, bv := f[k], other[k]
		if len(av) != len(bv) {
			return false
		}
		for j := range av {
			if av[j] != bv[j] {
				return false
			}
		}
	}
	return true
}

// Matches reports whether r satisfies every filter key
func (f Filters) Matches(r *Record) bool {
	for key, accepted := range f {
		if len(accepted) == 0 {
			continue
		}
		got := r.Field(key)
		ok := false
		for _, v := range accepted {
			if strings.EqualFold(got, v) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}
