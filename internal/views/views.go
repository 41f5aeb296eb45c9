// Package views renders the pages of the app shell. Every view writes an
// HTML fragment into the container handed to it by the router.
package views

import (
	"context"
	"io"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/KirkDiggler/rpg-codex/internal/entities/codex"
	"github.com/KirkDiggler/rpg-codex/internal/errors"
	"github.com/KirkDiggler/rpg-codex/internal/router"
	"github.com/KirkDiggler/rpg-codex/internal/search"
	"github.com/KirkDiggler/rpg-codex/internal/store"
)

// FacetFields are the fields offered as filter links on list pages
var FacetFields = []string{"tier", "category"}

// SearchLimit caps the number of ranked search results shown
const SearchLimit = 50

// Home lists every data type with its record count
type Home struct {
	SiteName string
}

type typeCount struct {
	Type  codex.DataType
	Count int
}

// Render implements router.View
func (h *Home) Render(_ context.Context, w io.Writer, st store.Store, _ router.Params) error {
	state := st.GetState()
	data := struct {
		SiteName     string
		FallbackMode bool
		Types        []typeCount
	}{
		SiteName:     h.SiteName,
		FallbackMode: state.App.FallbackMode,
	}
	for _, t := range codex.AllDataTypes() {
		data.Types = append(data.Types, typeCount{Type: t, Count: len(state.Data[t].Items)})
	}
	return tmpl.ExecuteTemplate(w, "home", data)
}

// List shows the records of one type narrowed by the active filters and
// search query. It re-renders when its bucket changes after the page was
// drawn.
type List struct {
	Type codex.DataType

	mu       sync.Mutex
	rendered bucketStamp
}

type bucketStamp struct {
	lastUpdate time.Time
	loading    bool
	count      int
	error      string
}

func stampOf(b store.Bucket) bucketStamp {
	return bucketStamp{
		lastUpdate: b.LastUpdate,
		loading:    b.Loading,
		count:      len(b.Items),
		error:      b.Error,
	}
}

// NewList creates the list view for a data type
func NewList(t codex.DataType) *List {
	return &List{Type: t}
}

type facetOption struct {
	Value  string
	Href   string
	Active bool
}

type facet struct {
	Field   string
	Options []facetOption
}

// Render implements router.View
func (l *List) Render(_ context.Context, w io.Writer, st store.Store, _ router.Params) error {
	state := st.GetState()
	bucket := state.Bucket(l.Type)
	filters := state.UI.Filters

	records := search.Apply(bucket.Items, filters)
	query := state.UI.SearchQuery
	if query != "" {
		records = search.Records(search.Search(records, query, SearchLimit))
		if err := st.Dispatch(store.SetSearch{Query: query, Results: records}); err != nil {
			return errors.Wrap(err, "failed to record search results")
		}
	}

	data := struct {
		Type     codex.DataType
		Query    string
		Loading  bool
		Error    string
		Fallback bool
		Filtered bool
		Facets   []facet
		Records  []codex.Record
		Total    int
	}{
		Type:     l.Type,
		Query:    query,
		Loading:  bucket.Loading,
		Error:    bucket.Error,
		Fallback: bucket.Fallback,
		Filtered: !filters.IsEmpty() || query != "",
		Records:  records,
		Total:    len(bucket.Items),
	}
	for _, field := range FacetFields {
		values := search.Facets(bucket.Items, field)
		if len(values) == 0 {
			continue
		}
		data.Facets = append(data.Facets, l.facet(field, values, filters))
	}

	l.mu.Lock()
	l.rendered = stampOf(bucket)
	l.mu.Unlock()

	return tmpl.ExecuteTemplate(w, "list", data)
}

// facet builds links that toggle one value of field in the active filters
func (l *List) facet(field string, values []string, active codex.Filters) facet {
	f := facet{Field: field}
	for _, v := range values {
		next := active.Clone()
		selected := slices.Contains(next[field], v)
		if selected {
			next[field] = slices.DeleteFunc(slices.Clone(next[field]), func(s string) bool { return s == v })
			if len(next[field]) == 0 {
				delete(next, field)
			}
		} else {
			next[field] = append(slices.Clone(next[field]), v)
		}

		href := "/" + string(l.Type)
		if q := next.Encode(); q != "" {
			href += "?" + q
		}
		f.Options = append(f.Options, facetOption{Value: v, Href: href, Active: selected})
	}
	return f
}

// OnStateChange implements router.StateObserver
func (l *List) OnStateChange(state store.State) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return stampOf(state.Bucket(l.Type)) != l.rendered
}

// Detail shows one record looked up by the "id" route parameter, which
// holds its slug
type Detail struct {
	Type codex.DataType
}

// Render implements router.View
func (d *Detail) Render(_ context.Context, w io.Writer, st store.Store, params router.Params) error {
	slug := params["id"]
	rec := codex.FindBySlug(st.Items(d.Type), slug)
	if rec == nil {
		return errors.NotFoundf("%s %q not found", d.Type.Singular(), slug)
	}

	attributes := make([]string, 0, len(rec.Attributes))
	for k := range rec.Attributes {
		attributes = append(attributes, k)
	}
	sort.Strings(attributes)

	return tmpl.ExecuteTemplate(w, "detail", struct {
		Record     codex.Record
		Attributes []string
	}{
		Record:     *rec,
		Attributes: attributes,
	})
}

// Calculator describes one calculator tool
type Calculator struct {
	Slug        string
	Name        string
	Description string
	// Data is the record type the calculator picks from
	Data codex.DataType
}

// DefaultCalculators are listed on the calculators page, each with its own
// route under /calculators
var DefaultCalculators = []Calculator{
	{Slug: "taming", Name: "Taming", Description: "Estimate taming time and food needed for a creature.", Data: codex.DataTypeCreatures},
	{Slug: "breeding", Name: "Breeding", Description: "Plan incubation and maturation times.", Data: codex.DataTypeCreatures},
	{Slug: "stats", Name: "Stats", Description: "Compare creature stats across tiers.", Data: codex.DataTypeCreatures},
	{Slug: "crafting", Name: "Crafting", Description: "Total the resources a recipe needs.", Data: codex.DataTypeItems},
}

// Calculators lists the calculator tools
type Calculators struct {
	Items []Calculator
}

// Render implements router.View
func (c *Calculators) Render(_ context.Context, w io.Writer, _ store.Store, _ router.Params) error {
	items := c.Items
	if items == nil {
		items = DefaultCalculators
	}
	return tmpl.ExecuteTemplate(w, "calculators", items)
}

// CalculatorPage shows one calculator with the records it can be run
// against. The arithmetic itself runs in the page.
type CalculatorPage struct {
	Calculator Calculator
}

// Render implements router.View
func (c *CalculatorPage) Render(_ context.Context, w io.Writer, st store.Store, _ router.Params) error {
	return tmpl.ExecuteTemplate(w, "calculator", struct {
		Calculator Calculator
		Options    []codex.Record
	}{
		Calculator: c.Calculator,
		Options:    st.Items(c.Calculator.Data),
	})
}

// Tip is one gameplay tip
type Tip struct {
	Category string
	Text     string
}

// DefaultTips are shown on the tips pages
var DefaultTips = []Tip{
	{Category: "taming", Text: "Tame tiers in order; higher tiers need the blood of the tier below."},
	{Category: "taming", Text: "Filter by tier on any list page to narrow what you can tame next."},
	{Category: "bosses", Text: "Bosses drop progression items required for the next tier of tames."},
	{Category: "progression", Text: "Check the progression page before farming; each tier unlocks its own recipes."},
}

// Tips lists gameplay tips. With a "category" param only that category is
// shown; a category without tips is not found.
type Tips struct {
	Items []Tip
}

// Render implements router.View
func (t *Tips) Render(_ context.Context, w io.Writer, _ store.Store, params router.Params) error {
	items := t.Items
	if items == nil {
		items = DefaultTips
	}

	var categories []string
	for _, tip := range items {
		if !slices.Contains(categories, tip.Category) {
			categories = append(categories, tip.Category)
		}
	}

	category := params["category"]
	if category != "" {
		var filtered []Tip
		for _, tip := range items {
			if tip.Category == category {
				filtered = append(filtered, tip)
			}
		}
		if len(filtered) == 0 {
			return errors.NotFoundf("no tips in category %q", category)
		}
		items = filtered
	}

	return tmpl.ExecuteTemplate(w, "tips", struct {
		Category   string
		Categories []string
		Items      []Tip
	}{
		Category:   category,
		Categories: categories,
		Items:      items,
	})
}

type tierSummary struct {
	Name  string
	Slug  string
	Count int
}

func creatureTiers(records []codex.Record) []tierSummary {
	var tiers []tierSummary
	for _, tier := range search.Facets(records, "tier") {
		tiers = append(tiers, tierSummary{
			Name:  tier,
			Slug:  codex.Slugify(tier),
			Count: len(search.Apply(records, codex.Filters{"tier": {tier}})),
		})
	}
	return tiers
}

// Tiers lists the creature tiers with how many creatures each holds
type Tiers struct{}

// Render implements router.View
func (Tiers) Render(_ context.Context, w io.Writer, st store.Store, _ router.Params) error {
	return tmpl.ExecuteTemplate(w, "tiers", creatureTiers(st.Items(codex.DataTypeCreatures)))
}

// TierDetail lists the creatures of the tier named by the "tier" slug param
type TierDetail struct{}

// Render implements router.View
func (TierDetail) Render(_ context.Context, w io.Writer, st store.Store, params router.Params) error {
	records := st.Items(codex.DataTypeCreatures)
	slug := params["tier"]
	for _, tier := range creatureTiers(records) {
		if tier.Slug != slug {
			continue
		}
		return tmpl.ExecuteTemplate(w, "tier", struct {
			Tier      tierSummary
			Creatures []codex.Record
		}{
			Tier:      tier,
			Creatures: search.Apply(records, codex.Filters{"tier": {tier.Name}}),
		})
	}
	return errors.NotFoundf("tier %q not found", slug)
}

// NotFound is the view registered under the 404 route
type NotFound struct{}

// Render implements router.View
func (NotFound) Render(_ context.Context, w io.Writer, _ store.Store, params router.Params) error {
	return tmpl.ExecuteTemplate(w, "not-found", struct{ Path string }{Path: params["originalPath"]})
}
