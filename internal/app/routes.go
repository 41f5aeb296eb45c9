package app

import (
	"context"
	"strings"

	"github.com/KirkDiggler/rpg-codex/internal/entities/codex"
	"github.com/KirkDiggler/rpg-codex/internal/repositories/storage"
	"github.com/KirkDiggler/rpg-codex/internal/router"
	"github.com/KirkDiggler/rpg-codex/internal/views"
)

// detailTypes have a per-record page
var detailTypes = []codex.DataType{
	codex.DataTypeCreatures,
	codex.DataTypeItems,
	codex.DataTypeStructures,
	codex.DataTypeResources,
	codex.DataTypeBosses,
}

var listDescriptions = map[codex.DataType]string{
	codex.DataTypeCreatures:   "Every tameable creature with tier, diet and stats.",
	codex.DataTypeItems:       "Items, consumables and crafting components.",
	codex.DataTypeStructures:  "Buildable structures and their requirements.",
	codex.DataTypeResources:   "Resources and where to gather them.",
	codex.DataTypeBosses:      "Boss encounters, locations and rewards.",
	codex.DataTypeProgression: "The progression path from tier to tier.",
}

// Routes returns the route table in registration order
func (a *App) Routes() []router.Route {
	routes := []router.Route{
		{
			Pattern:     "/",
			ViewID:      "home",
			View:        &views.Home{SiteName: a.Settings.Server.SiteName},
			Description: "Reference database for Primal Fear creatures, items and bosses.",
		},
	}

	for _, t := range codex.AllDataTypes() {
		routes = append(routes, router.Route{
			Pattern:       "/" + string(t),
			ViewID:        string(t),
			View:          views.NewList(t),
			RequiredData:  []codex.DataType{t},
			Title:         titleOf(string(t)),
			Description:   listDescriptions[t],
			AfterNavigate: a.saveFilters,
		})
	}

	for _, t := range detailTypes {
		routes = append(routes, router.Route{
			Pattern:        "/" + string(t) + "/:id",
			ViewID:         t.Singular() + "-detail",
			View:           &views.Detail{Type: t},
			RequiredData:   []codex.DataType{t},
			Title:          titleOf(t.Singular()),
			BeforeNavigate: slugParam("id"),
		})
	}

	routes = append(routes, router.Route{
		Pattern:     "/calculators",
		ViewID:      "calculators",
		View:        &views.Calculators{},
		Title:       "Calculators",
		Description: "Calculators for taming, breeding, stats and crafting.",
	})
	for _, c := range views.DefaultCalculators {
		routes = append(routes, router.Route{
			Pattern:      "/calculators/" + c.Slug,
			ViewID:       c.Slug + "-calculator",
			View:         &views.CalculatorPage{Calculator: c},
			RequiredData: []codex.DataType{c.Data},
			Title:        c.Name + " Calculator",
			Description:  c.Description,
		})
	}

	return append(routes,
		router.Route{
			Pattern: "/tips",
			ViewID:  "tips",
			View:    &views.Tips{},
			Title:   "Tips",
		},
		router.Route{
			Pattern: "/tips/:category",
			ViewID:  "tips-category",
			View:    &views.Tips{},
			Title:   "Tips",
		},
		router.Route{
			Pattern:      "/tiers",
			ViewID:       "tiers",
			View:         views.Tiers{},
			RequiredData: []codex.DataType{codex.DataTypeCreatures},
			Title:        "Tiers",
			Description:  "Creature tiers and what each one holds.",
		},
		router.Route{
			Pattern:        "/tiers/:tier",
			ViewID:         "tier-detail",
			View:           views.TierDetail{},
			RequiredData:   []codex.DataType{codex.DataTypeCreatures},
			Title:          "Tier",
			BeforeNavigate: slugParam("tier"),
		},
		router.Route{
			Pattern: router.NotFoundPattern,
			ViewID:  "not-found",
			View:    views.NotFound{},
			Title:   "Page not found",
			Meta:    map[string]string{"description": "The page you are looking for does not exist."},
		},
	)
}

// slugParam vetoes navigations whose named param is not in slug form
func slugParam(name string) func(context.Context, router.Params) (bool, error) {
	return func(_ context.Context, params router.Params) (bool, error) {
		value := params[name]
		return value != "" && codex.Slugify(value) == value, nil
	}
}

// saveFilters persists the filters applied by the last list navigation
func (a *App) saveFilters(ctx context.Context, _ router.Params) error {
	_, err := a.Storage.Set(ctx, storage.SetInput{
		Key:   storage.KeyCurrentFilters,
		Value: a.Store.Filters(),
	})
	return err
}

func titleOf(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
