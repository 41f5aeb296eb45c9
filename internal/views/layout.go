package views

import (
	"html/template"
	"io"
	"strings"

	"github.com/KirkDiggler/rpg-codex/internal/entities/codex"
	"github.com/KirkDiggler/rpg-codex/internal/router"
)

// NavLink is one entry of the header navigation
type NavLink struct {
	Label  string
	Href   string
	Active bool
}

// Navigation returns the header links with the section of path marked active
func Navigation(path string) []NavLink {
	links := []NavLink{{Label: "Home", Href: "/"}}
	for _, t := range codex.AllDataTypes() {
		links = append(links, NavLink{Label: titleCase(string(t)), Href: "/" + string(t)})
	}
	links = append(links,
		NavLink{Label: "Calculators", Href: "/calculators"},
		NavLink{Label: "Tips", Href: "/tips"},
		NavLink{Label: "Tiers", Href: "/tiers"},
	)

	for i := range links {
		href := links[i].Href
		if href == "/" {
			links[i].Active = path == "/"
			continue
		}
		links[i].Active = path == href || strings.HasPrefix(path, href+"/")
	}
	return links
}

// LayoutInput describes a full document around a rendered page
type LayoutInput struct {
	SiteName string
	Version  string
	Page     router.Page
}

// WriteLayout renders the full HTML document for a committed page. Page
// content was produced by the views and is trusted markup.
func WriteLayout(w io.Writer, input *LayoutInput) error {
	return tmpl.ExecuteTemplate(w, "layout", struct {
		SiteName string
		Version  string
		ViewID   string
		Scroll   router.ScrollBehavior
		Document router.Document
		Nav      []NavLink
		Content  template.HTML
	}{
		SiteName: input.SiteName,
		Version:  input.Version,
		ViewID:   input.Page.ViewID,
		Scroll:   input.Page.Scroll,
		Document: input.Page.Document,
		Nav:      Navigation(input.Page.Path),
		Content:  template.HTML(input.Page.Content),
	})
}

// WriteBootstrapError renders the full-page screen shown when the app failed
// to start
func WriteBootstrapError(w io.Writer, siteName string, err error) error {
	return tmpl.ExecuteTemplate(w, "bootstrap-error", struct {
		SiteName string
		Message  string
	}{
		SiteName: siteName,
		Message:  err.Error(),
	})
}
