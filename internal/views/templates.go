package views

import (
	"html/template"
	"strings"

	"github.com/KirkDiggler/rpg-codex/internal/entities/codex"
)

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

var funcs = template.FuncMap{
	"title": titleCase,
	"label": func(s string) string {
		return strings.ReplaceAll(s, "_", " ")
	},
	"field": func(r codex.Record, name string) string {
		return r.Field(name)
	},
}

var tmpl = template.Must(template.New("views").Funcs(funcs).Parse(`
{{define "banner"}}{{if .}}<div class="fallback-banner" role="status">
  Showing bundled sample data. Live data could not be reached.
</div>
{{end}}{{end}}

{{define "home"}}<section class="home">
{{template "banner" .FallbackMode}}  <h1>{{.SiteName}}</h1>
  <ul class="type-grid">
{{range .Types}}    <li><a href="/{{.Type}}">{{title (print .Type)}}</a> <span class="count">{{.Count}}</span></li>
{{end}}  </ul>
</section>
{{end}}

{{define "list"}}<section class="list" data-type="{{.Type}}">
{{template "banner" .Fallback}}  <h1>{{title (print .Type)}}</h1>
  <form class="search" action="/{{.Type}}" method="get">
    <input type="search" name="q" value="{{.Query}}" placeholder="Search {{.Type}}">
  </form>
{{if .Loading}}  <p class="loading">Loading...</p>
{{end}}{{if .Error}}  <p class="error">{{.Error}}</p>
{{end}}{{range .Facets}}  <nav class="facet" data-field="{{.Field}}">
    <span>{{title (label .Field)}}:</span>
{{range .Options}}    <a href="{{.Href}}"{{if .Active}} class="active"{{end}}>{{.Value}}</a>
{{end}}  </nav>
{{end}}{{if .Filtered}}  <a class="clear-filters" href="/{{.Type}}">Clear filters</a>
{{end}}  <p class="total">{{len .Records}} of {{.Total}}</p>
  <ul class="cards">
{{range .Records}}    <li class="card{{if .IsFallback}} sample{{end}}"><a href="/{{.Type}}/{{.Slug}}">{{.Name}}</a>{{if .Tier}} <span class="tier">{{.Tier}}</span>{{end}}{{if .Category}} <span class="category">{{.Category}}</span>{{end}}</li>
{{else}}    <li class="empty">No {{.Type}} match.</li>
{{end}}  </ul>
</section>
{{end}}

{{define "detail"}}<article class="detail" data-type="{{.Record.Type}}">
  <a class="back" href="/{{.Record.Type}}">All {{.Record.Type}}</a>
  <h1>{{.Record.Name}}</h1>
{{if .Record.IsFallback}}  <p class="sample">Sample data</p>
{{end}}{{if .Record.Description}}  <p class="description">{{.Record.Description}}</p>
{{end}}  <dl>
{{if .Record.Tier}}    <dt>Tier</dt><dd>{{.Record.Tier}}</dd>
{{end}}{{if .Record.Category}}    <dt>Category</dt><dd>{{.Record.Category}}</dd>
{{end}}{{range .Attributes}}    <dt>{{title (label .)}}</dt><dd>{{field $.Record .}}</dd>
{{end}}  </dl>
</article>
{{end}}

{{define "calculators"}}<section class="calculators">
  <h1>Calculators</h1>
  <ul>
{{range .}}    <li><h2><a href="/calculators/{{.Slug}}">{{.Name}}</a></h2><p>{{.Description}}</p></li>
{{end}}  </ul>
</section>
{{end}}

{{define "calculator"}}<section class="calculator" data-calculator="{{.Calculator.Slug}}">
  <h1>{{.Calculator.Name}} Calculator</h1>
  <p>{{.Calculator.Description}}</p>
  <form class="calculator-form">
    <select name="record">
{{range .Options}}      <option value="{{.Slug}}">{{.Name}}</option>
{{end}}    </select>
    <output name="result"></output>
  </form>
  <a href="/calculators">All calculators</a>
</section>
{{end}}

{{define "tips"}}<section class="tips">
  <h1>Tips{{with .Category}}: {{title .}}{{end}}</h1>
  <nav class="tip-categories">
{{range .Categories}}    <a href="/tips/{{.}}"{{if eq . $.Category}} class="active"{{end}}>{{title .}}</a>
{{end}}  </nav>
  <ul>
{{range .Items}}    <li>{{.Text}}</li>
{{end}}  </ul>
</section>
{{end}}

{{define "tiers"}}<section class="tiers">
  <h1>Tiers</h1>
  <ul>
{{range .}}    <li><a href="/tiers/{{.Slug}}">{{.Name}}</a> <span class="count">{{.Count}}</span></li>
{{end}}  </ul>
</section>
{{end}}

{{define "tier"}}<section class="tier">
  <h1>{{.Tier.Name}} tier</h1>
  <ul>
{{range .Creatures}}    <li><a href="/creatures/{{.Slug}}">{{.Name}}</a></li>
{{end}}  </ul>
  <a href="/tiers">All tiers</a>
</section>
{{end}}

{{define "not-found"}}<section class="not-found">
  <h1>Page not found</h1>
  <p>Nothing lives at <code>{{.Path}}</code>.</p>
  <a class="btn btn-primary" href="/">Back home</a>
</section>
{{end}}

{{define "layout"}}<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Document.Title}}</title>
{{if .Document.Description}}  <meta name="description" content="{{.Document.Description}}">
{{end}}{{range $k, $v := .Document.OpenGraph}}  <meta property="{{$k}}" content="{{$v}}">
{{end}}</head>
<body data-scroll="{{.Scroll}}" data-view="{{.ViewID}}">
  <header>
    <a class="brand" href="/">{{.SiteName}}</a>
    <nav>
{{range .Nav}}      <a href="{{.Href}}"{{if .Active}} class="active"{{end}}>{{.Label}}</a>
{{end}}    </nav>
  </header>
  <main id="app">{{.Content}}</main>
  <footer>{{.SiteName}} v{{.Version}}</footer>
  <script>
    (function () {
      var ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
      ws.onmessage = function (ev) {
        var page = JSON.parse(ev.data);
        if (page.path !== location.pathname) return;
        document.getElementById("app").innerHTML = page.content;
        document.title = page.document.title;
      };
      window.addEventListener("popstate", function () {
        ws.send(JSON.stringify({type: "popstate", path: location.pathname + location.search}));
      });
    })();
  </script>
</body>
</html>
{{end}}

{{define "bootstrap-error"}}<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>{{.SiteName}}</title>
</head>
<body>
  <div class="bootstrap-error">
    <h1>{{.SiteName}} failed to start</h1>
    <p>{{.Message}}</p>
    <a class="btn btn-primary" href="/">Reload page</a>
  </div>
</body>
</html>
{{end}}
`))
