package router

import (
	"html/template"
	"io"
)

var (
	componentErrorTmpl = template.Must(template.New("component-error").Parse(
		`<div class="component-error" data-view="{{.ViewID}}">
  <h2>Could not load {{if .Title}}{{.Title}}{{else}}this page{{end}}</h2>
  <p>{{.Message}}</p>
  <a class="btn btn-primary" href="{{.Path}}">Try again</a>
</div>
`))

	genericErrorTmpl = template.Must(template.New("generic-error").Parse(
		`<div class="generic-error">
  <h2>Something went wrong</h2>
  <p>{{.Message}}</p>
  <a class="btn btn-primary" href="{{.Path}}">Reload page</a>
</div>
`))
)

type panelData struct {
	ViewID  string
	Title   string
	Message string
	Path    string
}

// writeComponentError renders the panel shown in place of a view that failed
// to render. The rest of the shell stays usable.
func writeComponentError(w io.Writer, route *Route, path string, err error) {
	_ = componentErrorTmpl.Execute(w, panelData{
		ViewID:  route.ViewID,
		Title:   route.Title,
		Message: err.Error(),
		Path:    path,
	})
}

// writeGenericError renders the full-content error with a reload link
func writeGenericError(w io.Writer, path string, err error) {
	_ = genericErrorTmpl.Execute(w, panelData{
		Message: err.Error(),
		Path:    path,
	})
}
