package rest

import (
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/morezero/fred-gateway/pkg/dispatcher"
	"github.com/morezero/fred-gateway/pkg/params"
	"github.com/morezero/fred-gateway/pkg/registry"
)

// docsPageTemplate is the HTML for the operations page (white bg, black/blue text).
const docsPageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Info.Name}}</title>
  <style>
    * { box-sizing: border-box; }
    body { background: #fff; color: #000; font-family: system-ui, sans-serif; margin: 0; padding: 2rem; line-height: 1.5; }
    a { color: #0066cc; }
    h1, h2, h3 { color: #0066cc; }
    table { border-collapse: collapse; width: 100%; max-width: 900px; margin-top: 0.5rem; }
    th, td { text-align: left; padding: 0.5rem 0.75rem; border: 1px solid #ccc; vertical-align: top; }
    th { background: #f0f4f8; color: #0066cc; }
    .meta { color: #333; font-size: 0.9rem; margin-top: 1rem; }
    .required { color: #cc0000; font-weight: bold; }
    section { margin-bottom: 2rem; }
    code { background: #f5f5f5; padding: 0 0.25rem; }
  </style>
</head>
<body>
  <h1>{{.Info.Name}}</h1>
  <p class="meta">{{.Info.Description}} Version {{.Info.Version}}.</p>

  <section>
    <h2>Endpoints</h2>
    <ul>
      {{range .Endpoints}}<li><code>{{.}}</code></li>
      {{end}}
    </ul>
    <p>Upstream reference: <a href="{{.Documentation}}">{{.Documentation}}</a></p>
  </section>

  {{range .Operations}}
  <section>
    <h2>{{.Name}}</h2>
    {{if .Description}}<p>{{.Description}}</p>{{end}}
    {{if .ToolName}}<p>MCP tool: <code>{{.ToolName}}</code></p>{{end}}
    {{if .Selector}}
    <p>Selected by <code>{{.Selector}}</code>:</p>
    {{range .Variants}}
    <h3>{{.Name}}</h3>
    {{template "fields" .Params.Fields}}
    {{end}}
    <h3>Shared parameters</h3>
    {{end}}
    {{template "fields" .Params.Fields}}
  </section>
  {{end}}
</body>
</html>
{{define "fields"}}
{{if not .}}<p>No parameters.</p>{{else}}
<table>
  <thead><tr><th>Name</th><th>Type</th><th>Default</th><th>Values</th></tr></thead>
  <tbody>
    {{range .}}
    <tr>
      <td><code>{{.Name}}</code>{{if .Required}} <span class="required">required</span>{{end}}</td>
      <td>{{kind .Kind}}</td>
      <td>{{def .Default}}</td>
      <td>{{range .Values}}{{.}} {{end}}</td>
    </tr>
    {{end}}
  </tbody>
</table>
{{end}}
{{end}}
`

// docsData is the data passed to the docs page template.
type docsData struct {
	Info          Info
	Endpoints     []string
	Documentation string
	Operations    []*registry.Operation
}

// handleDocs renders the registered operations and their parameters as HTML.
func (h *Handler) handleDocs(d *dispatcher.Dispatcher) http.HandlerFunc {
	tmpl := template.Must(template.New("docs").Funcs(template.FuncMap{
		"kind": func(k params.Kind) string { return k.String() },
		"def": func(v any) string {
			if v == nil {
				return ""
			}
			return fmt.Sprint(v)
		},
	}).Parse(docsPageTemplate))

	return func(w http.ResponseWriter, r *http.Request) {
		data := docsData{
			Info:          h.opts.Info,
			Endpoints:     AvailableEndpoints,
			Documentation: DocumentationURL,
			Operations:    d.Registry().Operations(),
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, data); err != nil {
			slog.Error(fmt.Sprintf("%s - docs template execute: %v", logPrefix, err))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}
