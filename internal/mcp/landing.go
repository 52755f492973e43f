package mcp

import (
	"html/template"
	"net/http"
)

var landingTemplate = template.Must(template.New("landing").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>doc-ingest search</title>
<style>
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; background: #0f172a; color: #e2e8f0; display: flex; justify-content: center; padding-top: 10vh; }
  .card { max-width: 600px; width: 90%; background: #1e293b; border-radius: 12px; padding: 2.5rem; }
  h1 { font-size: 1.5rem; margin: 0 0 1rem; }
  dt { font-size: 0.75rem; text-transform: uppercase; color: #64748b; margin-top: 0.75rem; }
  dd { margin: 0; font-family: Menlo, monospace; }
  a { color: #38bdf8; }
</style>
</head>
<body>
<div class="card">
  <h1>doc-ingest search</h1>
  <dl>
    <dt>Index</dt><dd>{{.Index}}</dd>
    <dt>Namespace</dt><dd>{{.Namespace}}</dd>
    <dt>Embedding model</dt><dd>{{.Model}}</dd>
    <dt>Endpoints</dt><dd><a href="/mcp">/mcp</a> (MCP Streamable HTTP), <a href="/health">/health</a></dd>
  </dl>
</div>
</body>
</html>`))

// NewLandingHandler returns an HTTP handler that serves the landing page at /.
func NewLandingHandler(index, namespace, model string) http.HandlerFunc {
	data := struct{ Index, Namespace, Model string }{index, namespace, model}
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		landingTemplate.Execute(w, data)
	}
}
