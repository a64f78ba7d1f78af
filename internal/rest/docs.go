package rest

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"
)

// docsPolicy relaxes the server-wide CSP just enough for the page's
// inline stylesheet.
const docsPolicy = "default-src 'none'; style-src 'unsafe-inline'; frame-ancestors 'none'"

var docsTemplate = template.Must(template.New("docs").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}} tools</title>
<style>
body { font-family: sans-serif; max-width: 60rem; margin: 2rem auto; padding: 0 1rem; color: #222; }
h2 { border-bottom: 1px solid #ccc; padding-bottom: .25rem; }
code, pre { background: #f5f5f5; }
pre { padding: .5rem; overflow-x: auto; }
.tool { margin-bottom: 1.5rem; }
.muted { color: #666; }
</style>
</head>
<body>
<h1>{{.Title}} <span class="muted">{{.Version}}</span></h1>
<p>{{.Count}} tools. Machine-readable description: <a href="/openapi.json">/openapi.json</a>.</p>
{{range .Categories}}
<h2 id="{{.Name}}">{{.Tag}}</h2>
{{if .Skill}}<p class="muted">{{.Skill}}</p>{{end}}
{{range .Tools}}
<div class="tool">
<h3><code>POST {{.Endpoint}}</code></h3>
{{if .Description}}<p>{{.Description}}</p>{{end}}
<pre>{{.Schema}}</pre>
</div>
{{end}}
{{end}}
</body>
</html>
`))

type docsTool struct {
	Endpoint    string
	Description string
	Schema      string
}

type docsCategory struct {
	Name  string
	Tag   string
	Skill string
	Tools []docsTool
}

type docsPage struct {
	Title      string
	Version    string
	Count      int
	Categories []docsCategory
}

func (rt *Routes) renderDocs() ([]byte, error) {
	page := docsPage{
		Title:   rt.openapi.Info.Title,
		Version: rt.openapi.Info.Version,
		Count:   len(rt.order),
	}
	for _, cat := range rt.Categories() {
		dc := docsCategory{Name: cat, Tag: FormatTag(cat)}
		if skill, ok := rt.skills[cat]; ok {
			dc.Skill = skill.Description
		}
		for _, ts := range rt.categories[cat] {
			schema, err := json.MarshalIndent(rt.endpoints[ts.Name].model.JSONSchema(), "", "  ")
			if err != nil {
				return nil, err
			}
			dc.Tools = append(dc.Tools, docsTool{
				Endpoint:    ts.Endpoint,
				Description: ts.Description,
				Schema:      string(schema),
			})
		}
		page.Categories = append(page.Categories, dc)
	}

	var buf bytes.Buffer
	if err := docsTemplate.Execute(&buf, page); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (rt *Routes) handleDocs(w http.ResponseWriter, r *http.Request) {
	body, err := rt.renderDocs()
	if err != nil {
		rt.logger.ForContext(r.Context()).Error().Err(err).Msg("failed to render docs page")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Security-Policy", docsPolicy)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
