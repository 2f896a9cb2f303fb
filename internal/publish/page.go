package publish

import (
	"bytes"
	"html/template"
)

// PageData holds everything the page template needs to render one page.
type PageData struct {
	SiteName    string
	Title       string
	Description string
	Keywords    string
	NoIndex     bool
	Nav         []NavLink
	ContentHTML template.HTML
}

// NavLink is one entry in the published site's navigation.
type NavLink struct {
	Title string
	Href  string
}

var pageTemplate = template.Must(template.New("page").Parse(pageTemplateHTML))

// asHTML marks an already-escaped fragment as safe for template insertion.
func asHTML(fragment string) template.HTML {
	return template.HTML(fragment)
}

// RenderPageHTML renders a complete HTML document for one published page.
func RenderPageHTML(data PageData) (string, error) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const pageTemplateHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{if .Title}}{{.Title}}{{else}}{{.SiteName}}{{end}}</title>
  {{if .Description}}<meta name="description" content="{{.Description}}">{{end}}
  {{if .Keywords}}<meta name="keywords" content="{{.Keywords}}">{{end}}
  {{if .NoIndex}}<meta name="robots" content="noindex">{{end}}
  <style>
    * { box-sizing: border-box; }
    body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; margin: 0; line-height: 1.6; color: #1a1a1a; }
    nav { display: flex; gap: 1.5rem; padding: 1rem 2rem; border-bottom: 1px solid #eee; }
    nav a { color: inherit; text-decoration: none; }
    main { max-width: 1100px; margin: 0 auto; padding: 2rem; }
    section { padding: 2rem 0; }
    img, video { max-width: 100%; }
    .btn { display: inline-block; padding: 0.6rem 1.4rem; background: #0066cc; color: #fff; border-radius: 6px; text-decoration: none; }
    .product-grid { display: grid; grid-template-columns: repeat(auto-fill, minmax(220px, 1fr)); gap: 1.5rem; }
    @media (max-width: 640px) { main { padding: 1rem; } nav { padding: 1rem; } }
  </style>
</head>
<body>
  {{if .Nav}}<nav>
    {{range .Nav}}<a href="{{.Href}}">{{.Title}}</a>
    {{end}}</nav>{{end}}
  <main>
{{.ContentHTML}}  </main>
</body>
</html>`
