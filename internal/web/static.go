package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/rs/zerolog"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed assets
var assetFS embed.FS

// pageNames lists every renderable page; each shares layout.html.
var pageNames = []string{"index", "monitor", "logout", "unauthorized", "session"}

// pageData is what every template receives
type pageData struct {
	Title     string
	Version   string
	Detail    string
	Username  string
	ShowLogin bool
	Overview  any
}

type pages map[string]*template.Template

func loadPages() (pages, error) {
	p := make(pages, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		p[name] = tmpl
	}
	return p, nil
}

// render executes the named page. Execution errors are logged; headers
// are already written by then.
func (p pages) render(w http.ResponseWriter, log zerolog.Logger, status int, name string, data pageData) {
	tmpl, ok := p[name]
	if !ok {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, name+".html", data); err != nil {
		log.Error().Err(err).Str("page", name).Msg("rendering page")
	}
}

// assetsHandler serves the embedded stylesheets and scripts under /assets/
func assetsHandler() http.Handler {
	sub, err := fs.Sub(assetFS, "assets")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/assets", http.FileServer(http.FS(sub)))
}
