package public

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var pageTitles = map[string]string{
	"home":     "Home",
	"about":    "About",
	"benefits": "Benefits",
	"faq":      "FAQ",
	"register": "Register",
	"thankyou": "Thank you",
}

// parsePages builds one template set per page so each can define its own content block.
func parsePages() map[string]*template.Template {
	pages := make(map[string]*template.Template, len(pageTitles))
	for name := range pageTitles {
		pages[name] = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html"))
	}
	return pages
}

// pageHandler renders the named page inside the shared layout.
func (h *Handler) pageHandler(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		data := struct{ Title string }{Title: pageTitles[name]}
		if err := h.pages[name].ExecuteTemplate(w, "layout", data); err != nil {
			h.logger.Error().Err(err).Str("page", name).Msg("render page")
		}
	}
}

// staticHandler serves the embedded static assets.
func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
