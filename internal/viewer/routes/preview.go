// internal/viewer/routes/preview.go

package routes

import (
	"net/http"

	"github.com/mverbeek/gitpad/internal/content"
)

func registerPreviewRoutes(mux *http.ServeMux, d Deps) {
	// POST /api/preview — render a markdown body to HTML. Stateless, so
	// the shell can preview unsaved edits.
	handlePost(mux, "/api/preview", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Body string `json:"body"`
		}
		if !readJSON(w, r, &req) {
			return
		}
		html, err := content.RenderPreview(req.Body)
		if err != nil {
			apiError(w, err)
			return
		}
		writeJSON(w, map[string]string{"html": html})
	})
}
