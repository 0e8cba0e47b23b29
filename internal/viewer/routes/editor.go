// internal/viewer/routes/editor.go

package routes

import (
	"net/http"

	"github.com/mverbeek/gitpad/internal/content"
)

func registerEditorRoutes(mux *http.ServeMux, d Deps) {
	// POST /api/editor/open — open (or resume) an editing session.
	handlePost(mux, "/api/editor/open", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Path   string `json:"path"`
			Create bool   `json:"create"`
		}
		if !readJSON(w, r, &req) {
			return
		}
		p := normalizeRel(req.Path)
		if p == "" {
			http.Error(w, "missing path", http.StatusBadRequest)
			return
		}
		sess, err := d.Sessions.Open(r.Context(), p, req.Create)
		if err != nil {
			apiError(w, err)
			return
		}
		writeJSON(w, sess.State())
	})

	// GET /api/editor/state?path=X
	handleGet(mux, "/api/editor/state", func(w http.ResponseWriter, r *http.Request) {
		p := normalizeRel(r.URL.Query().Get("path"))
		sess, ok := d.Sessions.Get(p)
		if !ok {
			http.Error(w, "no session for path", http.StatusNotFound)
			return
		}
		writeJSON(w, sess.State())
	})

	// POST /api/editor/edit — replace the working copy; the autosave
	// window restarts on every call.
	handlePost(mux, "/api/editor/edit", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Path        string              `json:"path"`
			Body        *string             `json:"body"`
			Frontmatter content.Frontmatter `json:"frontmatter"`
		}
		if !readJSON(w, r, &req) {
			return
		}
		sess, ok := d.Sessions.Get(normalizeRel(req.Path))
		if !ok {
			http.Error(w, "no session for path", http.StatusNotFound)
			return
		}
		if req.Body != nil {
			sess.SetBody(*req.Body)
		}
		if req.Frontmatter != nil {
			sess.SetFrontmatter(req.Frontmatter)
		}
		writeJSON(w, sess.State())
	})

	// POST /api/editor/commit — publish the working copy to the remote.
	handlePost(mux, "/api/editor/commit", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Path    string `json:"path"`
			Message string `json:"message"`
		}
		if !readJSON(w, r, &req) {
			return
		}
		sess, ok := d.Sessions.Get(normalizeRel(req.Path))
		if !ok {
			http.Error(w, "no session for path", http.StatusNotFound)
			return
		}
		state, err := sess.Commit(r.Context(), req.Message)
		if err != nil {
			apiError(w, err)
			return
		}
		writeJSON(w, state)
	})

	// POST /api/editor/discard — drop the draft and reload the remote copy.
	handlePost(mux, "/api/editor/discard", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Path string `json:"path"`
		}
		if !readJSON(w, r, &req) {
			return
		}
		sess, ok := d.Sessions.Get(normalizeRel(req.Path))
		if !ok {
			http.Error(w, "no session for path", http.StatusNotFound)
			return
		}
		state, err := sess.Discard(r.Context())
		if err != nil {
			apiError(w, err)
			return
		}
		writeJSON(w, state)
	})

	// POST /api/editor/release — close the session; pending edits are
	// flushed to the draft store first.
	handlePost(mux, "/api/editor/release", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Path string `json:"path"`
		}
		if !readJSON(w, r, &req) {
			return
		}
		d.Sessions.Release(normalizeRel(req.Path))
		writeJSON(w, map[string]string{"status": "ok"})
	})
}
