// internal/viewer/routes/files.go

package routes

import (
	"net/http"

	"github.com/mverbeek/gitpad/internal/session"
)

func registerFileRoutes(mux *http.ServeMux, d Deps) {
	// GET /api/files — editable files in the repository, recursively,
	// flagged with whether a local draft exists for them.
	handleGet(mux, "/api/files", func(w http.ResponseWriter, r *http.Request) {
		client := d.Client()
		if client == nil {
			apiError(w, session.ErrNoRemote)
			return
		}

		files, err := client.List(r.Context(), "")
		if err != nil {
			apiError(w, err)
			return
		}

		drafted := map[string]bool{}
		if drafts, err := d.DB.ListDrafts(); err == nil {
			for _, dr := range drafts {
				drafted[dr.Path] = true
			}
		}

		exts := d.Cfg().Editor.Extensions
		type entry struct {
			Path  string `json:"path"`
			SHA   string `json:"sha"`
			Draft bool   `json:"draft"`
		}
		out := []entry{}
		for _, f := range files {
			if f.Type != "file" {
				continue
			}
			if len(exts) > 0 && !hasExtension(f.Name, exts) {
				continue
			}
			out = append(out, entry{Path: f.Path, SHA: f.SHA, Draft: drafted[f.Path]})
		}
		writeJSON(w, out)
	})

	// GET /api/file?path=X — raw remote content plus its version token.
	handleGet(mux, "/api/file", func(w http.ResponseWriter, r *http.Request) {
		client := d.Client()
		if client == nil {
			apiError(w, session.ErrNoRemote)
			return
		}
		p := normalizeRel(r.URL.Query().Get("path"))
		if p == "" {
			http.Error(w, "missing path", http.StatusBadRequest)
			return
		}
		fc, err := client.Read(r.Context(), p)
		if err != nil {
			apiError(w, err)
			return
		}
		writeJSON(w, map[string]string{
			"path":    fc.Path,
			"sha":     fc.SHA,
			"content": string(fc.Content),
		})
	})

	// GET /api/drafts — the offline fallback listing.
	handleGet(mux, "/api/drafts", func(w http.ResponseWriter, r *http.Request) {
		drafts, err := d.DB.ListDrafts()
		if err != nil {
			apiError(w, err)
			return
		}
		type entry struct {
			Path    string `json:"path"`
			SavedAt int64  `json:"saved_at"`
		}
		out := make([]entry, 0, len(drafts))
		for _, dr := range drafts {
			out = append(out, entry{Path: dr.Path, SavedAt: dr.SavedAt.UnixMilli()})
		}
		writeJSON(w, out)
	})
}
