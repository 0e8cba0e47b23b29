// internal/viewer/routes/helpers.go

package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/mverbeek/gitpad/internal/remote"
	"github.com/mverbeek/gitpad/internal/session"
)

func handleGet(mux *http.ServeMux, pattern string, fn http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		fn(w, r)
	})
}

func handlePost(mux *http.ServeMux, pattern string, fn http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		fn(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(v)
}

func readJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// apiError maps domain errors onto HTTP status codes and writes a JSON
// error body so the shell can branch on the kind.
func apiError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, remote.ErrAuth):
		status = http.StatusUnauthorized
	case errors.Is(err, remote.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, remote.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, session.ErrNoRemote):
		status = http.StatusUnauthorized
	case remote.IsNetwork(err):
		status = http.StatusBadGateway
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// normalizeRel cleans a repository-relative file path. Empty or escaping
// paths come back empty and must be rejected by the caller.
func normalizeRel(p string) string {
	p = strings.TrimSpace(p)
	p = strings.TrimPrefix(p, "/")
	p = strings.ReplaceAll(p, `\`, "/")
	p = path.Clean(p)
	if p == "." || p == "" || strings.HasPrefix(p, "..") {
		return ""
	}
	return strings.TrimPrefix(p, "/")
}

func hasExtension(name string, exts []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
