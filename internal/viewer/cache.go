package viewer

import (
	"fmt"
	"net/http"
)

// noCache disables all browser caching. Every /api route goes through this:
// content, drafts and session state must always come from the live process,
// never a cache.
func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")

		w.Header().Del("ETag")
		w.Header().Del("Last-Modified")

		next.ServeHTTP(w, r)
	})
}

// shellCache marks the application shell cacheable so navigation entry
// points load offline. maxAge of 0 falls back to revalidation-only.
func shellCache(maxAge int, etag string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if maxAge > 0 {
			w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", maxAge))
		} else {
			w.Header().Set("Cache-Control", "no-cache")
		}
		w.Header().Set("ETag", etag)

		if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}

		next.ServeHTTP(w, r)
	})
}
