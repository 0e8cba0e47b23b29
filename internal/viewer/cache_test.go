package viewer

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNoCacheStripsValidators(t *testing.T) {
	h := noCache(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("live"))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/files", nil))

	if cc := rec.Header().Get("Cache-Control"); !strings.Contains(cc, "no-store") {
		t.Fatalf("Cache-Control = %q", cc)
	}
	if rec.Header().Get("ETag") != "" {
		t.Fatal("ETag should be removed")
	}
}

func TestShellCacheServesAndRevalidates(t *testing.T) {
	h := shellCache(3600, `"abc123"`, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("shell"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "shell" {
		t.Fatalf("first load: %d %q", rec.Code, rec.Body.String())
	}
	if cc := rec.Header().Get("Cache-Control"); !strings.Contains(cc, "max-age=3600") {
		t.Fatalf("Cache-Control = %q", cc)
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("If-None-Match", `"abc123"`)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotModified {
		t.Fatalf("revalidation: %d, want 304", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Fatal("304 must carry no body")
	}
}
