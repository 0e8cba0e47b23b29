// Package assets embeds the application shell. The shell is minified once
// at startup; the viewer serves it with cache-first headers so the entry
// point stays loadable offline.
package assets

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"net/http"
	"path"
	"strings"
	"sync"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
)

//go:embed shell
var shellFS embed.FS

var (
	once    sync.Once
	files   map[string][]byte
	etag    string
	initErr error
)

func contentType(name string) string {
	switch path.Ext(name) {
	case ".html":
		return "text/html; charset=utf-8"
	case ".css":
		return "text/css; charset=utf-8"
	case ".js":
		return "application/javascript; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

func build() {
	m := minify.New()
	m.AddFunc("text/html", html.Minify)
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("application/javascript", js.Minify)

	files = make(map[string][]byte)
	sum := sha256.New()

	entries, err := shellFS.ReadDir("shell")
	if err != nil {
		initErr = err
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		raw, err := shellFS.ReadFile("shell/" + e.Name())
		if err != nil {
			initErr = err
			return
		}

		mediatype := strings.SplitN(contentType(e.Name()), ";", 2)[0]
		var buf bytes.Buffer
		if err := m.Minify(mediatype, &buf, bytes.NewReader(raw)); err != nil {
			// Unknown type: serve as-is.
			buf.Reset()
			buf.Write(raw)
		}
		files[e.Name()] = buf.Bytes()
		sum.Write(buf.Bytes())
	}
	etag = fmt.Sprintf("%q", hex.EncodeToString(sum.Sum(nil))[:16])
}

// Index returns the minified shell entry point and its ETag.
func Index() ([]byte, string, error) {
	once.Do(build)
	if initErr != nil {
		return nil, "", initErr
	}
	return files["index.html"], etag, nil
}

// Handler serves the minified shell assets (everything but index.html).
func Handler() http.Handler {
	once.Do(build)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/")
		data, ok := files[name]
		if !ok || name == "index.html" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", contentType(name))
		w.Write(data)
	})
}
