package viewer

import (
	"net/http"

	"github.com/mverbeek/gitpad/internal/config"
	"github.com/mverbeek/gitpad/internal/remote"
	"github.com/mverbeek/gitpad/internal/session"
	"github.com/mverbeek/gitpad/internal/store"
	viewerassets "github.com/mverbeek/gitpad/internal/ui/assets"
	"github.com/mverbeek/gitpad/internal/viewer/routes"
)

type Viewer struct {
	DB       *store.DB
	Sessions *session.Manager

	// Client returns the active repository client, nil before login.
	Client    func() *remote.Client
	SetClient func(*remote.Client)

	Cfg  func() config.Config
	Logs *LogBuffer
}

func Start(addr string, v Viewer) error {
	index, etag, err := viewerassets.Index()
	if err != nil {
		return err
	}

	mux := http.NewServeMux()

	// The shell is cache-first: it must keep loading with the network
	// down so stored drafts stay reachable. API responses never cache.
	maxAge := v.Cfg().Viewer.ShellMaxAgeSec
	mux.Handle("/", shellCache(maxAge, etag, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(index)
	})))
	mux.Handle("/style.css", shellCache(maxAge, etag, viewerassets.Handler()))
	mux.Handle("/app.js", shellCache(maxAge, etag, viewerassets.Handler()))

	deps := routes.Deps{
		DB:        v.DB,
		Sessions:  v.Sessions,
		Client:    v.Client,
		SetClient: v.SetClient,
		Cfg:       v.Cfg,
		Logs:      v.Logs,
	}
	apiMux := http.NewServeMux()
	routes.Register(apiMux, deps)
	mux.Handle("/api/", noCache(apiMux))

	return http.ListenAndServe(addr, mux)
}
