// internal/viewer/routes/register.go
package routes

import (
	"net/http"

	"github.com/mverbeek/gitpad/internal/config"
	"github.com/mverbeek/gitpad/internal/remote"
	"github.com/mverbeek/gitpad/internal/session"
	"github.com/mverbeek/gitpad/internal/store"
)

type Logs interface {
	ServeLogsJSON(w http.ResponseWriter, r *http.Request)
	ServeLogsSSE(w http.ResponseWriter, r *http.Request)
}

type Deps struct {
	DB       *store.DB
	Sessions *session.Manager

	// Client returns the active repository client, nil before login.
	Client    func() *remote.Client
	SetClient func(*remote.Client)

	Cfg  func() config.Config
	Logs Logs
}

func Register(mux *http.ServeMux, d Deps) {
	registerAPILogRoutes(mux, d)

	registerAuthRoutes(mux, d)
	registerFileRoutes(mux, d)
	registerEditorRoutes(mux, d)
	registerPreviewRoutes(mux, d)
	registerEventRoutes(mux, d)
}
