// internal/viewer/routes/auth.go

package routes

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/mverbeek/gitpad/internal/remote"
	"github.com/mverbeek/gitpad/internal/store"
)

func registerAuthRoutes(mux *http.ServeMux, d Deps) {
	// POST /api/auth/login — validate the token against the repository,
	// then persist the credentials for the next launch.
	handlePost(mux, "/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Owner string `json:"owner"`
			Repo  string `json:"repo"`
			Token string `json:"token"`
		}
		if !readJSON(w, r, &req) {
			return
		}
		req.Owner = strings.TrimSpace(req.Owner)
		req.Repo = strings.TrimSpace(req.Repo)
		req.Token = strings.TrimSpace(req.Token)
		if req.Owner == "" || req.Repo == "" || req.Token == "" {
			http.Error(w, "owner, repo and token required", http.StatusBadRequest)
			return
		}

		cfg := d.Cfg()
		client := remote.New(remote.Options{
			APIBase: cfg.Remote.APIBase,
			Token:   req.Token,
			Owner:   req.Owner,
			Repo:    req.Repo,
			Branch:  cfg.Remote.Branch,
			Timeout: time.Duration(cfg.Remote.TimeoutSec) * time.Second,
		})

		ok, err := client.Validate(r.Context())
		if err != nil {
			apiError(w, err)
			return
		}
		if !ok {
			apiError(w, remote.ErrAuth)
			return
		}

		if err := d.DB.SaveCredentials(store.Credentials{
			Token: req.Token,
			Owner: req.Owner,
			Repo:  req.Repo,
		}); err != nil {
			log.Printf("[auth] persist credentials: %v", err)
			apiError(w, err)
			return
		}

		d.SetClient(client)
		log.Printf("[auth] signed in to %s/%s", req.Owner, req.Repo)
		writeJSON(w, map[string]string{"status": "ok", "owner": req.Owner, "repo": req.Repo})
	})

	// POST /api/auth/logout — drop credentials; drafts stay untouched.
	handlePost(mux, "/api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		if err := d.DB.ClearCredentials(); err != nil {
			apiError(w, err)
			return
		}
		d.SetClient(nil)
		log.Printf("[auth] signed out")
		writeJSON(w, map[string]string{"status": "ok"})
	})

	// GET /api/auth/status
	handleGet(mux, "/api/auth/status", func(w http.ResponseWriter, r *http.Request) {
		creds, ok := d.DB.Credentials()
		writeJSON(w, map[string]any{
			"authenticated": ok && d.Client() != nil,
			"owner":         creds.Owner,
			"repo":          creds.Repo,
		})
	})
}
