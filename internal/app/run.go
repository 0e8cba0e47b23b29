package app

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/mverbeek/gitpad/internal/config"
	"github.com/mverbeek/gitpad/internal/remote"
	"github.com/mverbeek/gitpad/internal/session"
	"github.com/mverbeek/gitpad/internal/store"
	"github.com/mverbeek/gitpad/internal/util"
	"github.com/mverbeek/gitpad/internal/viewer"
)

type Options struct {
	DataDir string
	CfgPath string
	Cfg     config.Config
}

// clientHolder hands the active repository client between the auth routes
// (which replace it on login/logout) and everything that reads it.
type clientHolder struct {
	mu sync.RWMutex
	c  *remote.Client
}

func (h *clientHolder) get() *remote.Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.c
}

func (h *clientHolder) set(c *remote.Client) {
	h.mu.Lock()
	h.c = c
	h.mu.Unlock()
}

func Run(ctx context.Context, opt Options) error {
	logBuf := viewer.NewLogBuffer(800)
	log.SetOutput(logBuf)

	cfg := opt.Cfg
	var cfgMu sync.RWMutex
	currentCfg := func() config.Config {
		cfgMu.RLock()
		defer cfgMu.RUnlock()
		return cfg
	}

	// ── Local store
	dbPath := util.ResolvePath(opt.DataDir, cfg.Paths.Database)
	keyPath := util.ResolvePath(opt.DataDir, cfg.Paths.SealKey)
	db, err := store.Open(dbPath, keyPath)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Printf("[app] store ready at %s", dbPath)

	// ── Sessions
	delay := time.Duration(cfg.Editor.AutosaveDebounceMs) * time.Millisecond
	sessions := session.NewManager(db, delay)

	holder := &clientHolder{}
	setClient := func(c *remote.Client) {
		holder.set(c)
		if c == nil {
			sessions.SetRemote(nil)
			return
		}
		sessions.SetRemote(c)
	}

	// Stored credentials make restarts seamless: the client comes up
	// without a login round-trip, and the token never re-enters the UI.
	if creds, ok := db.Credentials(); ok {
		setClient(remote.New(remote.Options{
			APIBase: cfg.Remote.APIBase,
			Token:   creds.Token,
			Owner:   creds.Owner,
			Repo:    creds.Repo,
			Branch:  cfg.Remote.Branch,
			Timeout: time.Duration(cfg.Remote.TimeoutSec) * time.Second,
		}))
		log.Printf("[app] restored session for %s/%s", creds.Owner, creds.Repo)
	}

	// ── Config watcher
	if opt.CfgPath != "" {
		w, err := config.Watch(opt.CfgPath, func(next config.Config) {
			cfgMu.Lock()
			cfg = next
			cfgMu.Unlock()
			sessions.SetAutosaveDelay(time.Duration(next.Editor.AutosaveDebounceMs) * time.Millisecond)
			log.Printf("[app] config reloaded")
		})
		if err != nil {
			log.Printf("[app] config watch unavailable: %v", err)
		} else {
			defer w.Close()
		}
	}

	// ── Viewer
	addr := cfg.Viewer.HTTPAddr
	errCh := make(chan error, 1)
	go func() {
		log.Printf("[app] viewer listening on http://%s", addr)
		errCh <- viewer.Start(addr, viewer.Viewer{
			DB:        db,
			Sessions:  sessions,
			Client:    holder.get,
			SetClient: setClient,
			Cfg:       currentCfg,
			Logs:      logBuf,
		})
	}()

	select {
	case <-ctx.Done():
		log.Printf("[app] shutting down, flushing sessions")
		sessions.Shutdown()
		return nil
	case err := <-errCh:
		sessions.Shutdown()
		return err
	}
}
