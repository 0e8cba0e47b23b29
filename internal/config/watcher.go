package config

import (
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the config file when it changes on disk. Editors tend to
// fire several write events per save, so reloads are debounced.
type Watcher struct {
	path     string
	onReload func(Config)

	mu    sync.Mutex
	timer *time.Timer

	fsw    *fsnotify.Watcher
	closed chan struct{}
}

const reloadDebounce = 300 * time.Millisecond

// Watch starts watching path. onReload is called with the freshly loaded
// config after each (debounced) change; invalid configs are logged and skipped.
func Watch(path string, onReload func(Config)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory, not the file: many editors replace the file on
	// save, which would drop a direct file watch.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		path:     path,
		onReload: onReload,
		fsw:      fsw,
		closed:   make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.closed:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				w.scheduleReload()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("config: watcher error: %v", err)
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(reloadDebounce, w.reload)
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		log.Printf("config: reload skipped: %v", err)
		return
	}
	log.Printf("config: reloaded %s", w.path)
	if w.onReload != nil {
		w.onReload(cfg)
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	close(w.closed)
	return w.fsw.Close()
}
