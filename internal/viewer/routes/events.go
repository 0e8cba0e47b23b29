// internal/viewer/routes/events.go

package routes

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The viewer binds to loopback; the shell may load from a cached
	// origin, so accept all.
	CheckOrigin: func(r *http.Request) bool { return true },
}

func registerEventRoutes(mux *http.ServeMux, d Deps) {
	// GET /api/events — session events (autosave, commit) as a WebSocket
	// stream, one JSON object per message.
	mux.HandleFunc("/api/events", func(w http.ResponseWriter, r *http.Request) {
		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[events] upgrade error: %v", err)
			return
		}
		defer conn.Close()

		events, cancel := d.Sessions.Subscribe()
		defer cancel()

		// Drain incoming frames (ping/pong, close) without blocking.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-r.Context().Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				if err := conn.WriteJSON(ev); err != nil {
					return
				}
			}
		}
	})
}
