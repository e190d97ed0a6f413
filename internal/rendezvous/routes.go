package rendezvous

import (
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
)

// Configure the websocket upgrader
var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024, // 64 KB
	WriteBufferSize: 64 * 1024, // 64 KB

	// Browsers connect from the game's static origin, which varies per deployment.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NewMux returns the rendezvous routes: /ws for endpoints and /health for probes.
func NewMux(hub *Hub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthCheckHandler(hub))
	mux.HandleFunc("/ws", ServeWs(hub))
	return mux
}

func healthCheckHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "Rendezvous server is healthy. %d ids registered.\n", hub.Registered())
	}
}

// ServeWs returns an http.HandlerFunc that handles websocket requests.
func ServeWs(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.logger.Warn("failed to upgrade connection", "error", err)
			return
		}

		client := NewClient(hub, conn)
		if !hub.join(client) {
			conn.Close()
			return
		}

		go client.WritePump()
		go client.ReadPump()
	}
}
