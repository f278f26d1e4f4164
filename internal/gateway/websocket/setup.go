package websocket

import (
	"fmt"
	"net/http"

	"github.com/nexusdaemon/nexus/internal/common/logger"
)

// Gateway is the live event-stream bridge: a viewer connects over
// WebSocket and receives every watcher event Nexus publishes, live, so a
// browser-based trajectory viewer or remote dashboard never has to poll.
type Gateway struct {
	Hub     *Hub
	Handler *Handler
	logger  *logger.Logger
}

// NewGateway creates a new event-stream gateway.
func NewGateway(log *logger.Logger) *Gateway {
	hub := NewHub(log)
	handler := NewHandler(hub, log)
	return &Gateway{Hub: hub, Handler: handler, logger: log}
}

// SetupRoutes registers the gateway's routes on mux: /ws for the event
// stream and /healthz for a liveness probe.
func (g *Gateway) SetupRoutes(mux *http.ServeMux) {
	mux.Handle("/ws", g.Handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok","service":"nexus","clients":%d}`, g.Hub.GetClientCount())
	})
}
