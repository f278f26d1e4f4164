// Package websocket streams Nexus's live accessibility events to connected
// viewers (a browser-based trajectory viewer, a remote agent dashboard) over
// a single broadcast channel, mirroring the teacher's unified WebSocket
// gateway but with task/session notification fan-out replaced by
// watcher-event fan-out.
package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/nexusdaemon/nexus/internal/common/logger"
	"github.com/nexusdaemon/nexus/internal/events/bus"
	ws "github.com/nexusdaemon/nexus/pkg/websocket"
)

// Hub manages all connected WebSocket viewers and fans out watcher events to
// them, filtered by each client's subscribed event kinds.
type Hub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *ws.Message

	mu     sync.RWMutex
	logger *logger.Logger
}

// NewHub creates a new event-stream hub.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *ws.Message, 256),
		logger:     log.WithFields(zap.String("component", "ws_hub")),
	}
}

// Run starts the hub's main processing loop. It returns when ctx is
// cancelled, closing every connected client.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("event stream hub started")
	defer h.logger.Info("event stream hub stopped")

	for {
		select {
		case <-ctx.Done():
			h.closeAllClients()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("client registered", zap.String("client_id", client.ID))

		case client := <-h.unregister:
			h.removeClient(client)

		case msg := <-h.broadcast:
			h.broadcastMessage(msg)
		}
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	h.logger.Debug("client unregistered", zap.String("client_id", client.ID))
}

// broadcastMessage delivers msg to every client whose kind filter accepts
// msg's action (the watcher event type).
func (h *Hub) broadcastMessage(msg *ws.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal broadcast message", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if !client.wants(msg.Action) {
			continue
		}
		select {
		case client.send <- data:
		default:
			h.logger.Warn("client send buffer full, dropping event", zap.String("client_id", client.ID))
		}
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) { h.register <- client }

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) { h.unregister <- client }

// Broadcast pushes a notification to every subscribed client.
func (h *Hub) Broadcast(msg *ws.Message) { h.broadcast <- msg }

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// PublishEvent converts a bus.Event into a notification and broadcasts it.
// It is the subscription handler wired up by Provide against the watcher's
// "watcher.event.>" subject.
func (h *Hub) PublishEvent(ctx context.Context, evt *bus.Event) error {
	msg, err := ws.NewNotification(evt.Type, evt.Data)
	if err != nil {
		h.logger.Error("failed to build notification", zap.Error(err))
		return err
	}
	h.Broadcast(msg)
	return nil
}
