// Package websocket broadcasts detection summaries to connected
// dashboard clients.
package websocket

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Hub maintains the set of active clients and fans events out to
// them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	logger     *zap.Logger
	mu         sync.RWMutex
	stats      HubStats
}

// HubStats tracks hub counters.
type HubStats struct {
	TotalConnections  int64
	ActiveConnections int64
	TotalBroadcasts   int64
}

// NewHub creates a hub. Run must be started on its own goroutine.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run handles client registration and event fan-out.
func (h *Hub) Run() {
	h.logger.Info("Starting WebSocket hub")

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case event := <-h.broadcast:
			h.broadcastEvent(event)
		}
	}
}

// BroadcastDetection queues a detection summary for all clients.
// Dropping the event when the hub is saturated is preferable to
// blocking the request path.
func (h *Hub) BroadcastDetection(data DetectionEvent) {
	select {
	case h.broadcast <- Event{Type: EventTypeDetection, Timestamp: time.Now(), Data: data}:
	default:
		h.logger.Warn("Event feed saturated, dropping detection event")
	}
}

// BroadcastStatus queues a system status event.
func (h *Hub) BroadcastStatus(data SystemStatusEvent) {
	select {
	case h.broadcast <- Event{Type: EventTypeSystemStatus, Timestamp: time.Now(), Data: data}:
	default:
	}
}

// ActiveClients returns the number of connected clients.
func (h *Hub) ActiveClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	h.stats.TotalConnections++
	h.stats.ActiveConnections++
	h.mu.Unlock()

	h.logger.Info("Client connected",
		zap.String("client_id", client.id),
		zap.Int64("active_connections", h.stats.ActiveConnections))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		h.stats.ActiveConnections--

		h.logger.Info("Client disconnected",
			zap.String("client_id", client.id),
			zap.Int64("active_connections", h.stats.ActiveConnections))
	}
}

func (h *Hub) broadcastEvent(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.stats.TotalBroadcasts++
	for client := range h.clients {
		select {
		case client.send <- event:
		default:
			// Client can't keep up, drop it
			h.logger.Warn("Client send channel full, closing connection",
				zap.String("client_id", client.id))
			delete(h.clients, client)
			close(client.send)
			h.stats.ActiveConnections--
		}
	}
}
