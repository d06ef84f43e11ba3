// Package socket pushes committed lifecycle events to connected browsers
// and CLI watchers over websockets.
package socket

import (
	"context"
	"log/slog"
	"sync"

	"github.com/matic113/freelance-platform-sub003/internal/metrics"
)

// Room names a delivery group. Every connection joins its user room;
// contract rooms are joined on request once the user is a party.
func UserRoom(userID string) string         { return "user:" + userID }
func ContractRoom(contractID string) string { return "contract:" + contractID }

// roomMessage is delivered once to every client in any of rooms.
type roomMessage struct {
	rooms []string
	data  []byte
}

// Hub tracks connected clients and their rooms.
type Hub struct {
	clients     map[*Client]bool
	roomClients map[string]map[*Client]bool

	broadcast chan roomMessage

	logger *slog.Logger
	mu     sync.RWMutex
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:     make(map[*Client]bool),
		roomClients: make(map[string]map[*Client]bool),
		broadcast:   make(chan roomMessage, 256),
		logger:      logger,
	}
}

// Run delivers queued messages until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("websocket hub started")
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case m := <-h.broadcast:
			h.deliver(m)
		}
	}
}

// Register adds c and joins its user room.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	h.JoinRoom(c, UserRoom(c.actor.UserID))
	metrics.LiveConnections.Inc()
	h.logger.Debug("client registered", "user_id", c.actor.UserID, "client_id", c.id, "total_clients", h.ClientCount())
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	for room := range c.rooms {
		if members, ok := h.roomClients[room]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.roomClients, room)
			}
		}
	}
	close(c.send)
	metrics.LiveConnections.Dec()
	h.logger.Debug("client disconnected", "user_id", c.actor.UserID, "client_id", c.id, "total_clients", len(h.clients))
}

func (h *Hub) closeAll() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.remove(c)
	}
}

func (h *Hub) JoinRoom(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.clients[c] {
		return
	}
	if h.roomClients[room] == nil {
		h.roomClients[room] = make(map[*Client]bool)
	}
	h.roomClients[room][c] = true
	c.rooms[room] = true
}

func (h *Hub) LeaveRoom(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.roomClients[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.roomClients, room)
		}
	}
	delete(c.rooms, room)
}

// SendToRooms queues data for every client in any of rooms. A client in
// several of them still receives data once.
func (h *Hub) SendToRooms(rooms []string, data []byte) bool {
	select {
	case h.broadcast <- roomMessage{rooms: rooms, data: data}:
		return true
	default:
		h.logger.Warn("broadcast queue full, dropping message", "rooms", rooms)
		return false
	}
}

func (h *Hub) deliver(m roomMessage) {
	h.mu.RLock()
	seen := make(map[*Client]bool)
	var slow []*Client
	for _, room := range m.rooms {
		for c := range h.roomClients[room] {
			if seen[c] {
				continue
			}
			seen[c] = true
			select {
			case c.send <- m.data:
			default:
				slow = append(slow, c)
			}
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("client send buffer full, disconnecting", "user_id", c.actor.UserID, "client_id", c.id)
		h.remove(c)
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomSize reports how many clients are in room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.roomClients[room])
}

// sendTo queues data for one client unless it has already gone.
func (h *Hub) sendTo(c *Client, data []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.clients[c] {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}
