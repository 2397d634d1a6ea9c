package hub

import (
	"log/slog"
	"slices"
	"sync"

	"dragonfox-roomsync-server/domain"
)

type room struct {
	clients map[string]domain.Connection
	order   []string
}

// Hub tracks which room each connection is in. A connection belongs to at most one room; joining
// another room moves it.
type Hub struct {
	rooms  map[string]*room
	member map[string]string
	mu     sync.RWMutex
}

func New() *Hub {
	return &Hub{
		rooms:  make(map[string]*room),
		member: make(map[string]string),
	}
}

// Join moves conn into roomID and returns the room it left, if any.
func (h *Hub) Join(conn domain.Connection, roomID string) (previous string) {
	h.mu.Lock()
	previous = h.member[conn.ID()]
	if previous == roomID {
		h.mu.Unlock()
		return ""
	}
	if previous != "" {
		h.removeLocked(conn.ID(), previous)
	}
	r, exists := h.rooms[roomID]
	if !exists {
		r = &room{clients: make(map[string]domain.Connection)}
		h.rooms[roomID] = r
	}
	r.clients[conn.ID()] = conn
	r.order = append(r.order, conn.ID())
	h.member[conn.ID()] = roomID
	count := len(r.clients)
	h.mu.Unlock()

	slog.Info("client joined", "room", roomID, "clientId", conn.ID(), "clients", count)
	return previous
}

// Leave drops conn from its room and returns the room id it was in.
func (h *Hub) Leave(conn domain.Connection) (string, bool) {
	h.mu.Lock()
	roomID, ok := h.member[conn.ID()]
	if ok {
		h.removeLocked(conn.ID(), roomID)
	}
	h.mu.Unlock()

	if ok {
		slog.Info("client left", "room", roomID, "clientId", conn.ID())
	}
	return roomID, ok
}

func (h *Hub) removeLocked(id, roomID string) {
	delete(h.member, id)
	r, exists := h.rooms[roomID]
	if !exists {
		return
	}
	delete(r.clients, id)
	r.order = slices.DeleteFunc(r.order, func(s string) bool { return s == id })
	if len(r.clients) == 0 {
		delete(h.rooms, roomID)
		slog.Info("room removed", "room", roomID)
	}
}

// Room returns the room the connection is currently in.
func (h *Hub) Room(connID string) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.member[connID]
}

// Members returns the connection ids of roomID in join order.
func (h *Hub) Members(roomID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, exists := h.rooms[roomID]
	if !exists {
		return []string{}
	}
	return slices.Clone(r.order)
}

// Broadcast sends data to every member of roomID except the connection with id except.
// An empty except includes everyone.
func (h *Hub) Broadcast(roomID string, data []byte, except string) {
	h.mu.RLock()
	r, exists := h.rooms[roomID]
	if !exists {
		h.mu.RUnlock()
		return
	}
	targets := make([]domain.Connection, 0, len(r.clients))
	for _, id := range r.order {
		if id == except {
			continue
		}
		targets = append(targets, r.clients[id])
	}
	h.mu.RUnlock()

	for _, conn := range targets {
		h.deliver(conn, data)
	}
}

// SendTo delivers data to one member of roomID.
func (h *Hub) SendTo(roomID, connID string, data []byte) bool {
	h.mu.RLock()
	var conn domain.Connection
	if r, exists := h.rooms[roomID]; exists {
		conn = r.clients[connID]
	}
	h.mu.RUnlock()

	if conn == nil {
		return false
	}
	h.deliver(conn, data)
	return true
}

// deliver closes connections that cannot keep up; their read loop then reports the disconnect.
func (h *Hub) deliver(conn domain.Connection, data []byte) {
	if err := conn.Send(data); err != nil {
		slog.Warn("send failed, closing connection", "clientId", conn.ID(), "error", err)
		_ = conn.Close()
	}
}

func (h *Hub) Stats() (rooms, clients int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rooms = len(h.rooms)
	for _, r := range h.rooms {
		clients += len(r.clients)
	}
	return rooms, clients
}

// RoomSizes returns the member count of every room.
func (h *Hub) RoomSizes() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[string]int, len(h.rooms))
	for id, r := range h.rooms {
		out[id] = len(r.clients)
	}
	return out
}
