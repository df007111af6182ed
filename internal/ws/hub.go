package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/cateradmin/api/internal/enum"
	"github.com/google/uuid"
)

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// sessionEvent is an internal struct for routing events to specific sessions
type sessionEvent struct {
	SessionID uuid.UUID
	Event     Event
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Registered clients by editing session ID
	rooms map[uuid.UUID]map[*Client]bool

	// Inbound messages from clients (register/unregister)
	register   chan *Client
	unregister chan *Client

	// Outbound messages to broadcast
	broadcast chan *sessionEvent

	// Mutex for thread-safe room access
	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *sessionEvent, 256),
	}
}

// Run starts the hub's main loop
// This should be called as a goroutine: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.sessionID] == nil {
				h.rooms[client.sessionID] = make(map[*Client]bool)
			}
			h.rooms[client.sessionID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.sessionID]; ok {
				if _, exists := clients[client]; exists {
					h.drop(client)
				}
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.Lock()
			message, err := json.Marshal(event.Event)
			if err != nil {
				h.mu.Unlock()
				continue
			}

			for client := range h.rooms[event.SessionID] {
				select {
				case client.send <- message:
				default:
					// Client's send buffer is full, close and unregister
					h.drop(client)
				}
			}

			// A closed session has nothing more to say; hang up its room.
			if event.Event.Type == enum.EventSessionClosed {
				for client := range h.rooms[event.SessionID] {
					h.drop(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop closes a client's send channel and removes it, deleting empty rooms.
// Caller holds h.mu.
func (h *Hub) drop(client *Client) {
	close(client.send)
	delete(h.rooms[client.sessionID], client)
	if len(h.rooms[client.sessionID]) == 0 {
		delete(h.rooms, client.sessionID)
	}
}

// BroadcastToSession sends an event to all clients watching a session
func (h *Hub) BroadcastToSession(sessionID uuid.UUID, event Event) {
	h.broadcast <- &sessionEvent{
		SessionID: sessionID,
		Event:     event,
	}
}

// Publish marshals payload and broadcasts it. Satisfies service.Notifier.
func (h *Hub) Publish(sessionID uuid.UUID, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ERROR: marshal %s event: %v", eventType, err)
		return
	}
	h.BroadcastToSession(sessionID, Event{Type: eventType, Payload: data})
}
