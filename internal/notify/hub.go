package notify

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	posync "github.com/modaretail/posync/internal/sync"
)

// Event is the envelope pushed to every connected register screen
type Event struct {
	Type string      `json:"type"`
	At   time.Time   `json:"at"`
	Data interface{} `json:"data,omitempty"`
}

// Hub maintains the set of attached screens and broadcasts sync events to
// them. Every screen shows the same device-wide state, so there is no
// per-client routing.
type Hub struct {
	mu sync.RWMutex

	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
			log.Printf("🖥️ Screen connected (%d attached)", h.count())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			log.Printf("🖥️ Screen disconnected (%d attached)", h.count())
		}
	}
}

func (h *Hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends an event to every attached screen. Screens that cannot
// keep up are skipped; the next event carries fresh state anyway.
func (h *Hub) Broadcast(eventType string, data interface{}) {
	msg, err := json.Marshal(Event{Type: eventType, At: time.Now().UTC(), Data: data})
	if err != nil {
		log.Printf("Error marshaling %s event: %v", eventType, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
		}
	}
}

// StatusChanged pushes a connectivity transition to the screens
func (h *Hub) StatusChanged(status posync.Status, pendingCount int) {
	h.Broadcast("status", map[string]interface{}{
		"status":       status,
		"pendingCount": pendingCount,
	})
}

// SyncCompleted implements sync.Notifier
func (h *Hub) SyncCompleted(summary *posync.Summary) {
	h.Broadcast("sync_completed", summary)
}

// ConflictDetected implements sync.Notifier
func (h *Hub) ConflictDetected(rec *posync.ConflictRecord) {
	h.Broadcast("conflict", rec)
}
