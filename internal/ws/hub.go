package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/notify"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// orderPayload is the order summary pushed to admin dashboards.
type orderPayload struct {
	ID             uuid.UUID       `json:"id"`
	Number         string          `json:"number"`
	Mobile         string          `json:"mobile"`
	Type           string          `json:"type"`
	Qty            int             `json:"qty"`
	Total          json.Number     `json:"total"`
	Status         string          `json:"status"`
	PreviousStatus string          `json:"previousStatus,omitempty"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Hub maintains the set of connected admin dashboards and broadcasts order
// events to all of them.
type Hub struct {
	// Registered admin clients
	clients map[*Client]bool

	// Inbound messages from clients (register/unregister)
	register   chan *Client
	unregister chan *Client

	// Outbound messages to broadcast
	broadcast chan Event

	// Closed when Run returns
	done chan struct{}

	// Mutex for thread-safe client access
	mu sync.RWMutex

	log *zap.Logger
}

// NewHub creates a new Hub instance
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Event, 256),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run starts the hub's main loop and returns when ctx is cancelled, closing
// every client connection.
// This should be called as a goroutine: go hub.Run(ctx)
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, exists := h.clients[client]; exists {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			// Marshal event to JSON once
			message, err := json.Marshal(event)
			if err != nil {
				h.log.Error("marshal websocket event", zap.String("type", event.Type), zap.Error(err))
				continue
			}

			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client's send buffer is full, close and unregister
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) addClient(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) removeClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast queues an event for every connected client. Events are dropped
// when the queue is full.
func (h *Hub) Broadcast(event Event) {
	select {
	case h.broadcast <- event:
	default:
		h.log.Warn("websocket broadcast queue full, dropping event", zap.String("type", event.Type))
	}
}

// Notify implements notify.Notifier.
func (h *Hub) Notify(_ context.Context, e notify.Event) {
	payload, err := json.Marshal(orderPayload{
		ID:             e.Order.ID,
		Number:         e.Order.Number,
		Mobile:         e.Order.Mobile,
		Type:           e.Order.Type,
		Qty:            e.Order.Qty,
		Total:          json.Number(e.Order.Total().Round(0).String()),
		Status:         e.Order.Status,
		PreviousStatus: e.PreviousStatus,
		UpdatedAt:      e.Order.UpdatedAt.UTC(),
	})
	if err != nil {
		h.log.Error("marshal order event", zap.String("order_id", e.Order.ID.String()), zap.Error(err))
		return
	}
	h.Broadcast(Event{Type: e.Type, Payload: payload})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
