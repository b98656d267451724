// Package ws pushes order and print events to the terminal's UI.
package ws

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	log *zap.Logger

	// Registered clients by topic
	rooms   map[string]map[*Client]bool
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client

	// Outbound messages to broadcast
	broadcast chan Event

	// Closed when Run returns
	done chan struct{}

	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		log:        log,
		rooms:      make(map[string]map[*Client]bool),
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Event, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop and returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				h.drop(client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			for _, topic := range client.topics {
				if h.rooms[topic] == nil {
					h.rooms[topic] = make(map[*Client]bool)
				}
				h.rooms[topic][client] = true
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if h.clients[client] {
				h.drop(client)
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			message, err := json.Marshal(event)
			if err != nil {
				h.log.Error("encode event", zap.String("type", event.Type), zap.Error(err))
				continue
			}

			h.mu.Lock()
			for client := range h.rooms[event.Topic] {
				select {
				case client.send <- message:
				default:
					// Client's send buffer is full, close and unregister
					h.drop(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop removes client from every room and closes its send channel.
// h.mu must be held.
func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	for _, topic := range client.topics {
		if clients, ok := h.rooms[topic]; ok {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.rooms, topic)
			}
		}
	}
	close(client.send)
}

// Publish queues an event for every client subscribed to its topic. It
// never blocks: when the queue is full the event is dropped.
func (h *Hub) Publish(event Event) {
	select {
	case h.broadcast <- event:
	default:
		h.log.Warn("event queue full, dropping event", zap.String("type", event.Type), zap.String("topic", event.Topic))
	}
}

// Notify encodes payload and publishes it under topic.
func (h *Hub) Notify(topic, eventType string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("encode event payload", zap.String("type", eventType), zap.Error(err))
		return
	}
	h.Publish(Event{Type: eventType, Topic: topic, Payload: raw})
}
