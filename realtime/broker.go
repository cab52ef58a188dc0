// Package realtime fans pipeline lifecycle events out to connected
// observers (the websocket status stream).
package realtime

import (
	"encoding/json"
	"log"
	"sync"
)

// Event is one broadcast message.
type Event struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// Broker distributes pipeline events to subscribers. Slow subscribers are
// skipped, never waited on: the pipeline must not block on observers.
type Broker struct {
	clients    map[chan []byte]bool
	register   chan chan []byte
	unregister chan chan []byte
	broadcast  chan []byte
	mu         sync.RWMutex
}

// NewBroker creates a new event broker
func NewBroker() *Broker {
	return &Broker{
		clients:    make(map[chan []byte]bool),
		register:   make(chan chan []byte),
		unregister: make(chan chan []byte),
		broadcast:  make(chan []byte, 256),
	}
}

// Run starts the broker loop
func (b *Broker) Run() {
	for {
		select {
		case client := <-b.register:
			b.mu.Lock()
			b.clients[client] = true
			b.mu.Unlock()
			log.Printf("📡 Pipeline event client connected. Total: %d", len(b.clients))

		case client := <-b.unregister:
			b.mu.Lock()
			if _, ok := b.clients[client]; ok {
				delete(b.clients, client)
				close(client)
				log.Printf("📡 Pipeline event client disconnected. Total: %d", len(b.clients))
			}
			b.mu.Unlock()

		case msg := <-b.broadcast:
			b.mu.RLock()
			for client := range b.clients {
				select {
				case client <- msg:
				default:
					// Skip if client buffer is full to prevent blocking
				}
			}
			b.mu.RUnlock()
		}
	}
}

// Subscribe registers a new observer channel.
func (b *Broker) Subscribe() chan []byte {
	client := make(chan []byte, 16)
	b.register <- client
	return client
}

// Unsubscribe removes an observer channel; the broker closes it.
func (b *Broker) Unsubscribe(client chan []byte) {
	b.unregister <- client
}

// PublishJSON broadcasts an event with a JSON payload. Implements the
// pipeline's EventPublisher.
func (b *Broker) PublishJSON(event string, payload interface{}) {
	msg, err := json.Marshal(Event{Event: event, Payload: payload})
	if err != nil {
		log.Printf("⚠️ Failed to encode %s event: %v", event, err)
		return
	}
	select {
	case b.broadcast <- msg:
	default:
		// Broadcast buffer full; drop rather than stall the pipeline.
	}
}
