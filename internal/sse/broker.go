// Package sse fans daemon notifications out to connected UI clients:
// capture warnings, auto-end notices, and report status changes.
package sse

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	HeartbeatInterval = 30 * time.Second

	clientBufferSize = 100
)

// Event types published by the daemon.
const (
	EventCaptureWarningRaised  = "capture_warning_raised"
	EventCaptureWarningCleared = "capture_warning_cleared"
	EventApproachingLimit      = "approaching_limit"
	EventSessionEnded          = "session_ended"
	EventReportReady           = "report_ready"
	EventReportFailed          = "report_failed"
)

type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type Client struct {
	Events chan Event
	Done   chan struct{}
}

// Broker is an in-process publish/subscribe hub. The daemon is the only
// producer and local UI connections are the consumers, so there is no
// cross-process transport: Publish broadcasts directly.
type Broker struct {
	clients map[*Client]bool
	mu      sync.RWMutex
	closed  bool
}

func NewBroker() *Broker {
	return &Broker{
		clients: make(map[*Client]bool),
	}
}

func (b *Broker) Subscribe() *Client {
	client := &Client{
		Events: make(chan Event, clientBufferSize),
		Done:   make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		close(client.Done)
	} else {
		b.clients[client] = true
	}
	clientCount := len(b.clients)
	b.mu.Unlock()

	log.Debug().Int("clientCount", clientCount).Msg("sse client subscribed")

	return client
}

func (b *Broker) Unsubscribe(client *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.clients[client] {
		delete(b.clients, client)
		close(client.Done)

		log.Debug().Int("clientCount", len(b.clients)).Msg("sse client unsubscribed")
	}
}

// Publish broadcasts the event to every connected client. A client that
// cannot keep up has the event dropped rather than blocking the publisher.
func (b *Broker) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for client := range b.clients {
		select {
		case client.Events <- event:
		default:
			log.Warn().
				Str("type", event.Type).
				Msg("client event buffer full, dropping event")
		}
	}
}

// PublishJSON marshals data and broadcasts it under the given event type.
func (b *Broker) PublishJSON(eventType string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Error().Err(err).Str("type", eventType).Msg("failed to marshal event")
		return
	}
	b.Publish(Event{Type: eventType, Data: payload})
}

func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for client := range b.clients {
		close(client.Done)
	}
	b.clients = make(map[*Client]bool)
}

func (b *Broker) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}
