// Copyright 2025 Joseph Cumines
//
// SSE client registry and event replay store

package transport

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// SSEEvent represents a Server-Sent Event
type SSEEvent struct {
	ID    string
	Event string
	Data  string
}

// SSEClient represents a connected SSE client
type SSEClient struct {
	ResponseChan chan *SSEEvent
	CreatedAt    time.Time
	ID           string
	LastEventID  string
}

// EventStore keeps a bounded window of recent events so reconnecting
// clients can replay what they missed via Last-Event-ID.
type EventStore struct {
	eventMap map[string]*SSEEvent
	events   []*SSEEvent
	mu       sync.RWMutex
	maxSize  int
}

// NewEventStore creates a new event store
func NewEventStore(maxSize int) *EventStore {
	return &EventStore{
		events:   make([]*SSEEvent, 0, maxSize),
		maxSize:  maxSize,
		eventMap: make(map[string]*SSEEvent),
	}
}

// Add adds an event to the store, evicting the oldest when full.
func (s *EventStore) Add(event *SSEEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.events) >= s.maxSize {
		oldest := s.events[0]
		delete(s.eventMap, oldest.ID)
		s.events = s.events[1:]
	}
	s.events = append(s.events, event)
	s.eventMap[event.ID] = event
}

// GetSince returns events after the given ID. Returns nil if the ID is
// empty or no longer in the window.
func (s *EventStore) GetSince(lastEventID string) []*SSEEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if lastEventID == "" {
		return nil
	}

	found := false
	var result []*SSEEvent
	for _, e := range s.events {
		if found {
			result = append(result, e)
		}
		if e.ID == lastEventID {
			found = true
		}
	}
	return result
}

// ClientRegistry manages connected SSE clients
type ClientRegistry struct {
	clients    map[string]*SSEClient
	eventStore *EventStore
	mu         sync.RWMutex
	nextID     atomic.Uint64
}

// NewClientRegistry creates a new client registry
func NewClientRegistry() *ClientRegistry {
	return &ClientRegistry{
		clients:    make(map[string]*SSEClient),
		eventStore: NewEventStore(1000),
	}
}

// Add registers a new client and returns it.
func (r *ClientRegistry) Add(lastEventID string) *SSEClient {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := fmt.Sprintf("client-%d", r.nextID.Add(1))
	client := &SSEClient{
		ID:           id,
		ResponseChan: make(chan *SSEEvent, 100),
		CreatedAt:    time.Now(),
		LastEventID:  lastEventID,
	}
	r.clients[id] = client
	return client
}

// Remove removes a client from the registry
func (r *ClientRegistry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if client, ok := r.clients[id]; ok {
		close(client.ResponseChan)
		delete(r.clients, id)
	}
}

// Get returns a client by ID
func (r *ClientRegistry) Get(id string) (*SSEClient, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.clients[id]
	return client, ok
}

// Broadcast stores the event for replay and sends it to all connected
// clients. Clients with full buffers drop the event rather than blocking
// the broadcaster.
func (r *ClientRegistry) Broadcast(event *SSEEvent) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	r.eventStore.Add(event)

	for _, client := range r.clients {
		select {
		case client.ResponseChan <- event:
		default:
			log.Printf("Warning: dropping event %s for client %s (buffer full)", event.ID, client.ID)
		}
	}
}

// Count returns the number of connected clients
func (r *ClientRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// writeSSEEvent writes an SSE event to the writer, handling multiline data.
// Returns an error if writing fails (e.g., client disconnected).
func writeSSEEvent(w io.Writer, event *SSEEvent) error {
	if _, err := fmt.Fprintf(w, "id: %s\n", event.ID); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\n", event.Event); err != nil {
		return err
	}
	// SSE spec: each line of data must be prefixed with "data:"
	for _, line := range strings.Split(event.Data, "\n") {
		if _, err := fmt.Fprintf(w, "data: %s\n", line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprint(w, "\n"); err != nil {
		return err
	}
	return nil
}
