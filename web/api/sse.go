package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/fedstats/fedsync/internal/domain"
)

// Event types pushed to SSE and websocket clients
const (
	EventStatus      = "status"
	EventRunFinished = "run_finished"
)

// Event is one push to a connected client: a status change while a run is
// in flight, or the terminal record when it finishes.
type Event struct {
	Type string      `json:"type"`
	At   time.Time   `json:"at"`
	Data interface{} `json:"data"`
}

// StatusEvent wraps a status snapshot for broadcast
func StatusEvent(snap *domain.StatusSnapshot) Event {
	return Event{Type: EventStatus, At: time.Now(), Data: statusToResponse(snap)}
}

// RunFinishedEvent wraps a terminal sync-log record for broadcast
func RunFinishedEvent(run *domain.SyncRun) Event {
	return Event{Type: EventRunFinished, At: time.Now(), Data: runToResponse(run)}
}

// eventBuffer bounds how far a consumer may lag before it is dropped
const eventBuffer = 8

// EventHub fans events out to subscribed clients. A client that cannot
// keep up loses its subscription rather than blocking the broadcaster.
type EventHub struct {
	mu      sync.Mutex
	clients map[chan Event]struct{}
}

// NewEventHub creates an empty hub
func NewEventHub() *EventHub {
	return &EventHub{clients: make(map[chan Event]struct{})}
}

// Subscribe registers a new client channel
func (h *EventHub) Subscribe() chan Event {
	ch := make(chan Event, eventBuffer)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a client channel. Safe to call more
// than once for the same channel.
func (h *EventHub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[ch]; ok {
		delete(h.clients, ch)
		close(ch)
	}
}

// Broadcast delivers the event to every subscriber, dropping those whose
// buffers are full
func (h *EventHub) Broadcast(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- event:
		default:
			delete(h.clients, ch)
			close(ch)
		}
	}
}

// sseKeepalive is how often an idle stream gets a comment line so
// intermediaries do not reap the connection
const sseKeepalive = 25 * time.Second

func (s *Server) sseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming not supported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("Access-Control-Allow-Origin", "*")

		client := s.events.Subscribe()
		defer s.events.Unsubscribe(client)

		keepalive := time.NewTicker(sseKeepalive)
		defer keepalive.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case event, ok := <-client:
				if !ok {
					return
				}
				data, err := json.Marshal(event)
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "event: %s\n", event.Type)
				fmt.Fprintf(w, "data: %s\n\n", data)
				flusher.Flush()
			case <-keepalive.C:
				fmt.Fprint(w, ": keepalive\n\n")
				flusher.Flush()
			}
		}
	}
}
