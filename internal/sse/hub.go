package sse

import (
	"context"
	"encoding/json"
	"sync"

	"facesplit/internal/core/models"
	"facesplit/internal/core/processor"

	log "github.com/sirupsen/logrus"
)

// Event-Namen im SSE-Stream
const (
	EventRunStarted  = "run_started"
	EventSegment     = "segment"
	EventRunFinished = "run_finished"
)

// Message is one SSE event.
type Message struct {
	Event string
	Data  []byte
}

// Client represents a single connected SSE client.
// It's essentially a channel where we send messages destined for this client.
type Client chan Message

// Hub manages the set of active clients and broadcasts messages to them.
type Hub struct {
	clients    map[Client]bool
	broadcast  chan Message
	register   chan Client
	unregister chan Client
	done       chan struct{} // geschlossen, wenn Run endet
	mu         sync.Mutex
}

// RunEvent is the payload of run_started and run_finished.
type RunEvent struct {
	RunID        uint   `json:"run_id,omitempty"`
	VideoPath    string `json:"video_path"`
	Detector     string `json:"detector"`
	SegmentCount int    `json:"segment_count"`
}

// SegmentEvent is the payload of a segment event.
type SegmentEvent struct {
	RunID  uint                 `json:"run_id,omitempty"`
	Result models.SegmentResult `json:"result"`
}

// NewHub creates a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, 64),
		register:   make(chan Client),
		unregister: make(chan Client),
		done:       make(chan struct{}),
		clients:    make(map[Client]bool),
	}
}

// Run starts the hub's processing loop until ctx is done.
// It should be run in a separate goroutine.
func (h *Hub) Run(ctx context.Context) {
	log.Info("SSE Hub started.")
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client)
			}
			h.mu.Unlock()
			log.Info("SSE Hub stopped.")
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			log.Debugf("SSE Client registered. Total clients: %d", count)
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client) // Close the channel to signal the client handler to stop.
				log.Debugf("SSE Client unregistered. Total clients: %d", len(h.clients))
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				// Slow clients lose the message instead of blocking the hub.
				select {
				case client <- message:
				default:
					log.Warn("SSE client channel full. Skipping message.")
				}
			}
			h.mu.Unlock()
		}
	}
}

// Register adds a new client to the hub. It returns false once the hub has
// stopped.
func (h *Hub) Register(client Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client from the hub. No-op after the hub stopped.
func (h *Hub) Unregister(client Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends a message to all registered clients.
func (h *Hub) Broadcast(message Message) {
	// Avoid blocking the caller if the broadcast channel is full
	select {
	case h.broadcast <- message:
	default:
		log.Warn("SSE broadcast channel full. Message dropped.")
	}
}

func (h *Hub) broadcastJSON(event string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(Message{Event: event, Data: data})
	return nil
}

// RunStarted implements processor.ResultSink.
func (h *Hub) RunStarted(ctx context.Context, run *processor.RunInfo) error {
	return h.broadcastJSON(EventRunStarted, runEvent(run))
}

// SegmentDone implements processor.ResultSink.
func (h *Hub) SegmentDone(ctx context.Context, run *processor.RunInfo, result models.SegmentResult) error {
	return h.broadcastJSON(EventSegment, SegmentEvent{RunID: run.ID, Result: result})
}

// RunFinished implements processor.ResultSink.
func (h *Hub) RunFinished(ctx context.Context, run *processor.RunInfo, results []models.SegmentResult) error {
	return h.broadcastJSON(EventRunFinished, runEvent(run))
}

func runEvent(run *processor.RunInfo) RunEvent {
	return RunEvent{
		RunID:        run.ID,
		VideoPath:    run.VideoPath,
		Detector:     run.Detector,
		SegmentCount: run.SegmentCount,
	}
}
