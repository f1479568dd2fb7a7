package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Hub maintains active WebSocket connections and fans request lifecycle
// events out to every connected client. The canvas event feed is a single
// shared stream, so there is no per-user routing here.
type Hub struct {
	connections map[*Client]bool
	mu          sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan *EventMessage

	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
}

// EventMessage is the wire shape of a broadcast event
type EventMessage struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// NewHub creates a new WebSocket hub
func NewHub(logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		connections: make(map[*Client]bool),
		register:    make(chan *Client, 100),
		unregister:  make(chan *Client, 100),
		broadcast:   make(chan *EventMessage, 1000),
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}
}

// Run starts the hub's main event loop
func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("Hub shutting down")
			h.closeAllConnections()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// Stop gracefully shuts down the hub
func (h *Hub) Stop() {
	h.logger.Info("Stopping WebSocket hub")
	h.cancel()
}

// Broadcast queues an event for delivery to all connected clients
func (h *Hub) Broadcast(eventType, requestID string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	message := &EventMessage{
		Type:      eventType,
		RequestID: requestID,
		Data:      jsonData,
		Timestamp: time.Now().Unix(),
	}

	select {
	case h.broadcast <- message:
		return nil
	case <-h.ctx.Done():
		return fmt.Errorf("hub stopped, event dropped")
	default:
		return fmt.Errorf("broadcast channel full, event dropped")
	}
}

// ConnectionCount reports the number of active connections
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.connections[client] = true
	count := len(h.connections)
	h.mu.Unlock()

	h.logger.Info("Client registered",
		zap.String("connectionID", client.id),
		zap.Int("connections", count),
	)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.connections[client]; ok {
		delete(h.connections, client)
		close(client.send)
	}
	count := len(h.connections)
	h.mu.Unlock()

	h.logger.Info("Client unregistered",
		zap.String("connectionID", client.id),
		zap.Int("connections", count),
	)
}

func (h *Hub) broadcastMessage(message *EventMessage) {
	payload, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to serialize broadcast message", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.connections {
		select {
		case client.send <- payload:
		default:
			// Slow consumer: drop the message rather than block the hub
			h.logger.Warn("Client send buffer full, dropping event",
				zap.String("connectionID", client.id),
				zap.String("eventType", message.Type),
			)
		}
	}
}

func (h *Hub) closeAllConnections() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.connections {
		close(client.send)
		delete(h.connections, client)
	}
}
