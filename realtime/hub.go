// Package realtime pushes raffle events to WebSocket connections subscribed
// to that raffle. Delivery is best-effort: no acknowledgement, retry or replay.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"rafflehub/domain/events"
	"rafflehub/infrastructure/observability"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// Hub tracks open connections and their raffle subscriptions
type Hub struct {
	upgrader websocket.Upgrader
	metrics  *observability.MetricsProvider

	mu      sync.RWMutex
	clients map[*Client]struct{}
	closed  bool
}

// NewHub creates a hub. An empty allowedOrigins list, or one containing "*",
// accepts every origin.
func NewHub(allowedOrigins []string, metrics *observability.MetricsProvider) *Hub {
	h := &Hub{
		metrics: metrics,
		clients: make(map[*Client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[origin] = struct{}{}
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// ServeWS upgrades the request and starts the connection's pumps
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	client := newClient(h, conn)
	if !h.register(client) {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	h.metrics.UpdateWebSocketConnections(1)

	log.WithField("connections", len(h.clients)).Debug("WebSocket connection opened")
	return true
}

// unregister removes the connection; calling it again is a no-op
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	c.close()
	h.metrics.UpdateWebSocketConnections(-1)

	log.WithFields(log.Fields{
		"raffleID":    c.RaffleID(),
		"connections": count,
	}).Debug("WebSocket connection closed")
}

// handleMessage interprets one client frame
func (h *Hub) handleMessage(c *Client, raw []byte) {
	if !json.Valid(raw) {
		c.enqueue(errorFrame("Invalid message format"))
		return
	}

	// Arrays and scalars are echoed without being interpreted
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.enqueue(echoOf(raw))
		return
	}

	if raffleID, ok := msg.subscriptionTarget(); ok {
		c.subscribe(raffleID)
		c.enqueue(subscribedFrame(raffleID))
		log.WithField("raffleID", raffleID).Debug("WebSocket connection subscribed")
	}

	c.enqueue(echoOf(raw))
}

// Broadcast encodes the event once and delivers it to every connection
// subscribed to raffleID
func (h *Hub) Broadcast(raffleID string, event events.Event) error {
	frame, err := events.EncodeFrame(event)
	if err != nil {
		return err
	}
	h.BroadcastRaw(raffleID, frame)
	return nil
}

// BroadcastRaw delivers an already encoded frame. Closed connections and
// connections with a full buffer are skipped.
func (h *Hub) BroadcastRaw(raffleID string, frame []byte) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		if c.RaffleID() == raffleID {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		if c.enqueue(frame) {
			delivered++
		} else {
			h.metrics.RecordDroppedFrame()
		}
	}

	log.WithFields(log.Fields{
		"raffleID":  raffleID,
		"delivered": delivered,
		"skipped":   len(targets) - delivered,
	}).Debug("Broadcast frame")
}

// HandleEvent is a local event handler that broadcasts the event to its
// raffle's subscribers
func (h *Hub) HandleEvent(ctx context.Context, event events.Event) error {
	if err := h.Broadcast(event.RaffleKey(), event); err != nil {
		return fmt.Errorf("failed to broadcast %s: %w", event.Type(), err)
	}
	return nil
}

// ClientCount returns the number of open connections
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every connection and rejects new ones
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*Client]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		if c.close() {
			h.metrics.UpdateWebSocketConnections(-1)
		}
	}

	log.WithField("connections", len(clients)).Info("WebSocket hub closed")
}
