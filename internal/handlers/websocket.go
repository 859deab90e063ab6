package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribo/internal/common"
	"github.com/ternarybob/scribo/internal/interfaces"
	"golang.org/x/time/rate"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// wsMessage is the wire shape pushed to connected clients
type wsMessage struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// WebSocketHandler streams engine events (publish lifecycle, auth outcomes,
// interactive session activity) to connected clients
type WebSocketHandler struct {
	logger           arbor.ILogger
	clients          map[*websocket.Conn]bool
	clientMutex      map[*websocket.Conn]*sync.Mutex
	mu               sync.RWMutex
	allowedEvents    map[string]bool          // whitelist, empty = allow all
	throttlers       map[string]*rate.Limiter // per-event-type broadcast throttles
	serverInstanceID string                   // clients use this to detect server restart
}

// NewWebSocketHandler creates a WebSocket handler and subscribes it to the
// engine's event bus
func NewWebSocketHandler(eventService interfaces.EventService, logger arbor.ILogger, config *common.WebSocketConfig) *WebSocketHandler {
	h := &WebSocketHandler{
		logger:           logger,
		clients:          make(map[*websocket.Conn]bool),
		clientMutex:      make(map[*websocket.Conn]*sync.Mutex),
		allowedEvents:    make(map[string]bool),
		throttlers:       make(map[string]*rate.Limiter),
		serverInstanceID: uuid.New().String(),
	}

	if config != nil {
		for _, eventType := range config.AllowedEvents {
			h.allowedEvents[eventType] = true
		}
		for eventType, intervalStr := range config.ThrottleIntervals {
			duration, err := time.ParseDuration(intervalStr)
			if err != nil {
				logger.Warn().
					Err(err).
					Str("event_type", eventType).
					Str("interval", intervalStr).
					Msg("Failed to parse throttle interval, throttling disabled for event")
				continue
			}
			h.throttlers[eventType] = rate.NewLimiter(rate.Every(duration), 1)
		}
	}

	for _, eventType := range []interfaces.EventType{
		interfaces.EventPublishStarted,
		interfaces.EventPublishCompleted,
		interfaces.EventAuthCompleted,
		interfaces.EventSessionCaptured,
		interfaces.EventInteractiveOpened,
		interfaces.EventInteractiveExpired,
		interfaces.EventConnectionChecked,
	} {
		et := eventType
		if err := eventService.Subscribe(et, func(ctx context.Context, event interfaces.Event) error {
			h.Broadcast(string(event.Type), event.Payload)
			return nil
		}); err != nil {
			logger.Warn().Err(err).Str("event_type", string(et)).Msg("Failed to subscribe WebSocket broadcaster")
		}
	}

	logger.Debug().
		Str("server_instance_id", h.serverInstanceID).
		Int("allowed_events", len(h.allowedEvents)).
		Int("throttled_events", len(h.throttlers)).
		Msg("WebSocket handler initialized")

	return h
}

// HandleWebSocket upgrades the connection and registers the client
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.clientMutex[conn] = &sync.Mutex{}
	clientCount := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().
		Str("remote", r.RemoteAddr).
		Int("clients", clientCount).
		Msg("WebSocket client connected")

	h.writeTo(conn, wsMessage{
		Type:      "hello",
		Payload:   map[string]string{"server_instance_id": h.serverInstanceID},
		Timestamp: time.Now(),
	})

	// Read loop exists only to detect disconnects; inbound messages are ignored
	go func() {
		defer h.removeClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast pushes an event to every connected client, honoring the
// whitelist and per-event throttles
func (h *WebSocketHandler) Broadcast(eventType string, payload interface{}) {
	if len(h.allowedEvents) > 0 && !h.allowedEvents[eventType] {
		return
	}
	if limiter, ok := h.throttlers[eventType]; ok && !limiter.Allow() {
		return
	}

	msg := wsMessage{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		h.writeTo(conn, msg)
	}
}

// writeTo serializes writes per connection; gorilla connections do not
// support concurrent writers
func (h *WebSocketHandler) writeTo(conn *websocket.Conn, msg wsMessage) {
	h.mu.RLock()
	mutex, ok := h.clientMutex[conn]
	h.mu.RUnlock()
	if !ok {
		return
	}

	mutex.Lock()
	err := conn.WriteJSON(msg)
	mutex.Unlock()

	if err != nil {
		h.logger.Debug().Err(err).Msg("WebSocket write failed, dropping client")
		h.removeClient(conn)
	}
}

func (h *WebSocketHandler) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		delete(h.clientMutex, conn)
	}
	h.mu.Unlock()
	conn.Close()
}

// ClientCount reports connected client count for the status surface
func (h *WebSocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
