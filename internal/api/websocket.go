package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/EliasDerHai/limelight/internal/logging"
)

// Event types broadcast to connected clients.
const (
	EventDocumentAdded   = "document_added"
	EventDocumentUpdated = "document_updated"
	EventDocumentDeleted = "document_deleted"
	EventMarkAdded       = "mark_added"
	EventMarkRemoved     = "mark_removed"
	EventMarksCleared    = "marks_cleared"
)

// maxWSMessageSize caps incoming WebSocket frames. The hub is
// broadcast-only, so clients have no reason to send anything sizable.
const maxWSMessageSize = 4096

// GlobalHub is the shared WebSocket hub for broadcasting change events.
var GlobalHub *Hub

// upgrader validates the Origin header against the configured allow list
// before accepting a connection. An empty list allows every origin.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return isOriginAllowed(r.Header.Get("Origin"), ServerConfig.AllowedOrigins)
	},
}

// Event is a document or mark change notification sent to all connected
// clients so they can re-render what they are viewing.
type Event struct {
	Type       string                 `json:"type"`
	DocumentID string                 `json:"document_id,omitempty"`
	MarkID     string                 `json:"mark_id,omitempty"`
	Message    string                 `json:"message,omitempty"`
	Timestamp  string                 `json:"timestamp"` // ISO 8601
	Data       map[string]interface{} `json:"data,omitempty"`
}

// Client represents a WebSocket client connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub maintains active WebSocket connections and broadcasts messages.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new WebSocket hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's main loop to handle client registration and broadcasting.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			logging.WebSocketEvent("client_connected", len(h.clients))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			logging.WebSocketEvent("client_disconnected", len(h.clients))

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client channel full, disconnect
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast queues an event for delivery to all connected clients.
func (h *Hub) Broadcast(evt Event) {
	if evt.Timestamp == "" {
		evt.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	data, err := json.Marshal(evt)
	if err != nil {
		logging.Error("failed to marshal event", "error", err)
		return
	}

	select {
	case h.broadcast <- data:
	default:
		logging.Warn("broadcast channel full, dropping event")
	}
}

// BroadcastDocumentEvent notifies connected clients of a document-level
// change. The document title travels in the message field.
func BroadcastDocumentEvent(eventType, documentID, title string) {
	if GlobalHub == nil {
		return
	}

	GlobalHub.Broadcast(Event{
		Type:       eventType,
		DocumentID: documentID,
		Message:    title,
	})
}

// BroadcastMarkEvent notifies connected clients of a mark-level change.
func BroadcastMarkEvent(eventType, documentID, markID string) {
	if GlobalHub == nil {
		return
	}

	GlobalHub.Broadcast(Event{
		Type:       eventType,
		DocumentID: documentID,
		MarkID:     markID,
	})
}

// isOriginAllowed checks the origin against the allow list. An empty list
// allows everything. Entries may be exact origins, "*", or "*.example.com"
// patterns; the subdomain pattern requires the leading dot to match, so
// "evil-example.com" does not satisfy "*.example.com".
func isOriginAllowed(origin string, allowedOrigins []string) bool {
	if len(allowedOrigins) == 0 {
		return true
	}

	// Browsers always send Origin on WebSocket requests.
	if origin == "" {
		return false
	}

	for _, allowed := range allowedOrigins {
		if allowed == "*" || origin == allowed {
			return true
		}
		if strings.HasPrefix(allowed, "*.") && strings.HasSuffix(origin, allowed[1:]) {
			return true
		}
	}

	return false
}

// readPump reads messages from the WebSocket connection.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Error("websocket unexpected close", "error", err)
			}
			break
		}
	}
}

// writePump writes messages to the WebSocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Flush any additional queued messages
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleWebSocket upgrades HTTP connections to WebSocket and registers
// clients with the hub. When auth is enabled the API key is also accepted
// as an api_key query parameter, checked by AuthMiddleware before the
// request reaches this handler.
func handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if GlobalHub == nil {
		http.Error(w, "WebSocket hub not initialized", http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error("websocket upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(maxWSMessageSize)

	client := &Client{
		hub:  GlobalHub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}
