package services

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"stockwatch_backend/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Constants for hub configuration
const (
	MaxHubClients         = 100 // Maximum concurrent WebSocket sessions
	WebSocketWriteTimeout = 10 * time.Second
	WebSocketPongTimeout  = 60 * time.Second
	WebSocketPingInterval = 30 * time.Second
	SessionSendBuffer     = 256
)

// PushMessage is the envelope for every server-to-client event
type PushMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

// clientCommand is an inbound client event
type clientCommand struct {
	Action string `json:"action"`
	Symbol string `json:"symbol"`
}

// Session represents one live authenticated WebSocket connection
type Session struct {
	id     string
	userID uint
	conn   *websocket.Conn
	send   chan []byte
}

// RealtimeHub maintains live sessions and routes price updates to symbol
// subscribers and alert notifications to a user's sessions. The two
// routing namespaces are independent: symbol groups gate price updates,
// the owner index gates alert notifications.
type RealtimeHub struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	byUser   map[uint]map[string]*Session
	bySymbol map[string]map[string]*Session
	upgrader websocket.Upgrader
}

// NewRealtimeHub creates a new hub with empty registries
func NewRealtimeHub() *RealtimeHub {
	return &RealtimeHub{
		sessions: make(map[string]*Session),
		byUser:   make(map[uint]map[string]*Session),
		bySymbol: make(map[string]map[string]*Session),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleWebSocket authenticates the handshake and upgrades the connection.
// Connections without a valid token are rejected before registration.
// GET /ws?token=<jwt>
func (h *RealtimeHub) HandleWebSocket(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		tokenString = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	}
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication token required"})
		return
	}

	claims, err := middleware.ValidateToken(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return
	}
	userID, err := middleware.UserIDFromClaims(claims)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return
	}

	if h.ClientCount() >= MaxHubClients {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Server at capacity"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	session := &Session{
		id:     uuid.NewString(),
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, SessionSendBuffer),
	}

	h.register(session)
	log.Printf("WebSocket session connected for user %d. Total sessions: %d", userID, h.ClientCount())

	go session.writePump()
	go session.readPump(h)
}

// register adds a session to the registry and the owner index
func (h *RealtimeHub) register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sessions[s.id] = s
	if h.byUser[s.userID] == nil {
		h.byUser[s.userID] = make(map[string]*Session)
	}
	h.byUser[s.userID][s.id] = s
}

// Subscribe joins a session to a symbol-interest group. Idempotent.
func (h *RealtimeHub) Subscribe(s *Session, symbol string) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	// Ignore subscriptions from sessions that already disconnected
	if _, ok := h.sessions[s.id]; !ok {
		return
	}
	if h.bySymbol[symbol] == nil {
		h.bySymbol[symbol] = make(map[string]*Session)
	}
	h.bySymbol[symbol][s.id] = s
}

// Unsubscribe removes a session from a symbol-interest group. Idempotent.
func (h *RealtimeHub) Unsubscribe(s *Session, symbol string) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	h.mu.Lock()
	defer h.mu.Unlock()

	if group, ok := h.bySymbol[symbol]; ok {
		delete(group, s.id)
		if len(group) == 0 {
			delete(h.bySymbol, symbol)
		}
	}
}

// Disconnect removes a session from every index. Safe to call for a
// session that never subscribed to anything, and safe to call twice.
func (h *RealtimeHub) Disconnect(s *Session) {
	h.mu.Lock()
	if _, ok := h.sessions[s.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.sessions, s.id)

	if userSessions, ok := h.byUser[s.userID]; ok {
		delete(userSessions, s.id)
		if len(userSessions) == 0 {
			delete(h.byUser, s.userID)
		}
	}

	for symbol, group := range h.bySymbol {
		delete(group, s.id)
		if len(group) == 0 {
			delete(h.bySymbol, symbol)
		}
	}

	// Closing under the write lock orders the close after any in-flight
	// delivery, which runs under the read lock.
	close(s.send)
	remaining := len(h.sessions)
	h.mu.Unlock()

	log.Printf("WebSocket session disconnected for user %d. Total sessions: %d", s.userID, remaining)
}

// PushPriceUpdate delivers a quote to every session subscribed to the
// symbol. Sessions without a subscription receive nothing.
func (h *RealtimeHub) PushPriceUpdate(symbol string, quote *Quote) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	data, err := json.Marshal(PushMessage{
		Type:      "price_update",
		Data:      quote,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	if err != nil {
		log.Printf("Error marshaling price update for %s: %v", symbol, err)
		return
	}

	h.mu.RLock()
	for _, s := range h.bySymbol[symbol] {
		s.deliver(data)
	}
	h.mu.RUnlock()
}

// PushAlertNotification delivers a notification to every live session of
// the owner, regardless of symbol subscriptions. Dropped when the owner
// has no live session.
func (h *RealtimeHub) PushAlertNotification(userID uint, notification AlertNotification) {
	data, err := json.Marshal(PushMessage{
		Type:      "price_alert",
		Data:      notification,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	if err != nil {
		log.Printf("Error marshaling alert notification: %v", err)
		return
	}

	h.mu.RLock()
	for _, s := range h.byUser[userID] {
		s.deliver(data)
	}
	h.mu.RUnlock()
}

// ClientCount returns the number of live sessions
func (h *RealtimeHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// GetStatus returns hub status info
func (h *RealtimeHub) GetStatus() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return map[string]interface{}{
		"session_count": len(h.sessions),
		"max_sessions":  MaxHubClients,
		"user_count":    len(h.byUser),
		"symbol_groups": len(h.bySymbol),
	}
}

// Shutdown closes every live connection and clears the registries
func (h *RealtimeHub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, s := range h.sessions {
		close(s.send)
		if s.conn != nil {
			s.conn.Close()
		}
	}
	h.sessions = make(map[string]*Session)
	h.byUser = make(map[uint]map[string]*Session)
	h.bySymbol = make(map[string]map[string]*Session)

	log.Println("Realtime hub shutdown complete")
}

// deliver enqueues a message for the session. Delivery is best-effort:
// when the session's buffer is full the message is dropped. Callers hold
// h.mu, so deliver never races a close of the send channel, which only
// happens under the write lock.
func (s *Session) deliver(data []byte) {
	select {
	case s.send <- data:
	default:
	}
}

// writePump writes queued messages to the WebSocket connection
func (s *Session) writePump() {
	ticker := time.NewTicker(WebSocketPingInterval)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(WebSocketWriteTimeout))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(WebSocketWriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads client events from the WebSocket connection
func (s *Session) readPump(h *RealtimeHub) {
	defer func() {
		h.Disconnect(s)
		s.conn.Close()
	}()

	s.conn.SetReadLimit(512)
	s.conn.SetReadDeadline(time.Now().Add(WebSocketPongTimeout))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(WebSocketPongTimeout))
		return nil
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			break
		}

		var cmd clientCommand
		if err := json.Unmarshal(message, &cmd); err != nil {
			continue
		}

		switch cmd.Action {
		case "subscribe_symbol":
			h.Subscribe(s, cmd.Symbol)
		case "unsubscribe_symbol":
			h.Unsubscribe(s, cmd.Symbol)
		}
	}
}
