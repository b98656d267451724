package ws

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kiwari-pos/terminal/internal/auth"
	"github.com/kiwari-pos/terminal/internal/enum"
	"go.uber.org/zap"
)

// The UI only listens; it never sends more than control frames.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10 // < pongWait
	maxMessageSize = 512
)

// NewUpgrader returns an upgrader accepting browser connections from the
// terminal's own host or from allowedOrigins, the list the CORS policy uses.
// Requests without an Origin header come from non-browser clients and are
// accepted.
func NewUpgrader(allowedOrigins []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
}

func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, allowed := range allowedOrigins {
			if allowed == "*" || strings.EqualFold(allowed, origin) {
				return true
			}
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
}

var defaultTopics = []string{enum.TopicOrders, enum.TopicNotifications}

// SessionReader returns the claims of the active session.
// Satisfied by *auth.Session.
type SessionReader interface {
	Claims(ctx context.Context) (*auth.Claims, error)
}

// Client is one UI connection subscribed to a set of topics.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	topics []string
	send   chan []byte
}

// ReadPump pumps messages from the WebSocket connection to the hub.
// The UI never sends messages; the loop only detects disconnects.
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("websocket closed unexpectedly", zap.Error(err))
			}
			break
		}
	}
}

// WritePump forwards hub events to the connection and keeps it alive with
// pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// dropped by the hub
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One event per frame; the UI parses each frame as JSON.
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWS handles WebSocket requests from the UI.
// Endpoint: WS /ws/notifications?topics=orders,notifications
func ServeWS(hub *Hub, sessions SessionReader, upgrader *websocket.Upgrader, w http.ResponseWriter, r *http.Request) {
	if _, err := sessions.Claims(r.Context()); err != nil {
		http.Error(w, "not logged in", http.StatusUnauthorized)
		return
	}

	topics := parseTopics(r.URL.Query().Get("topics"))
	if len(topics) == 0 {
		http.Error(w, "unknown topic", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.log.Warn("websocket upgrade", zap.Error(err))
		return
	}

	client := &Client{
		hub:    hub,
		conn:   conn,
		topics: topics,
		send:   make(chan []byte, 256),
	}
	select {
	case client.hub.register <- client:
	case <-client.hub.done:
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

// parseTopics returns the known topics named in a comma-separated list, or
// every topic when the list is empty.
func parseTopics(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return defaultTopics
	}
	var topics []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		for _, known := range defaultTopics {
			if t == known {
				topics = append(topics, t)
			}
		}
	}
	return topics
}
