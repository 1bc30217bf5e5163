package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ridgeline-homes/portalchat/pkg/events"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // the portal fronts this behind its own origin checks
	},
}

// frame is what a client sends over the socket.
type frame struct {
	Type      string `json:"type"` // message | typing | read
	ChannelID string `json:"channelId"`
	Body      string `json:"body,omitempty"`
	IsTyping  bool   `json:"isTyping,omitempty"`
}

// Client is a middleman between one websocket connection and the hub.
type Client struct {
	hub *Hub
	gw  *Gateway

	conn *websocket.Conn
	send chan []byte

	userID    string
	userName  string
	sessionID string
}

// readPump parses client frames and dispatches them to the gateway.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.gw.log.Warn("socket read", zap.String("user_id", c.userID), zap.Error(err))
			}
			break
		}

		var f frame
		if err := json.Unmarshal(raw, &f); err != nil {
			c.gw.log.Warn("bad frame", zap.String("user_id", c.userID), zap.Error(err))
			continue
		}
		c.gw.handleFrame(context.Background(), c, f)
	}
}

// writePump pumps frames from the hub to the websocket connection.
func (c *Client) writePump() {
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
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

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

// push writes an envelope straight to this socket, outside pub/sub. Used
// for send acks and errors that only this session cares about.
func (c *Client) push(kind events.Kind, payload any) {
	raw, err := events.Marshal(kind, payload)
	if err != nil {
		c.gw.log.Error("encode socket frame", zap.Error(err))
		return
	}
	select {
	case c.send <- raw:
	default:
	}
}

// serveWs authenticates the upgrade request and wires the socket in.
func serveWs(gw *Gateway, w http.ResponseWriter, r *http.Request) {
	tokenString := r.Header.Get("Authorization")
	if tokenString == "" {
		// Query param fallback for browser websocket clients.
		tokenString = r.URL.Query().Get("token")
	}
	if tokenString == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if len(tokenString) > 7 && tokenString[:7] == "Bearer " {
		tokenString = tokenString[7:]
	}

	claims, err := gw.auth.ValidateToken(tokenString)
	if err != nil {
		gw.log.Warn("invalid token", zap.Error(err))
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		gw.log.Warn("upgrade", zap.Error(err))
		return
	}

	client := &Client{
		hub:       gw.hub,
		gw:        gw,
		conn:      conn,
		send:      make(chan []byte, 256),
		userID:    claims.UserID,
		userName:  claims.UserName,
		sessionID: uuid.NewString(),
	}
	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}
