package ws

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/traderlab/optionscan/internal/screener"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4 * 1024

	// Send buffer size per client.
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client represents a WebSocket client connection.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	connID string
	groups map[string]bool
	logger *zap.Logger
}

// clientMessage is the inbound control frame. Action is "subscribe",
// "unsubscribe" or "ping"; Mode names a screening mode for the first two.
type clientMessage struct {
	Action string `json:"action"`
	Mode   string `json:"mode,omitempty"`
}

type serverEvent struct {
	Event string `json:"event"`
	Mode  string `json:"mode,omitempty"`
	Error string `json:"error,omitempty"`
}

// HandleScanWS upgrades the connection and starts streaming. A ?mode=
// query parameter subscribes the client immediately; otherwise the
// client sends subscribe frames after connecting.
func (h *Hub) HandleScanWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		connID: uuid.New().String(),
		groups: make(map[string]bool),
		logger: h.logger,
	}

	h.register <- client
	client.send <- mustEvent(serverEvent{Event: "connected"})

	if mode := r.URL.Query().Get("mode"); mode != "" {
		client.subscribe(mode)
	}

	// Start read/write pumps
	go client.writePump()
	go client.readPump()
}

// readPump reads messages from the WebSocket connection.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("websocket read error",
					zap.String("connID", c.connID),
					zap.Error(err),
				)
			}
			break
		}
		c.handleMessage(message)
	}
}

// writePump writes messages to the WebSocket connection.
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
				// Channel closed, send close message
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Debug("websocket write error",
					zap.String("connID", c.connID),
					zap.Error(err),
				)
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

// handleMessage processes an inbound control frame.
func (c *Client) handleMessage(data []byte) {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.logger.Debug("failed to parse client message",
			zap.String("connID", c.connID),
			zap.Error(err),
		)
		c.send <- mustEvent(serverEvent{Event: "error", Error: "malformed message"})
		return
	}

	switch msg.Action {
	case "subscribe":
		c.subscribe(msg.Mode)

	case "unsubscribe":
		c.hub.LeaveGroup(c, msg.Mode)
		c.send <- mustEvent(serverEvent{Event: "unsubscribed", Mode: msg.Mode})

	case "ping":
		c.send <- mustEvent(serverEvent{Event: "pong"})

	default:
		c.send <- mustEvent(serverEvent{Event: "error", Error: fmt.Sprintf("unknown action %q", msg.Action)})
	}
}

func (c *Client) subscribe(mode string) {
	if _, err := screener.ParseMode(mode); err != nil {
		c.logger.Debug("invalid mode",
			zap.String("connID", c.connID),
			zap.String("mode", mode),
		)
		c.send <- mustEvent(serverEvent{Event: "error", Error: fmt.Sprintf("unknown mode %q", mode)})
		return
	}
	c.hub.JoinGroup(c, mode)
	c.send <- mustEvent(serverEvent{Event: "subscribed", Mode: mode})
}

func mustEvent(ev serverEvent) []byte {
	buf, _ := json.Marshal(ev)
	return buf
}
