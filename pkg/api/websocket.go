package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins (CORS handled by main server)
		return true
	},
}

// Hub maintains active WebSocket connections and fans out book and trade
// updates to clients subscribed to the matching channel.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{} // closed when Run returns
	mu         sync.RWMutex
	logger     *zap.SugaredLogger
}

func NewHub(logger *zap.SugaredLogger) *Hub {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run handles client registration until ctx is done, then drops every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Infow("ws_client_connected", "client", client.id, "total", total)

		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		h.logger.Infow("ws_client_disconnected", "client", client.id, "total", len(h.clients))
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastToChannel sends a message to all clients subscribed to a channel.
// Clients with a full send buffer miss the update.
func (h *Hub) BroadcastToChannel(channel, msgType string, data interface{}) {
	message, err := json.Marshal(WSMessage{Type: msgType, Channel: channel, Data: data})
	if err != nil {
		h.logger.Errorw("ws_marshal_failed", "channel", channel, "err", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if !client.IsSubscribed(channel) {
			continue
		}
		select {
		case client.send <- message:
		default:
			h.logger.Warnw("ws_send_buffer_full", "client", client.id, "channel", channel)
		}
	}
}

// Client represents a WebSocket connection
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	id   string

	subscriptions map[string]bool
	subsMu        sync.RWMutex
}

func (c *Client) IsSubscribed(channel string) bool {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	return c.subscriptions[channel]
}

func (c *Client) Subscribe(channel string) {
	c.subsMu.Lock()
	c.subscriptions[channel] = true
	c.subsMu.Unlock()
	c.hub.logger.Debugw("ws_subscribed", "client", c.id, "channel", channel)
}

func (c *Client) Unsubscribe(channel string) {
	c.subsMu.Lock()
	delete(c.subscriptions, channel)
	c.subsMu.Unlock()
	c.hub.logger.Debugw("ws_unsubscribed", "client", c.id, "channel", channel)
}

// readPump handles subscription requests until the connection fails.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warnw("ws_read_failed", "client", c.id, "err", err)
			}
			return
		}

		var req WSSubscribeRequest
		if err := json.Unmarshal(message, &req); err != nil {
			c.hub.logger.Debugw("ws_invalid_message", "client", c.id, "err", err)
			continue
		}

		switch req.Op {
		case "subscribe":
			for _, channel := range req.Channels {
				c.Subscribe(channel)
			}
		case "unsubscribe":
			for _, channel := range req.Channels {
				c.Unsubscribe(channel)
			}
		default:
			c.hub.logger.Debugw("ws_unknown_op", "client", c.id, "op", req.Op)
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
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
				// Hub closed the channel
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

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnw("ws_upgrade_failed", "err", err)
		return
	}

	client := &Client{
		hub:           s.hub,
		conn:          conn,
		send:          make(chan []byte, sendBuffer),
		id:            conn.RemoteAddr().String(),
		subscriptions: make(map[string]bool),
	}

	select {
	case s.hub.register <- client:
	case <-s.hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
