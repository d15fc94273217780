package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket message types.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"
)

// wsQueueSize is the per-client outbound queue length.
const wsQueueSize = 64

// WSMessage is the envelope for every WebSocket frame in both directions.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload is the payload for subscribe/unsubscribe messages.
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

// The API binds to localhost by default, so any origin is accepted.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// wsClient is one WebSocket connection.
type wsClient struct {
	hub   *Hub
	conn  *websocket.Conn

	// sendMu orders sends on queue against closing it.
	sendMu sync.Mutex
	queue  chan []byte
	closed bool

	mu       sync.RWMutex
	channels map[string]struct{}
}

// handleWebSocket upgrades the request. Channels listed in the optional
// "channels" query parameter (comma separated) are subscribed up front.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &wsClient{
		hub:      s.hub,
		conn:     conn,
		queue:    make(chan []byte, wsQueueSize),
		channels: make(map[string]struct{}),
	}
	if list := r.URL.Query().Get("channels"); list != "" {
		c.subscribe(strings.Split(list, ","))
	}

	s.hub.add(c)
	go c.writeLoop()
	go c.readLoop()
}

func (c *wsClient) subscribe(channels []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range channels {
		if ch = strings.TrimSpace(ch); ch != "" {
			c.channels[ch] = struct{}{}
		}
	}
}

func (c *wsClient) unsubscribe(channels []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range channels {
		delete(c.channels, strings.TrimSpace(ch))
	}
}

func (c *wsClient) wants(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.channels[channel]
	return ok
}

// enqueue queues data without blocking. A full queue drops the message,
// and so does a client that has already been removed.
func (c *wsClient) enqueue(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}

	select {
	case c.queue <- data:
		return true
	default:
		return false
	}
}

// closeQueue closes the outbound queue once, which ends writeLoop.
func (c *wsClient) closeQueue() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.queue)
	}
}

// readLoop handles inbound frames until the connection fails.
func (c *wsClient) readLoop() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	cfg := c.hub.cfg
	idle := time.Duration(cfg.PingInterval+cfg.PongTimeout) * time.Second
	extend := func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(idle))
	}

	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	//nolint:errcheck // Best-effort deadline
	extend("")
	c.conn.SetPongHandler(extend)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		//nolint:errcheck // Best-effort deadline
		extend("")
		c.handle(data)
	}
}

// writeLoop drains the queue and keeps the connection alive with pings.
func (c *wsClient) writeLoop() {
	cfg := c.hub.cfg
	ping := time.NewTicker(time.Duration(cfg.PingInterval) * time.Second)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	writeWait := time.Duration(cfg.PongTimeout) * time.Second

	for {
		var (
			kind = websocket.PingMessage
			data []byte
		)

		select {
		case msg, ok := <-c.queue:
			if !ok {
				//nolint:errcheck // Best-effort close frame
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			kind, data = websocket.TextMessage, msg
		case <-ping.C:
		}

		//nolint:errcheck // Write error is caught below
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(kind, data); err != nil {
			return
		}
	}
}

// handle processes one inbound frame.
func (c *wsClient) handle(data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.reply("", WSTypeError, map[string]string{"message": "invalid JSON message"})
		return
	}

	switch msg.Type {
	case WSTypeSubscribe, WSTypeUnsubscribe:
		var sub WSSubscribePayload
		raw, _ := json.Marshal(msg.Payload) //nolint:errcheck // Payload came from json.Unmarshal
		if err := json.Unmarshal(raw, &sub); err != nil {
			c.reply(msg.ID, WSTypeError, map[string]string{"message": "invalid " + msg.Type + " payload"})
			return
		}
		if msg.Type == WSTypeSubscribe {
			c.subscribe(sub.Channels)
			c.reply(msg.ID, WSTypeResponse, map[string]any{"subscribed": sub.Channels})
		} else {
			c.unsubscribe(sub.Channels)
			c.reply(msg.ID, WSTypeResponse, map[string]any{"unsubscribed": sub.Channels})
		}
	case WSTypePing:
		c.reply(msg.ID, WSTypePong, nil)
	default:
		c.reply(msg.ID, WSTypeError, map[string]string{"message": "unknown message type: " + msg.Type})
	}
}

// reply queues a direct response to this client.
func (c *wsClient) reply(id, msgType string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		return
	}
	c.enqueue(data)
}
