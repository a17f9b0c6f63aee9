package gateway

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	sendQueueLen = 256
)

// Client represents a single WebSocket peer.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub

	// Subscribed channels; empty means every channel.
	subMu sync.RWMutex
	subs  map[string]bool
}

// controlMsg is a client request:
//
//	{"type":"SUBSCRIBE","channels":["update","trade"]}
//	{"type":"UNSUBSCRIBE","channels":["trade"]}
//	{"ping":1700000000000}
type controlMsg struct {
	Type     string   `json:"type"`
	Channels []string `json:"channels"`
	ReqID    string   `json:"req_id,omitempty"`
	Ping     int64    `json:"ping"`
}

func newClient(h *Hub, conn *websocket.Conn) *Client {
	return &Client{
		conn: conn,
		send: make(chan []byte, sendQueueLen),
		hub:  h,
		subs: make(map[string]bool),
	}
}

func (c *Client) sendInitialState(lastTS string) {
	var cutoff time.Time
	if lastTS != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, lastTS); err == nil {
			cutoff = parsed
		}
	}

	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	for channel, entry := range c.hub.latest {
		if !cutoff.IsZero() && !entry.TS.After(cutoff) {
			continue
		}
		envelope, _ := json.Marshal(map[string]interface{}{
			"channel":     channel,
			"data":        entry.Data,
			"ts":          entry.TS.Format(time.RFC3339Nano),
			"channel_seq": entry.Seq,
			"initial":     true,
		})
		select {
		case c.send <- envelope:
		default:
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// coalesce queued envelopes into one frame, newline separated
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(msg)
			n := len(c.send)
			for i := 0; i < n; i++ {
				next, ok := <-c.send
				if !ok {
					break
				}
				w.Write([]byte{'\n'})
				w.Write(next)
			}
			if err := w.Close(); err != nil {
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

func (c *Client) readPump() {
	defer func() {
		c.hub.RemoveClient(c)
		c.conn.Close()
		log.Println("[gateway] ws client disconnected")
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg controlMsg
		if json.Unmarshal(raw, &msg) != nil {
			c.sendError("", "invalid message")
			continue
		}

		switch msg.Type {
		case "SUBSCRIBE":
			c.setSubscribed(msg.Channels, true)
			c.sendJSON(map[string]interface{}{"type": "subscribed", "channels": c.Channels(), "req_id": msg.ReqID})
		case "UNSUBSCRIBE":
			c.setSubscribed(msg.Channels, false)
			c.sendJSON(map[string]interface{}{"type": "unsubscribed", "channels": c.Channels(), "req_id": msg.ReqID})
		default:
			if msg.Ping > 0 {
				c.sendJSON(map[string]interface{}{
					"type":      "pong",
					"ping":      msg.Ping,
					"server_ts": time.Now().UnixMilli(),
				})
				continue
			}
			c.sendError(msg.ReqID, "unknown message type "+msg.Type)
		}
	}
}

func (c *Client) setSubscribed(channels []string, on bool) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range channels {
		if on {
			c.subs[ch] = true
		} else {
			delete(c.subs, ch)
		}
	}
}

// Channels returns the subscribed channels; nil means all.
func (c *Client) Channels() []string {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	if len(c.subs) == 0 {
		return nil
	}
	out := make([]string, 0, len(c.subs))
	for ch := range c.subs {
		out = append(out, ch)
	}
	return out
}

// matchesChannel reports whether the client should receive channel.
func (c *Client) matchesChannel(channel string) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return len(c.subs) == 0 || c.subs[channel]
}

// sendJSON queues v unless the client is gone or its queue is full.
func (c *Client) sendJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.clients[c] {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) sendError(reqID, msg string) {
	c.sendJSON(map[string]interface{}{"type": "error", "req_id": reqID, "error": msg})
}
