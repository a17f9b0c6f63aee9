// Package gateway streams order book events to WebSocket clients and serves
// the REST API of the book server.
package gateway

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chart-enginev1/internal/orderbook"
)

// Hub manages WebSocket clients. Every broadcast carries a global sequence
// and a per-channel sequence; the last envelopes of each channel are kept
// for gap backfill.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	latest  map[string]latestEntry
	seq     int64

	// Per-channel monotonic sequence numbers for gap detection
	channelSeqs map[string]int64
	replayBufs  map[string]*ReplayBuffer
	replayCap   int

	Latency     *LatencyTracker
	Broadcaster *Broadcaster

	// OnClientCount is called with the new count after a client joins or
	// leaves.
	OnClientCount func(n int)
	// OnSend is called for every envelope queued to a client.
	OnSend func()
}

type latestEntry struct {
	Data json.RawMessage
	TS   time.Time
	Seq  int64
}

// NewHub creates a Hub keeping replayCapacity envelopes per channel.
func NewHub(replayCapacity int) *Hub {
	if replayCapacity <= 0 {
		replayCapacity = DefaultReplayCapacity
	}
	h := &Hub{
		clients:     make(map[*Client]bool),
		latest:      make(map[string]latestEntry),
		channelSeqs: make(map[string]int64),
		replayBufs:  make(map[string]*ReplayBuffer),
		replayCap:   replayCapacity,
		Latency:     NewLatencyTracker(10000),
	}
	h.Broadcaster = NewBroadcaster(h)
	return h
}

// Run broadcasts order book events on the channel named after the event
// kind. Blocks until ctx is cancelled or events is closed.
func (h *Hub) Run(ctx context.Context, events <-chan orderbook.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			h.Publish(ev)
		}
	}
}

// Publish broadcasts one order book event.
func (h *Hub) Publish(ev orderbook.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[gateway] marshal %s: %v", orderbook.EventName(ev), err)
		return
	}
	h.Broadcaster.Broadcast(orderbook.EventName(ev), data, eventTime(ev))
}

// eventTime is the book time carried by ev, or zero.
func eventTime(ev orderbook.Event) time.Time {
	switch e := ev.(type) {
	case orderbook.Update:
		return e.Book.LastUpdate
	case orderbook.Reset:
		return e.Book.LastUpdate
	case orderbook.OrderAdded:
		return e.Order.Timestamp
	}
	return time.Time{}
}

// HandleWSRequest registers an upgraded connection. The client first
// receives the latest envelope of every channel newer than lastTS
// (RFC3339Nano; empty sends all).
func (h *Hub) HandleWSRequest(conn *websocket.Conn, lastTS string) {
	client := newClient(h, conn)
	conn.EnableWriteCompression(true)

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	log.Printf("[gateway] ws client connected (%d total)", count)
	if h.OnClientCount != nil {
		h.OnClientCount(count)
	}

	client.sendInitialState(lastTS)
	go client.writePump()
	go client.readPump()
}

// RemoveClient unregisters c and closes its send queue. Safe to call more
// than once.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	count := len(h.clients)
	h.mu.Unlock()

	if h.OnClientCount != nil {
		h.OnClientCount(count)
	}
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.RemoveClient(c)
	}
}

// GetLatestAll returns a snapshot of the latest payload of every channel.
func (h *Hub) GetLatestAll() map[string]json.RawMessage {
	h.mu.RLock()
	defer h.mu.RUnlock()
	cp := make(map[string]json.RawMessage, len(h.latest))
	for k, v := range h.latest {
		cp[k] = v.Data
	}
	return cp
}

// GetReplayRange returns buffered envelopes for a channel in [fromSeq, toSeq].
func (h *Hub) GetReplayRange(channel string, fromSeq, toSeq int64) [][]byte {
	h.mu.RLock()
	rb, exists := h.replayBufs[channel]
	h.mu.RUnlock()
	if !exists {
		return nil
	}
	entries := rb.Range(fromSeq, toSeq)
	result := make([][]byte, len(entries))
	for i, e := range entries {
		result[i] = e.Data
	}
	return result
}

// OldestReplaySeq returns the oldest channel sequence still replayable.
func (h *Hub) OldestReplaySeq(channel string) int64 {
	h.mu.RLock()
	rb, exists := h.replayBufs[channel]
	h.mu.RUnlock()
	if !exists {
		return 0
	}
	return rb.Oldest()
}

// GetChannelSeq returns the current sequence number for a channel.
func (h *Hub) GetChannelSeq(channel string) int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.channelSeqs[channel]
}

// ChannelSeqs returns a copy of every channel's sequence number.
func (h *Hub) ChannelSeqs() map[string]int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	cp := make(map[string]int64, len(h.channelSeqs))
	for k, v := range h.channelSeqs {
		cp[k] = v
	}
	return cp
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
