package gateway

import (
	"strconv"
	"time"
)

// Broadcaster builds envelopes and sends them to subscribed clients.
type Broadcaster struct {
	hub *Hub
	now func() time.Time
}

// NewBroadcaster creates a Broadcaster backed by the given Hub.
func NewBroadcaster(hub *Hub) *Broadcaster {
	return &Broadcaster{hub: hub, now: time.Now}
}

// Broadcast sends data on a channel to every subscribed client. srcTS is
// the event time used for latency tracking; zero skips it.
func (b *Broadcaster) Broadcast(channel string, data []byte, srcTS time.Time) {
	now := b.now().UTC()
	if b.hub.Latency != nil {
		b.hub.Latency.Observe(srcTS, now)
	}

	h := b.hub
	h.mu.Lock()
	h.channelSeqs[channel]++
	channelSeq := h.channelSeqs[channel]
	h.seq++
	seq := h.seq
	h.latest[channel] = latestEntry{Data: data, TS: now, Seq: channelSeq}
	rb, exists := h.replayBufs[channel]
	if !exists {
		rb = NewReplayBuffer(h.replayCap)
		h.replayBufs[channel] = rb
	}
	h.mu.Unlock()

	buf := appendEnvelope(make([]byte, 0, len(channel)+len(data)+160), channel, data, now, seq, channelSeq)
	rb.Push(channelSeq, buf)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if !client.matchesChannel(channel) {
			continue
		}
		select {
		case client.send <- buf:
			if h.OnSend != nil {
				h.OnSend()
			}
		default:
		}
	}
}

// appendEnvelope writes
// {"channel":...,"data":...,"ts":...,"seq":N,"channel_seq":M}.
// channel must not need JSON escaping.
func appendEnvelope(buf []byte, channel string, data []byte, ts time.Time, seq, channelSeq int64) []byte {
	buf = append(buf, `{"channel":"`...)
	buf = append(buf, channel...)
	buf = append(buf, `","data":`...)
	buf = append(buf, data...)
	buf = append(buf, `,"ts":"`...)
	buf = ts.AppendFormat(buf, time.RFC3339Nano)
	buf = append(buf, `","seq":`...)
	buf = strconv.AppendInt(buf, seq, 10)
	buf = append(buf, `,"channel_seq":`...)
	buf = strconv.AppendInt(buf, channelSeq, 10)
	buf = append(buf, '}')
	return buf
}
