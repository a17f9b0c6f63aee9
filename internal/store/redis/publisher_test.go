package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"chart-enginev1/internal/model"
)

type published struct {
	channel string
	data    []byte
}

// fakeClient records commands and fails them while err is set.
type fakeClient struct {
	err    error
	pubs   []published
	latest map[string][]byte
	closed bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{latest: make(map[string][]byte)}
}

func (f *fakeClient) Publish(_ context.Context, channel string, message interface{}) *goredis.IntCmd {
	if f.err != nil {
		return goredis.NewIntResult(0, f.err)
	}
	f.pubs = append(f.pubs, published{channel: channel, data: message.([]byte)})
	return goredis.NewIntResult(1, nil)
}

func (f *fakeClient) Set(_ context.Context, key string, value interface{}, _ time.Duration) *goredis.StatusCmd {
	if f.err != nil {
		return goredis.NewStatusResult("", f.err)
	}
	f.latest[key] = value.([]byte)
	return goredis.NewStatusResult("OK", nil)
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func bookWithSeq(seq int64) model.OrderBook {
	return model.OrderBook{
		Bids:     []model.Order{{ID: "b", Price: 99, Size: 1, Total: 1}},
		Asks:     []model.Order{{ID: "a", Price: 101, Size: 1, Total: 1}},
		Sequence: seq,
	}
}

func decodeSeq(t *testing.T, data []byte) int64 {
	t.Helper()
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	return s.Book.Sequence
}

func TestPublisher_Publish(t *testing.T) {
	fc := newFakeClient()
	p := newPublisher(fc, PublisherConfig{})
	var observed int
	p.OnPublish = func(time.Duration) { observed++ }

	if err := p.Publish(context.Background(), bookWithSeq(3), model.MarketData{}); err != nil {
		t.Fatal(err)
	}
	if len(fc.pubs) != 1 || fc.pubs[0].channel != DefaultChannel {
		t.Fatalf("expected one publish on %s, got %+v", DefaultChannel, fc.pubs)
	}
	if decodeSeq(t, fc.latest[DefaultLatestKey]) != 3 {
		t.Error("latest key should hold the snapshot")
	}
	if observed != 1 {
		t.Errorf("OnPublish calls = %d, want 1", observed)
	}

	fc.err = errors.New("connection refused")
	if err := p.Publish(context.Background(), bookWithSeq(4), model.MarketData{}); !errors.Is(err, fc.err) {
		t.Errorf("expected wrapped client error, got %v", err)
	}
	if p.Client() != nil {
		t.Error("Client should be nil for a fake")
	}
	p.Close()
	if !fc.closed {
		t.Error("Close should close the client")
	}
}

func TestBufferedPublisher_BuffersAndReplaysInOrder(t *testing.T) {
	fc := newFakeClient()
	cb, clk := newTestBreaker(1, time.Second)
	bp := NewBufferedPublisher(newPublisher(fc, PublisherConfig{Channel: "c", LatestKey: "k"}), cb, 10)
	var buffered, flushed int
	bp.OnBuffer = func() { buffered++ }
	bp.OnFlush = func(n int) { flushed += n }
	ctx := context.Background()

	fc.err = errors.New("down")
	bp.Publish(ctx, bookWithSeq(1), model.MarketData{}) // fails, trips the breaker
	bp.Publish(ctx, bookWithSeq(2), model.MarketData{}) // rejected while open
	if cb.CurrentState() != StateOpen {
		t.Fatalf("expected Open, got %v", cb.CurrentState())
	}
	if bp.PendingCount() != 2 || buffered != 2 {
		t.Fatalf("expected 2 buffered, got %d (%d callbacks)", bp.PendingCount(), buffered)
	}

	fc.err = nil
	clk.advance(2 * time.Second)
	if err := bp.Publish(ctx, bookWithSeq(3), model.MarketData{}); err != nil {
		t.Fatal(err)
	}
	if bp.PendingCount() != 0 || flushed != 2 {
		t.Errorf("expected buffer drained, pending=%d flushed=%d", bp.PendingCount(), flushed)
	}
	var seqs []int64
	for _, p := range fc.pubs {
		seqs = append(seqs, decodeSeq(t, p.data))
	}
	if len(seqs) != 3 || seqs[0] != 1 || seqs[1] != 2 || seqs[2] != 3 {
		t.Errorf("expected publishes in order 1,2,3, got %v", seqs)
	}
	if decodeSeq(t, fc.latest["k"]) != 3 {
		t.Error("latest key should end on the newest snapshot")
	}
	if cb.CurrentState() != StateClosed {
		t.Errorf("expected Closed, got %v", cb.CurrentState())
	}
}

func TestBufferedPublisher_DropsOldest(t *testing.T) {
	fc := newFakeClient()
	fc.err = errors.New("down")
	cb, _ := newTestBreaker(1, time.Hour)
	bp := NewBufferedPublisher(newPublisher(fc, PublisherConfig{}), cb, 3)

	for seq := int64(1); seq <= 5; seq++ {
		bp.Publish(context.Background(), bookWithSeq(seq), model.MarketData{})
	}
	if bp.PendingCount() != 3 {
		t.Fatalf("expected 3 pending, got %d", bp.PendingCount())
	}
	if decodeSeq(t, bp.buffer[0]) != 3 {
		t.Errorf("oldest kept snapshot should be 3, got %d", decodeSeq(t, bp.buffer[0]))
	}
}
