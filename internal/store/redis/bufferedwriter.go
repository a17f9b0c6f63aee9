package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"chart-enginev1/internal/model"
)

// BufferedPublisher wraps a Publisher with a circuit breaker. While the
// circuit is open, snapshots are kept locally (oldest dropped first) and
// replayed once a publish succeeds again.
type BufferedPublisher struct {
	pub *Publisher
	cb  *CircuitBreaker

	mu     sync.Mutex
	buffer [][]byte
	maxBuf int

	// Callbacks
	OnBuffer func()          // a snapshot was buffered
	OnFlush  func(count int) // buffered snapshots were replayed
}

// NewBufferedPublisher creates a BufferedPublisher. A non-positive
// maxBufferSize keeps up to 1000 snapshots.
func NewBufferedPublisher(p *Publisher, cb *CircuitBreaker, maxBufferSize int) *BufferedPublisher {
	if maxBufferSize <= 0 {
		maxBufferSize = 1000
	}
	return &BufferedPublisher{
		pub:    p,
		cb:     cb,
		buffer: make([][]byte, 0, 64),
		maxBuf: maxBufferSize,
	}
}

// Publish sends buffered snapshots and then this one through the circuit
// breaker. A snapshot that cannot be sent is buffered and nil is returned;
// only marshal errors are reported.
func (bp *BufferedPublisher) Publish(ctx context.Context, book model.OrderBook, md model.MarketData) error {
	start := time.Now()
	data, err := json.Marshal(Snapshot{Book: book, Market: md, TS: start.UTC()})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	err = bp.cb.Execute(func() error {
		if err := bp.flush(ctx); err != nil {
			return err
		}
		return bp.pub.publishRaw(ctx, data)
	})
	switch {
	case err == nil:
		if bp.pub.OnPublish != nil {
			bp.pub.OnPublish(time.Since(start))
		}
		return nil
	case errors.Is(err, ErrCircuitOpen):
	default:
		log.Printf("[buffered-publisher] publish failed: %v", err)
	}
	bp.bufferWrite(data)
	return nil
}

func (bp *BufferedPublisher) bufferWrite(data []byte) {
	bp.mu.Lock()
	if len(bp.buffer) >= bp.maxBuf {
		bp.buffer = bp.buffer[1:]
	}
	bp.buffer = append(bp.buffer, data)
	bp.mu.Unlock()

	if bp.OnBuffer != nil {
		bp.OnBuffer()
	}
}

// flush replays buffered snapshots in order. It stops at the first failure,
// keeps the rest and returns the error.
func (bp *BufferedPublisher) flush(ctx context.Context) error {
	bp.mu.Lock()
	if len(bp.buffer) == 0 {
		bp.mu.Unlock()
		return nil
	}
	toFlush := bp.buffer
	bp.buffer = make([][]byte, 0, 64)
	bp.mu.Unlock()

	var err error
	flushed := 0
	for _, data := range toFlush {
		if err = bp.pub.publishRaw(ctx, data); err != nil {
			break
		}
		flushed++
	}

	if rest := toFlush[flushed:]; len(rest) > 0 {
		bp.mu.Lock()
		bp.buffer = append(rest, bp.buffer...)
		if over := len(bp.buffer) - bp.maxBuf; over > 0 {
			bp.buffer = bp.buffer[over:]
		}
		bp.mu.Unlock()
	}

	if flushed > 0 {
		log.Printf("[buffered-publisher] flushed %d buffered snapshots", flushed)
		if bp.OnFlush != nil {
			bp.OnFlush(flushed)
		}
	}
	return err
}

// PendingCount returns the number of buffered snapshots.
func (bp *BufferedPublisher) PendingCount() int {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return len(bp.buffer)
}

// Underlying returns the wrapped publisher.
func (bp *BufferedPublisher) Underlying() *Publisher {
	return bp.pub
}

func (bp *BufferedPublisher) Close() error {
	return bp.pub.Close()
}

var _ model.BookPublisher = (*BufferedPublisher)(nil)
