// Package bus fans one stream of values out to several consumers.
package bus

import (
	"context"
	"log"
	"sync"
)

// FanOut broadcasts values from a single input channel to N output channels.
// If an output channel is full, the value is dropped for that consumer so a
// slow consumer never blocks the pipeline.
type FanOut[T any] struct {
	mu      sync.RWMutex
	outputs []output[T]
	bufSize int
	closed  bool

	// OnDrop is called when a value is dropped for a subscriber.
	OnDrop func(subscriber string)
}

type output[T any] struct {
	name string
	ch   chan T
}

// ChannelStat is the fill level of one subscriber channel.
type ChannelStat struct {
	Name string
	Len  int
	Cap  int
}

// New creates a FanOut with the given buffer size for output channels.
func New[T any](outputBufferSize int) *FanOut[T] {
	if outputBufferSize < 0 {
		outputBufferSize = 0
	}
	return &FanOut[T]{bufSize: outputBufferSize}
}

// Subscribe creates and returns a new named output channel. Subscribing
// after Run has returned yields a closed channel.
func (f *FanOut[T]) Subscribe(name string) <-chan T {
	ch := make(chan T, f.bufSize)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		close(ch)
		return ch
	}
	f.outputs = append(f.outputs, output[T]{name: name, ch: ch})
	return ch
}

// Run reads from input and fans out to all subscribers. Blocks until ctx is
// cancelled or input is closed, then closes every output.
func (f *FanOut[T]) Run(ctx context.Context, input <-chan T) {
	defer func() {
		f.mu.Lock()
		f.closed = true
		for _, o := range f.outputs {
			close(o.ch)
		}
		f.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-input:
			if !ok {
				return
			}
			f.publish(v)
		}
	}
}

func (f *FanOut[T]) publish(v T) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, o := range f.outputs {
		select {
		case o.ch <- v:
		default:
			if f.OnDrop != nil {
				f.OnDrop(o.name)
			} else {
				log.Printf("[bus] output %q full, dropping value", o.name)
			}
		}
	}
}

// ChannelStats returns the fill level of each subscriber channel, in
// subscription order.
func (f *FanOut[T]) ChannelStats() []ChannelStat {
	f.mu.RLock()
	defer f.mu.RUnlock()
	stats := make([]ChannelStat, len(f.outputs))
	for i, o := range f.outputs {
		stats[i] = ChannelStat{Name: o.name, Len: len(o.ch), Cap: cap(o.ch)}
	}
	return stats
}
