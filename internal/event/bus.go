// Package event provides a small typed publish/subscribe bus.
//
// Each component declares its own closed set of event variants and owns a
// Bus of that type. Subscribers are invoked synchronously, in subscription
// order, and a panicking subscriber is recovered and logged so the others
// still receive the event.
package event

import (
	"log/slog"
	"sync"
)

type subscriber[E any] struct {
	id int
	fn func(E)
}

// Bus fans events of type E out to registered subscribers.
type Bus[E any] struct {
	name   string
	logger *slog.Logger

	mu     sync.Mutex
	nextID int
	subs   []subscriber[E]

	// OnPanic is called after a subscriber panic has been recovered.
	OnPanic func(recovered any)
}

// NewBus creates a bus. name is only used in log output.
func NewBus[E any](name string, logger *slog.Logger) *Bus[E] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus[E]{name: name, logger: logger}
}

// Subscribe registers fn and returns a function that removes it again.
// The returned function is idempotent.
func (b *Bus[E]) Subscribe(fn func(E)) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscriber[E]{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus[E]) remove(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers ev to every subscriber registered at the time of the call.
// Subscribers may subscribe or unsubscribe from inside the callback.
func (b *Bus[E]) Publish(ev E) {
	b.mu.Lock()
	subs := make([]subscriber[E], len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		b.deliver(s, ev)
	}
}

func (b *Bus[E]) deliver(s subscriber[E], ev E) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("subscriber panicked",
				slog.String("bus", b.name),
				slog.Int("subscriber", s.id),
				slog.Any("panic", r),
			)
			if b.OnPanic != nil {
				b.OnPanic(r)
			}
		}
	}()
	s.fn(ev)
}

// Len returns the number of active subscribers.
func (b *Bus[E]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Clear removes every subscriber.
func (b *Bus[E]) Clear() {
	b.mu.Lock()
	b.subs = nil
	b.mu.Unlock()
}
