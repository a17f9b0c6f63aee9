// Package schedule abstracts periodic work so engines can be driven by a
// real ticker in production and by hand in tests.
package schedule

import (
	"sort"
	"sync"
	"time"
)

// Scheduler runs fn every interval until the returned cancel is called.
// cancel is idempotent and safe to call from inside fn.
type Scheduler interface {
	Every(interval time.Duration, fn func()) (cancel func())
}

// Ticker is a Scheduler backed by time.Ticker. Each task runs on its own
// goroutine, so fn must be safe for concurrent use with its owner.
type Ticker struct{}

// NewTicker returns a wall-clock scheduler.
func NewTicker() *Ticker { return &Ticker{} }

func (Ticker) Every(interval time.Duration, fn func()) func() {
	if interval <= 0 {
		interval = time.Millisecond
	}
	stop := make(chan struct{})
	var once sync.Once

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				// stop wins if both are ready
				select {
				case <-stop:
					return
				default:
				}
				fn()
			}
		}
	}()

	return func() { once.Do(func() { close(stop) }) }
}

type manualTask struct {
	id       int
	interval time.Duration
	next     time.Duration
	fn       func()
	active   bool
}

// Manual is a deterministic Scheduler for tests and single-goroutine hosts.
// Nothing runs until Advance or Fire is called.
type Manual struct {
	mu     sync.Mutex
	now    time.Duration
	nextID int
	tasks  map[int]*manualTask
}

// NewManual returns an idle manual scheduler at virtual time zero.
func NewManual() *Manual {
	return &Manual{tasks: make(map[int]*manualTask)}
}

func (m *Manual) Every(interval time.Duration, fn func()) func() {
	if interval <= 0 {
		interval = time.Millisecond
	}
	m.mu.Lock()
	m.nextID++
	t := &manualTask{id: m.nextID, interval: interval, next: m.now + interval, fn: fn, active: true}
	m.tasks[t.id] = t
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		t.active = false
		delete(m.tasks, t.id)
		m.mu.Unlock()
	}
}

// Advance moves virtual time forward by d and runs every task that comes due,
// in due-time order. A task due several times runs several times.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		t := m.earliestDue(target)
		if t == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = t.next
		t.next += t.interval
		fn := t.fn
		m.mu.Unlock()

		fn()
	}
}

func (m *Manual) earliestDue(target time.Duration) *manualTask {
	var best *manualTask
	for _, t := range m.tasks {
		if !t.active || t.next > target {
			continue
		}
		if best == nil || t.next < best.next || (t.next == best.next && t.id < best.id) {
			best = t
		}
	}
	return best
}

// Fire runs every active task once, regardless of its interval.
func (m *Manual) Fire() {
	m.mu.Lock()
	ids := make([]int, 0, len(m.tasks))
	for id := range m.tasks {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	sort.Ints(ids)

	for _, id := range ids {
		m.mu.Lock()
		t, ok := m.tasks[id]
		run := ok && t.active
		m.mu.Unlock()
		if run {
			t.fn()
		}
	}
}

// Pending returns the number of active tasks.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}
