package gateway

import (
	"slices"
	"sync"
	"time"
)

// LatencyTracker keeps the most recent book-time-to-broadcast delays and
// reports percentiles over them. Safe for concurrent use.
type LatencyTracker struct {
	mu      sync.Mutex
	samples []time.Duration
	next    int
	full    bool
}

// LatencyStats summarizes the retained samples in milliseconds.
type LatencyStats struct {
	Samples int     `json:"samples"`
	P50     float64 `json:"p50_ms"`
	P95     float64 `json:"p95_ms"`
	P99     float64 `json:"p99_ms"`
	Max     float64 `json:"max_ms"`
}

// NewLatencyTracker retains up to capacity samples (10000 when not positive).
func NewLatencyTracker(capacity int) *LatencyTracker {
	if capacity <= 0 {
		capacity = 10000
	}
	return &LatencyTracker{samples: make([]time.Duration, capacity)}
}

// Record adds one sample, evicting the oldest when full.
func (lt *LatencyTracker) Record(d time.Duration) {
	lt.mu.Lock()
	lt.samples[lt.next] = d
	lt.next++
	if lt.next == len(lt.samples) {
		lt.next = 0
		lt.full = true
	}
	lt.mu.Unlock()
}

// Observe records now-src. Zero source times and negative delays are
// ignored.
func (lt *LatencyTracker) Observe(src, now time.Time) {
	if src.IsZero() {
		return
	}
	if d := now.Sub(src); d >= 0 {
		lt.Record(d)
	}
}

// Count returns the number of retained samples.
func (lt *LatencyTracker) Count() int {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	return lt.count()
}

func (lt *LatencyTracker) count() int {
	if lt.full {
		return len(lt.samples)
	}
	return lt.next
}

// Stats returns percentiles over the retained samples; all zero when empty.
func (lt *LatencyTracker) Stats() LatencyStats {
	lt.mu.Lock()
	sorted := slices.Clone(lt.samples[:lt.count()])
	lt.mu.Unlock()

	if len(sorted) == 0 {
		return LatencyStats{}
	}
	slices.Sort(sorted)
	return LatencyStats{
		Samples: len(sorted),
		P50:     ms(quantile(sorted, 0.50)),
		P95:     ms(quantile(sorted, 0.95)),
		P99:     ms(quantile(sorted, 0.99)),
		Max:     ms(sorted[len(sorted)-1]),
	}
}

// quantile interpolates linearly between the two closest ranks.
func quantile(sorted []time.Duration, q float64) time.Duration {
	rank := q * float64(len(sorted)-1)
	lo := int(rank)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + time.Duration(frac*float64(sorted[lo+1]-sorted[lo]))
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
