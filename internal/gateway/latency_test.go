package gateway

import (
	"math"
	"testing"
	"time"
)

func TestLatencyTracker_Empty(t *testing.T) {
	lt := NewLatencyTracker(100)
	if st := lt.Stats(); st != (LatencyStats{}) {
		t.Errorf("empty tracker: expected zero stats, got %+v", st)
	}
}

func TestLatencyTracker_SingleSample(t *testing.T) {
	lt := NewLatencyTracker(100)
	lt.Record(42 * time.Millisecond)

	st := lt.Stats()
	if st.P50 != 42 || st.P99 != 42 || st.Max != 42 {
		t.Errorf("expected every percentile at 42ms, got %+v", st)
	}
}

func TestLatencyTracker_Percentiles(t *testing.T) {
	lt := NewLatencyTracker(1000)
	// 100 samples 1ms..100ms in reverse order
	for i := 100; i >= 1; i-- {
		lt.Record(time.Duration(i) * time.Millisecond)
	}

	st := lt.Stats()
	for _, c := range []struct {
		name      string
		got, want float64
	}{
		{"p50", st.P50, 50.5},
		{"p95", st.P95, 95.05},
		{"p99", st.P99, 99.01},
		{"max", st.Max, 100},
	} {
		if math.Abs(c.got-c.want) > 0.01 {
			t.Errorf("%s: got %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestLatencyTracker_Wraparound(t *testing.T) {
	lt := NewLatencyTracker(10)
	for i := 1; i <= 25; i++ {
		lt.Record(time.Duration(i) * time.Millisecond)
	}
	if lt.Count() != 10 {
		t.Fatalf("Count() = %d, want 10", lt.Count())
	}
	// 16..25 remain
	if st := lt.Stats(); math.Abs(st.P50-20.5) > 0.01 || st.Max != 25 {
		t.Errorf("unexpected stats after wraparound %+v", st)
	}
}

func TestLatencyTracker_Observe(t *testing.T) {
	lt := NewLatencyTracker(10)
	now := time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC)

	lt.Observe(now.Add(-25*time.Millisecond), now)
	lt.Observe(time.Time{}, now)
	lt.Observe(now.Add(time.Second), now)

	st := lt.Stats()
	if st.Samples != 1 || st.P50 != 25 {
		t.Errorf("expected one 25ms sample, got %+v", st)
	}
}
