package schedule

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestManual_AdvanceRunsDueTasks(t *testing.T) {
	m := NewManual()
	var fast, slow int
	m.Every(10*time.Millisecond, func() { fast++ })
	m.Every(25*time.Millisecond, func() { slow++ })

	m.Advance(9 * time.Millisecond)
	if fast != 0 || slow != 0 {
		t.Fatalf("nothing should run before the first interval, got %d/%d", fast, slow)
	}
	m.Advance(41 * time.Millisecond)
	if fast != 5 || slow != 2 {
		t.Errorf("expected 5 fast and 2 slow runs at 50ms, got %d/%d", fast, slow)
	}
}

func TestManual_CancelFromInsideTask(t *testing.T) {
	m := NewManual()
	runs := 0
	var cancel func()
	cancel = m.Every(time.Millisecond, func() {
		runs++
		cancel()
	})

	m.Advance(10 * time.Millisecond)
	if runs != 1 {
		t.Errorf("cancelled task should run once, got %d", runs)
	}
	if m.Pending() != 0 {
		t.Errorf("expected no pending tasks, got %d", m.Pending())
	}
	cancel()
}

func TestManual_FireIgnoresInterval(t *testing.T) {
	m := NewManual()
	var order []int
	m.Every(time.Hour, func() { order = append(order, 1) })
	m.Every(time.Second, func() { order = append(order, 2) })

	m.Fire()
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("expected registration order, got %v", order)
	}
}

func TestTicker_RunsUntilCancelled(t *testing.T) {
	var n atomic.Int32
	done := make(chan struct{}, 1)
	cancel := NewTicker().Every(time.Millisecond, func() {
		if n.Add(1) == 3 {
			done <- struct{}{}
		}
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ticker did not fire")
	}
	cancel()
	cancel()

	time.Sleep(10 * time.Millisecond)
	after := n.Load()
	time.Sleep(20 * time.Millisecond)
	if n.Load() != after {
		t.Error("ticker kept firing after cancel")
	}
}
