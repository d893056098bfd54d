package session

import (
	"sync/atomic"
	"testing"
	"time"
)

// TestTickerFires verifies an armed ticker delivers ticks at roughly its
// interval.
func TestTickerFires(t *testing.T) {
	tk := NewTicker(5 * time.Millisecond)
	defer tk.Stop()

	var ticks atomic.Int64
	tk.Start(func() { ticks.Add(1) })

	deadline := time.After(time.Second)
	for ticks.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d ticks within 1s", ticks.Load())
		case <-time.After(time.Millisecond):
		}
	}
}

// TestTickerStop verifies no ticks arrive after Stop.
func TestTickerStop(t *testing.T) {
	tk := NewTicker(time.Millisecond)

	var ticks atomic.Int64
	tk.Start(func() { ticks.Add(1) })
	time.Sleep(10 * time.Millisecond)
	tk.Stop()

	n := ticks.Load()
	time.Sleep(20 * time.Millisecond)
	// Allow a single in-flight tick that was already past the select.
	if got := ticks.Load(); got > n+1 {
		t.Errorf("ticks kept arriving after Stop: %d then %d", n, got)
	}
	if tk.Running() {
		t.Error("Running should be false after Stop")
	}
}

// TestTickerRestart verifies Start on an armed ticker cancels the previous
// arm instead of doubling the tick rate.
func TestTickerRestart(t *testing.T) {
	tk := NewTicker(2 * time.Millisecond)
	defer tk.Stop()

	var first, second atomic.Int64
	tk.Start(func() { first.Add(1) })
	tk.Start(func() { second.Add(1) })

	time.Sleep(20 * time.Millisecond)
	tk.Stop()

	if first.Load() > 1 {
		t.Errorf("cancelled arm kept ticking: %d ticks", first.Load())
	}
	if second.Load() == 0 {
		t.Error("restarted arm never ticked")
	}
}

// TestTickerStopIdempotent verifies Stop on a disarmed ticker is safe.
func TestTickerStopIdempotent(t *testing.T) {
	tk := NewTicker(time.Millisecond)
	tk.Stop()
	tk.Stop()
	if tk.Running() {
		t.Error("ticker should be disarmed")
	}
}
