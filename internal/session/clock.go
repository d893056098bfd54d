package session

import (
	"sync"
	"time"
)

// Ticker is a restartable once-per-interval tick source. The engine runs
// two of them: a count-up for elapsed session time, armed for the whole
// lifetime of a session, and a countdown for rest periods, armed only
// while a rest is active. Tickers own no session state; they push ticks
// through the engine's normal mutation path.
type Ticker struct {
	interval time.Duration

	mu   sync.Mutex
	stop chan struct{} // nil when disarmed
}

// NewTicker creates a disarmed ticker firing at the given interval.
func NewTicker(interval time.Duration) *Ticker {
	return &Ticker{interval: interval}
}

// Start arms the ticker, calling tick once per interval until Stop.
// Starting an armed ticker restarts it: the previous arm is cancelled
// and the interval begins again from now.
func (t *Ticker) Start(tick func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	ch := make(chan struct{})
	t.stop = ch

	go func() {
		tk := time.NewTicker(t.interval)
		defer tk.Stop()
		for {
			select {
			case <-tk.C:
				tick()
			case <-ch:
				return
			}
		}
	}()
}

// Stop disarms the ticker immediately. Safe to call when disarmed, and
// safe to call from within a tick callback.
func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *Ticker) stopLocked() {
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
}

// Running reports whether the ticker is armed.
func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stop != nil
}
