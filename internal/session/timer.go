package session

import (
	"sync"
	"time"
)

// attemptTimer tracks elapsed time for one recording attempt. It ticks on a
// fixed wall-clock interval, recomputing elapsed as now minus origin each tick
// rather than accumulating increments, and fires expire exactly once when
// the maximum duration is reached.
type attemptTimer struct {
	clock    func() time.Time
	interval time.Duration
	max      time.Duration
	onTick   func(time.Duration)
	onExpire func()

	origin   time.Time
	done     chan struct{}
	haltOnce sync.Once
}

func newAttemptTimer(clock func() time.Time, interval, max time.Duration, onTick func(time.Duration), onExpire func()) *attemptTimer {
	return &attemptTimer{
		clock:    clock,
		interval: interval,
		max:      max,
		onTick:   onTick,
		onExpire: onExpire,
		done:     make(chan struct{}),
	}
}

// start records the attempt origin and begins ticking.
func (t *attemptTimer) start() {
	t.origin = t.clock()
	go t.run()
}

func (t *attemptTimer) run() {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			elapsed := t.clock().Sub(t.origin)
			t.onTick(elapsed)
			if elapsed >= t.max {
				t.onExpire()
				return
			}
		}
	}
}

// halt cancels the tick loop. Idempotent.
func (t *attemptTimer) halt() {
	t.haltOnce.Do(func() { close(t.done) })
}
