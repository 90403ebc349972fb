package core

import (
	"context"
	"time"
)

// DefaultWaitSlice bounds a single sleep inside WaitContext so cancellation
// is noticed within one slice.
const DefaultWaitSlice = 50 * time.Millisecond

// IntervalGate lets a guarded action run at most once per interval from
// inside a polling loop. It is not safe for concurrent use; see SyncGate.
type IntervalGate struct {
	interval time.Duration
	clock    Clock

	last    time.Time
	hasLast bool
}

type GateOption func(*IntervalGate)

// WithClock replaces the system clock, mostly for tests.
func WithClock(clock Clock) GateOption {
	return func(g *IntervalGate) {
		if clock != nil {
			g.clock = clock
		}
	}
}

// NewIntervalGate returns a gate with no baseline. A zero or negative
// interval permits every poll that observes any time passing.
func NewIntervalGate(interval time.Duration, opts ...GateOption) *IntervalGate {
	g := &IntervalGate{
		interval: interval,
		clock:    SystemClock,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *IntervalGate) Interval() time.Duration {
	return g.interval
}

// Baseline returns the time of the most recent permit, if any.
func (g *IntervalGate) Baseline() (time.Time, bool) {
	return g.last, g.hasLast
}

// Poll reports whether more than the interval has passed since the last
// permit. On true the baseline moves to the time observed by this call.
func (g *IntervalGate) Poll() bool {
	now := g.clock.Now()
	if !g.hasLast || now.Sub(g.last) > g.interval {
		g.setBaseline(now)
		return true
	}
	return false
}

// WaitUntilReady sleeps until the interval since the last permit has
// passed. The first call only records the baseline. When the gate is
// already open it returns without moving the baseline, unlike Poll.
func (g *IntervalGate) WaitUntilReady() {
	now := g.clock.Now()
	remaining, wait := g.pending(now)
	if !wait {
		return
	}

	g.clock.Sleep(remaining)
	// baseline is the target, not the wake time, so oversleep never compounds
	g.setBaseline(now.Add(remaining))
}

// WaitContext is WaitUntilReady with cancellation. The sleep is split into
// slices of at most DefaultWaitSlice and ctx is checked before each one.
// A cancelled wait returns ctx.Err() and leaves the baseline alone.
func (g *IntervalGate) WaitContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := g.clock.Now()
	remaining, wait := g.pending(now)
	if !wait {
		return nil
	}

	for left := remaining; left > 0; {
		if err := ctx.Err(); err != nil {
			return err
		}
		slice := min(left, DefaultWaitSlice)
		g.clock.Sleep(slice)
		left -= slice
	}
	g.setBaseline(now.Add(remaining))
	return nil
}

// Remaining returns how long until the gate opens, or 0 if it has no
// baseline or is already open.
func (g *IntervalGate) Remaining() time.Duration {
	if !g.hasLast {
		return 0
	}
	elapsed := g.clock.Now().Sub(g.last)
	if elapsed > g.interval {
		return 0
	}
	return g.interval - elapsed
}

// pending returns how long a waiter has to sleep and whether it has to at
// all. A gate without a baseline takes now as its baseline instead.
func (g *IntervalGate) pending(now time.Time) (time.Duration, bool) {
	if !g.hasLast {
		g.setBaseline(now)
		return 0, false
	}
	elapsed := now.Sub(g.last)
	if elapsed > g.interval {
		return 0, false
	}
	return g.interval - elapsed, true
}

func (g *IntervalGate) setBaseline(t time.Time) {
	g.last = t
	g.hasLast = true
}
