// Package scheduler decides when the active indicators need recomputing.
// It is a two-state machine: Idle and PendingRecompute. Any market event
// (tick revision or bar close) moves it to pending; the event loop drains
// pending by recomputing and the machine returns to idle. Bursts of ticks
// arriving faster than one recompute cycle coalesce into a single pending
// transition — drop-latest-wins, never unbounded queued work.
package scheduler

import (
	"sync/atomic"
	"time"
)

// State is the scheduler's recompute state.
type State int32

const (
	Idle State = iota
	PendingRecompute
)

func (s State) String() string {
	if s == PendingRecompute {
		return "pending"
	}
	return "idle"
}

// Scheduler coalesces recompute triggers. Kick may be called from any
// goroutine; TakePending is called by the single event-loop goroutine.
type Scheduler struct {
	state atomic.Int32

	// OnCoalesce is called when a kick lands while already pending
	// (optional metrics hook).
	OnCoalesce func()
}

// New creates an idle scheduler.
func New() *Scheduler {
	return &Scheduler{}
}

// Kick requests a recompute. Returns true if this kick moved the machine
// from idle to pending, false if it coalesced into an existing pending
// transition.
func (s *Scheduler) Kick() bool {
	if s.state.CompareAndSwap(int32(Idle), int32(PendingRecompute)) {
		return true
	}
	if s.OnCoalesce != nil {
		s.OnCoalesce()
	}
	return false
}

// TakePending drains the pending transition. Returns true exactly once per
// pending period; the caller must then recompute.
func (s *Scheduler) TakePending() bool {
	return s.state.CompareAndSwap(int32(PendingRecompute), int32(Idle))
}

// State returns the current state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// CadenceFor maps the chart's base candle interval to the idle recompute
// cadence: sub-minute charts poll fast, hour/day charts slow.
func CadenceFor(interval time.Duration) time.Duration {
	switch {
	case interval < time.Minute:
		return time.Second
	case interval < time.Hour:
		return 5 * time.Second
	default:
		return 30 * time.Second
	}
}
