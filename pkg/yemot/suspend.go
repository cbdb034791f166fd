package yemot

import "time"

// signalKind is the one of three ways a parked call handler resumes.
type signalKind int

const (
	// signalContinue - the next physical request for this call arrived.
	signalContinue signalKind = iota
	// signalHangup - the next physical request flagged a caller hangup.
	signalHangup
	// signalTimeout - the resume timer elapsed first.
	signalTimeout
)

// suspension is the single-slot continuation that parks a call handler
// between physical requests. A call holds at most one at a time; it is
// armed before the handler blocks and fired exactly once with the signal
// that wins the request-vs-timer race.
type suspension struct {
	ch    chan signalKind
	timer *time.Timer
}

// arm installs a fresh suspension on the call. d bounds the wait; zero
// waits forever. Arming replaces any stale slot, which cannot happen while
// the single-outstanding-suspension invariant holds but is harmless if it
// does: the stale timer is stopped and its waiter released with a timeout.
func (c *Call) arm(d time.Duration) *suspension {
	s := &suspension{ch: make(chan signalKind, 1)}

	c.mu.Lock()
	stale := c.pending
	c.pending = s
	c.mu.Unlock()

	if stale != nil {
		if stale.timer != nil {
			stale.timer.Stop()
		}
		select {
		case stale.ch <- signalTimeout:
		default:
		}
	}

	if d > 0 {
		s.timer = time.AfterFunc(d, func() { c.expire(s) })
	}
	return s
}

// fire resumes the pending suspension with k. Firing with no suspension
// outstanding is a deliberate no-op, so a spurious request for a call that
// is still running cannot corrupt state: the values snapshot was already
// replaced (last wins), the identification fields stay untouched, and the
// signal is simply dropped. With a handler actually parked, the
// identification fields are refreshed here before the resume signal, so
// the handler observes them consistently once it wakes.
func (c *Call) fire(k signalKind) {
	c.mu.Lock()
	s := c.pending
	c.pending = nil
	if s != nil {
		c.syncIdentLocked()
	}
	c.mu.Unlock()

	if s == nil {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.ch <- k
}

// expire delivers the timeout signal for s unless a resume won the race.
// A best-effort timeout diagnostic goes out on the current exchange when
// no response body has been written for it yet.
func (c *Call) expire(s *suspension) {
	c.mu.Lock()
	if c.pending != s {
		// Resumed (or torn down) first; the timer lost.
		c.mu.Unlock()
		return
	}
	c.pending = nil
	c.mu.Unlock()

	c.respondJSON(map[string]string{"message": "timeout"})
	s.ch <- signalTimeout
}
