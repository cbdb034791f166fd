package yemot

import "sync"

// EventKind labels a call-lifecycle notification.
type EventKind string

const (
	EventNewCall      EventKind = "new_call"
	EventCallContinue EventKind = "call_continue"
	EventCallHangup   EventKind = "call_hangup"
)

// Event notifies observers of call-lifecycle activity. Call is nil for a
// hangup of a call the router never saw (hangup on the first request).
type Event struct {
	Kind   EventKind
	CallID string
	Call   *Call
}

// Events fans call-lifecycle notifications out to subscriber channels.
// Delivery is non-blocking: a subscriber that falls behind its buffer
// misses events rather than stalling dispatch.
type Events struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func newEvents() *Events {
	return &Events{subs: make(map[chan Event]struct{})}
}

// Subscribe registers an observer channel with the given buffer size.
// The returned cancel func unregisters and closes the channel; it is safe
// to call more than once.
func (e *Events) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	e.mu.Lock()
	e.subs[ch] = struct{}{}
	e.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.subs, ch)
			e.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (e *Events) emit(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for ch := range e.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
