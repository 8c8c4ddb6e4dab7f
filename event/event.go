// Package event provides manual-reset and auto-reset events: boolean
// flags with waiters, broadcast-or-single-wake semantics and bounded
// waits. Events are the one-directional signals ThreadKit builds its
// cross-thread coordination on (queue not-empty/not-full, thread
// completion, global shutdown).
package event

import (
	"sync"
	"time"

	"github.com/c360/threadkit/errors"
)

// Forever makes Wait block until the event is signaled.
const Forever = time.Duration(-1)

// ResetMode determines how an event behaves after a successful wait.
type ResetMode int

const (
	// ManualReset events stay signaled until Clear is called; Set wakes
	// every waiter. Used for completion and shutdown broadcasts.
	ManualReset ResetMode = iota

	// AutoReset events wake exactly one waiter per Set and return to the
	// unsignaled state as that waiter is released. Used for queue
	// not-empty/not-full signaling.
	AutoReset
)

// Event is a waitable boolean flag.
//
// A manual-reset event behaves like a latched condition: once Set, all
// current and future waiters pass until Clear. An auto-reset event
// behaves like a one-permit semaphore: each Set releases at most one
// waiter (or latches one permit if none is waiting).
type Event struct {
	mu      sync.Mutex
	mode    ResetMode
	set     bool
	gen     chan struct{}   // manual-reset broadcast channel, closed while set
	waiters []chan struct{} // auto-reset waiter queue, FIFO
}

// New creates an event in the given mode and initial signal state.
func New(mode ResetMode, signaled bool) *Event {
	e := &Event{
		mode: mode,
		set:  signaled,
		gen:  make(chan struct{}),
	}
	if signaled && mode == ManualReset {
		close(e.gen)
	}
	return e
}

// Set signals the event. For manual-reset events every waiter is
// released and the event stays signaled. For auto-reset events exactly
// one waiter is released; if none is waiting the signal is latched for
// the next Wait. Set is idempotent while already signaled.
func (e *Event) Set() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.mode == ManualReset {
		if !e.set {
			e.set = true
			close(e.gen)
		}
		return
	}

	// Auto-reset: hand the signal to the oldest waiter. The buffered
	// send cannot block; a waiter that times out concurrently consumes
	// the landed signal instead of reporting a timeout.
	if len(e.waiters) > 0 {
		w := e.waiters[0]
		e.waiters = e.waiters[1:]
		w <- struct{}{}
		return
	}
	e.set = true
}

// Clear returns the event to the unsignaled state.
func (e *Event) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.set {
		return
	}
	e.set = false
	if e.mode == ManualReset {
		e.gen = make(chan struct{})
	}
}

// IsSet reports whether the event is currently signaled. The answer is
// a snapshot; for coordination use Wait.
func (e *Event) IsSet() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.set
}

// Wait blocks until the event is signaled or the timeout expires.
// A timeout of zero performs a single non-blocking check; Forever
// blocks indefinitely. Returns errors.ErrTimeout if the deadline passed
// without a signal.
func (e *Event) Wait(timeout time.Duration) error {
	if e.mode == AutoReset {
		return e.waitAuto(timeout)
	}
	return e.waitManual(timeout)
}

func (e *Event) waitManual(timeout time.Duration) error {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		e.mu.Lock()
		if e.set {
			e.mu.Unlock()
			return nil
		}
		gen := e.gen
		e.mu.Unlock()

		if timeout == 0 {
			return errors.ErrTimeout
		}

		if timeout == Forever {
			<-gen
			continue
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return errors.ErrTimeout
		}
		timer := time.NewTimer(remaining)
		select {
		case <-gen:
			timer.Stop()
			// Re-check: the event may have been cleared again between
			// the broadcast and this waiter observing it.
		case <-timer.C:
			return errors.ErrTimeout
		}
	}
}

func (e *Event) waitAuto(timeout time.Duration) error {
	e.mu.Lock()
	if e.set {
		e.set = false
		e.mu.Unlock()
		return nil
	}
	if timeout == 0 {
		e.mu.Unlock()
		return errors.ErrTimeout
	}
	w := make(chan struct{}, 1)
	e.waiters = append(e.waiters, w)
	e.mu.Unlock()

	if timeout == Forever {
		<-w
		return nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-w:
		return nil
	case <-timer.C:
		// Remove ourselves so a later Set does not burn its signal on an
		// abandoned channel; if the signal already landed, consume it.
		e.mu.Lock()
		for i, q := range e.waiters {
			if q == w {
				e.waiters = append(e.waiters[:i], e.waiters[i+1:]...)
				break
			}
		}
		e.mu.Unlock()
		select {
		case <-w:
			return nil
		default:
			return errors.ErrTimeout
		}
	}
}
