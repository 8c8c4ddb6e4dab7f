package queue

import (
	"sync"
	"time"

	"github.com/c360/threadkit/errors"
	"github.com/c360/threadkit/event"
)

// Forever makes Push and Pop block until the operation can proceed.
const Forever = event.Forever

// Queue is a bounded, FIFO ring of message envelopes owned by a single
// registered thread. Any number of producers may push; the owner pops.
//
// The ring keeps one slot empty so head == tail always means empty and
// (tail+1) % capacity == head always means full, using only the two
// indices. Coordination runs through two auto-reset events: producers
// wait on not-full, consumers on not-empty. Waking from an event wait
// never implies the condition still holds; both paths re-check under
// the lock before touching the ring.
type Queue struct {
	mu      sync.Mutex
	entries []Message
	head    int // next slot to read
	tail    int // next slot to write
	closed  bool

	owner    string // diagnostic label of the owning thread
	notEmpty *event.Event
	notFull  *event.Event

	stats   *Statistics
	metrics *queueMetrics
}

// New creates a queue able to hold capacity messages for the named
// owner. Capacity must be at least 1.
func New(owner string, capacity int, options ...Option) (*Queue, error) {
	if capacity < 1 {
		return nil, errors.WrapInvalid(errors.ErrInvalidArgument,
			"Queue", "New", "capacity must be at least 1")
	}

	opts := applyOptions(options...)

	var metrics *queueMetrics
	if opts.metricsReg != nil {
		var err error
		metrics, err = newQueueMetrics(opts.metricsReg, opts.metricsPrefix, owner)
		if err != nil {
			return nil, errors.WrapTransient(err, "Queue", "New", "metrics registration")
		}
	}

	return &Queue{
		// One extra slot disambiguates full from empty.
		entries:  make([]Message, capacity+1),
		owner:    owner,
		notEmpty: event.New(event.AutoReset, false),
		notFull:  event.New(event.AutoReset, true),
		stats:    NewStatistics(),
		metrics:  metrics,
	}, nil
}

// Owner returns the diagnostic label of the queue's owning thread.
func (q *Queue) Owner() string {
	return q.owner
}

// Push copies the message into the queue. With a zero timeout a single
// non-blocking attempt is made and a full queue yields ErrQueueFull;
// otherwise the producer waits on the not-full event up to timeout and
// an expired wait yields ErrTimeout. Neither result mutates the queue.
func (q *Queue) Push(msg Message, timeout time.Duration) error {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			// Cascade the release to the next blocked producer.
			q.notFull.Set()
			return errors.WrapInvalid(errors.ErrAlreadyStopped, "Queue", "Push", "queue destroyed")
		}
		if !q.fullLocked() {
			q.entries[q.tail] = msg
			q.tail = (q.tail + 1) % len(q.entries)
			size := q.sizeLocked()
			stillHasRoom := !q.fullLocked()
			q.mu.Unlock()

			q.stats.Push()
			q.stats.UpdateSize(int64(size))
			if q.metrics != nil {
				q.metrics.recordPush(size)
			}

			q.notEmpty.Set()
			if stillHasRoom {
				// Re-arm waiting producers; our wake may have consumed
				// the only outstanding not-full signal.
				q.notFull.Set()
			}
			return nil
		}
		q.mu.Unlock()

		q.stats.FullMiss()
		if q.metrics != nil {
			q.metrics.recordFullMiss()
		}

		if timeout == 0 {
			return errors.ErrQueueFull
		}

		wait := event.Forever
		if timeout != Forever {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return errors.ErrTimeout
			}
			wait = remaining
		}
		if err := q.notFull.Wait(wait); err != nil {
			return errors.ErrTimeout
		}
		// Woken: re-check the full condition, another producer may have
		// taken the slot first.
	}
}

// Pop removes and returns the oldest message. Timeout semantics mirror
// Push: zero means one non-blocking attempt (ErrQueueEmpty on an empty
// queue), otherwise the consumer waits on not-empty up to timeout.
func (q *Queue) Pop(timeout time.Duration) (Message, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			// Cascade the release to the next blocked consumer.
			q.notEmpty.Set()
			return Message{}, errors.WrapInvalid(errors.ErrAlreadyStopped, "Queue", "Pop", "queue destroyed")
		}
		if q.head != q.tail {
			msg := q.entries[q.head]
			q.entries[q.head] = Message{}
			q.head = (q.head + 1) % len(q.entries)
			size := q.sizeLocked()
			stillHasWork := q.head != q.tail
			q.mu.Unlock()

			q.stats.Pop()
			q.stats.UpdateSize(int64(size))
			if q.metrics != nil {
				q.metrics.recordPop(size)
			}

			q.notFull.Set()
			if stillHasWork {
				q.notEmpty.Set()
			}
			return msg, nil
		}
		q.mu.Unlock()

		q.stats.EmptyMiss()
		if q.metrics != nil {
			q.metrics.recordEmptyMiss()
		}

		if timeout == 0 {
			return Message{}, errors.ErrQueueEmpty
		}

		wait := event.Forever
		if timeout != Forever {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return Message{}, errors.ErrTimeout
			}
			wait = remaining
		}
		if err := q.notEmpty.Wait(wait); err != nil {
			return Message{}, errors.ErrTimeout
		}
	}
}

// Len returns the current number of queued messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.sizeLocked()
}

// Cap returns the maximum number of messages the queue can hold.
func (q *Queue) Cap() int {
	return len(q.entries) - 1
}

// IsEmpty reports whether the queue holds no messages.
func (q *Queue) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.head == q.tail
}

// IsFull reports whether the queue is at capacity.
func (q *Queue) IsFull() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.fullLocked()
}

// Clear discards all queued messages.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.head = 0
	q.tail = 0
	for i := range q.entries {
		q.entries[i] = Message{}
	}
	q.mu.Unlock()

	q.stats.UpdateSize(0)
	if q.metrics != nil {
		q.metrics.updateSize(0)
	}
	q.notFull.Set()
}

// Stats returns the queue's statistics, always collected.
func (q *Queue) Stats() *Statistics {
	return q.stats
}

// Close destroys the queue. Blocked producers and consumers are
// released and all subsequent operations fail.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()

	// Release anyone parked on either event; they will observe closed.
	q.notEmpty.Set()
	q.notFull.Set()
	return nil
}

func (q *Queue) fullLocked() bool {
	return (q.tail+1)%len(q.entries) == q.head
}

func (q *Queue) sizeLocked() int {
	return (q.tail - q.head + len(q.entries)) % len(q.entries)
}
