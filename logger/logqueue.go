package logger

import (
	"sync"
	"time"

	"github.com/c360/threadkit/errors"
	"github.com/c360/threadkit/event"
)

const (
	// DefaultQueueCapacity sizes the log ring. It is much larger than a
	// per-thread message queue because every thread in the process
	// funnels through it.
	DefaultQueueCapacity = 20000

	// DefaultPurgeCount is how many of the oldest entries a producer
	// evicts, and writes out synchronously, when the ring is full.
	DefaultPurgeCount = 3
)

// LogQueue is the bounded ring feeding the logger thread. Unlike a
// per-thread message queue, a full LogQueue never blocks or rejects
// the producer: Push evicts the oldest few entries and hands them back
// to the caller for an immediate synchronous write.
type LogQueue struct {
	mu         sync.Mutex
	entries    []Entry // one slot kept empty to disambiguate full/empty
	head, tail int
	purgeCount int
	closed     bool
	notEmpty   *event.Event
}

// NewLogQueue creates a log ring with the given capacity and
// purge-on-overflow count. Zero values select the defaults.
func NewLogQueue(capacity, purgeCount int) *LogQueue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	if purgeCount <= 0 {
		purgeCount = DefaultPurgeCount
	}
	return &LogQueue{
		entries:    make([]Entry, capacity+1),
		purgeCount: purgeCount,
		notEmpty:   event.New(event.AutoReset, false),
	}
}

// Push appends an entry. When the ring is full, the oldest purgeCount
// entries are evicted and returned; the caller must write them out
// itself, without going back through the queue.
func (q *LogQueue) Push(e Entry) []Entry {
	q.mu.Lock()

	var purged []Entry
	if q.fullLocked() {
		purged = make([]Entry, 0, q.purgeCount)
		for i := 0; i < q.purgeCount && q.head != q.tail; i++ {
			purged = append(purged, q.entries[q.head])
			q.head = (q.head + 1) % len(q.entries)
		}
	}

	q.entries[q.tail] = e
	q.tail = (q.tail + 1) % len(q.entries)
	q.mu.Unlock()

	q.notEmpty.Set()
	return purged
}

// Pop removes the oldest entry, blocking up to timeout when the ring
// is empty. A timeout of zero is a single non-blocking attempt.
func (q *LogQueue) Pop(timeout time.Duration) (Entry, error) {
	var deadline time.Time
	if timeout != event.Forever {
		deadline = time.Now().Add(timeout)
	}

	for {
		q.mu.Lock()
		if q.head != q.tail {
			e := q.entries[q.head]
			q.head = (q.head + 1) % len(q.entries)
			stillHasWork := q.head != q.tail
			q.mu.Unlock()
			if stillHasWork {
				q.notEmpty.Set()
			}
			return e, nil
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			q.notEmpty.Set()
			return Entry{}, errors.WrapInvalid(errors.ErrAlreadyStopped, "LogQueue", "Pop", "read closed queue")
		}
		if timeout == 0 {
			return Entry{}, errors.ErrQueueEmpty
		}
		remaining := event.Forever
		if timeout != event.Forever {
			remaining = time.Until(deadline)
			if remaining <= 0 {
				return Entry{}, errors.ErrTimeout
			}
		}
		if err := q.notEmpty.Wait(remaining); err != nil {
			return Entry{}, err
		}
	}
}

// Len returns the number of queued entries.
func (q *LogQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return (q.tail - q.head + len(q.entries)) % len(q.entries)
}

// Close releases any blocked reader. Pending entries remain readable
// via non-blocking Pop until the reader observes the closed error.
func (q *LogQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.notEmpty.Set()
}

func (q *LogQueue) fullLocked() bool {
	return (q.tail+1)%len(q.entries) == q.head
}
