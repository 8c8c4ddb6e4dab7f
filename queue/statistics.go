package queue

import (
	"sync"
	"sync/atomic"
	"time"
)

// Statistics tracks queue activity. Always collected; Prometheus export
// is optional and layered on top via WithMetrics.
type Statistics struct {
	pushes      int64
	pops        int64
	fullMisses  int64
	emptyMisses int64

	mu          sync.RWMutex
	startTime   time.Time
	currentSize int64
	maxSize     int64
}

// NewStatistics creates a new statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{
		startTime: time.Now(),
	}
}

// Push records a successful push.
func (s *Statistics) Push() {
	atomic.AddInt64(&s.pushes, 1)
}

// Pop records a successful pop.
func (s *Statistics) Pop() {
	atomic.AddInt64(&s.pops, 1)
}

// FullMiss records a push attempt that found the queue full.
func (s *Statistics) FullMiss() {
	atomic.AddInt64(&s.fullMisses, 1)
}

// EmptyMiss records a pop attempt that found the queue empty.
func (s *Statistics) EmptyMiss() {
	atomic.AddInt64(&s.emptyMisses, 1)
}

// UpdateSize updates the current queue size.
func (s *Statistics) UpdateSize(size int64) {
	s.mu.Lock()
	s.currentSize = size
	if size > s.maxSize {
		s.maxSize = size
	}
	s.mu.Unlock()
}

// Pushes returns the total number of successful pushes.
func (s *Statistics) Pushes() int64 {
	return atomic.LoadInt64(&s.pushes)
}

// Pops returns the total number of successful pops.
func (s *Statistics) Pops() int64 {
	return atomic.LoadInt64(&s.pops)
}

// FullMisses returns the number of push attempts that hit a full queue.
func (s *Statistics) FullMisses() int64 {
	return atomic.LoadInt64(&s.fullMisses)
}

// EmptyMisses returns the number of pop attempts that hit an empty queue.
func (s *Statistics) EmptyMisses() int64 {
	return atomic.LoadInt64(&s.emptyMisses)
}

// CurrentSize returns the queue size as of the last completed operation.
func (s *Statistics) CurrentSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentSize
}

// MaxSize returns the high-water mark for queue size.
func (s *Statistics) MaxSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxSize
}

// Uptime returns how long the queue has existed.
func (s *Statistics) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.startTime)
}
