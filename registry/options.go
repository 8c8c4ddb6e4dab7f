package registry

import (
	"time"

	"github.com/c360/threadkit/health"
	"github.com/c360/threadkit/metric"
	"github.com/c360/threadkit/queue"
)

// Default heartbeat thresholds used by CheckAllHealth.
const (
	DefaultStaleAfter = 5 * time.Second
	DefaultHungAfter  = 10 * time.Second
)

type registryOptions struct {
	metrics       *metric.Metrics
	monitor       *health.Monitor
	queueCapacity int
	queueOptions  []queue.Option
	staleAfter    time.Duration
	hungAfter     time.Duration
}

func defaultOptions() registryOptions {
	return registryOptions{
		queueCapacity: DefaultQueueCapacity,
		staleAfter:    DefaultStaleAfter,
		hungAfter:     DefaultHungAfter,
	}
}

// Option configures a Registry.
type Option func(*registryOptions)

// WithMetrics attaches the core runtime metrics so state transitions,
// message traffic, and health failures are counted.
func WithMetrics(m *metric.Metrics) Option {
	return func(o *registryOptions) { o.metrics = m }
}

// WithMonitor publishes per-thread health statuses to a monitor on
// every CheckAllHealth pass.
func WithMonitor(mon *health.Monitor) Option {
	return func(o *registryOptions) { o.monitor = mon }
}

// WithQueueCapacity overrides the default capacity for queues
// allocated by Register and InitQueue.
func WithQueueCapacity(capacity int) Option {
	return func(o *registryOptions) {
		if capacity > 0 {
			o.queueCapacity = capacity
		}
	}
}

// WithQueueOptions passes options through to every queue the registry
// allocates.
func WithQueueOptions(opts ...queue.Option) Option {
	return func(o *registryOptions) { o.queueOptions = opts }
}

// WithHealthThresholds overrides the heartbeat ages at which a running
// thread is considered stale and hung.
func WithHealthThresholds(staleAfter, hungAfter time.Duration) Option {
	return func(o *registryOptions) {
		if staleAfter > 0 {
			o.staleAfter = staleAfter
		}
		if hungAfter > 0 {
			o.hungAfter = hungAfter
		}
	}
}
