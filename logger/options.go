package logger

import (
	"time"

	"github.com/c360/threadkit/event"
	"github.com/c360/threadkit/metric"
	"github.com/c360/threadkit/registry"
)

type loggerOptions struct {
	threshold     Level
	queueCapacity int
	purgeCount    int
	shutdown      *event.Event
	registry      *registry.Registry
	metrics       *metric.Metrics
	othersWait    time.Duration
}

func defaultLoggerOptions() loggerOptions {
	return loggerOptions{
		threshold:  LevelInfo,
		othersWait: DefaultOthersWait,
	}
}

// Option configures a Logger.
type Option func(*loggerOptions)

// WithThreshold sets the initial minimum accepted level.
func WithThreshold(level Level) Option {
	return func(o *loggerOptions) { o.threshold = level }
}

// WithQueueCapacity sizes the log ring.
func WithQueueCapacity(capacity int) Option {
	return func(o *loggerOptions) { o.queueCapacity = capacity }
}

// WithPurgeCount sets how many oldest entries an overflowing producer
// evicts and writes synchronously.
func WithPurgeCount(count int) Option {
	return func(o *loggerOptions) { o.purgeCount = count }
}

// WithShutdownEvent shares the process-wide shutdown broadcast with
// the drain loop.
func WithShutdownEvent(ev *event.Event) Option {
	return func(o *loggerOptions) { o.shutdown = ev }
}

// WithRegistry lets the logger thread heartbeat and, on shutdown, wait
// for every other registered thread before its final drain.
func WithRegistry(reg *registry.Registry) Option {
	return func(o *loggerOptions) { o.registry = reg }
}

// WithMetrics counts accepted entries and overflow purges.
func WithMetrics(m *metric.Metrics) Option {
	return func(o *loggerOptions) { o.metrics = m }
}

// WithOthersWait bounds the shutdown wait for other threads.
func WithOthersWait(d time.Duration) Option {
	return func(o *loggerOptions) {
		if d > 0 {
			o.othersWait = d
		}
	}
}
