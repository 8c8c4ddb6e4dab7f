package queue

import (
	"github.com/c360/threadkit/metric"
)

// Option configures queue behavior using the functional options pattern.
type Option func(*queueOptions)

// queueOptions holds internal configuration for queue instances.
// Statistics are always collected; Prometheus export is the only option.
type queueOptions struct {
	metricsReg    *metric.MetricsRegistry
	metricsPrefix string
}

// WithMetrics enables Prometheus metrics export for queue statistics.
// If registry is nil the option is ignored.
func WithMetrics(registry *metric.MetricsRegistry, prefix string) Option {
	return func(opts *queueOptions) {
		if registry != nil && prefix != "" {
			opts.metricsReg = registry
			opts.metricsPrefix = prefix
		}
	}
}

func applyOptions(options ...Option) *queueOptions {
	opts := &queueOptions{}
	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}
	return opts
}
