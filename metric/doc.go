// Package metric provides Prometheus metrics management for ThreadKit.
//
// A MetricsRegistry wraps a dedicated prometheus.Registry with
// duplicate-registration protection and a "component.metric" namespace,
// and pre-registers the core runtime metrics (thread states, lifecycle
// transitions, queue traffic, log pipeline activity, watchdog restarts).
//
// Components register their own metrics through the MetricsRegistrar
// interface; the queue package does this via its WithMetrics option.
package metric
