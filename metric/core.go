package metric

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the core runtime metrics every ThreadKit process exposes.
type Metrics struct {
	// ThreadsByState tracks the number of registered threads in each
	// lifecycle state (created, running, stopping, ...).
	ThreadsByState *prometheus.GaugeVec

	// StateTransitions counts accepted lifecycle transitions by edge.
	StateTransitions *prometheus.CounterVec

	// InvalidTransitions counts rejected lifecycle transitions.
	InvalidTransitions prometheus.Counter

	// MessagesPushed and MessagesPopped count envelope traffic through
	// per-thread queues, labeled by owner.
	MessagesPushed *prometheus.CounterVec
	MessagesPopped *prometheus.CounterVec

	// LogEntries counts entries accepted by the log pipeline, by level.
	LogEntries *prometheus.CounterVec

	// LogQueueOverflows counts synchronous purge passes forced by a
	// full log queue.
	LogQueueOverflows prometheus.Counter

	// WatchdogRestarts counts watchdog restarts driven by the main thread.
	WatchdogRestarts prometheus.Counter

	// HealthCheckFailures counts threads reported unhealthy by a
	// watchdog pass.
	HealthCheckFailures prometheus.Counter
}

// NewMetrics creates the core runtime metrics
func NewMetrics() *Metrics {
	return &Metrics{
		ThreadsByState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "threadkit_threads_by_state",
			Help: "Number of registered threads in each lifecycle state",
		}, []string{"state"}),

		StateTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "threadkit_state_transitions_total",
			Help: "Accepted thread lifecycle transitions",
		}, []string{"from", "to"}),

		InvalidTransitions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "threadkit_invalid_transitions_total",
			Help: "Rejected thread lifecycle transitions",
		}),

		MessagesPushed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "threadkit_messages_pushed_total",
			Help: "Messages pushed to per-thread queues",
		}, []string{"owner"}),

		MessagesPopped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "threadkit_messages_popped_total",
			Help: "Messages popped from per-thread queues",
		}, []string{"owner"}),

		LogEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "threadkit_log_entries_total",
			Help: "Log entries accepted by the pipeline",
		}, []string{"level"}),

		LogQueueOverflows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "threadkit_log_queue_overflows_total",
			Help: "Synchronous purge passes forced by a full log queue",
		}),

		WatchdogRestarts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "threadkit_watchdog_restarts_total",
			Help: "Watchdog thread restarts",
		}),

		HealthCheckFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "threadkit_health_check_failures_total",
			Help: "Threads found unhealthy during watchdog passes",
		}),
	}
}
