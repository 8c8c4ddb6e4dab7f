// Package health provides health monitoring functionality for threads and the runtime
package health

import (
	"fmt"
	"time"
)

// Status represents the health state of a thread or of the runtime as a whole
type Status struct {
	Thread      string    `json:"thread"`
	Healthy     bool      `json:"healthy"` // true if status is "healthy"
	Status      string    `json:"status"`  // "healthy", "unhealthy", "degraded"
	Message     string    `json:"message"`
	State       string    `json:"state,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	SubStatuses []Status  `json:"sub_statuses,omitempty"`
	Metrics     *Metrics  `json:"metrics,omitempty"`
}

// Metrics contains health-related metrics for a thread
type Metrics struct {
	Uptime            time.Duration `json:"uptime"`
	HeartbeatAge      time.Duration `json:"heartbeat_age"`
	MessagesProcessed int64         `json:"messages_processed,omitempty"`
	LastActivity      time.Time     `json:"last_activity,omitempty"`
}

// IsHealthy returns true if the status is healthy
func (s Status) IsHealthy() bool {
	return s.Status == "healthy"
}

// IsDegraded returns true if the status is degraded
func (s Status) IsDegraded() bool {
	return s.Status == "degraded"
}

// IsUnhealthy returns true if the status is unhealthy
func (s Status) IsUnhealthy() bool {
	return s.Status == "unhealthy"
}

// WithMetrics returns a copy of the status with metrics attached
func (s Status) WithMetrics(metrics *Metrics) Status {
	s.Metrics = metrics
	return s
}

// WithSubStatus adds a sub-status and returns a copy
func (s Status) WithSubStatus(subStatus Status) Status {
	// Create a new slice to avoid sharing the underlying array
	newSubStatuses := make([]Status, len(s.SubStatuses), len(s.SubStatuses)+1)
	copy(newSubStatuses, s.SubStatuses)
	s.SubStatuses = append(newSubStatuses, subStatus)
	return s
}

// FromHeartbeat derives a thread's health from the age of its last
// heartbeat. A heartbeat older than staleAfter degrades the thread;
// older than hungAfter marks it unhealthy.
func FromHeartbeat(thread, state string, heartbeatAge, staleAfter, hungAfter time.Duration) Status {
	var status Status
	switch {
	case heartbeatAge >= hungAfter:
		status = NewUnhealthy(thread, fmt.Sprintf("no heartbeat for %s, thread appears hung", heartbeatAge.Round(time.Millisecond)))
	case heartbeatAge >= staleAfter:
		status = NewDegraded(thread, fmt.Sprintf("heartbeat is %s old", heartbeatAge.Round(time.Millisecond)))
	default:
		status = NewHealthy(thread, "thread is responsive")
	}
	status.State = state
	status.Metrics = &Metrics{HeartbeatAge: heartbeatAge}
	return status
}
