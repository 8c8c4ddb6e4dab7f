package health

import "time"

// NewHealthy creates a new healthy status
func NewHealthy(thread, message string) Status {
	return Status{
		Thread:    thread,
		Healthy:   true,
		Status:    "healthy",
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewUnhealthy creates a new unhealthy status
func NewUnhealthy(thread, message string) Status {
	return Status{
		Thread:    thread,
		Healthy:   false,
		Status:    "unhealthy",
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewDegraded creates a new degraded status
func NewDegraded(thread, message string) Status {
	return Status{
		Thread:    thread,
		Healthy:   false,
		Status:    "degraded",
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Aggregate creates a status by aggregating sub-statuses
// The aggregation rules are:
// - If all sub-statuses are healthy, the aggregate is healthy
// - If any sub-status is unhealthy, the aggregate is unhealthy
// - If no sub-status is unhealthy but at least one is degraded, the aggregate is degraded
func Aggregate(thread string, subStatuses []Status) Status {
	if len(subStatuses) == 0 {
		return NewHealthy(thread, "No threads to aggregate")
	}

	hasUnhealthy := false
	hasDegraded := false

	for _, sub := range subStatuses {
		if sub.IsUnhealthy() {
			hasUnhealthy = true
		} else if sub.IsDegraded() {
			hasDegraded = true
		}
	}

	var status Status
	if hasUnhealthy {
		status = NewUnhealthy(thread, "One or more threads are unhealthy")
	} else if hasDegraded {
		status = NewDegraded(thread, "One or more threads are degraded")
	} else {
		status = NewHealthy(thread, "All threads are healthy")
	}

	status.SubStatuses = make([]Status, len(subStatuses))
	copy(status.SubStatuses, subStatuses)

	return status
}
