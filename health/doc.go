// Package health tracks the liveness of managed threads.
//
// Each thread publishes a heartbeat while it runs; the watchdog derives
// a Status from the heartbeat age (healthy, degraded when stale,
// unhealthy when hung) and records it in a Monitor. Statuses aggregate
// upward so the runtime can report a single system-level health value.
package health
