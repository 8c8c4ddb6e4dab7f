// Package timestamp provides standardized Unix timestamp handling.
//
// The canonical format is int64 milliseconds since the Unix epoch (UTC).
// Heartbeats, log-entry timestamps and rotation suffixes all go through
// this package so staleness arithmetic never mixes units.
//
// Zero Value Semantics: a zero timestamp means "never" and formats as
// the empty string.
package timestamp

import "time"

// Now returns the current time in milliseconds since the Unix epoch.
func Now() int64 {
	return time.Now().UnixMilli()
}

// ToUnixMs converts a time.Time to canonical milliseconds.
// The zero time converts to 0.
func ToUnixMs(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// FromUnixMs converts canonical milliseconds back to a UTC time.Time.
// Zero converts to the zero time.
func FromUnixMs(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// Format renders a timestamp as RFC3339 UTC for display.
// Zero renders as the empty string.
func Format(ms int64) string {
	if ms == 0 {
		return ""
	}
	return FromUnixMs(ms).Format(time.RFC3339)
}

// Since returns the elapsed wall time between a recorded timestamp and
// now. A zero timestamp yields a very large duration, which reads
// correctly in staleness checks: "never seen" is always stale.
func Since(ms int64) time.Duration {
	if ms == 0 {
		return time.Duration(1<<63 - 1)
	}
	return time.Duration(Now()-ms) * time.Millisecond
}

// Suffix renders a timestamp as a compact filesystem-safe suffix,
// e.g. "20260828_145305", used for rotated log file names.
func Suffix(ms int64) string {
	return FromUnixMs(ms).Format("20060102_150405")
}
