// Package queue provides the bounded, fixed-envelope message queue that
// every registered thread owns.
//
// A Queue is a circular buffer of Message values with single-slot
// head/tail indices and blocking Push/Pop bounded by caller-supplied
// timeouts. Backpressure is expressed through typed results: a
// non-blocking push to a full queue returns errors.ErrQueueFull, a
// non-blocking pop of an empty queue returns errors.ErrQueueEmpty, and
// an expired bounded wait returns errors.ErrTimeout. None of these
// mutate the queue; none of them are hard failures.
//
// The queue performs no logging and no I/O of its own. Its only side
// effects are its own ring state, its two reset events, and its always-on
// statistics (optionally exported to Prometheus via WithMetrics).
//
// Messages are fixed-size envelopes (MaxContentSize payload bytes)
// copied by value through the ring, so no producer ever shares storage
// with the consumer.
package queue
