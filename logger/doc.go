// Package logger is the asynchronous log pipeline.
//
// Producers never block on I/O: Log stamps each entry with an index
// from a single atomic counter and pushes it onto a large bounded ring
// drained by a dedicated logger thread. Two paths bypass the ring and
// write synchronously under the writer lock instead: entries produced
// before the logger thread has started, and the oldest few entries
// evicted when the ring overflows.
//
// The writer routes entries to per-thread log files by walking the
// `.`-separated label hierarchy upward, rotates files past a size
// threshold with a timestamp suffix, and degrades to screen output
// when a file cannot be written. One hundred consecutive file-open
// failures terminate the process deliberately: a process that cannot
// log is not safely operable.
//
// On shutdown the logger thread waits for every other registered
// thread to reach a terminal state before its final drain, so it exits
// last and no worker's entries are lost.
package logger
