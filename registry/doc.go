// Package registry is the single source of truth about the threads of
// a running process.
//
// Every managed thread registers under a case-insensitive label and
// carries a lifecycle state, a bounded message queue, a completion
// event, and a heartbeat timestamp. State changes go through a fixed
// transition table; a transition the table does not allow is rejected
// and reported rather than applied. Reaching Terminated or Failed
// signals the thread's completion event, which is what WaitFor,
// WaitForOthers, and WaitAll block on — waiters park on events, they
// never poll state.
//
// The registry lock is never held across a blocking wait: queue and
// event references are captured under the lock and waited on outside
// it, so a stuck consumer cannot wedge registration or health checks.
package registry
