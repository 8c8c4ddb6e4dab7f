// Package threadkit provides a small cross-platform application runtime:
// a thread registry, managed worker lifecycles, bounded inter-thread
// message queues, and an asynchronous logging pipeline that never blocks
// producers.
//
// # Architecture
//
// ThreadKit is organised as a set of small packages layered leaf-first:
//
//	┌─────────────────────────────────────┐
//	│           Runtime                   │  Managed thread lifecycle,
//	│  (start, suppress, watchdog, stop)  │  shutdown coordination
//	└─────────────────────────────────────┘
//	           ↓ registers with
//	┌─────────────────────────────────────┐
//	│          Registry                   │  Label → state, queue,
//	│   (states, transitions, waiting)    │  completion event
//	└─────────────────────────────────────┘
//	           ↓ built on
//	┌─────────────────────────────────────┐
//	│      Queue / Event / Logger         │  Bounded rings, reset
//	│   (backpressure, async delivery)    │  events, log pipeline
//	└─────────────────────────────────────┘
//
// Every worker runs inside the runtime's lifecycle wrapper: it registers
// under a unique label, waits for the logger thread to become ready,
// runs its init hook, its main function and an optional queued-message
// processing loop bounded by batch and wall-clock budgets, then reaches
// a terminal state that fires its completion event.
//
// # Ordering guarantees
//
// The logger thread is started first and every other managed thread
// blocks at startup until the logger's registry state is Running, so no
// thread logs to a per-thread file before the logging subsystem exists.
// On shutdown the order inverts: the logger waits for every other
// registered thread to reach a terminal state, performs a final drain of
// the log queue, and exits last.
//
// # Global state
//
// There is none. All process-wide state (the registry, the log pipeline,
// the shutdown flag) lives in a runtime.Runtime constructed at process
// start, which makes isolated multi-instance testing possible.
package threadkit
