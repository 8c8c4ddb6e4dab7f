// Package runtime ties the registry, log pipeline, and watchdog into
// one process-wide context object.
//
// A Runtime owns exactly one registry, one logger, one metrics
// registry, and one shutdown flag; nothing is package-global, so tests
// can run isolated runtimes side by side. Threads start through
// StartThread, which runs them inside the lifecycle wrapper: register,
// transition to Running, wait for the logger to be ready, run the init
// hook, run the body, run the exit hook, record the terminal state.
// The logger thread starts first and exits last.
//
// Threads that declare a MessageProcessor get a budgeted
// message-processing sub-loop: each ProcessMessages pass is bounded by
// both a batch count and a wall-clock budget, so a message flood never
// starves the thread's other work.
package runtime
