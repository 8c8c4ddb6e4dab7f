package runtime

import (
	"fmt"
	"time"

	"github.com/c360/threadkit/errors"
	"github.com/c360/threadkit/logger"
	"github.com/c360/threadkit/queue"
	"github.com/c360/threadkit/registry"
)

// LifecycleHooks are the optional per-thread callbacks invoked by the
// lifecycle wrapper. Embed NoopHooks to implement only some of them.
type LifecycleHooks interface {
	// PreCreate runs before the thread goroutine is spawned.
	PreCreate() error
	// PostCreate runs after the goroutine is spawned, on the spawning
	// thread.
	PostCreate() error
	// Init runs on the new thread after registration and the logger
	// wait; a failure aborts startup and marks the thread Failed.
	Init(tc *ThreadContext) error
	// Exit runs on the new thread after the body returns, regardless
	// of outcome. Its own failure is logged but never overrides the
	// body's result.
	Exit(tc *ThreadContext) error
}

// NoopHooks implements LifecycleHooks with no-ops.
type NoopHooks struct{}

func (NoopHooks) PreCreate() error          { return nil }
func (NoopHooks) PostCreate() error         { return nil }
func (NoopHooks) Init(*ThreadContext) error { return nil }
func (NoopHooks) Exit(*ThreadContext) error { return nil }

// MessageProcessor handles messages delivered to a thread's own queue.
type MessageProcessor interface {
	ProcessMessage(tc *ThreadContext, msg queue.Message) error
}

// ProcessorFunc adapts a function to MessageProcessor.
type ProcessorFunc func(tc *ThreadContext, msg queue.Message) error

func (f ProcessorFunc) ProcessMessage(tc *ThreadContext, msg queue.Message) error {
	return f(tc, msg)
}

// ThreadConfig declares a managed thread.
type ThreadConfig struct {
	// Label identifies the thread in the registry and in log routing.
	Label string

	// Essential marks a thread whose startup failure is fatal to the
	// process and which the suppression list may not suppress.
	Essential bool

	// Run is the thread body. When nil and a Processor is set, a
	// default service loop drains the thread's queue until shutdown.
	Run func(tc *ThreadContext) error

	// Hooks are the optional lifecycle callbacks.
	Hooks LifecycleHooks

	// Processor, when set, enables the message-processing sub-loop.
	Processor MessageProcessor

	// MsgBatchSize bounds messages handled per ProcessMessages pass.
	// Zero selects DefaultMsgBatchSize; Unbounded disables the bound.
	MsgBatchSize int

	// MaxProcessTime is the wall-clock budget per ProcessMessages
	// pass. Zero selects DefaultMaxProcessTime; Unbounded disables it.
	MaxProcessTime time.Duration

	// QueueCapacity sizes the thread's message queue. Zero uses the
	// registry default.
	QueueCapacity int

	// AutoCleanup deregisters the thread after it reaches a terminal
	// state, releasing its queue. When false the terminal entry stays
	// in the registry for inspection.
	AutoCleanup bool
}

// batchBudget resolves the configured batch bound: 0 means no bound.
func (tc ThreadConfig) batchBudget() int {
	switch {
	case tc.MsgBatchSize == 0:
		return DefaultMsgBatchSize
	case tc.MsgBatchSize < 0:
		return 0
	default:
		return tc.MsgBatchSize
	}
}

// timeBudget resolves the configured wall-clock bound: 0 means no bound.
func (tc ThreadConfig) timeBudget() time.Duration {
	switch {
	case tc.MaxProcessTime == 0:
		return DefaultMaxProcessTime
	case tc.MaxProcessTime < 0:
		return 0
	default:
		return tc.MaxProcessTime
	}
}

// ThreadContext is the per-thread handle passed to hooks, bodies, and
// processors. It carries the thread's label for all logging, replacing
// mutable thread-local state: set once by the wrapper, read-only after.
type ThreadContext struct {
	label string
	cfg   ThreadConfig
	rt    *Runtime
}

// Label returns the thread's registry label.
func (tc *ThreadContext) Label() string { return tc.label }

// Runtime returns the owning runtime.
func (tc *ThreadContext) Runtime() *Runtime { return tc.rt }

// Heartbeat records liveness for watchdog health checks.
func (tc *ThreadContext) Heartbeat() {
	tc.rt.reg.Heartbeat(tc.label)
}

// ShouldStop is the universal "should I stop" poll for thread main
// loops: true once process shutdown is requested or this thread has
// been moved to Stopping.
func (tc *ThreadContext) ShouldStop() bool {
	if tc.rt.shutdown.IsSet() {
		return true
	}
	return tc.rt.reg.GetState(tc.label) == registry.StateStopping
}

// Sleep blocks for d or until shutdown is requested, whichever comes
// first. Returns true if shutdown cut the sleep short.
func (tc *ThreadContext) Sleep(d time.Duration) bool {
	return tc.rt.shutdown.Wait(d) == nil
}

// PopOwn removes the oldest message from this thread's queue.
func (tc *ThreadContext) PopOwn(timeout time.Duration) (queue.Message, error) {
	return tc.rt.reg.PopMessage(tc.label, timeout)
}

// PushTo delivers a message to another thread's queue.
func (tc *ThreadContext) PushTo(label string, msg queue.Message, timeout time.Duration) error {
	return tc.rt.reg.PushMessage(label, msg, timeout)
}

// Tracef logs at trace level under this thread's label.
func (tc *ThreadContext) Tracef(format string, args ...any) {
	tc.rt.log.Tracef(tc.label, format, args...)
}

// Debugf logs at debug level under this thread's label.
func (tc *ThreadContext) Debugf(format string, args ...any) {
	tc.rt.log.Debugf(tc.label, format, args...)
}

// Infof logs at info level under this thread's label.
func (tc *ThreadContext) Infof(format string, args ...any) {
	tc.rt.log.Infof(tc.label, format, args...)
}

// Warnf logs at warn level under this thread's label.
func (tc *ThreadContext) Warnf(format string, args ...any) {
	tc.rt.log.Warnf(tc.label, format, args...)
}

// Errorf logs at error level under this thread's label.
func (tc *ThreadContext) Errorf(format string, args ...any) {
	tc.rt.log.Errorf(tc.label, format, args...)
}

// ProcessMessages runs one pass of the message-processing sub-loop:
// non-blocking pops from this thread's own queue, each handed to the
// processor, bounded by both the batch-count and wall-clock budgets.
// It stops early on an empty queue or a processor failure. Bounding
// each pass keeps a message flood from starving the thread's other
// responsibilities, such as its heartbeat.
func (tc *ThreadContext) ProcessMessages() (int, error) {
	if tc.cfg.Processor == nil {
		return 0, nil
	}

	batch := tc.cfg.batchBudget()
	budget := tc.cfg.timeBudget()
	start := time.Now()

	processed := 0
	for {
		if batch > 0 && processed >= batch {
			return processed, nil
		}
		if budget > 0 && time.Since(start) >= budget {
			return processed, nil
		}

		msg, err := tc.rt.reg.PopMessage(tc.label, 0)
		if err != nil {
			if errors.IsBackpressure(err) {
				return processed, nil
			}
			return processed, err
		}
		if err := tc.cfg.Processor.ProcessMessage(tc, msg); err != nil {
			return processed, errors.Wrap(err, "Thread", "ProcessMessages",
				fmt.Sprintf("process message %d for %q", msg.ID, tc.label))
		}
		processed++
	}
}

// StartThread registers and launches a managed thread. A suppressed
// non-essential thread is registered with its suppressed flag set and
// never started; suppressing an essential thread is a configuration
// warning, and the thread starts anyway.
func (rt *Runtime) StartThread(tc ThreadConfig) error {
	if tc.Label == "" {
		return errors.WrapInvalid(errors.ErrInvalidArgument, "Runtime", "StartThread", "validate label")
	}
	if tc.Hooks == nil {
		tc.Hooks = NoopHooks{}
	}
	if tc.Run == nil && tc.Processor == nil {
		return errors.WrapInvalid(errors.ErrInvalidArgument, "Runtime", "StartThread",
			fmt.Sprintf("thread %q declares neither a body nor a processor", tc.Label))
	}

	if rt.Suppressed(tc.Label) {
		if !tc.Essential {
			rt.log.Infof(tc.Label, "thread suppressed by configuration, not starting")
			return rt.reg.Register(registry.Registration{
				Label:         tc.Label,
				QueueCapacity: Unbounded,
				Suppressed:    true,
			})
		}
		rt.log.Warnf(tc.Label, "configuration attempts to suppress an essential thread, starting it anyway")
	}

	if err := tc.Hooks.PreCreate(); err != nil {
		return errors.Wrap(err, "Runtime", "StartThread",
			fmt.Sprintf("pre-create hook for %q", tc.Label))
	}

	if err := rt.reg.Register(registry.Registration{
		Label:         tc.Label,
		QueueCapacity: tc.QueueCapacity,
		AutoCleanup:   tc.AutoCleanup,
		ExitHook:      nil,
	}); err != nil {
		return errors.Wrap(fmt.Errorf("%w: %w", errors.ErrRegistrationFailed, err),
			"Runtime", "StartThread", fmt.Sprintf("register %q", tc.Label))
	}

	rt.rememberConfig(tc)
	rt.group.Go(func() error {
		rt.runThread(tc)
		return nil
	})

	if err := tc.Hooks.PostCreate(); err != nil {
		// The thread is already running; a post-create failure is
		// reported but does not tear it down.
		rt.log.Warnf(tc.Label, "post-create hook failed: %v", err)
	}
	return nil
}

// runThread is the lifecycle wrapper every managed thread runs inside.
func (rt *Runtime) runThread(tc ThreadConfig) {
	ctx := &ThreadContext{label: tc.Label, cfg: tc, rt: rt}

	var result error
	defer func() {
		final := registry.StateTerminated
		if result != nil {
			final = registry.StateFailed
			rt.log.Errorf(tc.Label, "thread failed: %v", result)
		}
		if err := rt.reg.UpdateState(tc.Label, final); err != nil {
			rt.diag.Warn("recording thread exit", "label", tc.Label, "error", err)
		}
		if tc.AutoCleanup {
			if err := rt.reg.Deregister(tc.Label); err != nil {
				rt.diag.Warn("deregistering thread", "label", tc.Label, "error", err)
			}
		}
	}()

	if err := rt.reg.UpdateState(tc.Label, registry.StateRunning); err != nil {
		result = err
		return
	}

	// Logger-first ordering: no thread logs to a per-thread file
	// before the log pipeline is ready.
	if err := rt.waitForLogger(); err != nil {
		result = err
		return
	}

	ctx.Infof("thread started")

	if err := tc.Hooks.Init(ctx); err != nil {
		result = errors.Wrap(err, "Thread", "Init", fmt.Sprintf("initialize %q", tc.Label))
		runExitHook(ctx, tc)
		return
	}

	body := tc.Run
	if body == nil {
		body = serviceLoop
	}
	result = body(ctx)

	runExitHook(ctx, tc)

	ctx.Infof("thread exiting (%s)", describeResult(result))
}

// runExitHook runs the exit hook best-effort: its failure is logged
// but never overrides the body's result.
func runExitHook(ctx *ThreadContext, tc ThreadConfig) {
	if err := tc.Hooks.Exit(ctx); err != nil {
		ctx.Warnf("exit hook failed: %v", err)
	}
}

// waitForLogger blocks until the logger thread's registry state is
// Running, polling at a short fixed interval, bounded by the
// configured timeout. Exceeding the timeout is a reported failure, not
// a silent continue.
func (rt *Runtime) waitForLogger() error {
	deadline := time.Now().Add(rt.loggerWait)
	for {
		if rt.reg.GetState(logger.Label) == registry.StateRunning && rt.log.Ready() {
			return nil
		}
		if time.Now().After(deadline) {
			return errors.Wrap(errors.ErrLoggerTimeout, "Thread", "waitForLogger",
				fmt.Sprintf("logger not running after %s", rt.loggerWait))
		}
		time.Sleep(loggerWaitPoll)
	}
}

// serviceLoop is the default body for processor-only threads: drain
// budgeted batches from the thread's own queue until shutdown, idling
// on the shutdown event between empty passes.
func serviceLoop(tc *ThreadContext) error {
	for !tc.ShouldStop() {
		n, err := tc.ProcessMessages()
		if err != nil {
			return err
		}
		tc.Heartbeat()
		if n == 0 {
			_ = tc.rt.shutdown.Wait(idlePoll)
		}
	}
	// Drain whatever is left so senders are not stranded.
	if _, err := tc.ProcessMessages(); err != nil {
		return err
	}
	return nil
}

// StopThread asks a running thread to stop by moving it to Stopping.
// The thread observes this through ShouldStop.
func (rt *Runtime) StopThread(label string) error {
	return rt.reg.UpdateState(label, registry.StateStopping)
}
