package registry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/threadkit/errors"
	"github.com/c360/threadkit/event"
	"github.com/c360/threadkit/health"
	"github.com/c360/threadkit/metric"
	"github.com/c360/threadkit/queue"
)

func newTestRegistry(t *testing.T, opts ...Option) *Registry {
	t.Helper()
	return New(nil, opts...)
}

func TestRegisterAndGetState(t *testing.T) {
	r := newTestRegistry(t)

	require.NoError(t, r.Register(Registration{Label: "RECORDER"}))
	assert.Equal(t, StateCreated, r.GetState("RECORDER"))
	assert.Equal(t, 1, r.Count())
}

func TestRegisterDuplicateCaseInsensitive(t *testing.T) {
	r := newTestRegistry(t)

	require.NoError(t, r.Register(Registration{Label: "Recorder"}))
	err := r.Register(Registration{Label: "RECORDER"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDuplicateLabel))
	assert.Equal(t, 1, r.Count())
}

func TestRegisterEmptyLabel(t *testing.T) {
	r := newTestRegistry(t)

	err := r.Register(Registration{Label: "   "})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))
}

func TestGetStateUnknownLabel(t *testing.T) {
	r := newTestRegistry(t)
	assert.Equal(t, StateUnknown, r.GetState("NOBODY"))
}

func TestLookupsAreCaseInsensitive(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register(Registration{Label: "Recorder"}))

	require.NoError(t, r.UpdateState("recorder", StateRunning))
	assert.Equal(t, StateRunning, r.GetState("RECORDER"))

	info, ok := r.Info("rEcOrDeR")
	require.True(t, ok)
	assert.Equal(t, "Recorder", info.Label)
}

func TestValidTransitionChain(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register(Registration{Label: "W"}))

	for _, next := range []State{StateRunning, StateSuspended, StateRunning, StateStopping, StateTerminated} {
		require.NoError(t, r.UpdateState("W", next))
		assert.Equal(t, next, r.GetState("W"))
	}
}

func TestRunningToTerminatedDirect(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register(Registration{Label: "W"}))

	require.NoError(t, r.UpdateState("W", StateRunning))
	require.NoError(t, r.UpdateState("W", StateTerminated))
}

func TestInvalidTransitionRejected(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register(Registration{Label: "W"}))

	err := r.UpdateState("W", StateStopping) // created -> stopping is not allowed
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidTransition))
	assert.Equal(t, StateCreated, r.GetState("W"), "rejected transition must not change state")
}

func TestTerminalStatesAreAbsorbing(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register(Registration{Label: "W"}))
	require.NoError(t, r.UpdateState("W", StateRunning))
	require.NoError(t, r.UpdateState("W", StateFailed))

	err := r.UpdateState("W", StateRunning)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidTransition))
}

func TestSameStateTransitionRejected(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register(Registration{Label: "W"}))
	require.NoError(t, r.UpdateState("W", StateRunning))

	// No state lists itself as a target, so a repeated update is an
	// invalid transition like any other.
	err := r.UpdateState("W", StateRunning)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidTransition))
	assert.Equal(t, StateRunning, r.GetState("W"))
}

func TestUpdateStateUnknownLabel(t *testing.T) {
	r := newTestRegistry(t)
	err := r.UpdateState("NOBODY", StateRunning)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestWaitForSignaledOnTerminated(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register(Registration{Label: "W"}))
	require.NoError(t, r.UpdateState("W", StateRunning))

	var wg sync.WaitGroup
	wg.Add(1)
	waitErr := make(chan error, 1)
	go func() {
		defer wg.Done()
		waitErr <- r.WaitFor("W", 2*time.Second)
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, r.UpdateState("W", StateTerminated))
	wg.Wait()
	require.NoError(t, <-waitErr)
}

func TestWaitForSignaledOnFailed(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register(Registration{Label: "W"}))
	require.NoError(t, r.UpdateState("W", StateRunning))
	require.NoError(t, r.UpdateState("W", StateFailed))

	// Already terminal: returns without blocking.
	require.NoError(t, r.WaitFor("W", 0))
}

func TestWaitForUnknownLabelReturnsPromptly(t *testing.T) {
	r := newTestRegistry(t)

	start := time.Now()
	err := r.WaitFor("NOBODY", 5*time.Second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	assert.Less(t, time.Since(start), time.Second, "missing label must not block")
}

func TestWaitForTimeout(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register(Registration{Label: "W"}))

	err := r.WaitFor("W", 50*time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTimeout))
}

func TestWaitForOthersSkipsSelfAndSuppressed(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register(Registration{Label: "LOGGER"}))
	require.NoError(t, r.Register(Registration{Label: "WORKER"}))
	require.NoError(t, r.Register(Registration{Label: "GHOST", Suppressed: true}))

	require.NoError(t, r.UpdateState("WORKER", StateRunning))

	done := make(chan error, 1)
	go func() { done <- r.WaitForOthers("LOGGER", 2*time.Second) }()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, r.UpdateState("WORKER", StateTerminated))

	select {
	case err := <-done:
		require.NoError(t, err, "suppressed thread must not be waited on")
	case <-time.After(time.Second):
		t.Fatal("WaitForOthers did not return after the last running thread finished")
	}
}

func TestWaitAll(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register(Registration{Label: "A"}))
	require.NoError(t, r.Register(Registration{Label: "B"}))

	for _, label := range []string{"A", "B"} {
		require.NoError(t, r.UpdateState(label, StateRunning))
		require.NoError(t, r.UpdateState(label, StateTerminated))
	}
	require.NoError(t, r.WaitAll(event.Forever))
}

func TestPushPopRouting(t *testing.T) {
	r := newTestRegistry(t, WithQueueCapacity(4))
	require.NoError(t, r.Register(Registration{Label: "W"}))

	msg, err := queue.NewMessage(queue.TypeData, []byte("ping"))
	require.NoError(t, err)
	require.NoError(t, r.PushMessage("W", msg, 0))

	got, err := r.PopMessage("w", 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("ping"), got.Content())
}

func TestPushMessageUnknownLabel(t *testing.T) {
	r := newTestRegistry(t)

	msg, err := queue.NewMessage(queue.TypeData, []byte("x"))
	require.NoError(t, err)
	err = r.PushMessage("NOBODY", msg, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestQueueOptionsPropagateToRegisteredQueues(t *testing.T) {
	reg := metric.NewMetricsRegistry()
	r := newTestRegistry(t,
		WithQueueCapacity(4),
		WithQueueOptions(queue.WithMetrics(reg, "threadkit_msgq")),
	)
	require.NoError(t, r.Register(Registration{Label: "W"}))

	msg, err := queue.NewMessage(queue.TypeData, []byte("ping"))
	require.NoError(t, err)
	require.NoError(t, r.PushMessage("W", msg, 0))

	families, err := reg.PrometheusRegistry().Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "threadkit_msgq_pushed_total")
	assert.Contains(t, names, "threadkit_msgq_depth")
}

func TestDeferredQueueAllocation(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register(Registration{Label: "W", QueueCapacity: -1}))

	msg, err := queue.NewMessage(queue.TypeData, []byte("x"))
	require.NoError(t, err)

	err = r.PushMessage("W", msg, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))

	require.NoError(t, r.InitQueue("W", 8))
	require.NoError(t, r.PushMessage("W", msg, 0))
}

func TestDeregisterRunsAutoCleanup(t *testing.T) {
	r := newTestRegistry(t)

	hookRan := false
	require.NoError(t, r.Register(Registration{
		Label:       "W",
		AutoCleanup: true,
		ExitHook:    func() error { hookRan = true; return nil },
	}))

	require.NoError(t, r.Deregister("W"))
	assert.True(t, hookRan)
	assert.Equal(t, StateUnknown, r.GetState("W"))
}

func TestDeregisterWithoutAutoCleanupSkipsHook(t *testing.T) {
	r := newTestRegistry(t)

	hookRan := false
	require.NoError(t, r.Register(Registration{
		Label:    "W",
		ExitHook: func() error { hookRan = true; return nil },
	}))

	require.NoError(t, r.Deregister("W"))
	assert.False(t, hookRan)
}

func TestDeregisterUnblocksWaiters(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register(Registration{Label: "W"}))

	done := make(chan error, 1)
	go func() { done <- r.WaitFor("W", 2*time.Second) }()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, r.Deregister("W"))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("waiter not released by deregistration")
	}
}

func TestDeregisterUnknownLabel(t *testing.T) {
	r := newTestRegistry(t)
	err := r.Deregister("NOBODY")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestCheckAllHealthOnlyRunningThreads(t *testing.T) {
	r := newTestRegistry(t, WithHealthThresholds(50*time.Millisecond, 100*time.Millisecond))
	require.NoError(t, r.Register(Registration{Label: "IDLE"}))
	require.NoError(t, r.Register(Registration{Label: "LIVE"}))
	require.NoError(t, r.UpdateState("LIVE", StateRunning))

	statuses := r.CheckAllHealth()
	require.Len(t, statuses, 1)
	assert.Equal(t, "LIVE", statuses[0].Thread)
	assert.True(t, statuses[0].IsHealthy())
}

func TestCheckAllHealthDetectsHungThread(t *testing.T) {
	r := newTestRegistry(t, WithHealthThresholds(20*time.Millisecond, 40*time.Millisecond))
	require.NoError(t, r.Register(Registration{Label: "W"}))
	require.NoError(t, r.UpdateState("W", StateRunning))

	time.Sleep(60 * time.Millisecond)
	statuses := r.CheckAllHealth()
	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].IsUnhealthy())

	r.Heartbeat("W")
	statuses = r.CheckAllHealth()
	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].IsHealthy(), "heartbeat must reset health")
}

func TestDeregisterRemovesMonitorStatus(t *testing.T) {
	mon := health.NewMonitor()
	r := newTestRegistry(t,
		WithMonitor(mon),
		WithHealthThresholds(50*time.Millisecond, 100*time.Millisecond),
	)
	require.NoError(t, r.Register(Registration{Label: "W"}))
	require.NoError(t, r.UpdateState("W", StateRunning))

	r.CheckAllHealth()
	_, ok := mon.Get("W")
	require.True(t, ok, "health pass must publish to the monitor")

	require.NoError(t, r.Deregister("W"))
	_, ok = mon.Get("W")
	assert.False(t, ok, "deregistration must drop the published status")
}

func TestSnapshotSorted(t *testing.T) {
	r := newTestRegistry(t)
	for _, label := range []string{"ZULU", "ALPHA", "MIKE"} {
		require.NoError(t, r.Register(Registration{Label: label}))
	}

	infos := r.Snapshot()
	require.Len(t, infos, 3)
	assert.Equal(t, []string{"ALPHA", "MIKE", "ZULU"},
		[]string{infos[0].Label, infos[1].Label, infos[2].Label})
	assert.Equal(t, []string{"ALPHA", "MIKE", "ZULU"}, r.Labels())
}

func TestCleanup(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register(Registration{Label: "A"}))
	require.NoError(t, r.Register(Registration{Label: "B"}))

	r.Cleanup()
	assert.Equal(t, 0, r.Count())
}

func TestConcurrentStateUpdatesAndReads(t *testing.T) {
	r := newTestRegistry(t)
	labels := []string{"A", "B", "C", "D"}
	for _, label := range labels {
		require.NoError(t, r.Register(Registration{Label: label}))
	}

	var wg sync.WaitGroup
	for _, label := range labels {
		wg.Add(1)
		go func(label string) {
			defer wg.Done()
			require.NoError(t, r.UpdateState(label, StateRunning))
			for i := 0; i < 100; i++ {
				r.Heartbeat(label)
				_ = r.GetState(label)
			}
			require.NoError(t, r.UpdateState(label, StateTerminated))
		}(label)
	}
	wg.Wait()

	for _, label := range labels {
		assert.Equal(t, StateTerminated, r.GetState(label))
	}
}
