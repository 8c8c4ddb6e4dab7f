package runtime

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/c360/threadkit/pkg/retry"
	"github.com/c360/threadkit/pkg/timestamp"
	"github.com/c360/threadkit/registry"
)

// WatchdogLabel is the registry label of the watchdog thread.
const WatchdogLabel = "WATCHDOG"

const (
	// watchdogPassInterval is how often the watchdog runs a health
	// pass (and refreshes its own heartbeat).
	watchdogPassInterval = 1 * time.Second

	// WatchdogCheckInterval is how often the main thread should call
	// CheckWatchdog.
	WatchdogCheckInterval = 5 * time.Second

	// watchdogHungThreshold is the heartbeat age past which the
	// watchdog itself is considered hung.
	watchdogHungThreshold = 10 * time.Second
)

// StartWatchdog launches the watchdog thread: a periodic pass over the
// registry that heartbeats, checks every running thread's health, and
// publishes statuses to the health monitor. A hung or dead watchdog
// cannot restart itself; the main thread drives that via CheckWatchdog.
func (rt *Runtime) StartWatchdog() error {
	return rt.StartThread(ThreadConfig{
		Label:         WatchdogLabel,
		QueueCapacity: Unbounded,
		Run:           watchdogLoop,
	})
}

func watchdogLoop(tc *ThreadContext) error {
	wasHealthy := true
	for !tc.ShouldStop() {
		tc.Heartbeat()
		statuses := tc.rt.reg.CheckAllHealth()
		for _, status := range statuses {
			if status.IsUnhealthy() {
				tc.Warnf("thread %s unhealthy: %s", status.Thread, status.Message)
			}
		}

		// One summary line per health edge, not per pass.
		overall := tc.rt.Health()
		if healthy := overall.IsHealthy(); healthy != wasHealthy {
			if healthy {
				tc.Infof("runtime health recovered")
			} else {
				tc.Warnf("runtime %s: %s", overall.Status, overall.Message)
			}
			wasHealthy = healthy
		}

		if tc.Sleep(watchdogPassInterval) {
			break
		}
	}
	return nil
}

// CheckWatchdog verifies the watchdog from the outside and restarts it
// when it is absent, terminal, or hung. Meant to be called from the
// main thread's loop every WatchdogCheckInterval. Restarts are
// rate-limited so a crash-looping watchdog cannot spin the process.
func (rt *Runtime) CheckWatchdog() error {
	if rt.Suppressed(WatchdogLabel) {
		return nil
	}
	state := rt.reg.GetState(WatchdogLabel)

	healthy := state == registry.StateRunning
	if healthy {
		if beat, ok := rt.reg.LastHeartbeat(WatchdogLabel); ok {
			healthy = timestamp.Since(beat) < watchdogHungThreshold
		}
	}
	if healthy || rt.IsShutdownRequested() {
		return nil
	}

	if !rt.restartLimiter.Allow() {
		rt.diag.Warn("watchdog restart suppressed by rate limit", "state", state.String())
		return nil
	}

	rt.log.Warnf(registry.MainThreadLabel,
		"watchdog %s, restarting it", describeWatchdogFault(state))
	rt.metrics.CoreMetrics().WatchdogRestarts.Inc()

	// Clear the stale entry, then go back through the normal
	// thread-creation path.
	if state != registry.StateUnknown {
		if err := rt.reg.Deregister(WatchdogLabel); err != nil {
			return err
		}
	}
	return retry.Do(context.Background(), retry.Quick(), func() error {
		return rt.StartWatchdog()
	})
}

func describeWatchdogFault(state registry.State) string {
	if state == registry.StateRunning {
		return "is hung"
	}
	return "is " + state.String()
}

// newRestartLimiter allows one watchdog restart per
// WatchdogCheckInterval with a small burst, enough for recovery but
// not for a tight restart loop.
func newRestartLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Every(WatchdogCheckInterval), 2)
}
