package runtime

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/c360/threadkit/config"
	"github.com/c360/threadkit/errors"
	"github.com/c360/threadkit/event"
	"github.com/c360/threadkit/health"
	"github.com/c360/threadkit/logger"
	"github.com/c360/threadkit/metric"
	"github.com/c360/threadkit/registry"
)

// Default lifecycle timing. Overridable through the "threads"
// configuration section.
const (
	// DefaultLoggerWait bounds how long a starting thread waits for
	// the logger thread to reach Running.
	DefaultLoggerWait = 5 * time.Second

	// loggerWaitPoll is the interval at which a starting thread polls
	// the logger's registry state. Polling is used only here, where no
	// completion event exists to wait on.
	loggerWaitPoll = 50 * time.Millisecond

	// DefaultMsgBatchSize bounds messages processed per batch pass
	// when a processor is declared but no budget configured.
	DefaultMsgBatchSize = 10

	// DefaultMaxProcessTime is the matching wall-clock budget.
	DefaultMaxProcessTime = 100 * time.Millisecond

	// idlePoll is how long a service loop sleeps when its queue is
	// empty before re-checking for work and shutdown.
	idlePoll = 50 * time.Millisecond
)

// Unbounded disables a batch or wall-clock budget explicitly.
const Unbounded = -1

// Runtime is the process-wide context object: one registry, one log
// pipeline, one metrics registry, one shutdown flag. Everything is
// instance-scoped so tests can run several isolated runtimes side by
// side; there is no package-level state.
type Runtime struct {
	instanceID string
	cfg        *config.Provider
	reg        *registry.Registry
	log        *logger.Logger
	metrics    *metric.MetricsRegistry
	monitor    *health.Monitor
	shutdown   *event.Event
	diag       *slog.Logger

	loggerWait     time.Duration
	suppress       map[string]bool
	restartLimiter *rate.Limiter

	group *errgroup.Group

	mu      sync.Mutex
	configs map[string]ThreadConfig // started thread configs, for watchdog restarts
}

// New builds a runtime from configuration. The logger thread is not
// started yet; call StartLogger before any worker.
func New(cfg *config.Provider, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		cfg = config.New(nil)
	}
	options := defaultRuntimeOptions()
	for _, opt := range opts {
		opt(&options)
	}

	diag := options.diag
	if diag == nil {
		diag = slog.Default()
	}

	metrics := metric.NewMetricsRegistry()
	monitor := health.NewMonitor()

	reg := registry.New(diag,
		registry.WithMetrics(metrics.CoreMetrics()),
		registry.WithMonitor(monitor),
		registry.WithQueueCapacity(cfg.GetInt("threads", "queue_capacity", registry.DefaultQueueCapacity)),
	)

	shutdown := event.New(event.ManualReset, false)

	writer, err := buildWriter(cfg, options)
	if err != nil {
		return nil, err
	}

	threshold := logger.LevelInfo
	if lvl, err := logger.ParseLevel(cfg.GetString("logger", "level", "info")); err == nil {
		threshold = lvl
	} else {
		diag.Warn("unparseable log level in configuration, using info",
			"value", cfg.GetString("logger", "level", "info"))
	}

	log := logger.New(writer,
		logger.WithThreshold(threshold),
		logger.WithQueueCapacity(cfg.GetInt("logger", "queue_capacity", logger.DefaultQueueCapacity)),
		logger.WithPurgeCount(cfg.GetInt("logger", "purge_count", logger.DefaultPurgeCount)),
		logger.WithShutdownEvent(shutdown),
		logger.WithRegistry(reg),
		logger.WithMetrics(metrics.CoreMetrics()),
		logger.WithOthersWait(cfg.GetDuration("logger", "others_wait", logger.DefaultOthersWait)),
	)

	rt := &Runtime{
		instanceID:     uuid.NewString(),
		cfg:            cfg,
		reg:            reg,
		log:            log,
		metrics:        metrics,
		monitor:        monitor,
		shutdown:       shutdown,
		diag:           diag.With("component", "runtime"),
		loggerWait:     cfg.GetDuration("threads", "logger_wait", DefaultLoggerWait),
		suppress:       parseSuppressList(cfg.GetString("threads", "suppress_list", "")),
		restartLimiter: newRestartLimiter(),
		group:          &errgroup.Group{},
		configs:        make(map[string]ThreadConfig),
	}
	return rt, nil
}

func buildWriter(cfg *config.Provider, options runtimeOptions) (*logger.Writer, error) {
	dest, err := logger.ParseDestination(cfg.GetString("logger", "destination", "screen"))
	if err != nil {
		return nil, err
	}
	granularity, err := logger.ParseGranularity(cfg.GetString("logger", "granularity", "nanosecond"))
	if err != nil {
		return nil, err
	}

	routes := make(map[string]string)
	for _, section := range cfg.Sections() {
		const prefix = "logfile."
		if !strings.HasPrefix(section, prefix) {
			continue
		}
		if file := cfg.GetString(section, "file", ""); file != "" {
			routes[strings.TrimPrefix(section, prefix)] = file
		}
	}

	return logger.NewWriter(logger.WriterConfig{
		Destination: dest,
		Screen:      options.screen,
		Dir:         cfg.GetString("logger", "dir", "."),
		AppFile:     cfg.GetString("logger", "file", logger.DefaultAppFile),
		Routes:      routes,
		MaxFileSize: int64(cfg.GetInt("logger", "max_file_size", logger.DefaultMaxFileSize)),
		Granularity: granularity,
		Exit:        options.exit,
	}), nil
}

// parseSuppressList splits a comma-separated suppression list into
// normalized tokens.
func parseSuppressList(list string) map[string]bool {
	suppress := make(map[string]bool)
	for _, token := range strings.Split(list, ",") {
		token = strings.ToUpper(strings.TrimSpace(token))
		if token != "" {
			suppress[token] = true
		}
	}
	return suppress
}

// InstanceID returns the unique identifier of this runtime instance.
func (rt *Runtime) InstanceID() string { return rt.instanceID }

// Registry returns the thread registry.
func (rt *Runtime) Registry() *registry.Registry { return rt.reg }

// Logger returns the log pipeline.
func (rt *Runtime) Logger() *logger.Logger { return rt.log }

// Metrics returns the metrics registry.
func (rt *Runtime) Metrics() *metric.MetricsRegistry { return rt.metrics }

// Monitor returns the health monitor fed by watchdog passes.
func (rt *Runtime) Monitor() *health.Monitor { return rt.monitor }

// Health aggregates the monitor's per-thread statuses into one
// runtime-level status, with the individual statuses attached as
// sub-statuses. Statuses are published by the watchdog's health pass,
// so the snapshot is empty until the watchdog has run once.
func (rt *Runtime) Health() health.Status {
	return rt.monitor.AggregateHealth("runtime")
}

// Config returns the configuration provider.
func (rt *Runtime) Config() *config.Provider { return rt.cfg }

// RequestShutdown sets the process-wide shutdown flag and wakes every
// loop waiting on it. Idempotent and safe from a signal handler.
func (rt *Runtime) RequestShutdown() {
	rt.shutdown.Set()
}

// IsShutdownRequested reports the process-wide shutdown flag.
func (rt *Runtime) IsShutdownRequested() bool {
	return rt.shutdown.IsSet()
}

// ShutdownEvent returns the broadcast event behind RequestShutdown,
// for loops that want to block on it with a timeout.
func (rt *Runtime) ShutdownEvent() *event.Event {
	return rt.shutdown
}

// RegisterMain registers the calling (main) thread under the MAIN
// label so it participates in health checks and shutdown ordering.
// Main gets a queue at the registry default capacity, so other threads
// can send it control messages like any other registered thread.
func (rt *Runtime) RegisterMain() error {
	if err := rt.reg.Register(registry.Registration{Label: registry.MainThreadLabel}); err != nil {
		return err
	}
	return rt.reg.UpdateState(registry.MainThreadLabel, registry.StateRunning)
}

// MainDone marks the main thread terminated, releasing anything
// waiting on it (the logger's shutdown wait included).
func (rt *Runtime) MainDone() {
	if err := rt.reg.UpdateState(registry.MainThreadLabel, registry.StateTerminated); err != nil {
		rt.diag.Warn("marking main thread terminated", "error", err)
	}
}

// StartLogger registers and starts the logger thread. The logger is
// essential: a failure here is fatal to the whole process, because
// every other thread blocks on its readiness.
func (rt *Runtime) StartLogger() error {
	if rt.suppress[logger.Label] {
		// Deliberately a warning, not an error: everything depends on
		// the logger, so suppression of it is ignored.
		rt.diag.Warn("configuration attempts to suppress the logger thread, starting it anyway")
	}

	if err := rt.reg.Register(registry.Registration{Label: logger.Label, QueueCapacity: Unbounded}); err != nil {
		return errors.WrapFatal(err, "Runtime", "StartLogger", "register logger thread")
	}
	if err := rt.reg.UpdateState(logger.Label, registry.StateRunning); err != nil {
		return errors.WrapFatal(err, "Runtime", "StartLogger", "mark logger running")
	}

	rt.group.Go(func() error {
		err := rt.log.Run()
		final := registry.StateTerminated
		if err != nil {
			final = registry.StateFailed
		}
		if uerr := rt.reg.UpdateState(logger.Label, final); uerr != nil {
			rt.diag.Warn("recording logger thread exit", "error", uerr)
		}
		return err
	})
	return nil
}

// Suppressed reports whether a label matches the configured
// suppression list.
func (rt *Runtime) Suppressed(label string) bool {
	return rt.suppress[strings.ToUpper(strings.TrimSpace(label))]
}

// Wait blocks until every thread started through the runtime has
// returned. The logger exits last by design.
func (rt *Runtime) Wait() error {
	return rt.group.Wait()
}

// WaitAllThreads blocks until every registered, non-suppressed thread
// reaches a terminal state.
func (rt *Runtime) WaitAllThreads(timeout time.Duration) error {
	return rt.reg.WaitAll(timeout)
}

func (rt *Runtime) rememberConfig(tc ThreadConfig) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.configs[strings.ToUpper(strings.TrimSpace(tc.Label))] = tc
}

func (rt *Runtime) configFor(label string) (ThreadConfig, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	tc, ok := rt.configs[strings.ToUpper(strings.TrimSpace(label))]
	return tc, ok
}

// describeResult renders a thread's outcome for its final log line.
func describeResult(err error) string {
	if err == nil {
		return "ok"
	}
	return fmt.Sprintf("failed: %v", err)
}
