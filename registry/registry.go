package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/c360/threadkit/errors"
	"github.com/c360/threadkit/event"
	"github.com/c360/threadkit/health"
	"github.com/c360/threadkit/pkg/timestamp"
	"github.com/c360/threadkit/queue"
)

// MainThreadLabel is the label the process's main thread registers under.
const MainThreadLabel = "MAIN"

// DefaultQueueCapacity is the message queue capacity used when a
// registration does not request one.
const DefaultQueueCapacity = 1024

// Registration describes a thread being added to the registry.
type Registration struct {
	// Label identifies the thread. Lookups are case-insensitive; the
	// original casing is preserved for display.
	Label string

	// QueueCapacity sizes the thread's message queue. Zero uses
	// DefaultQueueCapacity; negative defers allocation until InitQueue.
	QueueCapacity int

	// AutoCleanup runs the exit hook and closes the queue when the
	// thread is deregistered.
	AutoCleanup bool

	// Suppressed marks a thread that is registered but never started.
	Suppressed bool

	// ExitHook runs during deregistration when AutoCleanup is set.
	ExitHook func() error
}

// entry is the registry's record for one thread.
type entry struct {
	label       string
	state       State
	q           *queue.Queue
	done        *event.Event // manual-reset, set once on Terminated/Failed
	autoCleanup bool
	suppressed  bool
	exitHook    func() error
	heartbeat   int64 // unix ms, written under the registry lock
	registered  int64 // unix ms
}

// Registry tracks every managed thread in the process: its lifecycle
// state, its message queue, its completion event, and its last
// heartbeat. All operations are safe for concurrent use. The registry
// never holds its lock across a blocking wait.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry // keyed by normalized label
	logger  *slog.Logger
	options registryOptions
}

// New creates an empty thread registry.
func New(logger *slog.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &Registry{
		entries: make(map[string]*entry),
		logger:  logger.With("component", "registry"),
		options: options,
	}
}

func normalize(label string) string {
	return strings.ToUpper(strings.TrimSpace(label))
}

// Register adds a thread to the registry in the Created state. The
// label must be unique under case-insensitive comparison.
func (r *Registry) Register(reg Registration) error {
	key := normalize(reg.Label)
	if key == "" {
		return errors.WrapInvalid(errors.ErrInvalidArgument, "Registry", "Register", "validate label")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[key]; exists {
		r.logger.Warn("duplicate thread label rejected", "label", reg.Label)
		return errors.WrapInvalid(errors.ErrDuplicateLabel, "Registry", "Register",
			fmt.Sprintf("register %q", reg.Label))
	}

	e := &entry{
		label:       strings.TrimSpace(reg.Label),
		state:       StateCreated,
		done:        event.New(event.ManualReset, false),
		autoCleanup: reg.AutoCleanup,
		suppressed:  reg.Suppressed,
		exitHook:    reg.ExitHook,
		heartbeat:   timestamp.Now(),
		registered:  timestamp.Now(),
	}

	if reg.QueueCapacity >= 0 {
		capacity := reg.QueueCapacity
		if capacity == 0 {
			capacity = r.options.queueCapacity
		}
		q, err := queue.New(e.label, capacity, r.options.queueOptions...)
		if err != nil {
			return errors.Wrap(err, "Registry", "Register", "allocate queue")
		}
		e.q = q
	}

	r.entries[key] = e
	if m := r.options.metrics; m != nil {
		m.ThreadsByState.WithLabelValues(StateCreated.String()).Inc()
	}
	r.logger.Debug("thread registered",
		"label", e.label,
		"suppressed", e.suppressed,
		"auto_cleanup", e.autoCleanup)
	return nil
}

// Deregister removes a thread from the registry. With AutoCleanup set
// at registration, the exit hook runs and the queue is closed. The
// completion event is signaled so no waiter is left behind.
func (r *Registry) Deregister(label string) error {
	key := normalize(label)

	r.mu.Lock()
	e, exists := r.entries[key]
	if !exists {
		r.mu.Unlock()
		return errors.WrapInvalid(errors.ErrNotFound, "Registry", "Deregister",
			fmt.Sprintf("look up %q", label))
	}
	delete(r.entries, key)
	if m := r.options.metrics; m != nil {
		m.ThreadsByState.WithLabelValues(e.state.String()).Dec()
	}
	r.mu.Unlock()

	if e.autoCleanup {
		if e.exitHook != nil {
			if err := e.exitHook(); err != nil {
				r.logger.Warn("exit hook failed during deregistration",
					"label", e.label, "error", err)
			}
		}
		if e.q != nil {
			_ = e.q.Close()
		}
	}
	e.done.Set()
	if mon := r.options.monitor; mon != nil {
		mon.Remove(e.label)
	}

	r.logger.Debug("thread deregistered", "label", e.label)
	return nil
}

// UpdateState moves a thread to a new lifecycle state. Transitions not
// in the lifecycle table are rejected with ErrInvalidTransition and the
// stored state is left untouched; no table entry permits a same-state
// update, so those are rejected too. Reaching Terminated or Failed
// signals the thread's completion event.
func (r *Registry) UpdateState(label string, next State) error {
	key := normalize(label)

	r.mu.Lock()
	e, exists := r.entries[key]
	if !exists {
		r.mu.Unlock()
		return errors.WrapInvalid(errors.ErrNotFound, "Registry", "UpdateState",
			fmt.Sprintf("look up %q", label))
	}

	prev := e.state
	if !ValidTransition(prev, next) {
		r.mu.Unlock()
		if m := r.options.metrics; m != nil {
			m.InvalidTransitions.Inc()
		}
		r.logger.Warn("invalid state transition rejected",
			"label", e.label, "from", prev.String(), "to", next.String())
		return errors.WrapInvalid(errors.ErrInvalidTransition, "Registry", "UpdateState",
			fmt.Sprintf("move %q from %s to %s", label, prev, next))
	}

	e.state = next
	r.mu.Unlock()

	if m := r.options.metrics; m != nil {
		m.ThreadsByState.WithLabelValues(prev.String()).Dec()
		m.ThreadsByState.WithLabelValues(next.String()).Inc()
		m.StateTransitions.WithLabelValues(prev.String(), next.String()).Inc()
	}
	if next.Terminal() {
		e.done.Set()
	}

	r.logger.Debug("thread state changed",
		"label", e.label, "from", prev.String(), "to", next.String())
	return nil
}

// GetState returns the current state of a thread. Absent labels report
// StateUnknown; absence is not an error.
func (r *Registry) GetState(label string) State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.entries[normalize(label)]
	if !exists {
		return StateUnknown
	}
	return e.state
}

// Heartbeat records liveness for a thread. Unknown labels are ignored.
func (r *Registry) Heartbeat(label string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, exists := r.entries[normalize(label)]; exists {
		e.heartbeat = timestamp.Now()
	}
}

// LastHeartbeat returns the unix-millisecond time of the thread's most
// recent heartbeat.
func (r *Registry) LastHeartbeat(label string) (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.entries[normalize(label)]
	if !exists {
		return 0, false
	}
	return e.heartbeat, true
}

// Suppressed reports whether a thread was registered as suppressed.
func (r *Registry) Suppressed(label string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.entries[normalize(label)]
	return exists && e.suppressed
}

// InitQueue allocates (or replaces) a thread's message queue. A
// capacity of zero uses the registry default.
func (r *Registry) InitQueue(label string, capacity int) error {
	if capacity == 0 {
		capacity = r.options.queueCapacity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.entries[normalize(label)]
	if !exists {
		return errors.WrapInvalid(errors.ErrNotFound, "Registry", "InitQueue",
			fmt.Sprintf("look up %q", label))
	}
	q, err := queue.New(e.label, capacity, r.options.queueOptions...)
	if err != nil {
		return errors.Wrap(err, "Registry", "InitQueue", "allocate queue")
	}
	if e.q != nil {
		_ = e.q.Close()
	}
	e.q = q
	return nil
}

// queueFor fetches a thread's queue without holding the lock across
// the subsequent blocking operation.
func (r *Registry) queueFor(label, method string) (*queue.Queue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.entries[normalize(label)]
	if !exists {
		return nil, errors.WrapInvalid(errors.ErrNotFound, "Registry", method,
			fmt.Sprintf("look up %q", label))
	}
	if e.q == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidArgument, "Registry", method,
			fmt.Sprintf("access unallocated queue for %q", label))
	}
	return e.q, nil
}

// PushMessage delivers a message to the named thread's queue, blocking
// up to timeout when the queue is full.
func (r *Registry) PushMessage(label string, msg queue.Message, timeout time.Duration) error {
	q, err := r.queueFor(label, "PushMessage")
	if err != nil {
		return err
	}
	if err := q.Push(msg, timeout); err != nil {
		return err
	}
	if m := r.options.metrics; m != nil {
		m.MessagesPushed.WithLabelValues(q.Owner()).Inc()
	}
	return nil
}

// PopMessage removes the oldest message from the named thread's queue,
// blocking up to timeout when the queue is empty.
func (r *Registry) PopMessage(label string, timeout time.Duration) (queue.Message, error) {
	q, err := r.queueFor(label, "PopMessage")
	if err != nil {
		return queue.Message{}, err
	}
	msg, err := q.Pop(timeout)
	if err != nil {
		return queue.Message{}, err
	}
	if m := r.options.metrics; m != nil {
		m.MessagesPopped.WithLabelValues(q.Owner()).Inc()
	}
	return msg, nil
}

// WaitFor blocks until the named thread reaches a terminal state
// (Terminated or Failed) or the timeout expires.
func (r *Registry) WaitFor(label string, timeout time.Duration) error {
	r.mu.RLock()
	e, exists := r.entries[normalize(label)]
	r.mu.RUnlock()

	if !exists {
		return errors.WrapInvalid(errors.ErrNotFound, "Registry", "WaitFor",
			fmt.Sprintf("look up %q", label))
	}
	if err := e.done.Wait(timeout); err != nil {
		return errors.Wrap(err, "Registry", "WaitFor",
			fmt.Sprintf("wait for %q", label))
	}
	return nil
}

// WaitForOthers blocks until every registered thread except the caller
// reaches a terminal state. Suppressed threads never start and are not
// waited on. Used by the log thread so it exits last.
func (r *Registry) WaitForOthers(current string, timeout time.Duration) error {
	return r.waitMany(normalize(current), timeout, "WaitForOthers")
}

// WaitAll blocks until every registered non-suppressed thread reaches
// a terminal state.
func (r *Registry) WaitAll(timeout time.Duration) error {
	return r.waitMany("", timeout, "WaitAll")
}

func (r *Registry) waitMany(skip string, timeout time.Duration, method string) error {
	r.mu.RLock()
	waits := make([]*event.Event, 0, len(r.entries))
	labels := make([]string, 0, len(r.entries))
	for key, e := range r.entries {
		if key == skip || e.suppressed {
			continue
		}
		waits = append(waits, e.done)
		labels = append(labels, e.label)
	}
	r.mu.RUnlock()

	var deadline time.Time
	if timeout != event.Forever {
		deadline = time.Now().Add(timeout)
	}
	for i, done := range waits {
		remaining := event.Forever
		if timeout != event.Forever {
			remaining = time.Until(deadline)
			if remaining < 0 {
				remaining = 0
			}
		}
		if err := done.Wait(remaining); err != nil {
			return errors.Wrap(err, "Registry", method,
				fmt.Sprintf("wait for %q", labels[i]))
		}
	}
	return nil
}

// CheckAllHealth derives a health status for every running thread from
// the age of its last heartbeat, using the registry's configured stale
// and hung thresholds. Statuses are published to the attached monitor,
// and unhealthy threads count toward the health check failure metric.
func (r *Registry) CheckAllHealth() []health.Status {
	type sample struct {
		label string
		state State
		beat  int64
	}

	r.mu.RLock()
	samples := make([]sample, 0, len(r.entries))
	for _, e := range r.entries {
		if e.state != StateRunning {
			continue
		}
		samples = append(samples, sample{e.label, e.state, e.heartbeat})
	}
	r.mu.RUnlock()

	sort.Slice(samples, func(i, j int) bool { return samples[i].label < samples[j].label })

	statuses := make([]health.Status, 0, len(samples))
	for _, s := range samples {
		status := health.FromHeartbeat(s.label, s.state.String(),
			timestamp.Since(s.beat), r.options.staleAfter, r.options.hungAfter)
		if mon := r.options.monitor; mon != nil {
			mon.Update(s.label, status)
		}
		if status.IsUnhealthy() {
			if m := r.options.metrics; m != nil {
				m.HealthCheckFailures.Inc()
			}
			r.logger.Warn("thread failed health check",
				"label", s.label, "status", status.Status, "message", status.Message)
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// ThreadInfo is a point-in-time snapshot of one registry entry.
type ThreadInfo struct {
	Label         string
	State         State
	Suppressed    bool
	AutoCleanup   bool
	Registered    int64 // unix ms
	LastHeartbeat int64 // unix ms
	QueueLen      int
	QueueCap      int
}

// Info returns a snapshot of the named thread.
func (r *Registry) Info(label string) (ThreadInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.entries[normalize(label)]
	if !exists {
		return ThreadInfo{}, false
	}
	return r.infoLocked(e), true
}

// Snapshot returns a snapshot of every registered thread, sorted by label.
func (r *Registry) Snapshot() []ThreadInfo {
	r.mu.RLock()
	infos := make([]ThreadInfo, 0, len(r.entries))
	for _, e := range r.entries {
		infos = append(infos, r.infoLocked(e))
	}
	r.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].Label < infos[j].Label })
	return infos
}

func (r *Registry) infoLocked(e *entry) ThreadInfo {
	info := ThreadInfo{
		Label:         e.label,
		State:         e.state,
		Suppressed:    e.suppressed,
		AutoCleanup:   e.autoCleanup,
		Registered:    e.registered,
		LastHeartbeat: e.heartbeat,
	}
	if e.q != nil {
		info.QueueLen = e.q.Len()
		info.QueueCap = e.q.Cap()
	}
	return info
}

// Labels returns the labels of all registered threads, sorted.
func (r *Registry) Labels() []string {
	r.mu.RLock()
	labels := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		labels = append(labels, e.label)
	}
	r.mu.RUnlock()

	sort.Strings(labels)
	return labels
}

// Count returns the number of registered threads.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Cleanup deregisters every thread, running auto-cleanup hooks and
// closing queues where requested.
func (r *Registry) Cleanup() {
	for _, label := range r.Labels() {
		_ = r.Deregister(label)
	}
}
