package logger

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/c360/threadkit/errors"
	"github.com/c360/threadkit/event"
	"github.com/c360/threadkit/metric"
	"github.com/c360/threadkit/registry"
)

const (
	// Label is the registry label of the logger thread.
	Label = "LOGGER"

	// drainPoll is how long the drain loop blocks on an empty queue
	// before checking the shutdown flag and heartbeating.
	drainPoll = 100 * time.Millisecond

	// DefaultOthersWait bounds the logger's shutdown wait for every
	// other thread to reach a terminal state.
	DefaultOthersWait = 30 * time.Second
)

// Logger is the asynchronous log pipeline. Producers on any thread
// call Log; entries carry an index from a single atomic counter and
// flow through the LogQueue to the logger thread, which formats and
// writes them. Before the logger thread is running, and for entries
// evicted by an overflow purge, the producer writes synchronously
// under the writer's lock instead.
type Logger struct {
	queue  *LogQueue
	writer *Writer

	index     atomic.Uint64
	threshold atomic.Int32
	ready     *event.Event // manual-reset, set when the drain loop starts
	shutdown  *event.Event // manual-reset broadcast, shared process-wide

	reg        *registry.Registry
	metrics    *metric.Metrics
	othersWait time.Duration
}

// New creates a logger delivering to the given writer.
func New(writer *Writer, opts ...Option) *Logger {
	options := defaultLoggerOptions()
	for _, opt := range opts {
		opt(&options)
	}
	l := &Logger{
		queue:      NewLogQueue(options.queueCapacity, options.purgeCount),
		writer:     writer,
		ready:      event.New(event.ManualReset, false),
		shutdown:   options.shutdown,
		reg:        options.registry,
		metrics:    options.metrics,
		othersWait: options.othersWait,
	}
	if l.shutdown == nil {
		l.shutdown = event.New(event.ManualReset, false)
	}
	l.threshold.Store(int32(options.threshold))
	return l
}

// SetThreshold changes the minimum level accepted by Log.
func (l *Logger) SetThreshold(level Level) {
	l.threshold.Store(int32(level))
}

// Threshold returns the current minimum accepted level.
func (l *Logger) Threshold() Level {
	return Level(l.threshold.Load())
}

// Ready reports whether the drain loop has started. Producers do not
// need to check this; Log degrades to a synchronous write on its own.
func (l *Logger) Ready() bool {
	return l.ready.IsSet()
}

// Shutdown returns the process-wide shutdown event the drain loop
// watches. Setting it is idempotent.
func (l *Logger) Shutdown() *event.Event {
	return l.shutdown
}

// Log submits one entry. Entries below the threshold are dropped
// before any formatting or index assignment, so accepted indices stay
// contiguous.
func (l *Logger) Log(level Level, label, text string) {
	if level < l.Threshold() {
		return
	}

	e := Entry{
		Index: l.index.Add(1),
		Level: level,
		Time:  time.Now(),
		Label: label,
		Text:  text,
	}
	if l.metrics != nil {
		l.metrics.LogEntries.WithLabelValues(level.String()).Inc()
	}

	if !l.ready.IsSet() {
		// Logger thread not running yet: write synchronously.
		l.writer.Write(e)
		return
	}

	purged := l.queue.Push(e)
	if len(purged) > 0 {
		l.emitPurged(purged)
	}
}

// emitPurged writes overflow-evicted entries directly to the writer.
// This path deliberately never re-enters the queue: an overflow report
// that itself overflowed would recurse under sustained load.
func (l *Logger) emitPurged(purged []Entry) {
	if l.metrics != nil {
		l.metrics.LogQueueOverflows.Inc()
	}
	diag := Entry{
		Index: l.index.Add(1),
		Level: LevelWarn,
		Time:  time.Now(),
		Label: Label,
		Text:  fmt.Sprintf("log queue overflow, writing oldest %d entries immediately", len(purged)),
	}
	l.writer.WriteAll(append([]Entry{diag}, purged...))
}

// Logf is Log with formatting.
func (l *Logger) Logf(level Level, label, format string, args ...any) {
	if level < l.Threshold() {
		return
	}
	l.Log(level, label, fmt.Sprintf(format, args...))
}

// Tracef logs at trace level.
func (l *Logger) Tracef(label, format string, args ...any) {
	l.Logf(LevelTrace, label, format, args...)
}

// Debugf logs at debug level.
func (l *Logger) Debugf(label, format string, args ...any) {
	l.Logf(LevelDebug, label, format, args...)
}

// Infof logs at info level.
func (l *Logger) Infof(label, format string, args ...any) {
	l.Logf(LevelInfo, label, format, args...)
}

// Noticef logs at notice level.
func (l *Logger) Noticef(label, format string, args ...any) {
	l.Logf(LevelNotice, label, format, args...)
}

// Warnf logs at warn level.
func (l *Logger) Warnf(label, format string, args ...any) {
	l.Logf(LevelWarn, label, format, args...)
}

// Errorf logs at error level.
func (l *Logger) Errorf(label, format string, args ...any) {
	l.Logf(LevelError, label, format, args...)
}

// Criticalf logs at critical level.
func (l *Logger) Criticalf(label, format string, args ...any) {
	l.Logf(LevelCritical, label, format, args...)
}

// Fatalf logs at fatal level. Termination policy belongs to the
// caller; Fatalf itself only records.
func (l *Logger) Fatalf(label, format string, args ...any) {
	l.Logf(LevelFatal, label, format, args...)
}

// Run is the logger thread body: drain the queue until shutdown is
// requested, then wait for every other registered thread to finish,
// perform a final drain, and close the files. The logger exits last so
// no worker's entries are lost during shutdown.
func (l *Logger) Run() error {
	l.ready.Set()

	for {
		if l.reg != nil {
			l.reg.Heartbeat(Label)
		}
		e, err := l.queue.Pop(drainPoll)
		if err == nil {
			l.writer.Write(e)
			continue
		}
		if !errors.IsBackpressure(err) {
			break // queue closed out from under us
		}
		if l.shutdown.IsSet() {
			break
		}
	}

	if l.reg != nil {
		if err := l.reg.WaitForOthers(Label, l.othersWait); err != nil {
			l.Log(LevelWarn, Label, fmt.Sprintf("shutdown wait for other threads: %v", err))
		}
	}

	l.finalDrain()
	l.writer.Close()
	return nil
}

// finalDrain empties whatever accumulated while shutting down.
func (l *Logger) finalDrain() {
	var batch []Entry
	for {
		e, err := l.queue.Pop(0)
		if err != nil {
			break
		}
		batch = append(batch, e)
	}
	if len(batch) > 0 {
		l.writer.WriteAll(batch)
	}
}
