package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/c360/threadkit/errors"
	"github.com/c360/threadkit/pkg/timestamp"
)

// Destination selects where formatted entries go.
type Destination int

const (
	// DestScreen writes to the screen writer only.
	DestScreen Destination = iota
	// DestFile writes to log files only.
	DestFile
	// DestBoth writes to both.
	DestBoth
)

// ParseDestination converts a destination name to a Destination,
// case-insensitively.
func ParseDestination(name string) (Destination, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "screen", "stderr":
		return DestScreen, nil
	case "file":
		return DestFile, nil
	case "both":
		return DestBoth, nil
	}
	return DestScreen, errors.WrapInvalid(errors.ErrInvalidArgument, "Logger", "ParseDestination",
		fmt.Sprintf("parse %q", name))
}

const (
	// MaxLogFailures is the number of consecutive file-open failures
	// after which logging is treated as unrecoverable and the process
	// terminates deliberately.
	MaxLogFailures = 100

	// DefaultMaxFileSize is the rotation threshold.
	DefaultMaxFileSize = 10 << 20 // 10 MiB

	// DefaultAppFile is the shared application log file used for
	// threads without a route of their own.
	DefaultAppFile = "app.log"
)

// WriterConfig configures a Writer. Zero values select defaults.
type WriterConfig struct {
	Destination Destination
	Screen      io.Writer         // default os.Stderr
	Dir         string            // log directory, default "."
	AppFile     string            // shared log file name
	Routes      map[string]string // thread label -> file name
	MaxFileSize int64
	Granularity Granularity
	Exit        func(int) // default os.Exit, replaceable in tests
}

// logFile is one open target file and its running size.
type logFile struct {
	name string
	f    *os.File
	size int64
}

// Writer formats entries and delivers them to the screen and/or
// per-thread log files. All file-handle state is guarded by a single
// mutex; this is the only lock in the logging domain.
//
// Routing walks the `.`-separated label hierarchy upward: an entry from
// "SERVER.SEND" uses the route for "SERVER.SEND" if present, else
// "SERVER", else the shared application file.
type Writer struct {
	mu          sync.Mutex
	dest        Destination
	screen      io.Writer
	dir         string
	appFile     string
	routes      map[string]string // normalized label -> file name
	files       map[string]*logFile
	maxFileSize int64
	granularity Granularity
	failures    int // consecutive open failures
	exit        func(int)
}

// NewWriter creates a writer from the given configuration.
func NewWriter(cfg WriterConfig) *Writer {
	w := &Writer{
		dest:        cfg.Destination,
		screen:      cfg.Screen,
		dir:         cfg.Dir,
		appFile:     cfg.AppFile,
		routes:      make(map[string]string, len(cfg.Routes)),
		files:       make(map[string]*logFile),
		maxFileSize: cfg.MaxFileSize,
		granularity: cfg.Granularity,
		exit:        cfg.Exit,
	}
	if w.screen == nil {
		w.screen = os.Stderr
	}
	if w.dir == "" {
		w.dir = "."
	}
	if w.appFile == "" {
		w.appFile = DefaultAppFile
	}
	if w.maxFileSize <= 0 {
		w.maxFileSize = DefaultMaxFileSize
	}
	if w.exit == nil {
		w.exit = os.Exit
	}
	for label, name := range cfg.Routes {
		w.routes[strings.ToUpper(strings.TrimSpace(label))] = name
	}
	return w
}

// Write formats and delivers a single entry.
func (w *Writer) Write(e Entry) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writeLocked(e)
}

// WriteAll delivers a batch of entries under one lock acquisition.
// Used for overflow purges and the final shutdown drain.
func (w *Writer) WriteAll(entries []Entry) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, e := range entries {
		w.writeLocked(e)
	}
}

func (w *Writer) writeLocked(e Entry) {
	line := e.Format(w.granularity)

	toScreen := w.dest == DestScreen || w.dest == DestBoth
	if w.dest == DestFile || w.dest == DestBoth {
		if err := w.writeFileLocked(e.Label, line); err != nil {
			// Degrade to screen rather than losing the entry.
			toScreen = true
		}
	}
	if toScreen {
		fmt.Fprintln(w.screen, line)
	}
}

func (w *Writer) writeFileLocked(label, line string) error {
	name := w.resolveRoute(label)
	lf, err := w.openLocked(name)
	if err != nil {
		return err
	}
	if err := w.rotateLocked(lf); err != nil {
		return err
	}
	n, err := fmt.Fprintln(lf.f, line)
	if err != nil {
		return err
	}
	lf.size += int64(n)
	return nil
}

// resolveRoute maps a thread label to a file name, falling back
// through the label's parents and finally to the shared file.
func (w *Writer) resolveRoute(label string) string {
	key := strings.ToUpper(strings.TrimSpace(label))
	for key != "" {
		if name, ok := w.routes[key]; ok {
			return name
		}
		i := strings.LastIndex(key, ".")
		if i < 0 {
			break
		}
		key = key[:i]
	}
	return w.appFile
}

func (w *Writer) openLocked(name string) (*logFile, error) {
	lf := w.files[name]
	if lf != nil && lf.f != nil {
		return lf, nil
	}
	if lf == nil {
		lf = &logFile{name: name}
		w.files[name] = lf
	}

	path := filepath.Join(w.dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, w.openFailedLocked(name, err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, w.openFailedLocked(name, err)
	}
	w.failures = 0
	lf.f = f
	if info, err := f.Stat(); err == nil {
		lf.size = info.Size()
	}
	return lf, nil
}

// openFailedLocked counts a consecutive open failure. A process that
// cannot log its own state is not safely operable, so after
// MaxLogFailures the process terminates with a screen diagnostic
// instead of spinning forever.
func (w *Writer) openFailedLocked(name string, err error) error {
	w.failures++
	if w.failures >= MaxLogFailures {
		fmt.Fprintf(w.screen, "unrecoverable failure to open log file %s after %d attempts: %v, exiting\n",
			name, w.failures, err)
		w.exit(1)
	}
	return errors.Wrap(err, "Writer", "open", fmt.Sprintf("open log file %s", name))
}

// rotateLocked renames the file with a timestamp suffix once it
// exceeds the size threshold and reopens it fresh. A rotation failure
// degrades that write to screen-only instead of blocking or crashing.
func (w *Writer) rotateLocked(lf *logFile) error {
	if lf.size < w.maxFileSize {
		return nil
	}
	_ = lf.f.Close()
	lf.f = nil

	path := filepath.Join(w.dir, lf.name)
	rotated := path + "." + timestamp.Suffix(timestamp.Now()) + ".old"
	if err := os.Rename(path, rotated); err != nil {
		return errors.Wrap(err, "Writer", "rotate", fmt.Sprintf("rename %s", lf.name))
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return w.openFailedLocked(lf.name, err)
	}
	lf.f = f
	lf.size = 0
	return nil
}

// Close flushes and closes every open log file.
func (w *Writer) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, lf := range w.files {
		if lf.f != nil {
			_ = lf.f.Close()
			lf.f = nil
		}
	}
}
