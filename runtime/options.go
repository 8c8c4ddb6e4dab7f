package runtime

import (
	"io"
	"log/slog"
)

type runtimeOptions struct {
	diag   *slog.Logger
	screen io.Writer
	exit   func(int)
}

func defaultRuntimeOptions() runtimeOptions {
	return runtimeOptions{}
}

// Option configures a Runtime.
type Option func(*runtimeOptions)

// WithDiagnostics sets the structured logger used for the runtime's
// own diagnostics, distinct from the domain log pipeline.
func WithDiagnostics(diag *slog.Logger) Option {
	return func(o *runtimeOptions) { o.diag = diag }
}

// WithScreen overrides the screen writer of the log pipeline.
// Primarily for tests.
func WithScreen(w io.Writer) Option {
	return func(o *runtimeOptions) { o.screen = w }
}

// WithExitFunc overrides the function invoked on unrecoverable logging
// failure. Primarily for tests; defaults to os.Exit.
func WithExitFunc(exit func(int)) Option {
	return func(o *runtimeOptions) { o.exit = exit }
}
