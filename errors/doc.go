// Package errors provides standardized error handling for ThreadKit.
//
// # Overview
//
// The package implements a three-class error classification system:
// Transient (temporary, retryable), Invalid (bad input, non-retryable),
// and Fatal (unrecoverable, stop processing). Classification enables
// components to make informed retry and degradation decisions without
// error string matching.
//
// A fourth, orthogonal category matters in a queued runtime: backpressure.
// ErrQueueFull, ErrQueueEmpty and ErrTimeout are expected results of
// bounded operations, not failures. IsBackpressure identifies them so
// callers can treat them as "no work available" or "try again later"
// rather than logging them as errors.
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// Three wrapper functions provide classification-aware wrapping:
//
//	errors.WrapTransient(err, "Registry", "Register", "allocate queue")
//	errors.WrapInvalid(err, "Registry", "UpdateState", "validate transition")
//	errors.WrapFatal(err, "Logger", "openLogFile", "open after 100 failures")
//
// # Standard Error Variables
//
// Pre-defined variables cover the runtime's taxonomy:
//
//   - Lookup: ErrNotFound, ErrDuplicateLabel, ErrInvalidArgument
//   - Lifecycle: ErrInvalidTransition, ErrCreationFailed, ErrRegistrationFailed
//   - Backpressure: ErrQueueFull, ErrQueueEmpty, ErrTimeout
//   - Ordering: ErrLoggerTimeout
//
// All types support errors.Is, errors.As and wrapping chains; context
// cancellation errors are classified as transient automatically.
package errors
