package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClassString(t *testing.T) {
	tests := []struct {
		class ErrorClass
		want  string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(99), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.class.String())
	}
}

func TestIsBackpressure(t *testing.T) {
	assert.True(t, IsBackpressure(ErrQueueFull))
	assert.True(t, IsBackpressure(ErrQueueEmpty))
	assert.True(t, IsBackpressure(ErrTimeout))
	assert.True(t, IsBackpressure(fmt.Errorf("push: %w", ErrQueueFull)))

	assert.False(t, IsBackpressure(ErrNotFound))
	assert.False(t, IsBackpressure(nil))
}

func TestClassifyStandardErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"queue full is transient", ErrQueueFull, ErrorTransient},
		{"timeout is transient", ErrTimeout, ErrorTransient},
		{"context deadline is transient", context.DeadlineExceeded, ErrorTransient},
		{"duplicate label is invalid", ErrDuplicateLabel, ErrorInvalid},
		{"invalid transition is invalid", ErrInvalidTransition, ErrorInvalid},
		{"resource exhaustion is fatal", ErrResourceExhausted, ErrorFatal},
		{"creation failure is fatal", ErrCreationFailed, ErrorFatal},
		{"unknown defaults to transient", New("mystery"), ErrorTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestWrapFormat(t *testing.T) {
	base := New("boom")
	err := Wrap(base, "Registry", "Register", "allocate queue")
	require.Error(t, err)
	assert.Equal(t, "Registry.Register: allocate queue failed: boom", err.Error())
	assert.True(t, Is(err, base))

	assert.NoError(t, Wrap(nil, "Registry", "Register", "noop"))
}

func TestWrapPreservesClassification(t *testing.T) {
	err := WrapInvalid(ErrInvalidTransition, "Registry", "UpdateState", "validate")
	assert.True(t, IsInvalid(err))
	assert.True(t, Is(err, ErrInvalidTransition))

	var ce *ClassifiedError
	require.True(t, As(err, &ce))
	assert.Equal(t, ErrorInvalid, ce.Class)
	assert.Equal(t, "Registry", ce.Component)

	fatal := WrapFatal(New("disk gone"), "Logger", "openLogFile", "open")
	assert.True(t, IsFatal(fatal))
	assert.False(t, IsTransient(fatal))

	transient := WrapTransient(New("flaky"), "Watchdog", "restart", "spawn")
	assert.True(t, IsTransient(transient))
}
