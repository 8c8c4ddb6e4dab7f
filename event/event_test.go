package event

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/threadkit/errors"
)

func TestManualResetInitialState(t *testing.T) {
	unsignaled := New(ManualReset, false)
	assert.False(t, unsignaled.IsSet())
	assert.ErrorIs(t, unsignaled.Wait(0), errors.ErrTimeout)

	signaled := New(ManualReset, true)
	assert.True(t, signaled.IsSet())
	require.NoError(t, signaled.Wait(0))
	// Manual-reset stays signaled after a wait
	require.NoError(t, signaled.Wait(0))
}

func TestManualResetBroadcast(t *testing.T) {
	e := New(ManualReset, false)

	const waiters = 8
	var released atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := e.Wait(2 * time.Second); err == nil {
				released.Add(1)
			}
		}()
	}

	time.Sleep(20 * time.Millisecond)
	e.Set()
	wg.Wait()

	assert.Equal(t, int32(waiters), released.Load(), "Set must release every waiter")
}

func TestManualResetClear(t *testing.T) {
	e := New(ManualReset, true)
	e.Clear()
	assert.False(t, e.IsSet())
	assert.ErrorIs(t, e.Wait(0), errors.ErrTimeout)
}

func TestAutoResetSingleWake(t *testing.T) {
	e := New(AutoReset, false)

	const waiters = 4
	results := make(chan error, waiters)
	for i := 0; i < waiters; i++ {
		go func() {
			results <- e.Wait(500 * time.Millisecond)
		}()
	}

	time.Sleep(20 * time.Millisecond)
	e.Set()

	var ok, timedOut int
	for i := 0; i < waiters; i++ {
		if err := <-results; err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, errors.ErrTimeout)
			timedOut++
		}
	}
	assert.Equal(t, 1, ok, "auto-reset Set must wake exactly one waiter")
	assert.Equal(t, waiters-1, timedOut)
}

func TestAutoResetLatchesWhenNoWaiter(t *testing.T) {
	e := New(AutoReset, false)
	e.Set()
	require.NoError(t, e.Wait(0))
	// Consumed by the wait above
	assert.ErrorIs(t, e.Wait(0), errors.ErrTimeout)
}

func TestAutoResetSetIsIdempotentWhileSignaled(t *testing.T) {
	e := New(AutoReset, false)
	e.Set()
	e.Set()
	require.NoError(t, e.Wait(0))
	assert.ErrorIs(t, e.Wait(0), errors.ErrTimeout, "repeated Set must not accumulate permits")
}

func TestWaitTimeoutRoughlyHonored(t *testing.T) {
	e := New(ManualReset, false)
	start := time.Now()
	err := e.Wait(50 * time.Millisecond)
	assert.ErrorIs(t, err, errors.ErrTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestWaitForever(t *testing.T) {
	e := New(ManualReset, false)
	done := make(chan error, 1)
	go func() { done <- e.Wait(Forever) }()

	time.Sleep(20 * time.Millisecond)
	e.Set()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Wait(Forever) did not return after Set")
	}
}

func TestAutoResetStress(t *testing.T) {
	e := New(AutoReset, false)

	const rounds = 200
	var got atomic.Int32
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			if err := e.Wait(2 * time.Second); err == nil {
				got.Add(1)
			}
		}
	}()

	for i := 0; i < rounds; i++ {
		e.Set()
		// Let the consumer drain the latched permit before the next Set
		// so permits are not coalesced.
		for e.IsSet() {
			time.Sleep(time.Millisecond)
		}
	}
	wg.Wait()

	assert.Equal(t, int32(rounds), got.Load())
}
