package logger

import (
	"bytes"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/threadkit/registry"
)

func newScreenLogger(screen *bytes.Buffer, opts ...Option) *Logger {
	w := NewWriter(WriterConfig{Destination: DestScreen, Screen: screen})
	return New(w, opts...)
}

func screenLines(screen *bytes.Buffer) []string {
	return strings.Split(strings.TrimSpace(screen.String()), "\n")
}

func TestLogBeforeRunWritesSynchronously(t *testing.T) {
	var screen bytes.Buffer
	l := newScreenLogger(&screen)

	l.Infof("MAIN", "early entry")
	assert.Contains(t, screen.String(), "INFO: [MAIN] early entry",
		"entries logged before the drain loop starts must be written by the producer")
}

func TestThresholdFiltersCheaply(t *testing.T) {
	var screen bytes.Buffer
	l := newScreenLogger(&screen, WithThreshold(LevelWarn))

	l.Infof("MAIN", "dropped")
	l.Warnf("MAIN", "kept one")
	l.Errorf("MAIN", "kept two")

	lines := screenLines(&screen)
	require.Len(t, lines, 2)

	// Dropped entries must not consume indices.
	assert.True(t, strings.HasPrefix(lines[0], "000000000001 "), "got %q", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "000000000002 "), "got %q", lines[1])
}

func TestSetThreshold(t *testing.T) {
	var screen bytes.Buffer
	l := newScreenLogger(&screen, WithThreshold(LevelError))

	l.Infof("MAIN", "dropped")
	l.SetThreshold(LevelDebug)
	l.Debugf("MAIN", "kept")

	lines := screenLines(&screen)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "DEBUG: [MAIN] kept")
}

func TestRunDrainsQueue(t *testing.T) {
	var screen bytes.Buffer
	l := newScreenLogger(&screen)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = l.Run()
	}()

	require.Eventually(t, l.Ready, time.Second, 5*time.Millisecond)

	for i := 0; i < 10; i++ {
		l.Infof("WORKER", "entry %d", i)
	}

	l.Shutdown().Set()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("logger did not exit after shutdown")
	}

	lines := screenLines(&screen)
	assert.Len(t, lines, 10, "no entries pushed before shutdown may be lost")
}

func TestIndexContiguityUnderContention(t *testing.T) {
	const producers = 8
	const perProducer = 200

	var screen bytes.Buffer
	l := newScreenLogger(&screen)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = l.Run()
	}()
	require.Eventually(t, l.Ready, time.Second, 5*time.Millisecond)

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				l.Infof("W", "p%d-%d", p, i)
			}
		}(p)
	}
	wg.Wait()

	l.Shutdown().Set()
	<-done

	lines := screenLines(&screen)
	require.Len(t, lines, producers*perProducer)

	indices := make([]uint64, 0, len(lines))
	for _, line := range lines {
		idx, err := strconv.ParseUint(line[:indexWidth], 10, 64)
		require.NoError(t, err)
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
	for i, idx := range indices {
		require.Equal(t, uint64(i+1), idx,
			"indices must form a contiguous range with no gaps or duplicates")
	}
}

func TestOverflowPurgeWritesOldestSynchronously(t *testing.T) {
	var screen bytes.Buffer
	l := newScreenLogger(&screen, WithQueueCapacity(4), WithPurgeCount(2))

	// Mark ready without starting the drain loop so pushes accumulate.
	l.ready.Set()

	for i := 0; i < 5; i++ {
		l.Infof("W", "entry %d", i)
	}

	out := screen.String()
	assert.Contains(t, out, "log queue overflow, writing oldest 2 entries immediately")
	assert.Contains(t, out, "[W] entry 0")
	assert.Contains(t, out, "[W] entry 1")
	assert.NotContains(t, out, "[W] entry 4", "new entry belongs to the queue, not the purge")
}

func TestShutdownWaitsForOtherThreads(t *testing.T) {
	reg := registry.New(nil)
	require.NoError(t, reg.Register(registry.Registration{Label: Label}))
	require.NoError(t, reg.Register(registry.Registration{Label: "WORKER"}))
	require.NoError(t, reg.UpdateState(Label, registry.StateRunning))
	require.NoError(t, reg.UpdateState("WORKER", registry.StateRunning))

	var screen bytes.Buffer
	w := NewWriter(WriterConfig{Destination: DestScreen, Screen: &screen})
	l := New(w, WithRegistry(reg), WithOthersWait(5*time.Second))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = l.Run()
	}()
	require.Eventually(t, l.Ready, time.Second, 5*time.Millisecond)

	l.Shutdown().Set()

	// The worker is still running: the logger must not exit yet.
	select {
	case <-done:
		t.Fatal("logger exited before other threads reached a terminal state")
	case <-time.After(300 * time.Millisecond):
	}

	// Entries logged during the shutdown window still land.
	l.Infof("WORKER", "final words")
	require.NoError(t, reg.UpdateState("WORKER", registry.StateTerminated))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("logger did not exit after all other threads terminated")
	}
	assert.Contains(t, screen.String(), "[WORKER] final words")
}
