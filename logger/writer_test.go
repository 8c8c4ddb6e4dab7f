package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntry(label, text string) Entry {
	return Entry{
		Index: 1,
		Level: LevelInfo,
		Time:  time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC),
		Label: label,
		Text:  text,
	}
}

func TestParseDestination(t *testing.T) {
	d, err := ParseDestination("Both")
	require.NoError(t, err)
	assert.Equal(t, DestBoth, d)

	_, err = ParseDestination("printer")
	assert.Error(t, err)
}

func TestWriterScreenOnly(t *testing.T) {
	var screen bytes.Buffer
	w := NewWriter(WriterConfig{Destination: DestScreen, Screen: &screen})

	w.Write(testEntry("MAIN", "hello"))

	assert.Contains(t, screen.String(), "INFO: [MAIN] hello")
	entries, _ := os.ReadDir(".")
	for _, e := range entries {
		assert.NotEqual(t, DefaultAppFile, e.Name(), "screen-only writer must not create files")
	}
}

func TestWriterSharedFileFallback(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(WriterConfig{Destination: DestFile, Dir: dir})
	defer w.Close()

	w.Write(testEntry("UNROUTED", "to shared file"))
	w.Close()

	data, err := os.ReadFile(filepath.Join(dir, DefaultAppFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "[UNROUTED] to shared file")
}

func TestWriterHierarchicalRouting(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(WriterConfig{
		Destination: DestFile,
		Dir:         dir,
		Routes:      map[string]string{"server": "server.log"},
	})
	defer w.Close()

	// Child label falls back to the parent's route.
	w.Write(testEntry("SERVER.SEND", "sent"))
	w.Write(testEntry("SERVER.RECEIVE", "received"))
	w.Write(testEntry("CLIENT", "connected"))
	w.Close()

	server, err := os.ReadFile(filepath.Join(dir, "server.log"))
	require.NoError(t, err)
	assert.Contains(t, string(server), "[SERVER.SEND] sent")
	assert.Contains(t, string(server), "[SERVER.RECEIVE] received")
	assert.NotContains(t, string(server), "CLIENT")

	shared, err := os.ReadFile(filepath.Join(dir, DefaultAppFile))
	require.NoError(t, err)
	assert.Contains(t, string(shared), "[CLIENT] connected")
}

func TestWriterRotation(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(WriterConfig{
		Destination: DestFile,
		Dir:         dir,
		MaxFileSize: 64, // force rotation quickly
	})
	defer w.Close()

	for i := 0; i < 10; i++ {
		w.Write(testEntry("MAIN", strings.Repeat("x", 40)))
	}
	w.Close()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	rotated := 0
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".old") {
			rotated++
		}
	}
	assert.Greater(t, rotated, 0, "expected at least one rotated file")

	// The live file was reopened fresh after the last rotation.
	info, err := os.Stat(filepath.Join(dir, DefaultAppFile))
	require.NoError(t, err)
	assert.Less(t, info.Size(), int64(64+200))
}

func TestWriterDegradesToScreenOnFileFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "notadir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	var screen bytes.Buffer
	w := NewWriter(WriterConfig{
		Destination: DestFile, // file-only, but the path is unusable
		Screen:      &screen,
		Dir:         filepath.Join(blocker, "sub"),
		Exit:        func(int) { t.Fatal("must not exit on a single failure") },
	})
	defer w.Close()

	w.Write(testEntry("MAIN", "still visible"))
	assert.Contains(t, screen.String(), "[MAIN] still visible")
}

func TestWriterExitsAfterMaxFailures(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "notadir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	var screen bytes.Buffer
	exitCode := -1
	w := NewWriter(WriterConfig{
		Destination: DestFile,
		Screen:      &screen,
		Dir:         filepath.Join(blocker, "sub"),
		Exit:        func(code int) { exitCode = code },
	})
	defer w.Close()

	for i := 0; i < MaxLogFailures; i++ {
		w.Write(testEntry("MAIN", "doomed"))
	}

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, screen.String(), "unrecoverable failure to open log file")
}
