package timestamp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoundTrip(t *testing.T) {
	orig := time.Date(2026, 8, 28, 14, 53, 5, 123000000, time.UTC)
	ms := ToUnixMs(orig)
	assert.Equal(t, orig, FromUnixMs(ms))
}

func TestZeroSemantics(t *testing.T) {
	assert.Equal(t, int64(0), ToUnixMs(time.Time{}))
	assert.True(t, FromUnixMs(0).IsZero())
	assert.Equal(t, "", Format(0))
}

func TestFormat(t *testing.T) {
	ms := ToUnixMs(time.Date(2023, 1, 15, 12, 30, 45, 0, time.UTC))
	assert.Equal(t, "2023-01-15T12:30:45Z", Format(ms))
}

func TestSuffix(t *testing.T) {
	ms := ToUnixMs(time.Date(2026, 8, 28, 14, 53, 5, 0, time.UTC))
	assert.Equal(t, "20260828_145305", Suffix(ms))
}

func TestSinceNeverIsStale(t *testing.T) {
	assert.Greater(t, Since(0), 100*365*24*time.Hour)
}

func TestSinceRecent(t *testing.T) {
	assert.Less(t, Since(Now()), time.Second)
}
