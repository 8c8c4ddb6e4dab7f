package logger

import (
	"fmt"
	"strings"
	"time"

	"github.com/c360/threadkit/errors"
)

// Granularity selects how much of the sub-second timestamp is printed.
type Granularity int

const (
	GranularitySecond Granularity = iota
	GranularityMilli
	GranularityMicro
	GranularityNano
)

// fractionalWidth is the number of sub-second digits printed.
func (g Granularity) fractionalWidth() int {
	switch g {
	case GranularityMilli:
		return 3
	case GranularityMicro:
		return 6
	case GranularityNano:
		return 9
	default:
		return 0
	}
}

// ParseGranularity converts a granularity name ("second", "millisecond",
// "microsecond", "nanosecond") to a Granularity, case-insensitively.
func ParseGranularity(name string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "second", "sec":
		return GranularitySecond, nil
	case "millisecond", "milli", "ms":
		return GranularityMilli, nil
	case "microsecond", "micro", "us":
		return GranularityMicro, nil
	case "nanosecond", "nano", "ns":
		return GranularityNano, nil
	}
	return GranularityNano, errors.WrapInvalid(errors.ErrInvalidArgument, "Logger", "ParseGranularity",
		fmt.Sprintf("parse %q", name))
}

// indexWidth is the zero-padded width of the entry index in formatted
// output, chosen so indices sort lexically for a process's lifetime.
const indexWidth = 12

// Entry is one record in the log pipeline. Indices come from a single
// atomic counter, so the consumer observes a total order across all
// producing threads.
type Entry struct {
	Index uint64
	Level Level
	Time  time.Time
	Label string
	Text  string
}

// Format renders the entry as a single output line:
//
//	000000000042 2026-08-28 10:15:02.123456789 INFO: [SERVER.SEND] sent 14 bytes
func (e Entry) Format(g Granularity) string {
	stamp := e.Time.Format("2006-01-02 15:04:05")
	if width := g.fractionalWidth(); width > 0 {
		frac := e.Time.Nanosecond() / divisorFor(width)
		stamp = fmt.Sprintf("%s.%0*d", stamp, width, frac)
	}
	return fmt.Sprintf("%0*d %s %s: [%s] %s", indexWidth, e.Index, stamp, e.Level, e.Label, e.Text)
}

func divisorFor(width int) int {
	d := 1
	for i := width; i < 9; i++ {
		d *= 10
	}
	return d
}
