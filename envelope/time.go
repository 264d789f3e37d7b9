// Package envelope defines the wire-exact message header used by every
// stream in the pipeline, the tick-based DateTime representation it is
// built from, and the buffer codec that reads and writes it.
package envelope

import "time"

// ticksPerSecond is the number of 100ns ticks in one second.
const ticksPerSecond = 10_000_000

// epoch is January 1, year 1, 00:00:00 UTC -- the fixed origin DateTime
// ticks are counted from, matching the on-disk and on-wire contract.
var epoch = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)

// DateTime is a 64-bit count of 100ns ticks since the fixed epoch. It is
// the wire representation used by Envelope and everywhere a timestamp
// crosses the buffer codec boundary.
type DateTime int64

// Zero is the sentinel "unset" DateTime.
const Zero DateTime = 0

// MinDateTime and MaxDateTime bound the representable range and back the
// MinValue/MaxValue sentinels used by TimeInterval.
const (
	MinDateTime DateTime = 0
	MaxDateTime DateTime = 1<<63 - 1
)

// Now returns the current wall-clock time as a DateTime.
func Now() DateTime {
	return FromTime(time.Now())
}

// FromTime converts a time.Time to a DateTime, truncating to 100ns
// resolution.
func FromTime(t time.Time) DateTime {
	secs := t.Unix() - epoch.Unix()
	return DateTime(secs*ticksPerSecond + int64(t.Nanosecond())/100)
}

// Time converts a DateTime back to a time.Time.
func (d DateTime) Time() time.Time {
	secs := int64(d) / ticksPerSecond
	rem := int64(d) % ticksPerSecond
	return time.Unix(epoch.Unix()+secs, rem*100).UTC()
}

// Add returns d advanced by the given duration, expressed in 100ns ticks.
func (d DateTime) Add(span TimeSpan) DateTime {
	return d + DateTime(span)
}

// Sub returns the TimeSpan between d and o (d - o).
func (d DateTime) Sub(o DateTime) TimeSpan {
	return TimeSpan(d - o)
}

func (d DateTime) String() string {
	return d.Time().Format(time.RFC3339Nano)
}

// TimeSpan is a signed duration expressed in 100ns ticks, used for
// relative offsets (window bounds, max span, latency budgets).
type TimeSpan int64

// TimeSpanFromDuration converts a time.Duration to a TimeSpan.
func TimeSpanFromDuration(d time.Duration) TimeSpan {
	return TimeSpan(d.Nanoseconds() / 100)
}

// Duration converts a TimeSpan back to a time.Duration.
func (s TimeSpan) Duration() time.Duration {
	return time.Duration(int64(s) * 100)
}
