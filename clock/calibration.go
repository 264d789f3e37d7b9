// Package clock maps monotonic performance-counter ticks to wall-clock
// time with bounded drift (TickCalibration), and layers virtual-time
// offset/dilation on top of it (VirtualClock) -- spec §4.B.
package clock

import (
	"sync"

	"github.com/tempopipe/tempopipe/envelope"
)

// DefaultRingCapacity is the default bounded capacity of the calibration
// ring.
const DefaultRingCapacity = 512

// DefaultMaxDrift is the default threshold (in 100ns ticks, ~1ms) past
// which a new calibration point is inserted.
const DefaultMaxDrift envelope.TimeSpan = 10_000

// DefaultPrecision is the default threshold (in ticks) of acceptable
// counter delta during a sync sample.
const DefaultPrecision envelope.TimeSpan = 10

// point is one (ticks, file_time) calibration sample.
type point struct {
	ticks    int64
	fileTime envelope.DateTime
}

// TickCalibration maintains a bounded-capacity ring of calibration
// points correlating elapsed monotonic ticks with wall-clock file time,
// inserting a new point only when observed drift exceeds maxDrift, and
// always preserving monotonicity of the mapped file time.
type TickCalibration struct {
	mu        sync.Mutex
	ring      []point
	head      int // index of most recent point
	count     int
	capacity  int
	maxDrift  envelope.TimeSpan
	precision envelope.TimeSpan
	highWater envelope.DateTime
}

// NewTickCalibration creates a calibration ring with the given capacity,
// max-drift threshold, and sync precision. A zero capacity falls back to
// the package default; a negative maxDrift or precision falls back to
// its package default (zero is a legal, literal threshold for either).
func NewTickCalibration(capacity int, maxDrift, precision envelope.TimeSpan) *TickCalibration {
	if capacity <= 0 {
		capacity = DefaultRingCapacity
	}
	if maxDrift < 0 {
		maxDrift = DefaultMaxDrift
	}
	if precision < 0 {
		precision = DefaultPrecision
	}
	return &TickCalibration{
		ring:      make([]point, capacity),
		capacity:  capacity,
		maxDrift:  maxDrift,
		precision: precision,
	}
}

// at returns the i-th most recent point (0 = most recent).
func (c *TickCalibration) at(i int) point {
	idx := (c.head - i + c.capacity) % c.capacity
	return c.ring[idx]
}

// Sync samples a (ticks, fileTime, ticksAfter) triple; callers should
// take ticksBefore and ticksAfter immediately around reading fileTime.
// The sample is rejected (no-op) if the counter moved more than the
// configured precision while the clock was being read, modeling the
// source's rejection of noisy samples.
func (c *TickCalibration) Sync(ticksBefore int64, fileTime envelope.DateTime, ticksAfter int64) bool {
	delta := ticksAfter - ticksBefore
	if envelope.TimeSpan(delta) > c.precision {
		return false
	}
	ticks := (ticksBefore + ticksAfter) / 2
	c.insert(ticks, fileTime)
	return true
}

// insert adds a new calibration point if the drift between the observed
// file time and the file time projected from the most recent point
// exceeds maxDrift. The ring evicts its oldest point once full.
func (c *TickCalibration) insert(ticks int64, fileTime envelope.DateTime) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.count > 0 {
		last := c.at(0)
		projected := last.fileTime.Add(envelope.TimeSpan(ticks - last.ticks))
		drift := fileTime.Sub(projected)
		if drift < 0 {
			drift = -drift
		}
		if drift <= c.maxDrift {
			return
		}
	}

	// Preserve monotonicity: never let a new point's file time regress
	// below the high-water mark already handed out by ticksToFileTime.
	if fileTime < c.highWater {
		fileTime = c.highWater
	}

	c.head = (c.head + 1) % c.capacity
	c.ring[c.head] = point{ticks: ticks, fileTime: fileTime}
	if c.count < c.capacity {
		c.count++
	}
}

// TicksToFileTime maps elapsed ticks to wall-clock file time by walking
// the ring backwards from the most recent calibration to find the point
// whose tick value is <= ticks, adding the tick delta, and clamping to
// the next (older-in-index, newer-in-time) calibration's file time so
// the result never regresses.
func (c *TickCalibration) TicksToFileTime(ticks int64) envelope.DateTime {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.count == 0 {
		return 0
	}

	var chosen point
	chosenIdx := -1
	for i := 0; i < c.count; i++ {
		p := c.at(i)
		if p.ticks <= ticks {
			chosen = p
			chosenIdx = i
			break
		}
	}
	if chosenIdx < 0 {
		// Every point postdates ticks; use the oldest point we have.
		chosen = c.at(c.count - 1)
	}

	result := chosen.fileTime.Add(envelope.TimeSpan(ticks - chosen.ticks))
	if chosenIdx > 0 {
		if next := c.at(chosenIdx - 1); result > next.fileTime {
			result = next.fileTime
		}
	}

	if result > c.highWater {
		c.highWater = result
	} else {
		result = c.highWater
	}
	return result
}

// Len reports how many calibration points are currently held.
func (c *TickCalibration) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}
