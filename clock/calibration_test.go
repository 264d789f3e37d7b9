package clock

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tempopipe/tempopipe/envelope"
)

func TestTicksToFileTimeMonotonic(t *testing.T) {
	c := NewTickCalibration(4, 100, 10)
	c.insert(0, 1000)
	c.insert(1000, 2000)
	c.insert(2000, 2900) // drift within projection, but still distinct ticks

	var last envelope.DateTime
	for _, ticks := range []int64{-10, 0, 500, 1000, 1500, 2000, 2500, 3000} {
		ft := c.TicksToFileTime(ticks)
		require.GreaterOrEqual(t, int64(ft), int64(last))
		last = ft
	}
}

func TestCalibrationRingEvictsOldest(t *testing.T) {
	c := NewTickCalibration(3, 0, 0)
	for i := 0; i < 10; i++ {
		// Advance fileTime faster than ticks so drift exceeds the
		// zero threshold every iteration and a point is always inserted.
		c.insert(int64(i*1_000_000), envelope.DateTime(i*2_000_000))
	}
	require.Equal(t, 3, c.Len())
	// The most recent ticks must still resolve sensibly.
	ft := c.TicksToFileTime(9_000_000)
	require.Equal(t, envelope.DateTime(18_000_000), ft)
}

func TestInsertShiftsRegressingFileTimeForward(t *testing.T) {
	c := NewTickCalibration(4, 0, 0)
	c.insert(0, 5000)
	c.TicksToFileTime(0) // bump high-water mark to 5000
	// A later point whose observed file time would regress below the
	// high-water mark must be shifted forward, not allowed to regress.
	c.insert(1000, 4000)
	ft := c.TicksToFileTime(1000)
	require.GreaterOrEqual(t, int64(ft), int64(5000))
}

func TestSyncRejectsNoisySample(t *testing.T) {
	c := NewTickCalibration(4, 0, 5)
	ok := c.Sync(0, 1000, 100) // delta 100 > precision 5
	require.False(t, ok)
	require.Equal(t, 0, c.Len())

	ok = c.Sync(0, 1000, 2)
	require.True(t, ok)
	require.Equal(t, 1, c.Len())
}
