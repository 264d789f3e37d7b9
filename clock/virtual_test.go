package clock

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tempopipe/tempopipe/envelope"
)

func TestVirtualClockIdentityByDefault(t *testing.T) {
	origin := envelope.DateTime(1_000_000)
	v := NewVirtualClock(origin)
	real := origin.Add(5000)
	require.Equal(t, real, v.VirtualFromReal(real))
	require.Equal(t, real, v.RealFromVirtual(real))
}

func TestVirtualClockOffsetAndDilation(t *testing.T) {
	origin := envelope.DateTime(0)
	v := NewVirtualClock(origin)
	v.SetOffset(1000)
	v.SetDilation(2) // virtual time passes at half the real rate

	real := origin.Add(500)
	virt := v.VirtualFromReal(real)
	// elapsed=500, scaled=500*0.5=250, +offset 1000 = 1250
	require.Equal(t, envelope.DateTime(1250), virt)

	back := v.RealFromVirtual(virt)
	require.Equal(t, real, back)
}

func TestVirtualClockFrozenDilation(t *testing.T) {
	origin := envelope.DateTime(0)
	v := NewVirtualClock(origin)
	v.SetDilation(0)

	v1 := v.VirtualFromReal(origin.Add(100))
	v2 := v.VirtualFromReal(origin.Add(100000))
	require.Equal(t, v1, v2, "frozen clock must not advance")
}
