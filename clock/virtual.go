package clock

import (
	"time"

	"github.com/tempopipe/tempopipe/envelope"
)

// VirtualClock maps real wall-clock time to a pipeline's virtual time
// via an origin, an additive offset, and a multiplicative dilation.
// A dilation of zero freezes virtual time; implementations must check
// for it rather than dividing by it.
type VirtualClock struct {
	realOrigin      envelope.DateTime
	virtualOffset   envelope.TimeSpan
	dilation        float64
	inverseDilation float64
}

// NewVirtualClock creates a VirtualClock anchored at realOrigin with no
// offset and unit dilation (real time passes at the same rate as
// virtual time).
func NewVirtualClock(realOrigin envelope.DateTime) *VirtualClock {
	return &VirtualClock{
		realOrigin:      realOrigin,
		dilation:        1,
		inverseDilation: 1,
	}
}

// SetOffset sets the additive virtual-time offset.
func (v *VirtualClock) SetOffset(offset envelope.TimeSpan) {
	v.virtualOffset = offset
}

// Offset returns the current virtual-time offset.
func (v *VirtualClock) Offset() envelope.TimeSpan {
	return v.virtualOffset
}

// SetDilation sets the dilation factor: virtual time advances at
// 1/dilation times the real rate, so a dilation of 2 halves its speed.
// A dilation of zero means virtual time does not advance.
func (v *VirtualClock) SetDilation(dilation float64) {
	v.dilation = dilation
	if dilation == 0 {
		v.inverseDilation = 0
		return
	}
	v.inverseDilation = 1 / dilation
}

// Dilation returns the current dilation factor.
func (v *VirtualClock) Dilation() float64 {
	return v.dilation
}

// Now returns the current virtual time:
// real_origin + (real_now - real_origin)*inverse_dilation + virtual_offset.
func (v *VirtualClock) Now() envelope.DateTime {
	return v.VirtualFromReal(envelope.FromTime(time.Now()))
}

// VirtualFromReal converts a real DateTime to virtual time using the
// clock's origin, dilation, and offset.
func (v *VirtualClock) VirtualFromReal(real envelope.DateTime) envelope.DateTime {
	elapsed := real.Sub(v.realOrigin)
	scaled := envelope.TimeSpan(float64(elapsed) * v.inverseDilation)
	return v.realOrigin.Add(scaled).Add(v.virtualOffset)
}

// RealFromVirtual converts a virtual DateTime back to real time, the
// symmetric inverse of VirtualFromReal. If the clock is frozen
// (dilation == 0) every virtual time maps back to realOrigin, since
// real time cannot be recovered from a frozen virtual instant.
func (v *VirtualClock) RealFromVirtual(virtual envelope.DateTime) envelope.DateTime {
	if v.dilation == 0 {
		return v.realOrigin
	}
	elapsedVirtual := virtual.Add(-v.virtualOffset).Sub(v.realOrigin)
	scaled := envelope.TimeSpan(float64(elapsedVirtual) * v.dilation)
	return v.realOrigin.Add(scaled)
}
