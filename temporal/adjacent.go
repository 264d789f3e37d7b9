package temporal

import "github.com/tempopipe/tempopipe/envelope"

// AdjacentValues interpolates between the nearest secondary before t and
// the nearest at-or-after t, weighting them by how far t sits between
// their originating times.
type AdjacentValues[S, I any] struct {
	reproducibleMarker

	// Combine maps the bracketing pair and the [0,1] ratio between them
	// to an interpolated value.
	Combine func(before, after S, ratio float64) I
	// MaxSpan bounds how far apart the bracketing pair may be; exceeding
	// it yields DoesNotExist rather than a wild extrapolation.
	MaxSpan envelope.TimeSpan
	// Default, when non-nil, is returned (as Created) instead of
	// DoesNotExist once the stream closes with no bracketing pair
	// available — the AdjacentValuesOrDefault variant.
	Default *I
}

var _ Interpolator[int, int] = AdjacentValues[int, int]{}
var _ Reproducible = AdjacentValues[int, int]{}

func (a AdjacentValues[S, I]) Interpolate(t envelope.DateTime, secondaries []envelope.Message[S], closed bool) Result[I] {
	var before, after envelope.Message[S]
	haveBefore, haveAfter := false, false

	for _, m := range secondaries {
		if m.Envelope.OriginatingTime <= t {
			before = m
			haveBefore = true
			continue
		}
		after = m
		haveAfter = true
		break
	}
	// exact match counts as the "after" bracket equal to t itself.
	if haveBefore && before.Envelope.OriginatingTime == t {
		after = before
		haveAfter = true
	}

	if !haveAfter {
		if !closed {
			return InsufficientData[I]()
		}
		if a.Default != nil {
			obsolete := envelope.MinDateTime
			if haveBefore {
				obsolete = before.Envelope.OriginatingTime
			}
			return Created(*a.Default, obsolete)
		}
		obsolete := envelope.MinDateTime
		if haveBefore {
			obsolete = before.Envelope.OriginatingTime
		}
		return DoesNotExist[I](obsolete)
	}

	if after.Envelope.OriginatingTime == t {
		return Created(a.Combine(after.Payload, after.Payload, 0), t)
	}

	if !haveBefore {
		// no left bracket yet and the right bracket is already past t:
		// a value can never be constructed for t.
		return DoesNotExist[I](envelope.MinDateTime)
	}

	span := after.Envelope.OriginatingTime.Sub(before.Envelope.OriginatingTime)
	if a.MaxSpan > 0 && span > a.MaxSpan {
		return DoesNotExist[I](before.Envelope.OriginatingTime)
	}

	ratio := float64(t.Sub(before.Envelope.OriginatingTime)) / float64(span)
	return Created(a.Combine(before.Payload, after.Payload, ratio), before.Envelope.OriginatingTime)
}
