package temporal

import "github.com/tempopipe/tempopipe/envelope"

// Exact requires a secondary whose originating time equals t exactly.
type Exact[S any] struct {
	reproducibleMarker
}

var _ Interpolator[int, int] = Exact[int]{}

func (Exact[S]) Interpolate(t envelope.DateTime, secondaries []envelope.Message[S], closed bool) Result[S] {
	for _, m := range secondaries {
		if m.Envelope.OriginatingTime == t {
			return Created(m.Payload, t)
		}
		if m.Envelope.OriginatingTime > t {
			return DoesNotExist[S](t)
		}
	}
	if closed {
		return DoesNotExist[S](t)
	}
	return InsufficientData[S]()
}

// ExactOrDefault substitutes Default whenever the wrapped Exact
// interpolator would report DoesNotExist.
type ExactOrDefault[S any] struct {
	reproducibleMarker
	Default S
}

var _ Interpolator[int, int] = ExactOrDefault[int]{}

func (e ExactOrDefault[S]) Interpolate(t envelope.DateTime, secondaries []envelope.Message[S], closed bool) Result[S] {
	r := Exact[S]{}.Interpolate(t, secondaries, closed)
	if r.Outcome == OutcomeDoesNotExist {
		return Created(e.Default, r.ObsoleteTime)
	}
	return r
}
