package temporal

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tempopipe/tempopipe/envelope"
)

func msg(t int64, v int) envelope.Message[int] {
	return envelope.NewMessage(v, envelope.Envelope{OriginatingTime: envelope.DateTime(t)})
}

func TestAdjacentValuesInterpolatesBetweenBracket(t *testing.T) {
	interp := AdjacentValues[int, float64]{
		Combine: func(a, b int, ratio float64) float64 { return float64(a) + ratio*float64(b-a) },
		MaxSpan: 100,
	}
	secondaries := []envelope.Message[int]{msg(0, 0), msg(10, 100)}
	r := interp.Interpolate(envelope.DateTime(5), secondaries, false)
	require.Equal(t, OutcomeCreated, r.Outcome)
	require.InDelta(t, 50.0, r.Value, 0.001)
}

func TestAdjacentValuesExactMatchUsesSingleValue(t *testing.T) {
	interp := AdjacentValues[int, float64]{Combine: func(a, b int, ratio float64) float64 { return float64(a) }}
	secondaries := []envelope.Message[int]{msg(0, 0), msg(5, 42), msg(10, 100)}
	r := interp.Interpolate(envelope.DateTime(5), secondaries, false)
	require.Equal(t, OutcomeCreated, r.Outcome)
	require.Equal(t, 42.0, r.Value)
}

func TestAdjacentValuesInsufficientDataWithoutUpperBracket(t *testing.T) {
	interp := AdjacentValues[int, float64]{Combine: func(a, b int, ratio float64) float64 { return 0 }}
	secondaries := []envelope.Message[int]{msg(0, 0)}
	r := interp.Interpolate(envelope.DateTime(5), secondaries, false)
	require.Equal(t, OutcomeInsufficientData, r.Outcome)
}

func TestAdjacentValuesDoesNotExistOnClose(t *testing.T) {
	interp := AdjacentValues[int, float64]{Combine: func(a, b int, ratio float64) float64 { return 0 }}
	secondaries := []envelope.Message[int]{msg(0, 0)}
	r := interp.Interpolate(envelope.DateTime(5), secondaries, true)
	require.Equal(t, OutcomeDoesNotExist, r.Outcome)
}

func TestAdjacentValuesExceedsMaxSpan(t *testing.T) {
	interp := AdjacentValues[int, float64]{
		Combine: func(a, b int, ratio float64) float64 { return 0 },
		MaxSpan: 5,
	}
	secondaries := []envelope.Message[int]{msg(0, 0), msg(100, 100)}
	r := interp.Interpolate(envelope.DateTime(50), secondaries, false)
	require.Equal(t, OutcomeDoesNotExist, r.Outcome)
}

func TestExactRequiresExactMatch(t *testing.T) {
	e := Exact[string]{}
	full := []envelope.Message[string]{
		envelope.NewMessage("a", envelope.Envelope{OriginatingTime: 1}),
		envelope.NewMessage("b", envelope.Envelope{OriginatingTime: 5}),
	}
	require.Equal(t, OutcomeCreated, e.Interpolate(5, full, false).Outcome)

	// only a secondary strictly before t has arrived: still waiting.
	notYet := full[:1]
	require.Equal(t, OutcomeInsufficientData, e.Interpolate(3, notYet, false).Outcome)

	// a secondary strictly after t has already arrived: t=3 can never match.
	require.Equal(t, OutcomeDoesNotExist, e.Interpolate(3, full, false).Outcome)
}

func TestExactOrDefaultSubstitutes(t *testing.T) {
	e := ExactOrDefault[string]{Default: "fallback"}
	secondaries := []envelope.Message[string]{
		envelope.NewMessage("a", envelope.Envelope{OriginatingTime: 1}),
	}
	r := e.Interpolate(5, secondaries, true)
	require.Equal(t, OutcomeCreated, r.Outcome)
	require.Equal(t, "fallback", r.Value)
}
