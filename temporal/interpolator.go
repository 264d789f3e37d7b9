package temporal

import "github.com/tempopipe/tempopipe/envelope"

// Outcome classifies an interpolator's verdict for a target time.
type Outcome int

const (
	// OutcomeInsufficientData means more secondary messages are needed
	// before a verdict can be reached.
	OutcomeInsufficientData Outcome = iota
	// OutcomeCreated means a value was produced.
	OutcomeCreated
	// OutcomeDoesNotExist means no value exists at the target time and
	// none ever will.
	OutcomeDoesNotExist
)

// Result is what an Interpolator returns for one target originating
// time: a verdict, the value when Created, and the time before which
// queued secondaries may be safely discarded.
type Result[I any] struct {
	Outcome      Outcome
	Value        I
	ObsoleteTime envelope.DateTime
}

// Created builds a successful result.
func Created[I any](value I, obsoleteTime envelope.DateTime) Result[I] {
	return Result[I]{Outcome: OutcomeCreated, Value: value, ObsoleteTime: obsoleteTime}
}

// DoesNotExist builds a definitive-absence result.
func DoesNotExist[I any](obsoleteTime envelope.DateTime) Result[I] {
	return Result[I]{Outcome: OutcomeDoesNotExist, ObsoleteTime: obsoleteTime}
}

// InsufficientData builds a wait-for-more-data result.
func InsufficientData[I any]() Result[I] {
	return Result[I]{Outcome: OutcomeInsufficientData}
}

// Interpolator evaluates a target originating time t against a secondary
// stream's queued messages (ascending by originating time) and its
// closed flag.
type Interpolator[S, I any] interface {
	Interpolate(t envelope.DateTime, secondaries []envelope.Message[S], closed bool) Result[I]
}

// Reproducible marks an Interpolator whose result depends only on the
// ordered set of secondary originating times and payloads, never arrival
// order — the extra guarantee Join requires over plain Fuse.
type Reproducible interface {
	reproducible()
}

// reproducibleMarker is embedded by interpolators that satisfy
// Reproducible.
type reproducibleMarker struct{}

func (reproducibleMarker) reproducible() {}
