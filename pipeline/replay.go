package pipeline

import "github.com/tempopipe/tempopipe/envelope"

// ReplayDescriptor describes an originating-time window, as when
// replaying a persisted stream instead of running live (spec
// §4.E / §6 store interplay). A Pipeline keeps it and returns it from
// Replay; neither the pipeline nor its scheduler filters deliveries by
// the window.
type ReplayDescriptor struct {
	Start envelope.DateTime
	End   envelope.DateTime

	// EnforceClock flags pacing of delivery to the wall-clock interval
	// between Start and End. The scheduler does not read it: deliveries
	// always run as fast as possible.
	EnforceClock bool
}

// Contains reports whether t falls within [Start, End).
func (d ReplayDescriptor) Contains(t envelope.DateTime) bool {
	return !(t < d.Start) && t < d.End
}

// Duration is the span the descriptor covers.
func (d ReplayDescriptor) Duration() envelope.TimeSpan {
	return d.End.Sub(d.Start)
}
