package envelope

import "fmt"

// Envelope is the 24-byte header that accompanies every payload flowing
// through the pipeline: which source produced it, its per-source
// sequence number, and the two timestamps needed to reason about
// correctness (originating time) versus latency (creation time).
//
// Layout on the wire is packed, little-endian, in field order:
// source_id(i32) sequence_id(i32) originating_time(i64) creation_time(i64).
type Envelope struct {
	SourceID        int32
	SequenceID      int32
	OriginatingTime DateTime
	CreationTime    DateTime
}

// Size is the exact wire size of an Envelope in bytes.
const Size = 4 + 4 + 8 + 8

// Latency is CreationTime - OriginatingTime. Per the data-model invariant
// CreationTime >= OriginatingTime, so this is never negative for a
// well-formed envelope.
func (e Envelope) Latency() TimeSpan {
	return e.CreationTime.Sub(e.OriginatingTime)
}

// Before reports whether e's originating time strictly precedes o's,
// the ordering relation streams must maintain per source.
func (e Envelope) Before(o Envelope) bool {
	return e.OriginatingTime < o.OriginatingTime
}

func (e Envelope) String() string {
	return fmt.Sprintf("Envelope{source=%d seq=%d orig=%s create=%s}",
		e.SourceID, e.SequenceID, e.OriginatingTime, e.CreationTime)
}

// Message pairs a payload with the Envelope that describes it. Equality
// is by-envelope plus payload equality (left to callers, since T may not
// be comparable).
type Message[T any] struct {
	Payload  T
	Envelope Envelope
}

// NewMessage constructs a Message from a payload and envelope.
func NewMessage[T any](payload T, e Envelope) Message[T] {
	return Message[T]{Payload: payload, Envelope: e}
}
