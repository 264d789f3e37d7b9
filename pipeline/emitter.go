package pipeline

import (
	"sync"

	"github.com/tempopipe/tempopipe/envelope"
)

// subscriber is the type-erased half of a subscription, letting an
// Emitter fan a message out to receivers of concrete type T without the
// Emitter itself needing a generic subscriber list elsewhere.
type subscriber[T any] interface {
	Deliver(envelope.Message[T]) error
}

// Emitter is the producing end of a pipeline edge: components post
// payloads to it, it stamps an Envelope (assigning the monotonic
// per-source sequence number and propagating or minting timestamps), and
// fans the resulting Message out to every subscribed Receiver.
type Emitter[T any] struct {
	name     string
	sourceID int32
	pipeline *Pipeline

	mu           sync.Mutex
	seq          int32
	hasLast      bool
	lastOrigTime envelope.DateTime
	subscribers  []subscriber[T]
}

// NewEmitter constructs an Emitter identified by sourceID, the value
// every Envelope it stamps carries as SourceID. pipeline is aborted
// (spec §4.E/§7: "fatal to the pipeline") on an out-of-order post; it
// may be nil for an emitter used outside a Pipeline, in which case the
// post is still rejected but there is nothing to abort.
func NewEmitter[T any](name string, sourceID int32, pipeline *Pipeline) *Emitter[T] {
	return &Emitter[T]{name: name, sourceID: sourceID, pipeline: pipeline}
}

// Subscribe attaches r so it receives every future Post/PostEnvelope.
func (e *Emitter[T]) Subscribe(r *Receiver[T]) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subscribers = append(e.subscribers, r)
}

// Post stamps payload with a freshly minted Envelope (originatingTime as
// given, creationTime left equal to it — callers that know the true wall
// time of production should use PostEnvelope instead) and delivers it to
// every subscriber.
func (e *Emitter[T]) Post(payload T, originatingTime envelope.DateTime) {
	e.PostEnvelope(payload, originatingTime, originatingTime)
}

// PostEnvelope is Post with an explicit creation time, for re-emitting a
// message whose true production time differs from its originating time
// (e.g. replayed or derived data). An originatingTime that does not
// strictly exceed the last one posted on this Emitter violates the
// per-source ordering invariant and aborts the owning pipeline
// (spec §4.E: "requires originating_time > last.originating_time,
// else OutOfOrderPost — fatal to the pipeline"); the message is not
// delivered.
func (e *Emitter[T]) PostEnvelope(payload T, originatingTime, creationTime envelope.DateTime) {
	e.mu.Lock()
	if e.hasLast && !(e.lastOrigTime < originatingTime) {
		lastGood := e.lastOrigTime
		e.mu.Unlock()
		if e.pipeline != nil {
			e.pipeline.Abort(ErrOutOfOrderPost, lastGood)
		}
		return
	}
	e.hasLast = true
	e.lastOrigTime = originatingTime
	e.seq++
	env := envelope.Envelope{
		SourceID:        e.sourceID,
		SequenceID:      e.seq,
		OriginatingTime: originatingTime,
		CreationTime:    creationTime,
	}
	subs := append([]subscriber[T](nil), e.subscribers...)
	e.mu.Unlock()

	msg := envelope.NewMessage(payload, env)
	for _, s := range subs {
		_ = s.Deliver(msg)
	}
}

// Close notifies every subscriber that this stream has ended as of
// finalTime.
func (e *Emitter[T]) Close(finalTime envelope.DateTime) {
	e.mu.Lock()
	subs := append([]subscriber[T](nil), e.subscribers...)
	e.mu.Unlock()
	for _, s := range subs {
		if r, ok := s.(*Receiver[T]); ok {
			r.Close(finalTime)
		}
	}
}
