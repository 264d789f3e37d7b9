package temporal

import (
	"sync"

	"github.com/tempopipe/tempopipe/envelope"
	"github.com/tempopipe/tempopipe/pipeline"
)

// Pair combines a primary stream with a secondary that only ever
// supplies a latched companion value: each primary is emitted alongside
// whichever secondary value was last observed, and primaries are
// dropped entirely until a first secondary (or constructor-supplied
// initial value) arrives.
type Pair[P, S, O any] struct {
	mu            sync.Mutex
	outputCreator func(P, S) O
	last          S
	hasLast       bool
	emitter       *pipeline.Emitter[O]
}

// NewPair builds a Pair. initial, if non-nil, pre-latches the secondary
// so the first primary need not wait for a real secondary arrival.
func NewPair[P, S, O any](outputCreator func(P, S) O, initial *S, emitter *pipeline.Emitter[O]) *Pair[P, S, O] {
	p := &Pair[P, S, O]{outputCreator: outputCreator, emitter: emitter}
	if initial != nil {
		p.last = *initial
		p.hasLast = true
	}
	return p
}

func (p *Pair[P, S, O]) PostPrimary(msg envelope.Message[P]) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.hasLast {
		return
	}
	out := p.outputCreator(msg.Payload, p.last)
	p.emitter.PostEnvelope(out, msg.Envelope.OriginatingTime, envelope.Now())
}

func (p *Pair[P, S, O]) PostSecondary(msg envelope.Message[S]) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = msg.Payload
	p.hasLast = true
}
