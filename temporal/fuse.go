package temporal

import (
	"sync"

	"github.com/tempopipe/tempopipe/envelope"
	"github.com/tempopipe/tempopipe/pipeline"
)

type secondaryState[S any] struct {
	queue  *orderedQueue[S]
	closed bool
}

type pendingPrimary[P any] struct {
	msg envelope.Message[P]
}

// Fuse takes one primary stream and N secondary streams, all sharing one
// Interpolator[S, I], and for each primary message assembles the
// interpolated results into one output value (spec §4.F Fuse and Join).
//
// PostPrimary, PostSecondary, CloseSecondary and AddInput each hold an
// internal mutex for their whole run, so calls from independent
// goroutines are serialized.
type Fuse[P, S, I, O any] struct {
	mu sync.Mutex

	interpolator  Interpolator[S, I]
	outputCreator func(P, []I) O
	selector      func(P) []int // nil selects every secondary

	secondaries []*secondaryState[S]
	pending     []pendingPrimary[P]

	emitter *pipeline.Emitter[O]
}

// NewFuse builds a Fuse with n initial secondary inputs.
func NewFuse[P, S, I, O any](n int, interpolator Interpolator[S, I], outputCreator func(P, []I) O, selector func(P) []int, emitter *pipeline.Emitter[O]) *Fuse[P, S, I, O] {
	f := &Fuse[P, S, I, O]{
		interpolator:  interpolator,
		outputCreator: outputCreator,
		selector:      selector,
		emitter:       emitter,
	}
	for i := 0; i < n; i++ {
		f.secondaries = append(f.secondaries, &secondaryState[S]{queue: newOrderedQueue[S]()})
	}
	return f
}

// AddInput appends a new secondary input at runtime and returns its
// index, acquiring the same lock PostPrimary/PostSecondary use so the
// resize is atomic with respect to in-flight evaluation.
func (f *Fuse[P, S, I, O]) AddInput() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.secondaries = append(f.secondaries, &secondaryState[S]{queue: newOrderedQueue[S]()})
	return len(f.secondaries) - 1
}

func (f *Fuse[P, S, I, O]) PostPrimary(msg envelope.Message[P]) {
	f.mu.Lock()
	f.pending = append(f.pending, pendingPrimary[P]{msg: msg})
	f.evaluate()
	f.mu.Unlock()
}

func (f *Fuse[P, S, I, O]) PostSecondary(index int, msg envelope.Message[S]) {
	f.mu.Lock()
	f.secondaries[index].queue.Insert(msg)
	f.evaluate()
	f.mu.Unlock()
}

func (f *Fuse[P, S, I, O]) CloseSecondary(index int) {
	f.mu.Lock()
	f.secondaries[index].closed = true
	f.evaluate()
	f.mu.Unlock()
}

// evaluate must be called with f.mu held.
func (f *Fuse[P, S, I, O]) evaluate() {
	for len(f.pending) > 0 {
		p := f.pending[0]
		selected := f.selectedIndices(p.msg.Payload)

		results := make([]I, len(f.secondaries))
		verdicts := make([]Result[I], len(selected))
		insufficient := false
		for i, idx := range selected {
			sec := f.secondaries[idx]
			r := f.interpolator.Interpolate(p.msg.Envelope.OriginatingTime, sec.queue.All(), sec.closed)
			verdicts[i] = r
			if r.Outcome == OutcomeInsufficientData {
				insufficient = true
				break
			}
		}
		if insufficient {
			return
		}

		allCreated := true
		for i := range selected {
			if verdicts[i].Outcome != OutcomeCreated {
				allCreated = false
				break
			}
		}

		if allCreated {
			for i, idx := range selected {
				results[idx] = verdicts[i].Value
			}
			out := f.outputCreator(p.msg.Payload, results)
			f.emitter.PostEnvelope(out, p.msg.Envelope.OriginatingTime, envelope.Now())
		}

		for i, idx := range selected {
			f.secondaries[idx].queue.DiscardBefore(verdicts[i].ObsoleteTime)
		}

		f.pending = f.pending[1:]
	}
}

func (f *Fuse[P, S, I, O]) selectedIndices(p P) []int {
	if f.selector == nil {
		idx := make([]int, len(f.secondaries))
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	return f.selector(p)
}
