package temporal

import (
	"fmt"
	"sync"

	"github.com/tempopipe/tempopipe/envelope"
	"github.com/tempopipe/tempopipe/pipeline"
)

// BranchRef identifies one live branch of a Parallel dispatcher, posted
// to the active-branches channel a downstream Join uses to know which
// branches to interpolate against.
type BranchRef[Key comparable] struct {
	Key   Key
	Index int
}

// TransformFactory builds one dynamically-created branch: given the
// branch's own subpipeline, its key, and the dispatcher's shared output
// emitter (which the branch's internal wiring posts results to, the
// "connector to a join input" of spec §4.F), it returns the emitter
// Parallel should post that key's values into.
type TransformFactory[Key comparable, V, Out any] func(sub *pipeline.Pipeline, key Key, output *pipeline.Emitter[Out]) *pipeline.Emitter[V]

// TerminationPolicy decides, for a currently-live key, whether its
// branch should close given the current dispatch dictionary and
// originating time. The second return value is false to keep the branch
// alive.
type TerminationPolicy[Key comparable, V any] func(key Key, dict map[Key]V, t envelope.DateTime) (envelope.DateTime, bool)

// WhenKeyNotPresent is the default TerminationPolicy: a branch closes,
// at the current originating time, the first time its key is absent
// from the dispatch dictionary.
func WhenKeyNotPresent[Key comparable, V any]() TerminationPolicy[Key, V] {
	return func(key Key, dict map[Key]V, t envelope.DateTime) (envelope.DateTime, bool) {
		if _, present := dict[key]; !present {
			return t, true
		}
		return 0, false
	}
}

type branch[Key comparable, V any] struct {
	key   Key
	index int
	sub   *pipeline.Pipeline
	in    *pipeline.Emitter[V]
}

// Parallel is the sparse dispatcher: a splitter fans each input message
// into a per-key dictionary, spawning a fresh subpipeline the first time
// a key is seen and tearing it down per TerminationPolicy (spec §4.F
// Parallel-sparse dispatch).
type Parallel[TIn any, Key comparable, V, Out any] struct {
	mu sync.Mutex

	parent    *pipeline.Pipeline
	splitter  func(TIn) map[Key]V
	transform TransformFactory[Key, V, Out]
	policy    TerminationPolicy[Key, V]
	output    *pipeline.Emitter[Out]
	active    *pipeline.Emitter[[]BranchRef[Key]]

	branches  map[Key]*branch[Key, V]
	nextIndex int
}

// NewParallel builds a sparse dispatcher. active receives, after every
// Post, the full current set of live (key, branch index) pairs.
func NewParallel[TIn any, Key comparable, V, Out any](
	parent *pipeline.Pipeline,
	splitter func(TIn) map[Key]V,
	transform TransformFactory[Key, V, Out],
	policy TerminationPolicy[Key, V],
	output *pipeline.Emitter[Out],
	active *pipeline.Emitter[[]BranchRef[Key]],
) *Parallel[TIn, Key, V, Out] {
	if policy == nil {
		policy = WhenKeyNotPresent[Key, V]()
	}
	return &Parallel[TIn, Key, V, Out]{
		parent:    parent,
		splitter:  splitter,
		transform: transform,
		policy:    policy,
		output:    output,
		active:    active,
		branches:  make(map[Key]*branch[Key, V]),
	}
}

func (p *Parallel[TIn, Key, V, Out]) Post(in TIn, t envelope.DateTime) {
	p.mu.Lock()
	defer p.mu.Unlock()

	dict := p.splitter(in)

	for key, v := range dict {
		br, ok := p.branches[key]
		if !ok {
			sub := pipeline.NewSubpipeline(p.parent, fmt.Sprintf("branch-%v", key))
			inEmitter := p.transform(sub, key, p.output)
			br = &branch[Key, V]{key: key, index: p.nextIndex, sub: sub, in: inEmitter}
			p.nextIndex++
			p.branches[key] = br
		}
		br.in.Post(v, t)
	}

	for key, br := range p.branches {
		if terminateAt, done := p.policy(key, dict, t); done {
			br.in.Close(terminateAt)
			br.sub.Stop(terminateAt)
			delete(p.branches, key)
		}
	}

	refs := make([]BranchRef[Key], 0, len(p.branches))
	for key, br := range p.branches {
		refs = append(refs, BranchRef[Key]{Key: key, Index: br.index})
	}
	if p.active != nil {
		p.active.PostEnvelope(refs, t, envelope.Now())
	}
}

// FixedParallel is the fixed-length variant: every branch is created
// once at construction and lives for the dispatcher's whole lifetime;
// Post requires every call to supply exactly as many values as branches.
type FixedParallel[V, Out any] struct {
	branches []*branch[int, V]
}

// NewFixedParallel builds n branches immediately, each wired by
// transform.
func NewFixedParallel[V, Out any](parent *pipeline.Pipeline, n int, transform func(sub *pipeline.Pipeline, index int, output *pipeline.Emitter[Out]) *pipeline.Emitter[V], output *pipeline.Emitter[Out]) *FixedParallel[V, Out] {
	f := &FixedParallel[V, Out]{branches: make([]*branch[int, V], n)}
	for i := 0; i < n; i++ {
		sub := pipeline.NewSubpipeline(parent, fmt.Sprintf("branch-%d", i))
		in := transform(sub, i, output)
		f.branches[i] = &branch[int, V]{key: i, index: i, sub: sub, in: in}
	}
	return f
}

// Post fans values out positionally to each fixed branch. len(values)
// must equal the branch count fixed at construction.
func (f *FixedParallel[V, Out]) Post(values []V, t envelope.DateTime) error {
	if len(values) != len(f.branches) {
		return fmt.Errorf("temporal: FixedParallel expected %d values, got %d", len(f.branches), len(values))
	}
	for i, v := range values {
		f.branches[i].in.Post(v, t)
	}
	return nil
}
