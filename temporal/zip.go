package temporal

import (
	"sort"
	"sync"

	"github.com/tempopipe/tempopipe/envelope"
	"github.com/tempopipe/tempopipe/pipeline"
)

// Zip reorders N input streams into originating-time order. It tracks
// each input's most recently observed originating time; the frontier is
// the minimum across all inputs, and every queued message at or before
// the frontier is flushed, grouped by equal originating time.
type Zip[T any] struct {
	mu           sync.Mutex
	lastObserved []*envelope.DateTime
	pending      *orderedQueue[T]
	emitter      *pipeline.Emitter[[]envelope.Message[T]]
}

// NewZip builds a Zip expecting n input streams.
func NewZip[T any](n int, emitter *pipeline.Emitter[[]envelope.Message[T]]) *Zip[T] {
	return &Zip[T]{
		lastObserved: make([]*envelope.DateTime, n),
		pending:      newOrderedQueue[T](),
		emitter:      emitter,
	}
}

func (z *Zip[T]) Post(input int, msg envelope.Message[T]) {
	z.mu.Lock()
	defer z.mu.Unlock()
	t := msg.Envelope.OriginatingTime
	z.lastObserved[input] = &t
	z.pending.Insert(msg)
	z.flush()
}

func (z *Zip[T]) frontier() (envelope.DateTime, bool) {
	f := envelope.MaxDateTime
	for _, t := range z.lastObserved {
		if t == nil {
			return 0, false
		}
		if *t < f {
			f = *t
		}
	}
	return f, true
}

// flush must be called with z.mu held.
func (z *Zip[T]) flush() {
	frontier, ok := z.frontier()
	if !ok {
		return
	}
	for {
		all := z.pending.All()
		if len(all) == 0 || all[0].Envelope.OriginatingTime > frontier {
			return
		}
		groupTime := all[0].Envelope.OriginatingTime
		var group []envelope.Message[T]
		for _, m := range all {
			if m.Envelope.OriginatingTime != groupTime {
				break
			}
			group = append(group, m)
		}
		sort.Slice(group, func(i, j int) bool {
			return group[i].Envelope.SourceID < group[j].Envelope.SourceID
		})
		z.pending.DiscardBefore(groupTime.Add(1))
		z.emitter.PostEnvelope(group, groupTime, envelope.Now())
	}
}

// Merge is the simpler wall-clock variant: each arrival is forwarded
// immediately, in arrival order, with no reordering.
type Merge[T any] struct {
	emitter *pipeline.Emitter[T]
}

// NewMerge builds a Merge that republishes every arrival through emitter.
func NewMerge[T any](emitter *pipeline.Emitter[T]) *Merge[T] {
	return &Merge[T]{emitter: emitter}
}

func (m *Merge[T]) Post(msg envelope.Message[T]) {
	m.emitter.PostEnvelope(msg.Payload, msg.Envelope.OriginatingTime, envelope.Now())
}
