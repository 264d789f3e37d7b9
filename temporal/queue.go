// Package temporal implements the fusion, windowing, and sparse-dispatch
// operators that reason about originating time rather than arrival
// order: interpolators, Fuse/Join, Pair, Zip/Merge, the window family,
// and the parallel-sparse dispatcher.
package temporal

import (
	"gitlab.com/yawning/avl.git"

	"github.com/tempopipe/tempopipe/envelope"
)

// orderedQueue keeps a stream's queued secondary messages sorted by
// (originating time, source id), the ordering every interpolator and
// fusion operator needs to find its nearest neighbors and to trim
// obsolete entries in O(log n). Grounded on the katzenpost decoy
// scheduler's SURB-ETA tree (server/internal/decoy/decoy.go), the one
// place in the retrieval pack that keeps a time-ordered avl.Tree of
// pending events and sweeps it from the front.
type orderedQueue[S any] struct {
	tree *avl.Tree
}

type queueEntry[S any] struct {
	msg envelope.Message[S]
}

func newOrderedQueue[S any]() *orderedQueue[S] {
	return &orderedQueue[S]{
		tree: avl.New(func(a, b interface{}) int {
			ea, eb := a.(queueEntry[S]), b.(queueEntry[S])
			ta, tb := ea.msg.Envelope.OriginatingTime, eb.msg.Envelope.OriginatingTime
			switch {
			case ta < tb:
				return -1
			case ta > tb:
				return 1
			case ea.msg.Envelope.SourceID < eb.msg.Envelope.SourceID:
				return -1
			case ea.msg.Envelope.SourceID > eb.msg.Envelope.SourceID:
				return 1
			default:
				return 0
			}
		}),
	}
}

func (q *orderedQueue[S]) Len() int { return q.tree.Len() }

func (q *orderedQueue[S]) Insert(msg envelope.Message[S]) {
	q.tree.Insert(queueEntry[S]{msg: msg})
}

// All returns every queued message in ascending originating-time order.
func (q *orderedQueue[S]) All() []envelope.Message[S] {
	out := make([]envelope.Message[S], 0, q.tree.Len())
	iter := q.tree.Iterator(avl.Forward)
	for n := iter.First(); n != nil; n = iter.Next() {
		out = append(out, n.Value.(queueEntry[S]).msg)
	}
	return out
}

// Last returns the most recently ordered (highest originating time)
// queued message, if any.
func (q *orderedQueue[S]) Last() (envelope.Message[S], bool) {
	var last envelope.Message[S]
	found := false
	iter := q.tree.Iterator(avl.Forward)
	for n := iter.First(); n != nil; n = iter.Next() {
		last = n.Value.(queueEntry[S]).msg
		found = true
	}
	return last, found
}

// DiscardBefore removes every queued message whose originating time is
// strictly less than t.
func (q *orderedQueue[S]) DiscardBefore(t envelope.DateTime) {
	iter := q.tree.Iterator(avl.Forward)
	for n := iter.First(); n != nil; n = iter.Next() {
		if n.Value.(queueEntry[S]).msg.Envelope.OriginatingTime >= t {
			break
		}
		q.tree.Remove(n)
	}
}
