package temporal

import "github.com/tempopipe/tempopipe/pipeline"

// reproducibleInterpolator is the generic constraint Join requires: an
// Interpolator[S, I] that is also Reproducible.
type reproducibleInterpolator[S, I any] interface {
	Interpolator[S, I]
	Reproducible
}

// NewJoin is Fuse restricted to a ReproducibleInterpolator, guaranteeing
// its output depends only on originating times and payloads, never
// arrival order (spec §4.F).
func NewJoin[P, S, I, O any, R reproducibleInterpolator[S, I]](n int, interpolator R, outputCreator func(P, []I) O, selector func(P) []int, emitter *pipeline.Emitter[O]) *Fuse[P, S, I, O] {
	return NewFuse[P, S, I, O](n, interpolator, outputCreator, selector, emitter)
}
