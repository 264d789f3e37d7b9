package temporal

import (
	"errors"
	"sync"

	"github.com/tempopipe/tempopipe/envelope"
	"github.com/tempopipe/tempopipe/pipeline"
)

// RelativeTimeWindow emits a fold over every message whose originating
// time falls within the half-open interval (anchor+a, anchor+b] for each
// anchor, in anchor arrival order. The spec's worked example (S5: values
// 1..5 at 100ms..300ms, window [-100ms,0], sum -> 1,3,5,7,9) requires the
// lower bound exclusive even though the prose elsewhere calls the
// interval closed-closed; the worked numbers win. Anchors advance
// monotonically; a message becomes eligible for trimming once anchor+a
// has passed it.
type RelativeTimeWindow[T, O any] struct {
	mu      sync.Mutex
	a, b    envelope.TimeSpan
	fold    func(anchor envelope.Message[T], window []envelope.Message[T]) O
	buf     []envelope.Message[T]
	anchors []envelope.Message[T]
	closed  bool
	emitter *pipeline.Emitter[O]
}

// NewRelativeTimeWindow builds a window operator over (a, b] relative to
// each anchor.
func NewRelativeTimeWindow[T, O any](a, b envelope.TimeSpan, fold func(envelope.Message[T], []envelope.Message[T]) O, emitter *pipeline.Emitter[O]) *RelativeTimeWindow[T, O] {
	return &RelativeTimeWindow[T, O]{a: a, b: b, fold: fold, emitter: emitter}
}

func (w *RelativeTimeWindow[T, O]) PostAnchor(anchor envelope.Message[T]) {
	w.mu.Lock()
	w.anchors = append(w.anchors, anchor)
	w.evaluate()
	w.mu.Unlock()
}

func (w *RelativeTimeWindow[T, O]) PostMessage(msg envelope.Message[T]) {
	w.mu.Lock()
	w.buf = append(w.buf, msg)
	w.evaluate()
	w.mu.Unlock()
}

// Close performs the final=true pass, flushing every remaining anchor
// against whatever tail of the buffer arrived before the stream ended.
func (w *RelativeTimeWindow[T, O]) Close() {
	w.mu.Lock()
	w.closed = true
	w.evaluate()
	w.mu.Unlock()
}

// evaluate must be called with w.mu held.
func (w *RelativeTimeWindow[T, O]) evaluate() {
	for len(w.anchors) > 0 {
		anchor := w.anchors[0]
		hi := anchor.Envelope.OriginatingTime.Add(w.b)
		if !w.closed {
			last, ok := lastOf(w.buf)
			if !ok || last.Envelope.OriginatingTime < hi {
				return
			}
		}
		lo := anchor.Envelope.OriginatingTime.Add(w.a)
		var window []envelope.Message[T]
		for _, m := range w.buf {
			if m.Envelope.OriginatingTime > lo && m.Envelope.OriginatingTime <= hi {
				window = append(window, m)
			}
		}
		out := w.fold(anchor, window)
		w.emitter.PostEnvelope(out, anchor.Envelope.OriginatingTime, envelope.Now())
		w.anchors = w.anchors[1:]
		w.buf = trimBefore(w.buf, lo)
	}
}

func lastOf[T any](s []envelope.Message[T]) (envelope.Message[T], bool) {
	if len(s) == 0 {
		var zero envelope.Message[T]
		return zero, false
	}
	return s[len(s)-1], true
}

func trimBefore[T any](buf []envelope.Message[T], lo envelope.DateTime) []envelope.Message[T] {
	i := 0
	for i < len(buf) && buf[i].Envelope.OriginatingTime < lo {
		i++
	}
	return buf[i:]
}

// RelativeIndexWindow is RelativeTimeWindow's index-based sibling: the
// window is expressed as a fixed count of messages relative to the
// anchor rather than a time span. Its buffer holds windowSize+trimLeft+
// trimRight messages; once full it emits, then emits again for every
// additional arrival (a classic sliding window).
type RelativeIndexWindow[T, O any] struct {
	mu                            sync.Mutex
	windowSize, trimLeft, trimRight int
	fold                          func(anchor envelope.Message[T], window []envelope.Message[T]) O
	buf                           []envelope.Message[T]
	emitter                       *pipeline.Emitter[O]
}

// NewRelativeIndexWindow builds an index-based sliding window.
func NewRelativeIndexWindow[T, O any](windowSize, trimLeft, trimRight int, fold func(envelope.Message[T], []envelope.Message[T]) O, emitter *pipeline.Emitter[O]) *RelativeIndexWindow[T, O] {
	return &RelativeIndexWindow[T, O]{
		windowSize: windowSize, trimLeft: trimLeft, trimRight: trimRight,
		fold: fold, emitter: emitter,
	}
}

func (w *RelativeIndexWindow[T, O]) Post(msg envelope.Message[T]) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, msg)
	capacity := w.windowSize + w.trimLeft + w.trimRight
	if len(w.buf) < capacity {
		return
	}
	anchor := w.buf[w.trimLeft]
	window := w.buf[w.trimLeft : w.trimLeft+w.windowSize]
	out := w.fold(anchor, append([]envelope.Message[T](nil), window...))
	w.emitter.PostEnvelope(out, anchor.Envelope.OriginatingTime, envelope.Now())
	w.buf = w.buf[1:]
}

// ErrNonMonotonicObsolete is returned when a DynamicWindow's
// obsolete-time function reports a value earlier than one already
// reported, violating the monotonic-trim invariant.
var ErrNonMonotonicObsolete = errors.New("temporal: obsolete time regressed")

type pendingDynWindow[T any] struct {
	msg      envelope.Message[T]
	interval envelope.TimeInterval
	obsolete envelope.DateTime
}

// DynamicWindow computes a fresh (interval, obsoleteTime) pair per
// window-defining message, then emits once enough data (or stream
// closure) proves that interval complete.
type DynamicWindow[T, O any] struct {
	mu              sync.Mutex
	computeInterval func(envelope.Message[T]) (envelope.TimeInterval, envelope.DateTime)
	outputCreator   func(envelope.Message[T], []envelope.Message[T]) O
	pendingWindows  []pendingDynWindow[T]
	buf             []envelope.Message[T]
	closed          bool
	hasLastObsolete bool
	lastObsolete    envelope.DateTime
	emitter         *pipeline.Emitter[O]
}

// NewDynamicWindow builds a DynamicWindow operator.
func NewDynamicWindow[T, O any](computeInterval func(envelope.Message[T]) (envelope.TimeInterval, envelope.DateTime), outputCreator func(envelope.Message[T], []envelope.Message[T]) O, emitter *pipeline.Emitter[O]) *DynamicWindow[T, O] {
	return &DynamicWindow[T, O]{computeInterval: computeInterval, outputCreator: outputCreator, emitter: emitter}
}

func (w *DynamicWindow[T, O]) PostWindowMessage(msg envelope.Message[T]) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	interval, obsolete := w.computeInterval(msg)
	if w.hasLastObsolete && obsolete < w.lastObsolete {
		return ErrNonMonotonicObsolete
	}
	w.lastObsolete = obsolete
	w.hasLastObsolete = true
	w.pendingWindows = append(w.pendingWindows, pendingDynWindow[T]{msg: msg, interval: interval, obsolete: obsolete})
	w.evaluate()
	return nil
}

func (w *DynamicWindow[T, O]) PostData(msg envelope.Message[T]) {
	w.mu.Lock()
	w.buf = append(w.buf, msg)
	w.evaluate()
	w.mu.Unlock()
}

func (w *DynamicWindow[T, O]) Close() {
	w.mu.Lock()
	w.closed = true
	w.evaluate()
	w.mu.Unlock()
}

// evaluate must be called with w.mu held.
func (w *DynamicWindow[T, O]) evaluate() {
	for len(w.pendingWindows) > 0 {
		pw := w.pendingWindows[0]
		if !w.closed {
			last, ok := lastOf(w.buf)
			if !ok || last.Envelope.OriginatingTime < pw.interval.Right {
				return
			}
		}
		var window []envelope.Message[T]
		for _, m := range w.buf {
			if pw.interval.Contains(m.Envelope.OriginatingTime) {
				window = append(window, m)
			}
		}
		out := w.outputCreator(pw.msg, window)
		w.emitter.PostEnvelope(out, pw.msg.Envelope.OriginatingTime, envelope.Now())
		w.pendingWindows = w.pendingWindows[1:]
		w.buf = trimBefore(w.buf, pw.obsolete)
	}
}
