package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tempopipe/tempopipe/envelope"
	"github.com/tempopipe/tempopipe/pipeline"
)

func TestRelativeTimeWindowFoldsBracketedMessages(t *testing.T) {
	p := pipeline.New(pipeline.Options{Name: "rtw"})
	c := p.CreateComponent("c")
	emitter, out := newTestEmitter[int](t, p, c, "out")
	p.Run(1)
	defer p.Stop(envelope.DateTime(1000))

	w := NewRelativeTimeWindow[int, int](-2, 2, func(anchor envelope.Message[int], window []envelope.Message[int]) int {
		sum := 0
		for _, m := range window {
			sum += m.Payload
		}
		return sum
	}, emitter)

	for _, v := range []int{1, 2, 3, 4, 5} {
		w.PostMessage(msg(int64(v), v))
	}
	w.PostAnchor(msg(3, 0)) // anchor 3, window (1,5]: enough data has already arrived (last=5 >= 3+2)

	select {
	case got := <-out:
		// window (1,5] around anchor 3: messages with time in (1,5] -> 2+3+4+5=14 (lo=1 excluded)
		require.Equal(t, 14, got)
	case <-time.After(time.Second):
		t.Fatal("window never emitted")
	}
}

// TestRelativeTimeWindowLowerBoundExclusive reproduces spec scenario S5:
// each message anchors on itself over window [-100ms, 0]. The lower
// bound must be exclusive (1,3,5,7,9) even though the prose elsewhere
// calls the interval closed-closed — a closed lower bound would double
// count the message exactly 100 ticks before each anchor (1,3,6,9,12).
func TestRelativeTimeWindowLowerBoundExclusive(t *testing.T) {
	p := pipeline.New(pipeline.Options{Name: "rtw-s5"})
	c := p.CreateComponent("c")
	emitter, out := newTestEmitter[int](t, p, c, "out")
	p.Run(1)
	defer p.Stop(envelope.DateTime(1000))

	w := NewRelativeTimeWindow[int, int](-100, 0, func(anchor envelope.Message[int], window []envelope.Message[int]) int {
		sum := 0
		for _, m := range window {
			sum += m.Payload
		}
		return sum
	}, emitter)

	times := []int64{100, 150, 200, 250, 300}
	values := []int{1, 2, 3, 4, 5}
	want := []int{1, 3, 5, 7, 9}

	for i, v := range values {
		m := msg(times[i], v)
		w.PostMessage(m)
		w.PostAnchor(m)
	}

	for _, exp := range want {
		select {
		case got := <-out:
			require.Equal(t, exp, got)
		case <-time.After(time.Second):
			t.Fatal("window never emitted")
		}
	}
}

func TestRelativeIndexWindowSlides(t *testing.T) {
	p := pipeline.New(pipeline.Options{Name: "riw"})
	c := p.CreateComponent("c")
	emitter, out := newTestEmitter[int](t, p, c, "out")
	p.Run(1)
	defer p.Stop(envelope.DateTime(1000))

	w := NewRelativeIndexWindow[int, int](3, 0, 0, func(anchor envelope.Message[int], window []envelope.Message[int]) int {
		sum := 0
		for _, m := range window {
			sum += m.Payload
		}
		return sum
	}, emitter)

	for i := 1; i <= 4; i++ {
		w.Post(msg(int64(i), i))
	}

	first := <-out
	require.Equal(t, 6, first) // 1+2+3
	second := <-out
	require.Equal(t, 9, second) // 2+3+4
}

func TestDynamicWindowRejectsNonMonotonicObsolete(t *testing.T) {
	p := pipeline.New(pipeline.Options{Name: "dw"})
	c := p.CreateComponent("c")
	emitter, _ := newTestEmitter[int](t, p, c, "out")
	p.Run(1)
	defer p.Stop(envelope.DateTime(1000))

	calls := 0
	w := NewDynamicWindow[int, int](func(m envelope.Message[int]) (envelope.TimeInterval, envelope.DateTime) {
		calls++
		if calls == 1 {
			return envelope.NewTimeInterval(0, 10), envelope.DateTime(10)
		}
		return envelope.NewTimeInterval(0, 10), envelope.DateTime(5) // regresses
	}, func(m envelope.Message[int], window []envelope.Message[int]) int { return 0 }, emitter)

	require.NoError(t, w.PostWindowMessage(msg(1, 1)))
	require.ErrorIs(t, w.PostWindowMessage(msg(2, 2)), ErrNonMonotonicObsolete)
}
