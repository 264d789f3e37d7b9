package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tempopipe/tempopipe/envelope"
	"github.com/tempopipe/tempopipe/pipeline"
)

func TestZipFlushesOnlyUpToFrontier(t *testing.T) {
	p := pipeline.New(pipeline.Options{Name: "zip"})
	c := p.CreateComponent("c")
	emitter, out := newTestEmitter[[]envelope.Message[int]](t, p, c, "out")
	p.Run(1)
	defer p.Stop(envelope.DateTime(1000))

	z := NewZip[int](2, emitter)

	z.Post(0, envelope.NewMessage(1, envelope.Envelope{SourceID: 0, OriginatingTime: 1}))
	select {
	case <-out:
		t.Fatal("zip must not flush until every input has reported")
	case <-time.After(100 * time.Millisecond):
	}

	z.Post(1, envelope.NewMessage(2, envelope.Envelope{SourceID: 1, OriginatingTime: 1}))
	select {
	case got := <-out:
		require.Len(t, got, 2)
	case <-time.After(time.Second):
		t.Fatal("zip never flushed once both inputs reached the frontier")
	}
}

func TestMergeForwardsInArrivalOrder(t *testing.T) {
	p := pipeline.New(pipeline.Options{Name: "merge"})
	c := p.CreateComponent("c")
	emitter, out := newTestEmitter[int](t, p, c, "out")
	p.Run(1)
	defer p.Stop(envelope.DateTime(1000))

	m := NewMerge[int](emitter)
	m.Post(msg(5, 1))
	m.Post(msg(1, 2))

	first := <-out
	second := <-out
	require.Equal(t, 1, first)
	require.Equal(t, 2, second)
}
