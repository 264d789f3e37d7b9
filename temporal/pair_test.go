package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tempopipe/tempopipe/envelope"
	"github.com/tempopipe/tempopipe/pipeline"
)

func TestPairDropsPrimaryBeforeFirstSecondary(t *testing.T) {
	p := pipeline.New(pipeline.Options{Name: "pair"})
	c := p.CreateComponent("c")
	emitter, out := newTestEmitter[string](t, p, c, "out")
	p.Run(1)
	defer p.Stop(envelope.DateTime(1000))

	pair := NewPair[int, string, string](func(primary int, secondary string) string {
		return secondary
	}, nil, emitter)

	pair.PostPrimary(msg(1, 42))
	select {
	case <-out:
		t.Fatal("primary should have been dropped with no latched secondary")
	case <-time.After(100 * time.Millisecond):
	}

	pair.PostSecondary(envelope.NewMessage("latched", envelope.Envelope{OriginatingTime: 2}))
	pair.PostPrimary(msg(3, 43))
	select {
	case got := <-out:
		require.Equal(t, "latched", got)
	case <-time.After(time.Second):
		t.Fatal("pair never emitted after the secondary latched")
	}
}

func TestPairUsesConstructorInitialValue(t *testing.T) {
	p := pipeline.New(pipeline.Options{Name: "pair"})
	c := p.CreateComponent("c")
	emitter, out := newTestEmitter[string](t, p, c, "out")
	p.Run(1)
	defer p.Stop(envelope.DateTime(1000))

	initial := "default"
	pair := NewPair[int, string, string](func(primary int, secondary string) string {
		return secondary
	}, &initial, emitter)

	pair.PostPrimary(msg(1, 42))
	select {
	case got := <-out:
		require.Equal(t, "default", got)
	case <-time.After(time.Second):
		t.Fatal("pair never used the constructor-supplied initial value")
	}
}
