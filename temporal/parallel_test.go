package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tempopipe/tempopipe/envelope"
	"github.com/tempopipe/tempopipe/pipeline"
)

func TestParallelSpawnsOneBranchPerKeyAndTerminatesWhenAbsent(t *testing.T) {
	p := pipeline.New(pipeline.Options{Name: "par"})
	root := p.CreateComponent("root")
	output, out := newTestEmitter[string](t, p, root, "out")
	active, activeCh := newTestEmitter[[]BranchRef[string]](t, p, root, "active")
	p.Run(2)
	defer p.Stop(envelope.DateTime(1000))

	transform := func(sub *pipeline.Pipeline, key string, out *pipeline.Emitter[string]) *pipeline.Emitter[int] {
		comp := sub.CreateComponent("branch")
		in := pipeline.CreateEmitter[int](comp, "in")
		recv := pipeline.CreateReceiver[int](comp, "in-recv", pipeline.Unlimited[int]("in-recv"), func(m envelope.Message[int]) error {
			out.Post(key, m.Envelope.OriginatingTime)
			return nil
		})
		in.Subscribe(recv)
		return in
	}

	par := NewParallel[map[string]int, string, int, string](root.Pipeline(), func(in map[string]int) map[string]int { return in }, transform, nil, output, active)

	par.Post(map[string]int{"a": 1, "b": 2}, envelope.DateTime(1))
	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case v := <-out:
			got[v] = true
		case <-time.After(time.Second):
			t.Fatal("expected output from both branches")
		}
	}
	require.True(t, got["a"])
	require.True(t, got["b"])

	select {
	case refs := <-activeCh:
		require.Len(t, refs, 2)
	case <-time.After(time.Second):
		t.Fatal("expected active-branch set after first post")
	}

	// second post drops key "b": its branch should terminate.
	par.Post(map[string]int{"a": 3}, envelope.DateTime(2))
	select {
	case v := <-out:
		require.Equal(t, "a", v)
	case <-time.After(time.Second):
		t.Fatal("expected another output from the surviving branch")
	}

	select {
	case refs := <-activeCh:
		require.Len(t, refs, 1)
		require.Equal(t, "a", refs[0].Key)
	case <-time.After(time.Second):
		t.Fatal("expected active-branch set after second post")
	}
}

func TestFixedParallelRejectsWrongLength(t *testing.T) {
	p := pipeline.New(pipeline.Options{Name: "fixed"})
	root := p.CreateComponent("root")
	output, _ := newTestEmitter[int](t, p, root, "out")
	p.Run(1)
	defer p.Stop(envelope.DateTime(1000))

	transform := func(sub *pipeline.Pipeline, index int, out *pipeline.Emitter[int]) *pipeline.Emitter[int] {
		comp := sub.CreateComponent("branch")
		in := pipeline.CreateEmitter[int](comp, "in")
		recv := pipeline.CreateReceiver[int](comp, "in-recv", pipeline.Unlimited[int]("in-recv"), func(m envelope.Message[int]) error {
			out.Post(m.Payload*10, m.Envelope.OriginatingTime)
			return nil
		})
		in.Subscribe(recv)
		return in
	}

	fp := NewFixedParallel[int, int](root.Pipeline(), 2, transform, output)
	require.Error(t, fp.Post([]int{1}, envelope.DateTime(1)))
	require.NoError(t, fp.Post([]int{1, 2}, envelope.DateTime(1)))
}
