package serialize

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tempopipe/tempopipe/envelope"
)

type node struct {
	Name string
	Next *node
}

var nodeType = reflect.TypeOf(&node{})

// writeNode writes a node graph using the polymorphic ref envelope so
// that a cycle (a.Next == a, or a.Next == b && b.Next == a) round-trips
// without infinite recursion or duplicated payloads.
func writeNode(w *envelope.Writer, ctx *SerializeContext, n *node) {
	mustSerialize := ctx.WriteRef(w, n, nodeType, 0)
	if !mustSerialize {
		return
	}
	s := n.Name
	w.WriteString(&s)
	if n.Next == nil {
		w.WriteUint32(packRef(refTagNull, 0))
		return
	}
	writeNode(w, ctx, n.Next)
}

func readNode(r *envelope.Reader, ctx *DeserializeContext) (*node, error) {
	tag, low, err := ReadRefTag(r)
	if err != nil {
		return nil, err
	}
	switch tag {
	case refTagNull:
		return nil, nil
	case refTagExistingRef:
		return ctx.ResolveRef(int32(low)).(*node), nil
	default:
		n := &node{}
		id := ctx.NextRef(n)
		name, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		n.Name = *name
		next, err := readNode(r, ctx)
		if err != nil {
			return nil, err
		}
		n.Next = next
		ctx.Fill(id, n)
		return n, nil
	}
}

func TestPolymorphicRefEnvelopeRoundTripsCycle(t *testing.T) {
	a := &node{Name: "a"}
	b := &node{Name: "b"}
	a.Next = b
	b.Next = a // cycle

	w := envelope.NewWriter(64)
	ctx := NewSerializeContext()
	writeNode(w, ctx, a)

	r := envelope.NewReader(w.Bytes())
	dctx := NewDeserializeContext()
	got, err := readNode(r, dctx)
	require.NoError(t, err)
	require.Equal(t, "a", got.Name)
	require.Equal(t, "b", got.Next.Name)
	require.Same(t, got, got.Next.Next, "cycle must be reconstructed by identity, not duplicated")
}

func TestPolymorphicRefEnvelopeSharedReference(t *testing.T) {
	shared := &node{Name: "shared"}
	a := &node{Name: "a", Next: shared}
	b := &node{Name: "b", Next: shared}

	// Serialize both roots in one context so the second reference to
	// `shared` is encoded as refTagExistingRef.
	w := envelope.NewWriter(64)
	ctx := NewSerializeContext()
	writeNode(w, ctx, a)
	writeNode(w, ctx, b)

	r := envelope.NewReader(w.Bytes())
	dctx := NewDeserializeContext()
	gotA, err := readNode(r, dctx)
	require.NoError(t, err)
	gotB, err := readNode(r, dctx)
	require.NoError(t, err)
	require.Same(t, gotA.Next, gotB.Next, "shared reference must deserialize to the same object")
}

func TestCloneContextPreservesSharedIdentity(t *testing.T) {
	shared := &node{Name: "shared"}
	a := &node{Name: "a", Next: shared}

	ctx := NewCloneContext()
	cloneShared := &node{Name: shared.Name}
	ctx.Remember(shared, cloneShared)

	if seen, ok := ctx.Seen(shared); ok {
		require.Same(t, cloneShared, seen)
	} else {
		t.Fatal("expected shared to be remembered")
	}
	_ = a
}
