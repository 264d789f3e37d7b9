package serialize

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tempopipe/tempopipe/envelope"
)

// int32Handler is a minimal hand-written Handler used to exercise the
// registry/catalog plumbing without pulling in reflection-based schema
// inference.
type int32Handler struct{}

func (int32Handler) Initialize(*TypeSchema) error      { return nil }
func (int32Handler) IsClearRequired() bool             { return false }
func (int32Handler) PrepareDeserializeTarget() any      { return int32(0) }
func (int32Handler) PrepareCloneTarget() any            { return int32(0) }
func (int32Handler) Serialize(w *envelope.Writer, _ *SerializeContext, v any) error {
	w.WriteInt32(v.(int32))
	return nil
}
func (int32Handler) Deserialize(r *envelope.Reader, _ *DeserializeContext, _ any) (any, error) {
	return r.ReadInt32()
}
func (int32Handler) Clone(_ *CloneContext, v any) any { return v }
func (int32Handler) Clear(any)                        {}

func TestRegistryResolveCachesHandler(t *testing.T) {
	cat := NewCatalog()
	reg := NewRegistry(cat)
	schema := NewTypeSchema("tempopipe.Int32", "int32", FlagContract, nil, 1)
	reg.Declare(schema, func() Handler { return int32Handler{} })

	h1, s1, err := reg.Resolve("tempopipe.Int32")
	require.NoError(t, err)
	h2, s2, err := reg.Resolve("tempopipe.Int32")
	require.NoError(t, err)
	require.Same(t, s1, s2)

	w := envelope.NewWriter(4)
	require.NoError(t, h1.Serialize(w, nil, int32(99)))
	r := envelope.NewReader(w.Bytes())
	v, err := h2.Deserialize(r, nil, nil)
	require.NoError(t, err)
	require.Equal(t, int32(99), v)
}

func TestRegistryResolveUnknownContract(t *testing.T) {
	reg := NewRegistry(NewCatalog())
	_, _, err := reg.Resolve("nope")
	require.Error(t, err)
	var unk *ErrUnknownContract
	require.ErrorAs(t, err, &unk)
}

func TestReconcileTargetWins(t *testing.T) {
	target := &TypeSchema{
		ContractName: "X",
		Members: []Member{
			{Name: "A", Type: "int32"},
			{Name: "Legacy", Type: "string"},
		},
	}
	runtime := &TypeSchema{
		ContractName: "X",
		Members: []Member{
			{Name: "A", Type: "int32"},
			{Name: "New", Type: "bool"},
		},
	}
	sharedM, runtimeOnly, targetOnly := Reconcile(target, runtime)
	require.Len(t, sharedM, 1)
	require.Equal(t, "A", sharedM[0].Name)
	require.Len(t, runtimeOnly, 1)
	require.Equal(t, "New", runtimeOnly[0].Name)
	require.Len(t, targetOnly, 1)
	require.Equal(t, "Legacy", targetOnly[0].Name)
}
