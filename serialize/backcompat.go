package serialize

import (
	"fmt"

	"github.com/tempopipe/tempopipe/envelope"
)

// BackCompatHandler accepts target schemas at any version from 1 up to
// the latest a type has ever had, dispatching to the version-specific
// handler chosen at Initialize time. Writes always go through the
// latest version's handler (spec §4.D back-compat wrapper).
type BackCompatHandler struct {
	latest   int32
	versions map[int32]Handler // version -> handler for that version
	active   Handler            // chosen at Initialize, by target.Version
}

// NewBackCompatHandler builds a wrapper given every version-specific
// handler a contract has ever had, keyed by schema version. latest must
// be present in versions.
func NewBackCompatHandler(versions map[int32]Handler, latest int32) *BackCompatHandler {
	return &BackCompatHandler{versions: versions, latest: latest}
}

func (b *BackCompatHandler) Initialize(target *TypeSchema) error {
	h, ok := b.versions[target.Version]
	if !ok {
		return fmt.Errorf("serialize: no handler registered for %q version %d (latest %d)",
			target.ContractName, target.Version, b.latest)
	}
	if err := h.Initialize(target); err != nil {
		return err
	}
	b.active = h
	return nil
}

func (b *BackCompatHandler) IsClearRequired() bool        { return b.active.IsClearRequired() }
func (b *BackCompatHandler) PrepareDeserializeTarget() any { return b.active.PrepareDeserializeTarget() }
func (b *BackCompatHandler) PrepareCloneTarget() any       { return b.active.PrepareCloneTarget() }

// Serialize always writes through the latest version's handler,
// regardless of which version this wrapper was initialized to read.
func (b *BackCompatHandler) Serialize(w *envelope.Writer, ctx *SerializeContext, v any) error {
	return b.versions[b.latest].Serialize(w, ctx, v)
}

func (b *BackCompatHandler) Deserialize(r *envelope.Reader, ctx *DeserializeContext, target any) (any, error) {
	return b.active.Deserialize(r, ctx, target)
}

func (b *BackCompatHandler) Clone(ctx *CloneContext, v any) any { return b.active.Clone(ctx, v) }
func (b *BackCompatHandler) Clear(v any)                        { b.active.Clear(v) }

var _ Handler = (*BackCompatHandler)(nil)
