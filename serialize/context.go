package serialize

import (
	"reflect"

	"github.com/tempopipe/tempopipe/envelope"
)

// Ref tags are the high two bits of the 32-bit prefix written before
// every reference-typed field and every top-level string (spec §4.D).
const (
	refTagNull        uint32 = 0
	refTagExistingRef uint32 = 1
	refTagNewDerived  uint32 = 2
	refTagNewDeclared uint32 = 3
)

const refLowMask uint32 = 0x3FFFFFFF

func packRef(tag, low uint32) uint32 {
	return (tag << 30) | (low & refLowMask)
}

func unpackRef(v uint32) (tag, low uint32) {
	return v >> 30, v & refLowMask
}

// SerializeContext assigns each newly-encountered reference the next
// sequential id, the same numbering scheme DeserializeContext replays,
// so that shared references and cycles in an object graph survive the
// round trip (spec §4.D, §9).
type SerializeContext struct {
	ids  map[uintptr]int32
	next int32
}

// NewSerializeContext returns an empty context, one per top-level
// Serialize call (or clone pass).
func NewSerializeContext() *SerializeContext {
	return &SerializeContext{ids: make(map[uintptr]int32)}
}

// refKey extracts a stable identity key for a reference-typed value.
// Only pointer (and interface-wrapping-pointer) values carry identity;
// callers must not call WriteRef for struct-typed fields (spec says
// structs are never ref-wrapped).
func refKey(v any) (uintptr, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return 0, false
	}
	return rv.Pointer(), true
}

// WriteRef writes the polymorphic ref-envelope prefix for v and reports
// whether the caller must still serialize v's payload (false for null
// and for an already-seen reference, whose payload was already written
// earlier in this context).
//
// declaredType is the statically-declared field type; when v's dynamic
// type differs, the envelope records the derived type's schema id
// (handlerSchemaID) so the reader knows which handler to instantiate.
func (ctx *SerializeContext) WriteRef(w *envelope.Writer, v any, declaredType reflect.Type, handlerSchemaID int32) (mustSerializePayload bool) {
	key, hasIdentity := refKey(v)
	if !hasIdentity {
		w.WriteUint32(packRef(refTagNull, 0))
		return false
	}
	if id, seen := ctx.ids[key]; seen {
		w.WriteUint32(packRef(refTagExistingRef, uint32(id)))
		return false
	}

	id := ctx.next
	ctx.next++
	ctx.ids[key] = id

	dynamicType := reflect.TypeOf(v)
	if declaredType != nil && dynamicType == declaredType {
		w.WriteUint32(packRef(refTagNewDeclared, 0))
	} else {
		w.WriteUint32(packRef(refTagNewDerived, uint32(handlerSchemaID)))
	}
	return true
}

// DeserializeContext replays the id numbering WriteRef assigned during
// serialization: NextRef reserves the next sequential slot for a
// newly-encountered reference (to be filled in once its payload is
// decoded, permitting forward self-references), and ResolveRef looks up
// an already-decoded reference by id.
type DeserializeContext struct {
	objects []any
}

// NewDeserializeContext returns an empty context for one top-level
// Deserialize call.
func NewDeserializeContext() *DeserializeContext {
	return &DeserializeContext{}
}

// NextRef reserves and returns the next sequential ref id. Call this as
// soon as a refTagNewDeclared/refTagNewDerived prefix is read, before
// recursing into the payload, so that a self-reference inside the
// payload can resolve via ResolveRef/Fill using the same id.
func (ctx *DeserializeContext) NextRef(placeholder any) int32 {
	id := int32(len(ctx.objects))
	ctx.objects = append(ctx.objects, placeholder)
	return id
}

// Fill records the fully-decoded value for a previously reserved id.
func (ctx *DeserializeContext) Fill(id int32, v any) {
	ctx.objects[id] = v
}

// ResolveRef returns the object previously recorded at id.
func (ctx *DeserializeContext) ResolveRef(id int32) any {
	return ctx.objects[id]
}

// ReadRefTag reads a ref-envelope prefix and reports its tag and low
// bits (an existing-ref id, or a handler schema id for a derived
// instance, or 0 for declared/null).
func ReadRefTag(r *envelope.Reader) (tag, low uint32, err error) {
	v, err := r.ReadUint32()
	if err != nil {
		return 0, 0, err
	}
	tag, low = unpackRef(v)
	return tag, low, nil
}

// Exported tag constants for callers pattern-matching on ReadRefTag's
// result.
const (
	RefNull        = refTagNull
	RefExisting    = refTagExistingRef
	RefNewDerived  = refTagNewDerived
	RefNewDeclared = refTagNewDeclared
)

// CloneContext is the identity-preserving counterpart of
// Serialize/DeserializeContext used when cloning an object graph
// in-memory (no buffer codec involved, spec §4.D Cloning): it maps a
// source pointer directly to its already-cloned target, so a cyclic or
// shared graph is cloned once per distinct node.
type CloneContext struct {
	cloned map[uintptr]any
}

// NewCloneContext returns an empty CloneContext.
func NewCloneContext() *CloneContext {
	return &CloneContext{cloned: make(map[uintptr]any)}
}

// Seen returns the already-cloned value for v, if any.
func (ctx *CloneContext) Seen(v any) (any, bool) {
	key, ok := refKey(v)
	if !ok {
		return nil, false
	}
	target, ok := ctx.cloned[key]
	return target, ok
}

// Remember records that source has been cloned to target, for future
// Seen lookups (e.g. when source is reachable again via a cycle).
func (ctx *CloneContext) Remember(source, target any) {
	key, ok := refKey(source)
	if !ok {
		return
	}
	ctx.cloned[key] = target
}
