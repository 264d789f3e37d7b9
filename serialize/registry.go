package serialize

import (
	"fmt"
	"sync"

	"github.com/tempopipe/tempopipe/envelope"
	"github.com/tempopipe/tempopipe/shared"
)

// Handler is the per-type operation set a contract's serializer
// implements: construct a fresh/cleared instance, move it to and from
// the buffer codec, clone it in-memory, and clear nested references
// before the instance returns to a pool (spec §4.D).
//
// All values cross this interface as any; concrete handlers type-assert
// to their T internally. This mirrors the registry's own job: resolving
// by name/id at runtime, which Go's static generics cannot do directly
// without an interface boundary somewhere.
type Handler interface {
	// Initialize is called once per (handler, target schema) pair,
	// immediately before the handler is cached, and wires up
	// version-specific nested handlers for back-compat wrappers.
	Initialize(target *TypeSchema) error

	// IsClearRequired reports whether Clear does any work. Immutable
	// types (strings, primitives, marked-immutable structs) return
	// false and their Clear is a no-op.
	IsClearRequired() bool

	PrepareDeserializeTarget() any
	PrepareCloneTarget() any

	Serialize(w *envelope.Writer, ctx *SerializeContext, v any) error
	Deserialize(r *envelope.Reader, ctx *DeserializeContext, target any) (any, error)
	Clone(ctx *CloneContext, v any) any
	Clear(v any)
}

// HandlerFactory constructs a fresh, uninitialized Handler for one
// contract.
type HandlerFactory func() Handler

// Registry binds the schema Catalog to a cache of instantiated,
// initialized Handlers. Handlers are expensive to initialize (back-compat
// wrappers wire up nested version-specific handlers) so they are built
// once per contract name and cached thereafter; a handler
// under construction is not visible to other callers until Initialize
// completes (spec §5's single-writer AddHandler lock).
type Registry struct {
	catalog *Catalog

	mu        sync.Mutex
	factories map[string]HandlerFactory
	cache     map[string]Handler
	cacheByID map[int32]Handler
}

// NewRegistry returns a Registry backed by catalog.
func NewRegistry(catalog *Catalog) *Registry {
	return &Registry{
		catalog:   catalog,
		factories: make(map[string]HandlerFactory),
		cache:     make(map[string]Handler),
		cacheByID: make(map[int32]Handler),
	}
}

// Catalog returns the registry's schema catalog.
func (r *Registry) Catalog() *Catalog { return r.catalog }

// Declare registers both a hand-written handler factory and its
// declared schema for a contract (spec §4.D source 1).
func (r *Registry) Declare(schema *TypeSchema, factory HandlerFactory) {
	r.catalog.Declare(schema)
	r.mu.Lock()
	r.factories[schema.ContractName] = factory
	r.mu.Unlock()
}

// Resolve returns the initialized, cached Handler for contractName,
// instantiating and initializing it against the catalog's current
// schema for that contract on first use. Concurrent resolutions of the
// same contract serialize on the registry's single lock so no caller
// ever observes a partially-initialized handler.
func (r *Registry) Resolve(contractName string) (Handler, *TypeSchema, error) {
	schema, err := r.catalog.ByName(contractName)
	if err != nil {
		return nil, nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.cache[contractName]; ok {
		return h, schema, nil
	}

	factory, ok := r.factories[contractName]
	if !ok {
		return nil, nil, &ErrUnknownContract{Name: contractName}
	}
	h := factory()
	if err := h.Initialize(schema); err != nil {
		return nil, nil, fmt.Errorf("serialize: initializing handler for %q: %w", contractName, err)
	}
	r.cache[contractName] = h
	r.cacheByID[schema.ID] = h
	return h, schema, nil
}

// ResolveByID is the schema-id-keyed counterpart of Resolve, used when
// decoding a refTagNewDerived envelope whose low bits name a handler id.
func (r *Registry) ResolveByID(id int32) (Handler, *TypeSchema, error) {
	schema, err := r.catalog.ByID(id)
	if err != nil {
		return nil, nil, err
	}
	return r.Resolve(schema.ContractName)
}

// Shared.Clearable is satisfied by any Handler-wrapped value the
// registry returns to a pool; PoolClear adapts a Registry lookup into
// the shared.Clearable contract a shared.Pool expects.
func (r *Registry) PoolClear(contractName string, v any) {
	h, _, err := r.Resolve(contractName)
	if err != nil || !h.IsClearRequired() {
		return
	}
	h.Clear(v)
}

var _ shared.Clearable = (*clearAdapter)(nil)

// clearAdapter lets a (handler, value) pair be passed anywhere a
// shared.Clearable is expected, e.g. as the resource type of a
// shared.Pool whose elements must go through the registry to clear
// nested references.
type clearAdapter struct {
	handler Handler
	value   any
}

func (c *clearAdapter) Clear() {
	if c.handler.IsClearRequired() {
		c.handler.Clear(c.value)
	}
}
