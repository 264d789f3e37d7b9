package serialize

import (
	"fmt"
	"sync"
)

// Source records where a TypeSchema entered the catalog from, per
// spec §4.D's three arrival paths.
type Source int

const (
	// SourceDeclared is an explicit code-side declaration by a
	// hand-written Handler.
	SourceDeclared Source = iota
	// SourceReflected is inferred by reflection over the Go type at
	// first use.
	SourceReflected
	// SourcePersisted arrived embedded in a store's catalog or was
	// received on the wire.
	SourcePersisted
)

// ErrUnknownContract is returned when a contract name has no catalog
// entry (spec §7 UnknownContract).
type ErrUnknownContract struct{ Name string }

func (e *ErrUnknownContract) Error() string {
	return fmt.Sprintf("serialize: unknown contract %q", e.Name)
}

// ErrSchemaMismatch is returned when a schema cannot be reconciled with
// the handler's compiled expectations (spec §7 SchemaMismatch).
type ErrSchemaMismatch struct{ Detail string }

func (e *ErrSchemaMismatch) Error() string {
	return "serialize: schema mismatch: " + e.Detail
}

// Catalog is the schema half of the registry: a name/id -> TypeSchema
// map, safe for concurrent readers while writes take an exclusive lock
// (spec §5).
type Catalog struct {
	mu       sync.RWMutex
	byName   map[string]*TypeSchema
	byID     map[int32]*TypeSchema
	sourceOf map[string]Source
}

// NewCatalog returns an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		byName:   make(map[string]*TypeSchema),
		byID:     make(map[int32]*TypeSchema),
		sourceOf: make(map[string]Source),
	}
}

// Declare registers schema from an explicit hand-written Handler. If a
// schema for the same contract already exists from a lower-priority
// source (Reflected), the declared one replaces it; a declared schema is
// never overwritten implicitly.
func (c *Catalog) Declare(schema *TypeSchema) {
	c.put(schema, SourceDeclared)
}

// Reflect registers schema inferred by reflection at first use. It does
// not override an already-declared or already-persisted schema for the
// same contract.
func (c *Catalog) Reflect(schema *TypeSchema) {
	c.mu.Lock()
	if existing, ok := c.byName[schema.ContractName]; ok {
		src := c.sourceOf[schema.ContractName]
		if src == SourceDeclared || src == SourcePersisted {
			_ = existing
			c.mu.Unlock()
			return
		}
	}
	c.mu.Unlock()
	c.put(schema, SourceReflected)
}

// Persist registers a schema embedded in a store's catalog or received
// on the wire. Per spec §4.D, a persisted (target) schema always wins
// member-disagreement reconciliation against the runtime handler's
// declared/reflected schema -- callers use Reconcile against the
// existing entry before calling Persist to replace it.
func (c *Catalog) Persist(schema *TypeSchema) {
	c.put(schema, SourcePersisted)
}

func (c *Catalog) put(schema *TypeSchema, src Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byName[schema.ContractName] = schema
	c.byID[schema.ID] = schema
	c.sourceOf[schema.ContractName] = src
}

// ByName looks up a schema by contract name.
func (c *Catalog) ByName(name string) (*TypeSchema, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.byName[name]
	if !ok {
		return nil, &ErrUnknownContract{Name: name}
	}
	return s, nil
}

// ByID looks up a schema by its numeric id.
func (c *Catalog) ByID(id int32) (*TypeSchema, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.byID[id]
	if !ok {
		return nil, &ErrUnknownContract{Name: fmt.Sprintf("id:%d", id)}
	}
	return s, nil
}

// SourceOf reports which of the three arrival paths produced the
// current entry for name, for diagnostics.
func (c *Catalog) SourceOf(name string) (Source, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sourceOf[name]
	return s, ok
}

// All returns a snapshot of every schema currently in the catalog, used
// when writing a store's catalog segment.
func (c *Catalog) All() []*TypeSchema {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*TypeSchema, 0, len(c.byName))
	for _, s := range c.byName {
		out = append(out, s)
	}
	return out
}
