// Package serialize implements the serialization registry: a schema
// catalog (name/id -> TypeSchema), a handler cache, the polymorphic ref
// envelope that lets object graphs (including cycles) round-trip
// through the buffer codec, and a back-compat wrapper for reading older
// schema versions (spec §4.D).
//
// The source generates field-visit code by IL emission at runtime. Per
// the design notes (spec §9) this port instead defines an explicit
// Handler interface; hand-written handlers implement it directly and
// register by contract name. There is no reflection-based fallback: a
// contract with no registered handler is reported as ErrUnknownContract.
// The schema catalog remains the ground truth for wire compatibility.
package serialize

import (
	"hash/fnv"
)

// Flags classifies the shape of a serializable type.
type Flags int

const (
	FlagClass Flags = iota
	FlagStruct
	FlagCollection
	FlagContract
)

// Member describes one field of a TypeSchema.
type Member struct {
	Name     string
	Type     string
	Required bool
}

// TypeSchema is the catalog's unit of record: everything needed to read
// or write instances of a contract without the compiled Go type being
// present, and to reconcile a persisted schema against the runtime type
// at read time.
type TypeSchema struct {
	ContractName             string
	ID                       int32
	TypeName                 string
	Flags                    Flags
	Members                  []Member
	Version                  int32
	SerializerTypeName       string
	SerializationSystemVersion int32
}

// SchemaID derives the positive 31-bit schema id for a contract name:
// an FNV-1a hash of the name with the sign bit cleared, so ids are
// stable across processes and never collide with the negative range
// reserved by the ref-envelope's null/tag bits.
func SchemaID(contractName string) int32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(contractName))
	return int32(h.Sum32() & 0x7fffffff)
}

// NewTypeSchema builds a TypeSchema for contractName, deriving its ID.
func NewTypeSchema(contractName, typeName string, flags Flags, members []Member, version int32) *TypeSchema {
	return &TypeSchema{
		ContractName: contractName,
		ID:           SchemaID(contractName),
		TypeName:     typeName,
		Flags:        flags,
		Members:      members,
		Version:      version,
	}
}

// Reconcile merges a target schema (e.g. the one embedded in a store
// being read) with the runtime schema a handler declares for its Go
// type. Per spec §4.D, the target wins on member disagreement: members
// present only in the runtime type are left for the caller to default,
// and members present only in the target schema are dropped (the
// returned slice reports them so callers can skip those bytes/fields).
func Reconcile(target, runtime *TypeSchema) (shared []Member, runtimeOnly []Member, targetOnly []Member) {
	runtimeByName := make(map[string]Member, len(runtime.Members))
	for _, m := range runtime.Members {
		runtimeByName[m.Name] = m
	}
	seen := make(map[string]bool, len(target.Members))
	for _, tm := range target.Members {
		seen[tm.Name] = true
		if _, ok := runtimeByName[tm.Name]; ok {
			shared = append(shared, tm)
		} else {
			targetOnly = append(targetOnly, tm)
		}
	}
	for _, rm := range runtime.Members {
		if !seen[rm.Name] {
			runtimeOnly = append(runtimeOnly, rm)
		}
	}
	return shared, runtimeOnly, targetOnly
}
