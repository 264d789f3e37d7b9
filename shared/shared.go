// Package shared implements reference-counted, pool-recycled resource
// handles that carry through the pipeline without copies (spec §4.C).
//
// The source language relies on GC finalizers as a last-resort safety
// net for forgotten releases, which the design notes (spec §9) call out
// as a bug the project mitigates with leak tracking. This port instead
// requires every acquisition to be paired with an explicit Release: the
// pool has no finalizer to fall back on. DebugTrace, when enabled,
// records the call stack of construction and of the last Release so a
// UseAfterFree/DoubleFree can be diagnosed after the fact, mirroring
// that same design note.
package shared

import (
	"runtime/debug"
	"sync/atomic"
)

// DebugTrace enables capture of construction/release call stacks for
// diagnosing double-free and use-after-free bugs; while it is on, Get
// and Release panic with those stacks instead of returning
// ErrUseAfterFree or ErrDoubleFree. Off by default since it allocates on
// every acquire/release.
var DebugTrace = false

// Clearable is implemented by resources that hold nested references
// needing to be dropped before the resource returns to a pool's free
// list (spec §4.D Clear). Resources without nested references need not
// implement it.
type Clearable interface {
	Clear()
}

// container is the shared, ref-counted backing for one resource
// instance. Multiple Shared[T] handles may point at the same container.
type container[T any] struct {
	resource T
	refCount int32
	pool     *Pool[T]

	constructedAt []byte
	releasedAt    []byte
}

func newContainer[T any](resource T, pool *Pool[T]) *container[T] {
	c := &container[T]{resource: resource, refCount: 1, pool: pool}
	if DebugTrace {
		c.constructedAt = debug.Stack()
	}
	return c
}

// Shared is a handle to a pooled resource. The zero value is not valid;
// obtain one from Pool.GetOrCreate, Pool.TryGet, or AddRef.
type Shared[T any] struct {
	c *container[T]
}

// AddRef returns a new Shared handle sharing the same container and
// increments its reference count. Both the original and the new handle
// must independently be released.
func (s Shared[T]) AddRef() Shared[T] {
	if s.c == nil {
		panic("shared: AddRef on zero-value Shared")
	}
	atomic.AddInt32(&s.c.refCount, 1)
	return Shared[T]{c: s.c}
}

// Get dereferences the resource. It returns ErrUseAfterFree if the
// container's reference count has already reached zero.
func (s Shared[T]) Get() (T, error) {
	var zero T
	if s.c == nil || atomic.LoadInt32(&s.c.refCount) <= 0 {
		if DebugTrace && s.c != nil {
			panic("shared: use after free\nconstructed at:\n" + string(s.c.constructedAt) +
				"\nlast released at:\n" + string(s.c.releasedAt))
		}
		return zero, ErrUseAfterFree
	}
	return s.c.resource, nil
}

// MustGet is Get but panics on error; useful once a caller has already
// established the handle is live (e.g. immediately after acquiring it).
func (s Shared[T]) MustGet() T {
	v, err := s.Get()
	if err != nil {
		panic(err)
	}
	return v
}

// RefCount returns the container's current reference count.
func (s Shared[T]) RefCount() int32 {
	if s.c == nil {
		return 0
	}
	return atomic.LoadInt32(&s.c.refCount)
}

// Release decrements the reference count. At zero, the resource is
// cleared (if it implements Clearable) and returned to its pool's free
// list, or disposed if it has no pool. Releasing a container whose count
// is already zero is a double free.
func (s Shared[T]) Release() error {
	if s.c == nil {
		panic("shared: Release on zero-value Shared")
	}
	for {
		cur := atomic.LoadInt32(&s.c.refCount)
		if cur <= 0 {
			if DebugTrace {
				panic("shared: double free\nconstructed at:\n" + string(s.c.constructedAt) +
					"\nlast released at:\n" + string(s.c.releasedAt))
			}
			return ErrDoubleFree
		}
		if atomic.CompareAndSwapInt32(&s.c.refCount, cur, cur-1) {
			if DebugTrace {
				s.c.releasedAt = debug.Stack()
			}
			if cur-1 == 0 {
				s.finalize()
			}
			return nil
		}
	}
}

func (s Shared[T]) finalize() {
	if s.c.pool != nil {
		s.c.pool.recycle(s.c.resource)
		return
	}
	if dis, ok := any(s.c.resource).(interface{ Dispose() }); ok {
		dis.Dispose()
	}
}
