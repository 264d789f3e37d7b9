package shared

import "sync"

// Pool is a recycling allocator for shared resources of type T: a LIFO
// stack of cleared instances available for reuse, backed by an
// allocator function for when the stack is empty.
type Pool[T any] struct {
	mu        sync.Mutex
	allocate  func() T
	all       []T
	available []T
}

// NewPool creates a Pool using allocate to construct new instances when
// none are available for reuse.
func NewPool[T any](allocate func() T) *Pool[T] {
	return &Pool[T]{allocate: allocate}
}

// GetOrCreate pops a cleared instance from the available stack, or
// allocates a new one via the pool's allocator, and wraps it in a fresh
// Shared handle with ref_count=1.
func (p *Pool[T]) GetOrCreate() Shared[T] {
	p.mu.Lock()
	var resource T
	if n := len(p.available); n > 0 {
		resource = p.available[n-1]
		p.available = p.available[:n-1]
	} else {
		resource = p.allocate()
		p.all = append(p.all, resource)
	}
	p.mu.Unlock()
	return Shared[T]{c: newContainer(resource, p)}
}

// TryGet returns a Shared handle only if an instance is already
// available for reuse; it never allocates. The second return value is
// false if the pool was empty.
func (p *Pool[T]) TryGet() (Shared[T], bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.available)
	if n == 0 {
		return Shared[T]{}, false
	}
	resource := p.available[n-1]
	p.available = p.available[:n-1]
	return Shared[T]{c: newContainer(resource, p)}, true
}

// recycle is invoked only by Shared.Release when a container's
// ref-count reaches zero and the container has this pool set. It clears
// the resource (breaking outgoing references) before pushing it onto
// the free list.
func (p *Pool[T]) recycle(resource T) {
	if cl, ok := any(resource).(Clearable); ok {
		cl.Clear()
	}
	p.mu.Lock()
	p.available = append(p.available, resource)
	p.mu.Unlock()
}

// Reset empties the available stack. If clearLive is false and some
// instances are still outstanding (not all allocated instances are
// currently available), Reset fails with ErrPoolHasLiveObjects rather
// than silently abandoning them.
func (p *Pool[T]) Reset(clearLive bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !clearLive && len(p.available) != len(p.all) {
		return ErrPoolHasLiveObjects
	}
	p.available = nil
	p.all = nil
	return nil
}

// Counts returns (total allocated, currently available) for diagnostics
// and tests (spec §8 S6).
func (p *Pool[T]) Counts() (total, available int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.all), len(p.available)
}

// Dispose disposes every available instance that implements Dispose(),
// then forgets all bookkeeping. Instances still live (referenced by an
// outstanding Shared) are simply forgotten, per spec §4.C -- the pool
// cannot recover a resource whose release was never called.
func (p *Pool[T]) Dispose() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range p.available {
		if dis, ok := any(r).(interface{ Dispose() }); ok {
			dis.Dispose()
		}
	}
	p.available = nil
	p.all = nil
}

// KeyedPool is a concurrent map from K to a Pool[T], each pool created
// lazily on first use of its key via a key-dependent allocator.
type KeyedPool[K comparable, T any] struct {
	mu        sync.Mutex
	pools     map[K]*Pool[T]
	allocator func(K) T
}

// NewKeyedPool creates a KeyedPool whose per-key Pool allocates new
// instances via allocator(key).
func NewKeyedPool[K comparable, T any](allocator func(K) T) *KeyedPool[K, T] {
	return &KeyedPool[K, T]{
		pools:     make(map[K]*Pool[T]),
		allocator: allocator,
	}
}

// Pool returns the Pool for key, creating it on first access.
func (k *KeyedPool[K, T]) Pool(key K) *Pool[T] {
	k.mu.Lock()
	defer k.mu.Unlock()
	p, ok := k.pools[key]
	if !ok {
		p = NewPool(func() T { return k.allocator(key) })
		k.pools[key] = p
	}
	return p
}

// GetOrCreate is sugar for Pool(key).GetOrCreate().
func (k *KeyedPool[K, T]) GetOrCreate(key K) Shared[T] {
	return k.Pool(key).GetOrCreate()
}

// DeleteKey drops the pool for key entirely (e.g. once a parallel-sparse
// dispatch branch for that key has terminated, spec §4.F).
func (k *KeyedPool[K, T]) DeleteKey(key K) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.pools, key)
}
