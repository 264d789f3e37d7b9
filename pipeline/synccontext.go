package pipeline

import "sync"

// SyncContext is the serialization boundary components are scheduled
// against: every receiver bound to the same SyncContext executes its
// handler one at a time, in the order the scheduler hands out
// activations, while receivers on distinct contexts may run concurrently
// on different workers (spec §4.E synchronization-context scheduling).
type SyncContext struct {
	mu sync.Mutex
}

// NewSyncContext returns a fresh, independent synchronization context.
func NewSyncContext() *SyncContext {
	return &SyncContext{}
}

// Lock blocks until the context is free.
func (s *SyncContext) Lock() { s.mu.Lock() }

// Unlock releases the context.
func (s *SyncContext) Unlock() { s.mu.Unlock() }

// TryLock attempts same-thread delivery: it reports whether the context
// was free and has now been acquired by the caller.
func (s *SyncContext) TryLock() bool { return s.mu.TryLock() }
