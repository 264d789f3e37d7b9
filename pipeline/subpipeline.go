package pipeline

// NewSubpipeline builds a nested Pipeline that shares parent's scheduler
// and logger instead of spinning up its own worker pool. This is what
// lets a sparse dispatcher (temporal.Parallel) spawn and tear down one
// subpipeline per key cheaply: Stop on the child closes only the child's
// own components and never halts the shared pool.
func NewSubpipeline(parent *Pipeline, name string) *Pipeline {
	parent.mu.Lock()
	sched := parent.scheduler
	logger := parent.logger
	replay := parent.replay
	parent.mu.Unlock()

	return &Pipeline{
		Name:      parent.Name + "/" + name,
		scheduler: sched,
		logger:    logger,
		replay:    replay,
		running:   true,
		// ownsScheduler stays false: Stop must not halt the parent's pool.
	}
}
