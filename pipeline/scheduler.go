package pipeline

import (
	"runtime"

	"github.com/charmbracelet/log"
	"github.com/tempopipe/tempopipe/internal/xworker"
)

// activation is one unit of scheduled work: "run the next queued message
// on this receiver". Receivers re-submit themselves while their queue
// remains non-empty after a run, so a single activation never starves
// the pool.
type activation func()

// Scheduler is the fixed-size worker pool that drains pending receiver
// activations. It is the Go analogue of a synchronization-context-aware
// thread pool: the pool picks activations off a shared ready queue, but
// the SyncContext each activation locks gives per-component ordering
// regardless of which worker happens to run it.
type Scheduler struct {
	xworker.Worker

	activations chan activation
	logger      *log.Logger
}

// NewScheduler starts workers goroutines draining the ready queue. A
// workers value <= 0 defaults to runtime.GOMAXPROCS(0).
func NewScheduler(workers int, logger *log.Logger) *Scheduler {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = log.Default()
	}
	s := &Scheduler{
		activations: make(chan activation, 1024),
		logger:      logger,
	}
	for i := 0; i < workers; i++ {
		s.Go(s.runWorker)
	}
	return s
}

func (s *Scheduler) runWorker() {
	for {
		select {
		case <-s.HaltCh():
			return
		case act := <-s.activations:
			s.safeRun(act)
		}
	}
}

func (s *Scheduler) safeRun(act activation) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("activation panicked", "recover", r)
		}
	}()
	act()
}

// schedule enqueues an activation. It does not block indefinitely on a
// halted scheduler: if Halt has already been called, the activation is
// dropped rather than leaking the caller.
func (s *Scheduler) schedule(act activation) {
	select {
	case s.activations <- act:
	case <-s.HaltCh():
	}
}

// Stop halts the worker pool and waits for in-flight activations to
// finish (or panic-recover).
func (s *Scheduler) Stop() {
	s.Halt()
	s.Wait()
}
