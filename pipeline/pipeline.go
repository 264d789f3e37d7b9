package pipeline

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/tempopipe/tempopipe/envelope"
)

// Pipeline is the top-level container: it owns the scheduler every
// component's receivers run on, mints component and source identities,
// and coordinates cooperative shutdown.
type Pipeline struct {
	Name      string
	scheduler *Scheduler
	logger    *log.Logger
	metrics   *Metrics

	mu         sync.Mutex
	components []*Component
	running    bool
	stopped    bool
	err        error

	nextSourceID int32
	replay       *ReplayDescriptor

	ownsScheduler bool
}

// Options configures a Pipeline at construction.
type Options struct {
	Name    string
	Workers int // not read by New; Run's workers argument sets the pool size
	Logger  *log.Logger
	Replay  *ReplayDescriptor
	// Metrics, if set, feeds per-receiver queue depth and drop counters
	// to a prometheus registry. Nil disables the instrumentation at
	// zero cost.
	Metrics *Metrics
}

// New constructs a Pipeline and its backing scheduler, ready to accept
// components. The scheduler does not start running activations until Run
// is called.
func New(opts Options) *Pipeline {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	name := opts.Name
	if name == "" {
		name = "pipeline"
	}
	return &Pipeline{
		Name:    name,
		logger:  opts.Logger,
		replay:  opts.Replay,
		metrics: opts.Metrics,
		// The scheduler exists from the start so receivers created
		// before Run are bound to it; its workers start only in Run, so
		// Stop-before-Run never leaves worker goroutines running.
		scheduler:     &Scheduler{activations: make(chan activation, 1024), logger: opts.Logger},
		ownsScheduler: true,
	}
}

// CreateComponent registers and returns a new Component with its own
// fresh SyncContext.
func (p *Pipeline) CreateComponent(name string) *Component {
	c := &Component{Name: name, pipeline: p, sync: NewSyncContext()}
	p.mu.Lock()
	p.components = append(p.components, c)
	p.mu.Unlock()
	return c
}

// NextSourceID mints the next globally unique emitter source id for this
// pipeline, used to stamp Envelope.SourceID.
func (p *Pipeline) NextSourceID() int32 {
	return atomic.AddInt32(&p.nextSourceID, 1)
}

// Replay returns the pipeline's replay window, or nil if running live.
func (p *Pipeline) Replay() *ReplayDescriptor { return p.replay }

// Logger returns the pipeline's logger, shared by every component.
func (p *Pipeline) Logger() *log.Logger { return p.logger }

// Metrics returns the pipeline's metrics sink, or nil if none was
// configured.
func (p *Pipeline) Metrics() *Metrics { return p.metrics }

// Run starts the scheduler's worker pool. Call once before posting any
// messages.
func (p *Pipeline) Run(workers int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	for i := 0; i < workers; i++ {
		p.scheduler.Go(p.scheduler.runWorker)
	}
	p.running = true
}

// Scheduler exposes the backing scheduler for components that need to
// build Receivers directly (CreateReceiver is the usual entry point).
func (p *Pipeline) Scheduler() *Scheduler { return p.scheduler }

// Stop closes every component (propagating finalTime to their
// receivers) and halts the scheduler, waiting for in-flight activations
// to drain.
func (p *Pipeline) Stop(finalTime envelope.DateTime) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	comps := append([]*Component(nil), p.components...)
	sched := p.scheduler
	p.mu.Unlock()

	for _, c := range comps {
		c.Close(finalTime)
	}
	if sched != nil && p.ownsScheduler {
		sched.Stop()
	}
}

// Abort halts the pipeline immediately because of a fatal-to-pipeline
// error (spec §7: e.g. OutOfOrderPost, MultiplePrimaryClocks) — the
// cause is recorded for Err, background threads are joined via Stop,
// and every component's receivers are closed as of finalTime. Only the
// first cause passed to Abort is kept; later calls still stop the
// pipeline but do not overwrite it.
func (p *Pipeline) Abort(cause error, finalTime envelope.DateTime) {
	p.mu.Lock()
	if p.err == nil {
		p.err = cause
	}
	p.mu.Unlock()
	p.Stop(finalTime)
}

// Err returns the fatal cause that aborted the pipeline, or nil if it
// has not been aborted.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// CreateReceiver builds a Receiver[T] bound to c's SyncContext and the
// pipeline's scheduler, and registers it so Pipeline.Stop closes it.
func CreateReceiver[T any](c *Component, name string, policy DeliveryPolicy[T], handler Handler[T]) *Receiver[T] {
	r := NewReceiver(name, policy, c.sync, c.pipeline.scheduler, handler, c.pipeline.logger, c.pipeline.metrics)
	c.trackCloser(r.Close)
	return r
}

// CreateEmitter builds an Emitter[T] stamped with a freshly minted
// source id from the owning pipeline, wired to abort that pipeline on
// an out-of-order post.
func CreateEmitter[T any](c *Component, name string) *Emitter[T] {
	return NewEmitter[T](c.Name+"."+name, c.pipeline.NextSourceID(), c.pipeline)
}
