package pipeline

import (
	"sync"

	"github.com/charmbracelet/log"
	"github.com/tempopipe/tempopipe/envelope"
	"gopkg.in/eapache/channels.v1"
)

// Handler is invoked, under the owning component's SyncContext, for each
// message a Receiver accepts. A non-nil error is logged; it does not stop
// the receiver.
type Handler[T any] func(envelope.Message[T]) error

// Receiver is the consuming end of a pipeline edge. It owns a queue whose
// overflow behavior is fixed by a DeliveryPolicy, and dispatches queued
// messages one at a time onto a Scheduler, serialized against every
// other receiver sharing its SyncContext.
type Receiver[T any] struct {
	name      string
	policy    DeliveryPolicy[T]
	scheduler *Scheduler
	sync      *SyncContext
	handler   Handler[T]
	logger    *log.Logger
	metrics   *Metrics

	mu        sync.Mutex
	buf       []envelope.Message[T]
	unlimited *channels.InfiniteChannel // non-nil only for KindUnlimited
	cond      *sync.Cond
	scheduled bool
	closed    bool

	hasLast      bool
	lastOrigTime envelope.DateTime

	unsubscribed func(envelope.DateTime)
}

// NewReceiver builds a Receiver bound to syncCtx for serialization and
// scheduler for execution. handler runs once per accepted message.
func NewReceiver[T any](name string, policy DeliveryPolicy[T], syncCtx *SyncContext, scheduler *Scheduler, handler Handler[T], logger *log.Logger, metrics *Metrics) *Receiver[T] {
	if logger == nil {
		logger = log.Default()
	}
	r := &Receiver[T]{
		name:      name,
		policy:    policy,
		scheduler: scheduler,
		sync:      syncCtx,
		handler:   handler,
		logger:    logger,
		metrics:   metrics,
	}
	r.cond = sync.NewCond(&r.mu)
	if policy.Kind == KindUnlimited {
		r.unlimited = channels.NewInfiniteChannel()
	} else {
		queueCap := policy.InitialQueueSize
		if queueCap <= 0 {
			queueCap = defaultInitialQueueSize
		}
		r.buf = make([]envelope.Message[T], 0, queueCap)
	}
	return r
}

// OnUnsubscribe registers a callback that Close invokes once, with the
// finalTime passed to Close. The callback runs inside Close and does not
// wait for messages still queued on the receiver to be handled.
func (r *Receiver[T]) OnUnsubscribe(fn func(envelope.DateTime)) {
	r.mu.Lock()
	r.unsubscribed = fn
	r.mu.Unlock()
}

// Deliver hands msg to the receiver, applying its DeliveryPolicy. It
// never blocks the caller for KindUnlimited or KindLatestMessage; it may
// block for KindThrottle (and, on a busy sync context, for
// KindSynchronousOrThrottle).
func (r *Receiver[T]) Deliver(msg envelope.Message[T]) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrPipelineStopped
	}
	if r.hasLast && !(r.lastOrigTime < msg.Envelope.OriginatingTime) {
		r.mu.Unlock()
		return ErrOutOfOrderPost
	}
	r.lastOrigTime = msg.Envelope.OriginatingTime
	r.hasLast = true
	r.mu.Unlock()

	if r.policy.MaximumLatency != nil && msg.Envelope.Latency() > *r.policy.MaximumLatency {
		guaranteed := r.policy.GuaranteeDelivery != nil && r.policy.GuaranteeDelivery(msg.Payload)
		if !guaranteed {
			r.metrics.incDrop(r.name, "stale")
			return nil // dropped: already past its usefulness window
		}
	}

	if r.policy.AttemptSynchronous && r.sync.TryLock() {
		r.runHandler(msg)
		r.sync.Unlock()
		return nil
	}

	r.enqueue(msg)
	return nil
}

func (r *Receiver[T]) enqueue(msg envelope.Message[T]) {
	if r.policy.Kind == KindUnlimited {
		r.unlimited.In() <- msg
		r.metrics.setQueueDepth(r.name, r.unlimited.Len())
		r.scheduleIfIdle()
		return
	}

	r.mu.Lock()
	switch r.policy.Kind {
	case KindLatestMessage:
		if len(r.buf) > 0 {
			guaranteed := r.policy.GuaranteeDelivery != nil && r.policy.GuaranteeDelivery(r.buf[0].Payload)
			if !guaranteed {
				r.buf[0] = msg
				r.metrics.incDrop(r.name, "latest_message_coalesced")
				r.metrics.setQueueDepth(r.name, len(r.buf))
				r.mu.Unlock()
				r.scheduleIfIdle()
				return
			}
		}
		r.buf = append(r.buf, msg)
	case KindThrottle, KindSynchronousOrThrottle:
		for r.policy.ThrottleQueueSize > 0 && len(r.buf) >= r.policy.ThrottleQueueSize && !r.closed {
			r.cond.Wait()
		}
		r.buf = append(r.buf, msg)
	default:
		if r.policy.MaximumQueueSize > 0 && len(r.buf) >= r.policy.MaximumQueueSize {
			r.buf = r.buf[1:]
			r.metrics.incDrop(r.name, "queue_full")
		}
		r.buf = append(r.buf, msg)
	}
	r.metrics.setQueueDepth(r.name, len(r.buf))
	r.mu.Unlock()
	r.scheduleIfIdle()
}

func (r *Receiver[T]) scheduleIfIdle() {
	r.mu.Lock()
	if r.scheduled || r.closed {
		r.mu.Unlock()
		return
	}
	r.scheduled = true
	r.mu.Unlock()
	r.scheduler.schedule(r.runOne)
}

// runOne dequeues a single message and executes the handler under the
// SyncContext lock, then re-submits itself if more work remains.
func (r *Receiver[T]) runOne() {
	msg, ok := r.dequeue()
	if !ok {
		r.mu.Lock()
		r.scheduled = false
		r.mu.Unlock()
		return
	}

	r.sync.Lock()
	r.runHandler(msg)
	r.sync.Unlock()

	r.mu.Lock()
	more := r.pending()
	if !more {
		r.scheduled = false
	}
	r.mu.Unlock()
	if more {
		r.scheduler.schedule(r.runOne)
	}
}

func (r *Receiver[T]) runHandler(msg envelope.Message[T]) {
	if err := r.handler(msg); err != nil {
		r.logger.Error("receiver handler failed", "receiver", r.name, "error", err)
	}
}

func (r *Receiver[T]) dequeue() (envelope.Message[T], bool) {
	if r.policy.Kind == KindUnlimited {
		select {
		case v := <-r.unlimited.Out():
			r.metrics.setQueueDepth(r.name, r.unlimited.Len())
			return v.(envelope.Message[T]), true
		default:
			var zero envelope.Message[T]
			return zero, false
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.buf) == 0 {
		var zero envelope.Message[T]
		return zero, false
	}
	msg := r.buf[0]
	r.buf = r.buf[1:]
	r.cond.Signal()
	r.metrics.setQueueDepth(r.name, len(r.buf))
	return msg, true
}

func (r *Receiver[T]) pending() bool {
	if r.policy.Kind == KindUnlimited {
		return r.unlimited.Len() > 0
	}
	return len(r.buf) > 0
}

// Close marks the receiver closed: further Deliver calls return
// ErrPipelineStopped and any blocked Throttle poster is released.
func (r *Receiver[T]) Close(finalTime envelope.DateTime) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	cb := r.unsubscribed
	r.mu.Unlock()
	r.cond.Broadcast()
	if r.unlimited != nil {
		r.unlimited.Close()
	}
	if cb != nil {
		cb(finalTime)
	}
}
