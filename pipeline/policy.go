package pipeline

import "github.com/tempopipe/tempopipe/envelope"

// QueueKind selects a Receiver's queueing/overflow behavior (spec §4.E).
type QueueKind int

const (
	// KindUnlimited never drops and never blocks the poster; capacity
	// grows without bound.
	KindUnlimited QueueKind = iota
	// KindLatestMessage keeps only the single newest message, dropping
	// the previous one on arrival.
	KindLatestMessage
	// KindThrottle blocks the poster once the queue reaches
	// ThrottleQueueSize, draining before accepting more.
	KindThrottle
	// KindSynchronousOrThrottle attempts same-thread delivery first
	// (if the receiver's sync context is free) and falls back to
	// KindThrottle behavior otherwise.
	KindSynchronousOrThrottle
)

// DeliveryPolicy configures how a Receiver[T] accepts messages from its
// Emitter. The zero value is not meaningful; use one of the preset
// constructors or DeliveryPolicy literal with Kind set explicitly.
type DeliveryPolicy[T any] struct {
	Name string
	Kind QueueKind

	InitialQueueSize int
	MaximumQueueSize int // 0 means unbounded

	MaximumLatency *envelope.TimeSpan

	ThrottleQueueSize int

	AttemptSynchronous bool

	// GuaranteeDelivery, when non-nil, exempts a message from any
	// overflow-driven drop when it returns true for that message.
	GuaranteeDelivery func(T) bool
}

const defaultInitialQueueSize = 16

// Unlimited is sugar for an unbounded, non-blocking, non-dropping queue.
func Unlimited[T any](name string) DeliveryPolicy[T] {
	return DeliveryPolicy[T]{Name: name, Kind: KindUnlimited, InitialQueueSize: defaultInitialQueueSize}
}

// LatestMessage is sugar for a capacity-1 queue that drops the older
// message on overflow.
func LatestMessage[T any](name string) DeliveryPolicy[T] {
	return DeliveryPolicy[T]{Name: name, Kind: KindLatestMessage, InitialQueueSize: 1, MaximumQueueSize: 1}
}

// Throttle is sugar for a queue that blocks the posting emitter once it
// reaches throttleSize.
func Throttle[T any](name string, throttleSize int) DeliveryPolicy[T] {
	return DeliveryPolicy[T]{
		Name:              name,
		Kind:              KindThrottle,
		InitialQueueSize:  defaultInitialQueueSize,
		ThrottleQueueSize: throttleSize,
	}
}

// SynchronousOrThrottle is sugar for a policy that attempts in-line
// delivery on the posting thread, falling back to Throttle semantics.
func SynchronousOrThrottle[T any](name string, throttleSize int) DeliveryPolicy[T] {
	return DeliveryPolicy[T]{
		Name:               name,
		Kind:               KindSynchronousOrThrottle,
		InitialQueueSize:   defaultInitialQueueSize,
		ThrottleQueueSize:  throttleSize,
		AttemptSynchronous: true,
	}
}
