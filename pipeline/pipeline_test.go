package pipeline

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tempopipe/tempopipe/envelope"
)

func TestEmitterReceiverDeliversInOrder(t *testing.T) {
	p := New(Options{Name: "t"})
	p.Run(2)
	defer p.Stop(envelope.DateTime(100))

	producer := p.CreateComponent("producer")
	consumer := p.CreateComponent("consumer")

	emitter := CreateEmitter[int](producer, "out")

	var mu sync.Mutex
	var got []int
	done := make(chan struct{}, 1)

	receiver := CreateReceiver[int](consumer, "in", Unlimited[int]("in"), func(m envelope.Message[int]) error {
		mu.Lock()
		got = append(got, m.Payload)
		n := len(got)
		mu.Unlock()
		if n == 3 {
			done <- struct{}{}
		}
		return nil
	})
	emitter.Subscribe(receiver)

	emitter.Post(1, envelope.DateTime(1))
	emitter.Post(2, envelope.DateTime(2))
	emitter.Post(3, envelope.DateTime(3))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{1, 2, 3}, got)
}

func TestReceiverRejectsOutOfOrderDelivery(t *testing.T) {
	p := New(Options{Name: "t"})
	p.Run(1)
	defer p.Stop(envelope.DateTime(100))

	c := p.CreateComponent("c")
	emitter := CreateEmitter[int](c, "out")
	receiver := CreateReceiver[int](c, "in", Unlimited[int]("in"), func(envelope.Message[int]) error { return nil })
	emitter.Subscribe(receiver)

	emitter.Post(1, envelope.DateTime(10))

	err := receiver.Deliver(envelope.NewMessage(2, envelope.Envelope{OriginatingTime: envelope.DateTime(5)}))
	require.ErrorIs(t, err, ErrOutOfOrderPost)
}

func TestLatestMessagePolicyDropsStale(t *testing.T) {
	p := New(Options{Name: "t"})
	c := p.CreateComponent("c")

	blockUntil := make(chan struct{})
	seen := make(chan int, 8)
	receiver := CreateReceiver[int](c, "in", LatestMessage[int]("in"), func(m envelope.Message[int]) error {
		<-blockUntil // hold the first activation so later posts queue up behind it
		seen <- m.Payload
		return nil
	})
	p.Run(1)
	defer p.Stop(envelope.DateTime(100))

	require.NoError(t, receiver.Deliver(envelope.NewMessage(1, envelope.Envelope{OriginatingTime: 1})))
	// give the scheduler a moment to pick up message 1 and block inside the handler
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, receiver.Deliver(envelope.NewMessage(2, envelope.Envelope{OriginatingTime: 2})))
	require.NoError(t, receiver.Deliver(envelope.NewMessage(3, envelope.Envelope{OriginatingTime: 3})))
	close(blockUntil)

	first := <-seen
	require.Equal(t, 1, first)
	second := <-seen
	require.Equal(t, 3, second, "message 2 should have been dropped in favor of the newer 3")
}

func TestSyncContextSerializesAcrossReceivers(t *testing.T) {
	p := New(Options{Name: "t"})
	c := p.CreateComponent("c")

	var active int32
	var maxActive int32
	var mu sync.Mutex
	track := func(envelope.Message[int]) error {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		active--
		mu.Unlock()
		return nil
	}

	r1 := CreateReceiver[int](c, "r1", Unlimited[int]("r1"), track)
	r2 := CreateReceiver[int](c, "r2", Unlimited[int]("r2"), track)
	p.Run(4)
	defer p.Stop(envelope.DateTime(100))

	for i := 0; i < 5; i++ {
		require.NoError(t, r1.Deliver(envelope.NewMessage(i, envelope.Envelope{OriginatingTime: envelope.DateTime(i + 1)})))
		require.NoError(t, r2.Deliver(envelope.NewMessage(i, envelope.Envelope{OriginatingTime: envelope.DateTime(i + 1)})))
	}
	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.LessOrEqual(t, maxActive, int32(1), "receivers sharing a SyncContext must never run concurrently")
}
