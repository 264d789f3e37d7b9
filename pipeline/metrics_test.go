package pipeline

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"github.com/tempopipe/tempopipe/envelope"
)

func TestMetricsCountsLatestMessageCoalesce(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	p := New(Options{Name: "t", Metrics: m})
	c := p.CreateComponent("c")

	blockUntil := make(chan struct{})
	receiver := CreateReceiver[int](c, "in", LatestMessage[int]("in"), func(msg envelope.Message[int]) error {
		<-blockUntil
		return nil
	})
	p.Run(1)
	defer func() {
		close(blockUntil)
		p.Stop(envelope.DateTime(100))
	}()

	require.NoError(t, receiver.Deliver(envelope.NewMessage(1, envelope.Envelope{OriginatingTime: 1})))
	// The first message is immediately picked up by the lone worker and
	// blocks on blockUntil, so these queue behind it and coalesce.
	require.NoError(t, receiver.Deliver(envelope.NewMessage(2, envelope.Envelope{OriginatingTime: 2})))
	require.NoError(t, receiver.Deliver(envelope.NewMessage(3, envelope.Envelope{OriginatingTime: 3})))

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.drops.WithLabelValues("in", "latest_message_coalesced")) >= 1
	}, time.Second, 10*time.Millisecond)
}

func TestMetricsNilIsInert(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.setQueueDepth("x", 3)
		m.incDrop("x", "reason")
	})
}

func TestMetricsHandlerNonNil(t *testing.T) {
	require.NotNil(t, Handler())
}
