package pipeline

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsActivations(t *testing.T) {
	s := NewScheduler(2, nil)
	defer s.Stop()

	var n int32
	done := make(chan struct{})
	s.schedule(func() {
		atomic.AddInt32(&n, 1)
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("activation never ran")
	}
	require.EqualValues(t, 1, atomic.LoadInt32(&n))
}

func TestSchedulerStopDrainsWorkers(t *testing.T) {
	s := NewScheduler(1, nil)
	s.Stop()
	require.True(t, s.IsHalting())
}
