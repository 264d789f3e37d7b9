package xworker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWorkerHaltStopsGoroutine(t *testing.T) {
	var w Worker
	started := make(chan struct{})
	stopped := make(chan struct{})
	w.Go(func() {
		close(started)
		<-w.HaltCh()
		close(stopped)
	})

	<-started
	require.False(t, w.IsHalting())
	w.Halt()
	w.Halt() // idempotent
	require.True(t, w.IsHalting())

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("goroutine did not observe halt")
	}
	w.Wait()
}
