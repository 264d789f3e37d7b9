package remoting

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tempopipe/tempopipe/clock"
	"github.com/tempopipe/tempopipe/envelope"
)

// Backoff shape for SyncWithRetry's redial loop, the same
// increment-then-cap schedule as a TCP reconnect loop: wait, dial, back
// off further on failure, cap the wait, try again.
const (
	retryIncrement = 15 * time.Second
	maxRetryDelay  = 2 * time.Minute
)

// ClockFollower applies a negotiated clock offset to a local
// VirtualClock and enforces that only one remote machine is ever
// accepted as the primary clock source (spec §4.G:
// "detecting a conflict is fatal").
type ClockFollower struct {
	mu          sync.Mutex
	vc          *clock.VirtualClock
	localName   string
	primaryName string
	locked      bool
}

// NewClockFollower wraps vc, identified as localName for
// identical-machine short-circuiting.
func NewClockFollower(vc *clock.VirtualClock, localName string) *ClockFollower {
	return &ClockFollower{vc: vc, localName: localName}
}

// Sync negotiates against one primary clock connection and applies the
// resulting offset. Calling Sync again with a different primaryName
// after one has already been accepted returns ErrMultiplePrimaryClocks
// without altering the clock.
func (f *ClockFollower) Sync(conn Conn, primaryName string) error {
	f.mu.Lock()
	if f.locked && f.primaryName != primaryName {
		f.mu.Unlock()
		return ErrMultiplePrimaryClocks
	}
	f.mu.Unlock()

	offset, err := NegotiateClockOffset(conn, f.localName, f.vc.Now)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locked && f.primaryName != primaryName {
		return ErrMultiplePrimaryClocks
	}
	f.vc.SetOffset(offset)
	f.primaryName = primaryName
	f.locked = true
	return nil
}

// SyncWithRetry behaves like Sync but, rather than giving up on the
// first failed dial or negotiation, redials addr through transport and
// retries with an incremental backoff capped at maxRetryDelay. It
// returns only once a negotiation succeeds, a primary-clock conflict is
// detected, or ctx is done.
func (f *ClockFollower) SyncWithRetry(ctx context.Context, transport Transport, addr string, primaryName string) error {
	delay := time.Duration(0)
	for {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		conn, err := transport.Dial(ctx, addr)
		if err == nil {
			err = f.Sync(conn, primaryName)
			conn.Close()
			if err == nil {
				return nil
			}
			if errors.Is(err, ErrMultiplePrimaryClocks) {
				return err
			}
		}

		delay += retryIncrement
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
}

// Offset reports the currently applied virtual-time offset.
func (f *ClockFollower) Offset() envelope.TimeSpan {
	return f.vc.Offset()
}
