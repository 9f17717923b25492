package cluster

import (
	"context"
	"sync"
	"sync/atomic"
)

// CountsHandoff passes the per-type light counts of one frame from the buffer
// filler to the command-recording thread. It holds at most one publication: a
// second Publish before the first is consumed is a programming error and panics.
type CountsHandoff struct {
	slot      chan Counts
	published atomic.Uint64
	consumed  atomic.Uint64
	closed    chan struct{}
	closeOnce sync.Once
}

// NewCountsHandoff creates an empty handoff.
func NewCountsHandoff() *CountsHandoff {
	return &CountsHandoff{
		slot:   make(chan Counts, 1),
		closed: make(chan struct{}),
	}
}

// Publish makes c available to one consumer.
//
// Parameters:
//   - c: the counts to hand off
func (h *CountsHandoff) Publish(c Counts) {
	select {
	case h.slot <- c:
		h.published.Add(1)
	default:
		panic("cluster: counts published twice without being consumed")
	}
}

// WaitForCounts blocks until counts are published and consumes them.
//
// Returns:
//   - Counts: the published counts
//   - error: ErrClosed if the handoff was closed first
func (h *CountsHandoff) WaitForCounts() (Counts, error) {
	return h.WaitForCountsContext(context.Background())
}

// WaitForCountsContext is WaitForCounts with cancellation.
//
// Parameters:
//   - ctx: cancels the wait
//
// Returns:
//   - Counts: the published counts
//   - error: ctx.Err() or ErrClosed if no counts arrived
func (h *CountsHandoff) WaitForCountsContext(ctx context.Context) (Counts, error) {
	select {
	case c := <-h.slot:
		h.consumed.Add(1)
		return c, nil
	case <-h.closed:
		return Counts{}, ErrClosed
	case <-ctx.Done():
		return Counts{}, ctx.Err()
	}
}

// TryCounts consumes the counts if they are already published.
//
// Returns:
//   - Counts: the published counts
//   - bool: false if nothing was waiting
func (h *CountsHandoff) TryCounts() (Counts, bool) {
	select {
	case c := <-h.slot:
		h.consumed.Add(1)
		return c, true
	default:
		return Counts{}, false
	}
}

// discard drops an unconsumed publication without counting it as consumed.
func (h *CountsHandoff) discard() (Counts, bool) {
	select {
	case c := <-h.slot:
		return c, true
	default:
		return Counts{}, false
	}
}

// Published returns how many times counts have been published.
func (h *CountsHandoff) Published() uint64 { return h.published.Load() }

// Consumed returns how many publications have been consumed.
func (h *CountsHandoff) Consumed() uint64 { return h.consumed.Load() }

// Close wakes every waiter with ErrClosed. Safe to call more than once.
func (h *CountsHandoff) Close() {
	h.closeOnce.Do(func() { close(h.closed) })
}
