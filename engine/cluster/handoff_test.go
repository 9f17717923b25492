package cluster

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountsHandoff_PublishThenWait(t *testing.T) {
	h := NewCountsHandoff()
	h.Publish(Counts{Frame: 1, Point: 3, Spot: 2})

	c, err := h.WaitForCounts()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), c.Frame)
	assert.Equal(t, uint32(5), c.Total())
	assert.Equal(t, uint64(1), h.Published())
	assert.Equal(t, uint64(1), h.Consumed())
}

func TestCountsHandoff_WaitBlocksUntilPublish(t *testing.T) {
	h := NewCountsHandoff()
	got := make(chan Counts, 1)
	go func() {
		c, err := h.WaitForCounts()
		if err == nil {
			got <- c
		}
	}()

	select {
	case <-got:
		t.Fatal("WaitForCounts returned before Publish")
	case <-time.After(20 * time.Millisecond):
	}

	h.Publish(Counts{Frame: 9, Spot: 1})
	select {
	case c := <-got:
		assert.Equal(t, uint64(9), c.Frame)
	case <-time.After(time.Second):
		t.Fatal("WaitForCounts did not wake")
	}
}

func TestCountsHandoff_DoublePublishPanics(t *testing.T) {
	h := NewCountsHandoff()
	h.Publish(Counts{Frame: 1})
	assert.PanicsWithValue(t, "cluster: counts published twice without being consumed", func() {
		h.Publish(Counts{Frame: 2})
	})

	_, ok := h.TryCounts()
	assert.True(t, ok)
	assert.NotPanics(t, func() { h.Publish(Counts{Frame: 2}) })
}

func TestCountsHandoff_TryCounts(t *testing.T) {
	h := NewCountsHandoff()
	_, ok := h.TryCounts()
	assert.False(t, ok)

	h.Publish(Counts{Frame: 4})
	c, ok := h.TryCounts()
	assert.True(t, ok)
	assert.Equal(t, uint64(4), c.Frame)
	assert.Equal(t, uint64(1), h.Consumed())
}

func TestCountsHandoff_DiscardIsNotConsumption(t *testing.T) {
	h := NewCountsHandoff()
	h.Publish(Counts{Frame: 1})
	_, ok := h.discard()
	assert.True(t, ok)
	assert.Equal(t, uint64(1), h.Published())
	assert.Zero(t, h.Consumed())
}

func TestCountsHandoff_CloseWakesWaiters(t *testing.T) {
	h := NewCountsHandoff()
	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = h.WaitForCounts()
		}()
	}

	time.Sleep(10 * time.Millisecond)
	h.Close()
	h.Close()
	wg.Wait()
	for _, err := range errs {
		assert.ErrorIs(t, err, ErrClosed)
	}
}

func TestCountsHandoff_ContextCancel(t *testing.T) {
	h := NewCountsHandoff()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := h.WaitForCountsContext(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, h.Consumed())
}
