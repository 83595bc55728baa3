package asynchook

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unkn0wn-root/tagcache"
)

type collector struct {
	mu  sync.Mutex
	ops []tagcache.Op
}

func (c *collector) Observe(ev tagcache.Event) {
	c.mu.Lock()
	c.ops = append(c.ops, ev.Op)
	c.mu.Unlock()
}

func TestDeliversQueuedEventsOnClose(t *testing.T) {
	inner := &collector{}
	h := New(inner, 2, 16)

	for i := 0; i < 10; i++ {
		h.Observe(tagcache.Event{Op: tagcache.OpRead})
	}
	h.Close()

	inner.mu.Lock()
	defer inner.mu.Unlock()
	assert.Len(t, inner.ops, 10)
	assert.Zero(t, h.Dropped())
}

func TestDropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	inner := tagcache.HooksFunc(func(tagcache.Event) { <-block })
	h := New(inner, 1, 1)

	// one event parked in the worker, one in the queue, the rest dropped
	for i := 0; i < 5; i++ {
		h.Observe(tagcache.Event{Op: tagcache.OpWrite})
	}
	require.GreaterOrEqual(t, h.Dropped(), uint64(3))
	close(block)
	h.Close()
}

func TestObserveAfterCloseIsDropped(t *testing.T) {
	h := New(&collector{}, 1, 1)
	h.Close()
	h.Close()

	require.NotPanics(t, func() { h.Observe(tagcache.Event{Op: tagcache.OpFetch}) })
	assert.Equal(t, uint64(1), h.Dropped())
}
