// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    StaleEvery: 10, // sample logs: ~every 10th stale read
//	})
//
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	store, _ := tagcache.New[User](tagcache.Options[User]{
//	    Namespace: "app:prod:user",
//	    Provider:  provider,
//	    GenStore:  genstore.NewRedis(rdb, "app:prod"),
//	    Codec:     codec.JSON[User]{},
//	    Hooks:     hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/tagcache"
)

// Hooks hands events to inner on background workers. When the queue is full
// events are dropped, never blocking the caller.
type Hooks struct {
	inner tagcache.Hooks
	q     chan tagcache.Event
	wg    sync.WaitGroup

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

var _ tagcache.Hooks = (*Hooks)(nil)

func New(inner tagcache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan tagcache.Event, qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for ev := range h.q {
				h.inner.Observe(ev)
			}
		}()
	}
	return h
}

func (h *Hooks) Observe(ev tagcache.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- ev:
	default:
		h.dropped.Add(1)
	}
}

// Dropped reports how many events were discarded so far.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

// Close stops accepting events and waits for queued ones to be delivered.
func (h *Hooks) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	close(h.q)
	h.mu.Unlock()
	h.wg.Wait()
}
