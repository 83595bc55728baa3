package tagcache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	c "github.com/unkn0wn-root/tagcache/codec"
	gen "github.com/unkn0wn-root/tagcache/genstore"
	pr "github.com/unkn0wn-root/tagcache/provider"
	"github.com/unkn0wn-root/tagcache/provider/memory"
)

var errBoom = errors.New("boom")

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{t: time.Unix(1_700_000_000, 0)} }

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

// eventLog records every observed event.
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) Observe(ev Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *eventLog) ops() []Op {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Op, len(l.events))
	for i, ev := range l.events {
		out[i] = ev.Op
	}
	return out
}

func (l *eventLog) last(op Op) (Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.events) - 1; i >= 0; i-- {
		if l.events[i].Op == op {
			return l.events[i], true
		}
	}
	return Event{}, false
}

func (l *eventLog) reset() {
	l.mu.Lock()
	l.events = nil
	l.mu.Unlock()
}

type fixture struct {
	st     *store[string]
	mp     *memory.Memory
	gs     *gen.Local
	clk    *fakeClock
	events *eventLog
}

func newFixture(t *testing.T, mut func(*Options[string])) *fixture {
	t.Helper()
	clk := newFakeClock()
	f := &fixture{
		mp:     memory.New(memory.WithNow(clk.Now)),
		gs:     gen.NewLocal(),
		clk:    clk,
		events: &eventLog{},
	}
	opts := Options[string]{
		Provider: f.mp,
		GenStore: f.gs,
		Codec:    c.String{},
		Clock:    clk,
		Hooks:    f.events,
	}
	if mut != nil {
		mut(&opts)
	}
	st, err := newStore[string](opts)
	if err != nil {
		t.Fatalf("newStore: %v", err)
	}
	f.st = st
	return f
}

// rawEntry decodes what the provider holds at key.
func (f *fixture) rawEntry(t *testing.T, key string) *Entry {
	t.Helper()
	raw, ok, err := f.mp.Get(context.Background(), key)
	if err != nil || !ok {
		t.Fatalf("provider Get(%q): ok=%v err=%v", key, ok, err)
	}
	e, err := decodeEntry(raw)
	if err != nil {
		t.Fatalf("decodeEntry: %v", err)
	}
	return e
}

// bareProvider implements only pr.Provider.
type bareProvider struct {
	mu sync.Mutex
	m  map[string][]byte
}

var _ pr.Provider = (*bareProvider)(nil)

func newBareProvider() *bareProvider { return &bareProvider{m: make(map[string][]byte)} }

func (p *bareProvider) Get(_ context.Context, k string) ([]byte, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.m[k]
	return v, ok, nil
}

func (p *bareProvider) Set(_ context.Context, k string, v []byte, _ int64, _ time.Duration) (bool, error) {
	p.mu.Lock()
	p.m[k] = v
	p.mu.Unlock()
	return true, nil
}

func (p *bareProvider) Del(_ context.Context, k string) error {
	p.mu.Lock()
	delete(p.m, k)
	p.mu.Unlock()
	return nil
}

func (p *bareProvider) Close(context.Context) error { return nil }

// ttlSpy records the backend TTL of every Set.
type ttlSpy struct {
	pr.Provider
	mu   sync.Mutex
	ttls []time.Duration
}

func (s *ttlSpy) Set(ctx context.Context, k string, v []byte, cost int64, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	s.ttls = append(s.ttls, ttl)
	s.mu.Unlock()
	return s.Provider.Set(ctx, k, v, cost, ttl)
}

func (s *ttlSpy) lastTTL() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ttls[len(s.ttls)-1]
}

// failingProvider fails every call.
type failingProvider struct{}

func (failingProvider) Get(context.Context, string) ([]byte, bool, error) { return nil, false, errBoom }
func (failingProvider) Set(context.Context, string, []byte, int64, time.Duration) (bool, error) {
	return false, errBoom
}
func (failingProvider) Del(context.Context, string) error                      { return errBoom }
func (failingProvider) Close(context.Context) error                            { return nil }
func (failingProvider) DeleteMatched(context.Context, string) (int, error)     { return 0, errBoom }
func (failingProvider) IncrBy(context.Context, string, int64) (int64, error)   { return 0, errBoom }

// failingGenStore fails every call.
type failingGenStore struct{}

func (failingGenStore) Get(context.Context, string) (int64, bool, error) { return 0, false, errBoom }
func (failingGenStore) GetMany(context.Context, []string) (map[string]int64, error) {
	return nil, errBoom
}
func (failingGenStore) SetNX(context.Context, string, int64) (int64, bool, error) {
	return 0, false, errBoom
}
func (failingGenStore) Incr(context.Context, string) (int64, bool, error) { return 0, false, errBoom }
func (failingGenStore) Close(context.Context) error                      { return nil }

type model struct{ id int }

func (m model) CacheTag() string {
	if m.id == 1 {
		return "tag1"
	}
	return "model"
}
