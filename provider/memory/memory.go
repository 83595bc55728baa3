// Package memory is an in-process Provider backed by a map. It implements
// every optional capability and is the reference store for tests.
package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/unkn0wn-root/tagcache/internal/util"
	pr "github.com/unkn0wn-root/tagcache/provider"
)

type entry struct {
	v   []byte
	exp time.Time // zero => no TTL
}

// Memory is safe for concurrent use. The zero value is not usable; use New.
type Memory struct {
	mu  sync.RWMutex
	m   map[string]entry
	now func() time.Time
}

var (
	_ pr.Provider = (*Memory)(nil)
	_ pr.Matcher  = (*Memory)(nil)
	_ pr.Counter  = (*Memory)(nil)
	_ pr.Cleaner  = (*Memory)(nil)
	_ pr.Clearer  = (*Memory)(nil)
)

type Option func(*Memory)

// WithNow overrides the time source used for TTLs.
func WithNow(now func() time.Time) Option {
	return func(m *Memory) { m.now = now }
}

func New(opts ...Option) *Memory {
	m := &Memory{m: make(map[string]entry), now: time.Now}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (p *Memory) expired(e entry, now time.Time) bool {
	return !e.exp.IsZero() && !now.Before(e.exp)
}

func (p *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	p.mu.RLock()
	e, ok := p.m[key]
	p.mu.RUnlock()
	if !ok || p.expired(e, p.now()) {
		return nil, false, nil
	}
	return e.v, true, nil
}

func (p *Memory) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	var exp time.Time
	if ttl > 0 {
		exp = p.now().Add(ttl)
	}
	p.mu.Lock()
	p.m[key] = entry{v: value, exp: exp}
	p.mu.Unlock()
	return true, nil
}

func (p *Memory) Del(_ context.Context, key string) error {
	p.mu.Lock()
	delete(p.m, key)
	p.mu.Unlock()
	return nil
}

func (p *Memory) DeleteMatched(_ context.Context, pattern string) (int, error) {
	re, err := util.GlobRegexp(pattern)
	if err != nil {
		return 0, err
	}
	n := 0
	p.mu.Lock()
	for k := range p.m {
		if re.MatchString(k) {
			delete(p.m, k)
			n++
		}
	}
	p.mu.Unlock()
	return n, nil
}

// IncrBy keeps an existing TTL. A non-integer value is an error.
func (p *Memory) IncrBy(_ context.Context, key string, delta int64) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.m[key]
	var cur int64
	if ok && !p.expired(e, p.now()) {
		n, err := strconv.ParseInt(string(e.v), 10, 64)
		if err != nil {
			return 0, err
		}
		cur = n
	} else {
		e = entry{}
	}
	cur += delta
	e.v = []byte(strconv.FormatInt(cur, 10))
	p.m[key] = e
	return cur, nil
}

func (p *Memory) Cleanup(context.Context) error {
	now := p.now()
	p.mu.Lock()
	for k, e := range p.m {
		if p.expired(e, now) {
			delete(p.m, k)
		}
	}
	p.mu.Unlock()
	return nil
}

func (p *Memory) Clear(context.Context) error {
	p.mu.Lock()
	p.m = make(map[string]entry)
	p.mu.Unlock()
	return nil
}

// Len reports the number of stored keys, expired ones included.
func (p *Memory) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.m)
}

// Keys returns the stored keys in no particular order.
func (p *Memory) Keys() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.m))
	for k := range p.m {
		out = append(out, k)
	}
	return out
}

func (p *Memory) Close(context.Context) error { return nil }
