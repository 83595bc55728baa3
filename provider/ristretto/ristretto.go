package ristretto

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	rc "github.com/dgraph-io/ristretto"

	pr "github.com/unkn0wn-root/tagcache/provider"
)

// Provider has no key iteration, so it cannot implement pr.Matcher.
type Provider struct {
	c *rc.Cache

	// serializes IncrBy read-modify-write cycles
	counterMu sync.Mutex
}

var (
	_ pr.Provider = (*Provider)(nil)
	_ pr.Counter  = (*Provider)(nil)
	_ pr.Clearer  = (*Provider)(nil)
)

type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
	// Cost in Ristretto is provided by the caller (tagcache passes cost per Set).
}

func New(cfg Config) (*Provider, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Provider{c: c}, nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := p.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		// self-heal: drop unexpected entry shape
		p.c.Del(key)
		return nil, false, nil
	}
	return b, true, nil
}

func (p *Provider) Set(_ context.Context, key string, value []byte, cost int64, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		ttl = 0
	}
	return p.c.SetWithTTL(key, value, cost, ttl), nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	p.c.Del(key)
	return nil
}

// IncrBy is atomic only against other IncrBy calls on this Provider; Sets are
// buffered, so each cycle waits for the write to land before returning.
func (p *Provider) IncrBy(_ context.Context, key string, delta int64) (int64, error) {
	p.counterMu.Lock()
	defer p.counterMu.Unlock()

	var cur int64
	if v, ok := p.c.Get(key); ok {
		b, _ := v.([]byte)
		n, err := strconv.ParseInt(string(b), 10, 64)
		if err != nil {
			return 0, err
		}
		cur = n
	}
	cur += delta
	if !p.c.Set(key, []byte(strconv.FormatInt(cur, 10)), 1) {
		return 0, errors.New("ristretto: counter write rejected")
	}
	p.c.Wait()
	return cur, nil
}

func (p *Provider) Clear(context.Context) error {
	p.c.Clear()
	return nil
}

// Wait blocks until buffered writes are applied.
func (p *Provider) Wait() { p.c.Wait() }

func (p *Provider) Close(_ context.Context) error {
	p.c.Wait()
	p.c.Close()
	return nil
}

// Metrics exposes ristretto's counters (nil unless Config.Metrics).
func (p *Provider) Metrics() *rc.Metrics { return p.c.Metrics }
