package bigcache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/tagcache/internal/util"
	pr "github.com/unkn0wn-root/tagcache/provider"
)

// Provider stores bytes in BigCache. BigCache has no per-entry TTL; entries
// live for LifeWindow. tagcache keeps logical expiry inside the entry, so a
// long LifeWindow only costs memory.
type Provider struct {
	c *bc.BigCache

	counterMu sync.Mutex
}

var (
	_ pr.Provider = (*Provider)(nil)
	_ pr.Matcher  = (*Provider)(nil)
	_ pr.Counter  = (*Provider)(nil)
	_ pr.Clearer  = (*Provider)(nil)
)

type Config struct {
	LifeWindow         time.Duration
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(cfg Config) (*Provider, error) {
	conf := bc.DefaultConfig(cfg.LifeWindow)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.New(context.Background(), conf)
	if err != nil {
		return nil, err
	}
	return &Provider{c: c}, nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, err := p.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (p *Provider) Set(_ context.Context, key string, value []byte, _ int64, _ time.Duration) (bool, error) {
	return true, p.c.Set(key, value)
}

func (p *Provider) Del(_ context.Context, key string) error {
	if err := p.c.Delete(key); err != nil && !errors.Is(err, bc.ErrEntryNotFound) {
		return err
	}
	return nil
}

// DeleteMatched collects matches with the shard iterator first, then deletes,
// so the iterator never observes its own deletions.
func (p *Provider) DeleteMatched(_ context.Context, pattern string) (int, error) {
	re, err := util.GlobRegexp(pattern)
	if err != nil {
		return 0, err
	}
	var keys []string
	it := p.c.Iterator()
	for it.SetNext() {
		e, err := it.Value()
		if err != nil {
			// entry evicted mid-iteration
			continue
		}
		if re.MatchString(e.Key()) {
			keys = append(keys, e.Key())
		}
	}
	n := 0
	for _, k := range keys {
		err := p.c.Delete(k)
		if errors.Is(err, bc.ErrEntryNotFound) {
			continue
		}
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (p *Provider) IncrBy(_ context.Context, key string, delta int64) (int64, error) {
	p.counterMu.Lock()
	defer p.counterMu.Unlock()

	var cur int64
	b, err := p.c.Get(key)
	switch {
	case errors.Is(err, bc.ErrEntryNotFound):
	case err != nil:
		return 0, err
	default:
		n, err := strconv.ParseInt(string(b), 10, 64)
		if err != nil {
			return 0, err
		}
		cur = n
	}
	cur += delta
	return cur, p.c.Set(key, []byte(strconv.FormatInt(cur, 10)))
}

func (p *Provider) Clear(context.Context) error {
	return p.c.Reset()
}

func (p *Provider) Close(_ context.Context) error {
	return p.c.Close()
}
