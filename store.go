package tagcache

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	c "github.com/unkn0wn-root/tagcache/codec"
	"github.com/unkn0wn-root/tagcache/internal/util"
	pr "github.com/unkn0wn-root/tagcache/provider"
)

type store[V any] struct {
	provider pr.Provider
	tags     *tagStore
	val      validator
	codec    c.Codec[V]
	log      Logger
	hooks    Hooks
	clock    Clock

	ns     string
	nsFunc func() string

	defaultTTL     time.Duration
	raceTTL        time.Duration
	coalesce       bool
	computeSetCost SetCostFunc

	sf singleflight.Group
}

var _ Store[any] = (*store[any])(nil)

func newStore[V any](opts Options[V]) (*store[V], error) {
	if opts.Provider == nil {
		return nil, ErrNoProvider
	}
	if opts.GenStore == nil {
		return nil, ErrNoGenStore
	}
	if opts.Codec == nil {
		return nil, ErrNoCodec
	}

	clk := coalesce[Clock](opts.Clock, realClock{})
	lg := coalesce[Logger](opts.Logger, NopLogger{})
	hk := coalesce[Hooks](opts.Hooks, NopHooks{})
	costFn := opts.ComputeSetCost
	if costFn == nil {
		costFn = func(string, []byte) int64 { return 1 }
	}

	ts := &tagStore{gens: opts.GenStore, clock: clk}
	return &store[V]{
		provider:       opts.Provider,
		tags:           ts,
		val:            validator{tags: ts, clock: clk},
		codec:          opts.Codec,
		log:            lg,
		hooks:          hk,
		clock:          clk,
		ns:             opts.Namespace,
		nsFunc:         opts.NamespaceFunc,
		defaultTTL:     max(opts.DefaultTTL, 0),
		raceTTL:        max(opts.RaceConditionTTL, 0),
		coalesce:       opts.Coalesce,
		computeSetCost: costFn,
	}, nil
}

func (s *store[V]) key(name string) string {
	ns := s.ns
	if s.nsFunc != nil {
		ns = s.nsFunc()
	}
	return util.Join(ns, name)
}

// load fetches and validates the entry at key. Missing and corrupt entries
// come back as nil; an expired or stale entry is returned so Fetch can use it.
func (s *store[V]) load(ctx context.Context, key string, ev *Event) (*Entry, map[string]int64, error) {
	raw, ok, err := s.provider.Get(ctx, key)
	if err != nil || !ok {
		return nil, nil, err
	}
	e, err := decodeEntry(raw)
	if err != nil {
		ev.Corrupt = true
		s.log.Warn("corrupt cache entry; treating as miss", Fields{"key": key, "err": err})
		return nil, nil, nil
	}
	current, stale, err := s.val.check(ctx, e)
	if err != nil {
		return nil, nil, err
	}
	if stale {
		ev.Stale = true
		s.log.Debug("entry stale: tag generation moved", Fields{"key": key})
	}
	return e, current, nil
}

// decode turns a valid entry into V. Undecodable payloads are misses.
func (s *store[V]) decode(key string, e *Entry, ev *Event) (V, bool) {
	v, err := s.codec.Decode(e.Payload)
	if err != nil {
		var zero V
		ev.Corrupt = true
		s.log.Warn("value decode failed; treating as miss", Fields{"key": key, "err": err})
		return zero, false
	}
	return v, true
}

func (s *store[V]) Read(ctx context.Context, name string, opts ...CallOption) (V, bool, error) {
	var zero V
	key := s.key(name)
	ev := Event{Op: OpRead, Key: key}
	defer s.observe(&ev, time.Now())

	e, _, err := s.load(ctx, key, &ev)
	if err != nil {
		ev.Err = err
		return zero, false, err
	}
	if e == nil || e.Expired(s.clock.Now()) {
		return zero, false, nil
	}
	v, ok := s.decode(key, e, &ev)
	ev.Hit = ok
	return v, ok, nil
}

func (s *store[V]) ReadMulti(ctx context.Context, names []string, opts ...CallOption) (map[string]V, error) {
	out := make(map[string]V, len(names))
	ev := Event{Op: OpReadMulti, Count: len(names)}
	defer s.observe(&ev, time.Now())

	keys := make(map[string]string, len(names))
	entries := make(map[string]*Entry, len(names))
	for _, n := range names {
		if _, dup := keys[n]; dup {
			continue
		}
		key := s.key(n)
		keys[n] = key
		raw, ok, err := s.provider.Get(ctx, key)
		if err != nil {
			ev.Err = err
			return nil, err
		}
		if !ok {
			continue
		}
		e, err := decodeEntry(raw)
		if err != nil {
			ev.Corrupt = true
			s.log.Warn("corrupt cache entry; treating as miss", Fields{"key": key, "err": err})
			continue
		}
		entries[n] = e
	}

	stale, err := s.val.checkMany(ctx, entries)
	if err != nil {
		ev.Err = err
		return nil, err
	}
	ev.Stale = len(stale) > 0

	now := s.clock.Now()
	for n, e := range entries {
		if stale[n] || e.Expired(now) {
			continue
		}
		if v, ok := s.decode(keys[n], e, &ev); ok {
			out[n] = v
		}
	}
	ev.Hit = len(out) > 0
	return out, nil
}

func (s *store[V]) Exist(ctx context.Context, name string, opts ...CallOption) (bool, error) {
	key := s.key(name)
	ev := Event{Op: OpExist, Key: key}
	defer s.observe(&ev, time.Now())

	e, _, err := s.load(ctx, key, &ev)
	if err != nil {
		ev.Err = err
		return false, err
	}
	ev.Hit = e != nil && !e.Expired(s.clock.Now())
	return ev.Hit, nil
}

func (s *store[V]) Write(ctx context.Context, name string, value V, opts ...CallOption) error {
	cfg := s.callConfig(opts)
	key := s.key(name)
	ev := Event{Op: OpWrite, Key: key}
	defer s.observe(&ev, time.Now())

	ev.Err = s.write(ctx, key, value, tagNames(cfg.depends), cfg, &ev)
	return ev.Err
}

func (s *store[V]) write(ctx context.Context, key string, value V, names []string, cfg callConfig, ev *Event) error {
	payload, err := s.codec.Encode(value)
	if err != nil {
		return err
	}
	now := s.clock.Now()
	e := &Entry{Payload: payload, CreatedAt: now}
	if cfg.ttl > 0 {
		e.ExpiresAt = now.Add(cfg.ttl)
	}
	names = util.Dedupe(names)
	if len(names) > 0 {
		if e.Tags, err = s.tags.snapshot(ctx, names); err != nil {
			return err
		}
	}
	ev.Tags = names
	return s.put(ctx, key, e, cfg.backendTTL(), cfg.cost, ev)
}

func (s *store[V]) put(ctx context.Context, key string, e *Entry, ttl time.Duration, cost int64, ev *Event) error {
	raw, err := encodeEntry(e)
	if err != nil {
		return err
	}
	if cost == 0 {
		cost = s.computeSetCost(key, raw)
	}
	ok, err := s.provider.Set(ctx, key, raw, cost, ttl)
	if err != nil {
		return err
	}
	if !ok {
		ev.Rejected = true
		s.log.Debug("provider rejected write", Fields{"key": key, "cost": cost})
	}
	return nil
}

func (s *store[V]) Fetch(ctx context.Context, name string, generate Generator[V], opts ...CallOption) (V, error) {
	var zero V
	cfg := s.callConfig(opts)
	key := s.key(name)
	ev := Event{Op: OpFetch, Key: key}
	defer s.observe(&ev, time.Now())

	if !cfg.force {
		v, ok, err := s.fetchCached(ctx, key, cfg, &ev)
		if err != nil {
			ev.Err = err
			return zero, err
		}
		if ok {
			ev.Hit = true
			s.hooks.Observe(Event{Op: OpFetchHit, Key: key, Super: OpFetch})
			return v, nil
		}
	}

	v, err := s.regenerate(ctx, key, cfg, generate)
	ev.Err = err
	return v, err
}

// fetchCached is the lookup half of Fetch. An expired entry inside the race
// window is pushed forward by raceTTL so concurrent callers keep serving it
// while this one regenerates; outside the window it is deleted.
func (s *store[V]) fetchCached(ctx context.Context, key string, cfg callConfig, fev *Event) (V, bool, error) {
	var zero V
	ev := Event{Op: OpRead, Key: key, Super: OpFetch}
	defer s.observe(&ev, time.Now())

	e, current, err := s.load(ctx, key, &ev)
	if err != nil {
		ev.Err = err
		return zero, false, err
	}
	if e == nil {
		return zero, false, nil
	}
	fev.Stale = ev.Stale

	now := s.clock.Now()
	if e.Expired(now) {
		if cfg.raceTTL > 0 && now.Sub(e.ExpiresAt) <= cfg.raceTTL {
			err = s.extend(ctx, key, e, current, now, cfg, &ev)
			fev.Extended = err == nil
		} else {
			err = s.provider.Del(ctx, key)
		}
		ev.Err = err
		return zero, false, err
	}

	v, ok := s.decode(key, e, &ev)
	if !ok {
		return zero, false, nil
	}
	ev.Hit = true
	return v, true, nil
}

// extend re-writes an expired entry with a fresh snapshot valid for raceTTL.
func (s *store[V]) extend(ctx context.Context, key string, e *Entry, current map[string]int64, now time.Time, cfg callConfig, ev *Event) error {
	e.ExpiresAt = now.Add(cfg.raceTTL)
	for n := range e.Tags {
		if g, ok := current[n]; ok {
			e.Tags[n] = g
		}
	}
	ev.Extended = true
	s.log.Debug("serving stale entry during regeneration", Fields{"key": key, "race_ttl": cfg.raceTTL})
	return s.put(ctx, key, e, 2*cfg.raceTTL, cfg.cost, ev)
}

func (s *store[V]) regenerate(ctx context.Context, key string, cfg callConfig, generate Generator[V]) (V, error) {
	run := func() (V, error) {
		deps := newDependencies(tagNames(cfg.depends))

		gev := Event{Op: OpGenerate, Key: key, Super: OpFetch}
		start := time.Now()
		v, err := generate(ctx, deps)
		gev.Err = err
		gev.Tags = deps.Tags()
		s.observe(&gev, start)
		if err != nil {
			return v, err
		}

		wev := Event{Op: OpWrite, Key: key, Super: OpFetch}
		start = time.Now()
		wev.Err = s.write(ctx, key, v, deps.Tags(), cfg, &wev)
		s.observe(&wev, start)
		return v, wev.Err
	}
	if !s.coalesce {
		return run()
	}
	r, err, shared := s.sf.Do(key, func() (any, error) { return run() })
	if shared {
		s.log.Debug("fetch coalesced", Fields{"key": key})
	}
	v, _ := r.(V)
	return v, err
}

func (s *store[V]) Delete(ctx context.Context, name string) error {
	key := s.key(name)
	ev := Event{Op: OpDelete, Key: key}
	defer s.observe(&ev, time.Now())

	ev.Err = s.provider.Del(ctx, key)
	return ev.Err
}

func (s *store[V]) DeleteMatched(ctx context.Context, pattern string) (int, error) {
	pattern = s.key(pattern)
	ev := Event{Op: OpDeleteMatched, Key: pattern}
	defer s.observe(&ev, time.Now())

	m, ok := s.provider.(pr.Matcher)
	if !ok {
		ev.Err = unsupported(OpDeleteMatched, s.provider)
		return 0, ev.Err
	}
	n, err := m.DeleteMatched(ctx, pattern)
	ev.Count, ev.Err = n, err
	return n, err
}

func (s *store[V]) Increment(ctx context.Context, name string, amount int64) (int64, error) {
	return s.incr(ctx, OpIncrement, name, amount)
}

func (s *store[V]) Decrement(ctx context.Context, name string, amount int64) (int64, error) {
	return s.incr(ctx, OpDecrement, name, -amount)
}

func (s *store[V]) incr(ctx context.Context, op Op, name string, delta int64) (int64, error) {
	key := s.key(name)
	ev := Event{Op: op, Key: key}
	defer s.observe(&ev, time.Now())

	ctr, ok := s.provider.(pr.Counter)
	if !ok {
		ev.Err = unsupported(op, s.provider)
		return 0, ev.Err
	}
	n, err := ctr.IncrBy(ctx, key, delta)
	ev.Err = err
	return n, err
}

func (s *store[V]) Cleanup(ctx context.Context) error {
	ev := Event{Op: OpCleanup}
	defer s.observe(&ev, time.Now())

	cl, ok := s.provider.(pr.Cleaner)
	if !ok {
		ev.Err = unsupported(OpCleanup, s.provider)
		return ev.Err
	}
	ev.Err = cl.Cleanup(ctx)
	return ev.Err
}

// Clear empties the provider. Tag generations survive.
func (s *store[V]) Clear(ctx context.Context) error {
	ev := Event{Op: OpClear}
	defer s.observe(&ev, time.Now())

	cl, ok := s.provider.(pr.Clearer)
	if !ok {
		ev.Err = unsupported(OpClear, s.provider)
		return ev.Err
	}
	ev.Err = cl.Clear(ctx)
	return ev.Err
}

func (s *store[V]) ReadTag(ctx context.Context, tag Tag) (int64, error) {
	name := TagName(tag)
	ev := Event{Op: OpReadTag, Key: name, Tags: []string{name}}
	defer s.observe(&ev, time.Now())

	if name == "" {
		ev.Err = ErrEmptyTag
		return 0, ev.Err
	}
	g, err := s.tags.read(ctx, name)
	ev.Err = err
	return g, err
}

func (s *store[V]) ReadTags(ctx context.Context, tags ...Tag) (map[string]int64, error) {
	names := tagNames(tags)
	ev := Event{Op: OpReadTags, Tags: names, Count: len(names)}
	defer s.observe(&ev, time.Now())

	out, err := s.tags.readMany(ctx, names)
	ev.Err = err
	return out, err
}

func (s *store[V]) TouchTag(ctx context.Context, tag Tag) (int64, error) {
	name := TagName(tag)
	ev := Event{Op: OpTouchTag, Key: name, Tags: []string{name}}
	defer s.observe(&ev, time.Now())

	if name == "" {
		ev.Err = ErrEmptyTag
		return 0, ev.Err
	}
	g, err := s.tags.touch(ctx, name)
	if err == nil {
		s.log.Debug("tag touched", Fields{"tag": name, "gen": g})
	}
	ev.Err = err
	return g, err
}

func (s *store[V]) Close(ctx context.Context) error {
	return errors.Join(s.tags.gens.Close(ctx), s.provider.Close(ctx))
}
