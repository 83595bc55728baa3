package tagcache

import "time"

// CallOption adjusts a single Read/Write/Fetch call.
type CallOption func(*callConfig)

type callConfig struct {
	depends []Tag

	ttl    time.Duration
	ttlSet bool

	raceTTL    time.Duration
	raceTTLSet bool

	force bool
	cost  int64
}

// Resolver produces dependency tags on demand, for callers that compute
// them from their own context (a method, a request, a model).
type Resolver interface {
	Resolve() []Tag
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func() []Tag

func (f ResolverFunc) Resolve() []Tag { return f() }

// WithDepends adds dependency tags. Repeated options accumulate.
func WithDepends(tags ...Tag) CallOption {
	return func(c *callConfig) { c.depends = append(c.depends, tags...) }
}

// WithDependsFrom adds the tags r resolves to when the call starts.
func WithDependsFrom(r Resolver) CallOption {
	return func(c *callConfig) {
		if r != nil {
			c.depends = append(c.depends, r.Resolve()...)
		}
	}
}

// WithTTL overrides Options.DefaultTTL; 0 means no expiry.
func WithTTL(d time.Duration) CallOption {
	return func(c *callConfig) { c.ttl, c.ttlSet = d, true }
}

// WithRaceConditionTTL overrides Options.RaceConditionTTL for a Fetch;
// 0 disables the grace window.
func WithRaceConditionTTL(d time.Duration) CallOption {
	return func(c *callConfig) { c.raceTTL, c.raceTTLSet = d, true }
}

// WithForce makes Fetch skip the lookup and always regenerate.
func WithForce() CallOption {
	return func(c *callConfig) { c.force = true }
}

// WithCost overrides Options.ComputeSetCost for the write.
func WithCost(n int64) CallOption {
	return func(c *callConfig) { c.cost = n }
}

func (s *store[V]) callConfig(opts []CallOption) callConfig {
	var cfg callConfig
	for _, o := range opts {
		o(&cfg)
	}
	if !cfg.ttlSet {
		cfg.ttl = s.defaultTTL
	}
	if !cfg.raceTTLSet {
		cfg.raceTTL = s.raceTTL
	}
	if cfg.ttl < 0 {
		cfg.ttl = 0
	}
	if cfg.raceTTL < 0 {
		cfg.raceTTL = 0
	}
	return cfg
}

// backendTTL keeps an entry in the provider past its logical expiry long
// enough for the race window to find it.
func (cfg callConfig) backendTTL() time.Duration {
	if cfg.ttl > 0 && cfg.raceTTL > 0 {
		return cfg.ttl + cfg.raceTTL
	}
	return cfg.ttl
}
