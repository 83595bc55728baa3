package tagcache

import (
	"context"
	"time"

	c "github.com/unkn0wn-root/tagcache/codec"
	gen "github.com/unkn0wn-root/tagcache/genstore"
	pr "github.com/unkn0wn-root/tagcache/provider"
)

// Tag names a dependency. Any value works: a Tagger supplies its own name,
// strings are used as-is, everything else goes through fmt.
type Tag = any

// Generator computes a value on a Fetch miss. Tags declared on deps become the
// new entry's dependencies.
type Generator[V any] func(ctx context.Context, deps *Dependencies) (V, error)

type SetCostFunc func(key string, raw []byte) int64

// Store is the tag-aware cache facade. V is the caller's value type.
type Store[V any] interface {
	// Entities
	Read(ctx context.Context, name string, opts ...CallOption) (v V, ok bool, err error)
	ReadMulti(ctx context.Context, names []string, opts ...CallOption) (map[string]V, error)
	Exist(ctx context.Context, name string, opts ...CallOption) (bool, error)
	Write(ctx context.Context, name string, value V, opts ...CallOption) error
	Fetch(ctx context.Context, name string, generate Generator[V], opts ...CallOption) (V, error)
	Delete(ctx context.Context, name string) error

	// Delegated to the provider; tag generations are never touched.
	DeleteMatched(ctx context.Context, pattern string) (int, error)
	Increment(ctx context.Context, name string, amount int64) (int64, error)
	Decrement(ctx context.Context, name string, amount int64) (int64, error)
	Cleanup(ctx context.Context) error
	Clear(ctx context.Context) error

	// Tags
	ReadTag(ctx context.Context, tag Tag) (int64, error)
	ReadTags(ctx context.Context, tags ...Tag) (map[string]int64, error)
	TouchTag(ctx context.Context, tag Tag) (int64, error)

	Close(context.Context) error
}

// Options configure a Store. Provider, GenStore and Codec are required.
type Options[V any] struct {
	// Required
	Provider pr.Provider
	GenStore gen.GenStore
	Codec    c.Codec[V]

	Namespace        string        // entity key prefix, e.g. "app:prod"
	NamespaceFunc    func() string // if set, wins over Namespace and is resolved on every call
	Logger           Logger        // if nil, NopLogger is used
	Hooks            Hooks         // if nil, NopHooks is used
	Clock            Clock         // if nil, the wall clock is used
	DefaultTTL       time.Duration // 0 => entries never expire on their own
	RaceConditionTTL time.Duration // default Fetch grace window; 0 => disabled
	Coalesce         bool          // share one generator run between concurrent in-process Fetch misses
	ComputeSetCost   SetCostFunc   // default 1
}

func New[V any](opts Options[V]) (Store[V], error) {
	s, err := newStore[V](opts)
	if err != nil {
		return nil, err
	}
	return s, nil
}
