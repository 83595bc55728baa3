// Package tagcache implements tag-based cache invalidation over two independent
// key/value backends: a Provider holding entity entries and a GenStore holding
// one generation counter per tag.
//
// A write records, next to the value, the current generation of every tag the
// value depends on. A read accepts the entry only if every recorded generation
// still matches; touching a tag bumps its generation and so lazily invalidates
// every entry that depended on it, without enumerating or deleting them.
//
// Components:
//   - Provider: entity byte store with TTL (memory, Redis, Ristretto, BigCache).
//   - GenStore: per-tag generation counters (Local, Redis, NATS JetStream KV).
//   - Codec[V]: (de)serializes V <-> []byte.
//   - Hooks: passive observer of every operation (slog, Prometheus, async).
//
// Keys:
//
//	<namespace>:<name>   entity entries (namespace optional, may be resolved per call)
//
// Tags:
//
//	store.Write(ctx, "post:1", post, tagcache.WithDepends("posts", user))
//	store.TouchTag(ctx, "posts") // every entry written with "posts" is now stale
//
// Fetch with a race-condition TTL serves the stale value to concurrent readers
// for a short window while one caller regenerates:
//
//	v, err := store.Fetch(ctx, "post:1", func(ctx context.Context, deps *tagcache.Dependencies) (Post, error) {
//	    deps.Depends("posts")
//	    return loadPost(ctx, 1)
//	}, tagcache.WithTTL(time.Hour), tagcache.WithRaceConditionTTL(10*time.Second))
package tagcache
