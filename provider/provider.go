// Package provider defines the entity storage abstraction used by tagcache.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly the
// same []byte that was previously passed to Set for a key (no prepended/appended
// metadata, no re-encoding, no mutation).
//
// Beyond the base Provider, a store may implement any of the optional
// capabilities (Matcher, Counter, Cleaner, Clearer). tagcache checks for them at
// call time and reports ErrUnsupported when one is missing.
package provider

import (
	"context"
	"time"
)

// Provider is a minimal byte store with TTLs. Must be safe for concurrent use.
type Provider interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL (<= 0 means no expiry). May ignore
	// cost if unsupported. Returns ok=false when the store rejected the write
	// under pressure.
	Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (ok bool, err error)

	// Del removes a key. Deleting a missing key is not an error.
	Del(ctx context.Context, key string) error

	// Close releases resources.
	Close(ctx context.Context) error
}

// Matcher deletes every key matching a Redis-style glob pattern and reports
// how many were removed.
type Matcher interface {
	DeleteMatched(ctx context.Context, pattern string) (int, error)
}

// Counter adjusts a raw decimal integer stored at key by delta and returns the
// new value. A missing key counts from 0.
type Counter interface {
	IncrBy(ctx context.Context, key string, delta int64) (int64, error)
}

// Cleaner physically removes expired entries.
type Cleaner interface {
	Cleanup(ctx context.Context) error
}

// Clearer removes every entry the provider owns.
type Clearer interface {
	Clear(ctx context.Context) error
}
