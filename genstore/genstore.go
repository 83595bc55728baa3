// Package genstore holds the backends for per-tag generation counters.
//
// Values are raw integers with no serialization envelope. A stored value of 0 is
// indistinguishable from a missing counter: callers (re)initialize both the same way.
package genstore

import (
	"context"
)

// GenStore abstracts where tag generations live.
// Use Local for in-process generations, Redis or NATS for generations shared
// across processes.
//
// Implementations must be safe for concurrent use and must make SetNX and Incr
// atomic at the single-key level.
type GenStore interface {
	// Get returns the raw generation; ok=false when the key is missing.
	Get(ctx context.Context, key string) (gen int64, ok bool, err error)
	// GetMany returns generations for the keys that exist. Missing keys are
	// omitted from the result.
	GetMany(ctx context.Context, keys []string) (map[string]int64, error)
	// SetNX stores gen when the key is missing or holds 0. It returns the value
	// held after the call and whether this call stored it.
	SetNX(ctx context.Context, key string, gen int64) (cur int64, stored bool, err error)
	// Incr atomically increments an existing counter; ok=false when the key is
	// missing or holds 0 (nothing is created in that case).
	Incr(ctx context.Context, key string) (gen int64, ok bool, err error)
	// Close releases resources (no-op ok).
	Close(context.Context) error
}
