package genstore

import (
	"context"
	"sync"
)

// Local keeps generations in-process. Tags are eternal, so nothing is ever pruned.
type Local struct {
	mu   sync.RWMutex
	gens map[string]int64
}

var _ GenStore = (*Local)(nil)

func NewLocal() *Local {
	return &Local{gens: make(map[string]int64)}
}

func (s *Local) Get(_ context.Context, k string) (int64, bool, error) {
	s.mu.RLock()
	g, ok := s.gens[k]
	s.mu.RUnlock()
	return g, ok, nil
}

// GetMany acquires the read lock once and reads all requested keys.
func (s *Local) GetMany(_ context.Context, ks []string) (map[string]int64, error) {
	out := make(map[string]int64, len(ks))
	s.mu.RLock()
	for _, k := range ks {
		if g, ok := s.gens[k]; ok {
			out[k] = g
		}
	}
	s.mu.RUnlock()
	return out, nil
}

func (s *Local) SetNX(_ context.Context, k string, gen int64) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur := s.gens[k]; cur != 0 {
		return cur, false, nil
	}
	s.gens[k] = gen
	return gen, true, nil
}

func (s *Local) Incr(_ context.Context, k string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.gens[k]
	if cur == 0 {
		return 0, false, nil
	}
	cur++
	s.gens[k] = cur
	return cur, true, nil
}

func (s *Local) Close(context.Context) error { return nil }
