package tagcache

import (
	"context"
	"fmt"

	gen "github.com/unkn0wn-root/tagcache/genstore"
	"github.com/unkn0wn-root/tagcache/internal/util"
)

// Tagger lets a value name its own tag. Two values with the same CacheTag
// are the same tag.
type Tagger interface {
	CacheTag() string
}

// TagName returns the canonical name of t.
func TagName(t Tag) string {
	switch v := t.(type) {
	case Tagger:
		return v.CacheTag()
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// tagNames canonicalizes tags, dropping empty names and duplicates.
func tagNames(tags []Tag) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if n := TagName(t); n != "" {
			out = append(out, n)
		}
	}
	return util.Dedupe(out)
}

// tagStore reads and bumps tag generations. A tag that was never seen (or
// holds 0) is initialized to the current unix second on first contact, so a
// restarted GenStore never hands out a generation an old entry already holds.
type tagStore struct {
	gens  gen.GenStore
	clock Clock
}

func (s *tagStore) fresh() int64 {
	return s.clock.Now().Unix()
}

func (s *tagStore) read(ctx context.Context, name string) (int64, error) {
	g, ok, err := s.gens.Get(ctx, name)
	if err != nil {
		return 0, err
	}
	if ok && g != 0 {
		return g, nil
	}
	cur, _, err := s.gens.SetNX(ctx, name, s.fresh())
	return cur, err
}

// readMany returns a generation for every name. Absent tags are initialized
// one by one; the batch as a whole is not atomic.
func (s *tagStore) readMany(ctx context.Context, names []string) (map[string]int64, error) {
	out := make(map[string]int64, len(names))
	if len(names) == 0 {
		return out, nil
	}
	got, err := s.gens.GetMany(ctx, names)
	if err != nil {
		return nil, err
	}
	var now int64
	for _, n := range names {
		if g := got[n]; g != 0 {
			out[n] = g
			continue
		}
		if now == 0 {
			now = s.fresh()
		}
		cur, _, err := s.gens.SetNX(ctx, n, now)
		if err != nil {
			return nil, err
		}
		out[n] = cur
	}
	return out, nil
}

// snapshot captures the generations an entry is written or validated against.
func (s *tagStore) snapshot(ctx context.Context, names []string) (map[string]int64, error) {
	return s.readMany(ctx, names)
}

// touch bumps name by one, initializing it if absent. Losing the init race
// to another toucher falls back to a second increment so both bumps count.
func (s *tagStore) touch(ctx context.Context, name string) (int64, error) {
	g, ok, err := s.gens.Incr(ctx, name)
	if err != nil || ok {
		return g, err
	}
	cur, stored, err := s.gens.SetNX(ctx, name, s.fresh())
	if err != nil || stored {
		return cur, err
	}
	g, ok, err = s.gens.Incr(ctx, name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return cur, nil
	}
	return g, nil
}
