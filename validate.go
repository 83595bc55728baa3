package tagcache

import (
	"context"
	"maps"
	"slices"
)

// validator checks entries against current tag generations. A mismatch
// expires the entry in memory; nothing is written back to the provider.
type validator struct {
	tags  *tagStore
	clock Clock
}

// check validates one entry and returns the generations it compared against
// (nil for an entry without tags).
func (v validator) check(ctx context.Context, e *Entry) (current map[string]int64, stale bool, err error) {
	if len(e.Tags) == 0 {
		return nil, false, nil
	}
	current, err = v.tags.snapshot(ctx, slices.Collect(maps.Keys(e.Tags)))
	if err != nil {
		return nil, false, err
	}
	if !matches(e.Tags, current) {
		e.expire(v.clock.Now())
		return current, true, nil
	}
	return current, false, nil
}

// checkMany validates entries with a single generation lookup over the union
// of their tags. The result holds the keys of entries found stale.
func (v validator) checkMany(ctx context.Context, entries map[string]*Entry) (map[string]bool, error) {
	stale := make(map[string]bool)
	var names []string
	seen := make(map[string]struct{})
	for _, e := range entries {
		for n := range e.Tags {
			if _, ok := seen[n]; !ok {
				seen[n] = struct{}{}
				names = append(names, n)
			}
		}
	}
	if len(names) == 0 {
		return stale, nil
	}
	current, err := v.tags.snapshot(ctx, names)
	if err != nil {
		return nil, err
	}
	now := v.clock.Now()
	for k, e := range entries {
		if !matches(e.Tags, current) {
			e.expire(now)
			stale[k] = true
		}
	}
	return stale, nil
}

func matches(snapshot, current map[string]int64) bool {
	for n, g := range snapshot {
		if cur, ok := current[n]; !ok || cur != g {
			return false
		}
	}
	return true
}
