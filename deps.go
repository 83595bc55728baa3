package tagcache

import (
	"reflect"
	"sync"
)

// Dependencies collects the tags a generated value depends on. Fetch hands
// one to its Generator, pre-seeded with the WithDepends tags of the call.
// It is safe to use from goroutines the generator starts.
type Dependencies struct {
	mu   sync.Mutex
	tags []string
}

func newDependencies(seed []string) *Dependencies {
	return &Dependencies{tags: append([]string(nil), seed...)}
}

// Depends records tag. Duplicates are kept until the entry is written.
func (d *Dependencies) Depends(tag Tag) {
	n := TagName(tag)
	if n == "" {
		return
	}
	d.mu.Lock()
	d.tags = append(d.tags, n)
	d.mu.Unlock()
}

// Append is an alias of Depends.
func (d *Dependencies) Append(tag Tag) { d.Depends(tag) }

// Concat records every tag, in order. A single slice or array argument is
// flattened: Concat([]string{"a", "b"}) equals Concat("a", "b").
func (d *Dependencies) Concat(tags ...Tag) {
	if len(tags) == 1 {
		if flat, ok := flatten(tags[0]); ok {
			tags = flat
		}
	}
	for _, t := range tags {
		d.Depends(t)
	}
}

// Tags returns the recorded names in insertion order, duplicates included.
func (d *Dependencies) Tags() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.tags...)
}

func flatten(v any) ([]Tag, bool) {
	switch s := v.(type) {
	case []Tag:
		return s, true
	case []string:
		out := make([]Tag, len(s))
		for i, n := range s {
			out[i] = n
		}
		return out, true
	case []byte, Tagger:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if k := rv.Kind(); k != reflect.Slice && k != reflect.Array {
		return nil, false
	}
	out := make([]Tag, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
