package tagcache

import (
	"sort"
	"time"

	"github.com/unkn0wn-root/tagcache/internal/wire"
)

// Entry is what the provider stores for one key: the encoded value, its
// lifetime and the generation of every tag it depended on when written.
type Entry struct {
	Payload   []byte
	CreatedAt time.Time
	ExpiresAt time.Time        // zero => never expires
	Tags      map[string]int64 // tag name -> generation at write time
}

// Expired reports whether e is past its logical expiry at now.
func (e *Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// expire marks e as logically expired in memory only.
func (e *Entry) expire(now time.Time) {
	e.ExpiresAt = now.Add(-time.Second)
}

func encodeEntry(e *Entry) ([]byte, error) {
	w := wire.Entry{
		CreatedAt: unixNano(e.CreatedAt),
		ExpiresAt: unixNano(e.ExpiresAt),
		Payload:   e.Payload,
	}
	if len(e.Tags) > 0 {
		w.Tags = make([]wire.Tag, 0, len(e.Tags))
		for n, g := range e.Tags {
			w.Tags = append(w.Tags, wire.Tag{Name: n, Gen: g})
		}
		// stable bytes for identical snapshots
		sort.Slice(w.Tags, func(i, j int) bool { return w.Tags[i].Name < w.Tags[j].Name })
	}
	return wire.EncodeEntry(w)
}

func decodeEntry(b []byte) (*Entry, error) {
	w, err := wire.DecodeEntry(b)
	if err != nil {
		return nil, err
	}
	e := &Entry{
		Payload:   w.Payload,
		CreatedAt: fromUnixNano(w.CreatedAt),
		ExpiresAt: fromUnixNano(w.ExpiresAt),
	}
	if len(w.Tags) > 0 {
		e.Tags = make(map[string]int64, len(w.Tags))
		for _, t := range w.Tags {
			e.Tags[t.Name] = t.Gen
		}
	}
	return e, nil
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
