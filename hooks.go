package tagcache

import "time"

// Op names an instrumented operation.
type Op string

const (
	OpRead          Op = "read"
	OpReadMulti     Op = "read_multi"
	OpExist         Op = "exist"
	OpWrite         Op = "write"
	OpDelete        Op = "delete"
	OpFetch         Op = "fetch"
	OpFetchHit      Op = "fetch_hit"
	OpGenerate      Op = "generate"
	OpReadTag       Op = "read_tag"
	OpReadTags      Op = "read_tags"
	OpTouchTag      Op = "touch_tag"
	OpDeleteMatched Op = "delete_matched"
	OpIncrement     Op = "increment"
	OpDecrement     Op = "decrement"
	OpCleanup       Op = "cleanup"
	OpClear         Op = "clear"
)

// Event describes one finished operation.
type Event struct {
	Op Op
	// Key is the namespaced entity key, the tag name for tag operations or
	// the pattern for delete_matched.
	Key string
	// Super is set when Op ran as part of another operation (a read inside a fetch).
	Super Op

	Hit      bool     // read/exist/fetch found a valid entry
	Stale    bool     // an entry was found but its tag snapshot no longer matched
	Corrupt  bool     // the stored bytes or payload could not be decoded
	Extended bool     // fetch re-wrote an expired entry for the race window
	Rejected bool     // the provider refused a write under pressure
	Tags     []string // dependencies written, or tags read
	Count    int      // keys requested or affected, for multi-key operations

	Duration time.Duration
	Err      error
}

// Hooks observe operations. The store calls Observe on hot paths, so
// implementations MUST be cheap and non-blocking (see hooks/async).
type Hooks interface {
	Observe(Event)
}

// HooksFunc adapts a function to Hooks.
type HooksFunc func(Event)

func (f HooksFunc) Observe(ev Event) { f(ev) }

// NopHooks is the default no-op.
type NopHooks struct{}

func (NopHooks) Observe(Event) {}

func (s *store[V]) observe(ev *Event, start time.Time) {
	ev.Duration = time.Since(start)
	s.hooks.Observe(*ev)
}
