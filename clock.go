package tagcache

import "time"

// Clock provides the current time for entry expiry and new tag generations.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
