package tagcache

import (
	"errors"
	"fmt"
)

var (
	ErrNoProvider = errors.New("tagcache: Options.Provider is required")
	ErrNoGenStore = errors.New("tagcache: Options.GenStore is required")
	ErrNoCodec    = errors.New("tagcache: Options.Codec is required")

	// ErrEmptyTag is returned by tag operations whose tag resolves to an empty name.
	ErrEmptyTag = errors.New("tagcache: empty tag name")

	// ErrUnsupported is matched by every UnsupportedError.
	ErrUnsupported = errors.New("tagcache: operation not supported by provider")
)

// UnsupportedError reports a delegated operation the configured provider
// does not implement.
type UnsupportedError struct {
	Op      Op
	Backend string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("tagcache: %s not supported by provider %s", e.Op, e.Backend)
}

func (e *UnsupportedError) Is(target error) bool { return target == ErrUnsupported }

func unsupported(op Op, backend any) error {
	return &UnsupportedError{Op: op, Backend: fmt.Sprintf("%T", backend)}
}
