package genstore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"

	"github.com/nats-io/nats.go/jetstream"
)

// maxCASAttempts bounds the optimistic update loops against a contended key.
const maxCASAttempts = 32

var ErrContended = errors.New("genstore: too many concurrent updates")

// NATS keeps tag generations in a JetStream KeyValue bucket.
// Atomicity comes from revision-checked Create/Update; tag names are
// base64url-encoded because KV keys only allow a restricted alphabet.
type NATS struct {
	kv     jetstream.KeyValue
	prefix string
}

var _ GenStore = (*NATS)(nil)

// NewNATS wraps an existing bucket. prefix namespaces the keys ("tag" if empty).
func NewNATS(kv jetstream.KeyValue, prefix string) *NATS {
	if prefix == "" {
		prefix = "tag"
	}
	return &NATS{kv: kv, prefix: prefix}
}

// OpenNATS creates (or updates) the bucket and wraps it.
func OpenNATS(ctx context.Context, js jetstream.JetStream, bucket, prefix string) (*NATS, error) {
	if bucket == "" {
		return nil, errors.New("genstore: bucket is required")
	}
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:  bucket,
		History: 1,
		Storage: jetstream.FileStorage,
	})
	if err != nil {
		return nil, err
	}
	return NewNATS(kv, prefix), nil
}

func (s *NATS) key(k string) string {
	return s.prefix + "." + base64.RawURLEncoding.EncodeToString([]byte(k))
}

func isNotFound(err error) bool {
	return errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted)
}

func isWrongRevision(err error) bool {
	if errors.Is(err, jetstream.ErrKeyExists) {
		return true
	}
	var apiErr *jetstream.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
}

func (s *NATS) entry(ctx context.Context, key string) (int64, uint64, bool, error) {
	e, err := s.kv.Get(ctx, s.key(key))
	if isNotFound(err) {
		return 0, 0, false, nil
	}
	if err != nil {
		return 0, 0, false, err
	}
	n, perr := strconv.ParseInt(string(e.Value()), 10, 64)
	if perr != nil {
		n = 0
	}
	return n, e.Revision(), true, nil
}

func (s *NATS) Get(ctx context.Context, key string) (int64, bool, error) {
	g, _, ok, err := s.entry(ctx, key)
	return g, ok, err
}

// GetMany reads keys one by one; KV has no multi-get.
func (s *NATS) GetMany(ctx context.Context, keys []string) (map[string]int64, error) {
	out := make(map[string]int64, len(keys))
	for _, k := range keys {
		g, ok, err := s.Get(ctx, k)
		if err != nil {
			return nil, fmt.Errorf("nats tag get %s: %w", k, err)
		}
		if ok {
			out[k] = g
		}
	}
	return out, nil
}

func (s *NATS) SetNX(ctx context.Context, key string, gen int64) (int64, bool, error) {
	val := []byte(strconv.FormatInt(gen, 10))
	for i := 0; i < maxCASAttempts; i++ {
		_, err := s.kv.Create(ctx, s.key(key), val)
		if err == nil {
			return gen, true, nil
		}
		if !isWrongRevision(err) {
			return 0, false, err
		}
		cur, rev, ok, err := s.entry(ctx, key)
		if err != nil {
			return 0, false, err
		}
		if !ok {
			continue // deleted in between; Create again
		}
		if cur != 0 {
			return cur, false, nil
		}
		if _, err := s.kv.Update(ctx, s.key(key), val, rev); err == nil {
			return gen, true, nil
		} else if !isWrongRevision(err) {
			return 0, false, err
		}
	}
	return 0, false, ErrContended
}

func (s *NATS) Incr(ctx context.Context, key string) (int64, bool, error) {
	for i := 0; i < maxCASAttempts; i++ {
		cur, rev, ok, err := s.entry(ctx, key)
		if err != nil {
			return 0, false, err
		}
		if !ok || cur == 0 {
			return 0, false, nil
		}
		next := cur + 1
		_, err = s.kv.Update(ctx, s.key(key), []byte(strconv.FormatInt(next, 10)), rev)
		if err == nil {
			return next, true, nil
		}
		if !isWrongRevision(err) {
			return 0, false, err
		}
	}
	return 0, false, ErrContended
}

// Close is a no-op; the bucket's connection belongs to the caller.
func (s *NATS) Close(context.Context) error { return nil }
