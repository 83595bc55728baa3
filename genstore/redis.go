package genstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// setNXScript stores ARGV[1] unless the key already holds a non-zero integer.
// Values are returned as strings so int64 generations survive Lua's doubles.
var setNXScript = redis.NewScript(`
local raw = redis.call('GET', KEYS[1])
if raw then
  local n = tonumber(raw)
  if n and n ~= 0 then
    return {raw, 0}
  end
end
redis.call('SET', KEYS[1], ARGV[1])
return {ARGV[1], 1}
`)

// incrScript increments only an existing, non-zero counter; nil reply otherwise.
var incrScript = redis.NewScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then
  return false
end
local n = tonumber(raw)
if not n or n == 0 then
  return false
end
return redis.call('INCR', KEYS[1])
`)

// Redis shares tag generations across processes and survives restarts.
// Keys are "tag:<ns>:<name>"; they never expire.
type Redis struct {
	rdb redis.UniversalClient
	ns  string
}

var _ GenStore = (*Redis)(nil)

// NewRedis creates a Redis-backed generation store.
func NewRedis(client redis.UniversalClient, namespace string) *Redis {
	return &Redis{rdb: client, ns: namespace}
}

func (s *Redis) key(k string) string {
	if s.ns == "" {
		return "tag:" + k
	}
	return "tag:" + s.ns + ":" + k
}

// parseGen treats anything that is not an integer as 0, which callers
// handle like a missing counter.
func parseGen(v any) int64 {
	var str string
	switch vv := v.(type) {
	case string:
		str = vv
	case []byte:
		str = string(vv)
	case int64:
		return vv
	default:
		str = fmt.Sprint(vv)
	}
	n, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func (s *Redis) Get(ctx context.Context, key string) (int64, bool, error) {
	res, err := s.rdb.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return parseGen(res), true, nil
}

// GetMany issues a single MGET.
func (s *Redis) GetMany(ctx context.Context, keys []string) (map[string]int64, error) {
	if len(keys) == 0 {
		return map[string]int64{}, nil
	}
	rk := make([]string, len(keys))
	for i, k := range keys {
		rk[i] = s.key(k)
	}
	vals, err := s.rdb.MGet(ctx, rk...).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(keys))
	for i, v := range vals {
		if v == nil {
			continue
		}
		out[keys[i]] = parseGen(v)
	}
	return out, nil
}

func (s *Redis) SetNX(ctx context.Context, key string, gen int64) (int64, bool, error) {
	res, err := setNXScript.Run(ctx, s.rdb, []string{s.key(key)}, strconv.FormatInt(gen, 10)).Slice()
	if err != nil {
		return 0, false, err
	}
	if len(res) != 2 {
		return 0, false, fmt.Errorf("redis tag setnx: unexpected reply %v", res)
	}
	return parseGen(res[0]), parseGen(res[1]) == 1, nil
}

func (s *Redis) Incr(ctx context.Context, key string) (int64, bool, error) {
	v, err := incrScript.Run(ctx, s.rdb, []string{s.key(key)}).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

// Close closes the underlying Redis client.
func (s *Redis) Close(context.Context) error { return s.rdb.Close() }
