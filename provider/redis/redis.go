package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	pr "github.com/unkn0wn-root/tagcache/provider"
)

var ErrNilClient = errors.New("redis provider: nil client")

const (
	defaultKeyPrefix = "entity:"
	scanCount        = 512
)

type Redis struct {
	rdb         goredis.UniversalClient
	prefix      string
	closeClient bool
}

var (
	_ pr.Provider = (*Redis)(nil)
	_ pr.Matcher  = (*Redis)(nil)
	_ pr.Counter  = (*Redis)(nil)
	_ pr.Clearer  = (*Redis)(nil)
)

type Config struct {
	Client goredis.UniversalClient
	// KeyPrefix is prepended to every key and scopes Clear. Default "entity:",
	// which keeps Clear away from genstore.Redis keys ("tag:...") on a shared DB.
	KeyPrefix   string
	CloseClient bool // set true only if this provider exclusively owns the client
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &Redis{rdb: cfg.Client, prefix: prefix, closeClient: cfg.CloseClient}, nil
}

func (p *Redis) key(k string) string { return p.prefix + k }

func (p *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := p.rdb.Get(ctx, p.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err // transport/server error
	}
	return b, true, nil
}

func (p *Redis) Set(ctx context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		ttl = 0 // non-positive TTLs mean "no expiry"
	}
	if err := p.rdb.Set(ctx, p.key(key), value, ttl).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Redis) Del(ctx context.Context, key string) error {
	return p.rdb.Del(ctx, p.key(key)).Err()
}

// DeleteMatched walks SCAN MATCH and unlinks matches in batches. Not atomic:
// keys written during the scan may survive.
func (p *Redis) DeleteMatched(ctx context.Context, pattern string) (int, error) {
	return p.unlinkMatching(ctx, p.key(pattern))
}

func (p *Redis) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	return p.rdb.IncrBy(ctx, p.key(key), delta).Result()
}

// Clear removes every key under KeyPrefix.
func (p *Redis) Clear(ctx context.Context) error {
	_, err := p.unlinkMatching(ctx, p.prefix+"*")
	return err
}

func (p *Redis) unlinkMatching(ctx context.Context, match string) (int, error) {
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := p.rdb.Scan(ctx, cursor, match, scanCount).Result()
		if err != nil {
			return total, err
		}
		if len(keys) > 0 {
			n, err := p.rdb.Unlink(ctx, keys...).Result()
			if err != nil {
				return total, err
			}
			total += int(n)
		}
		if next == 0 {
			return total, nil
		}
		cursor = next
	}
}

// Close releases the underlying redis client only when this provider owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (p *Redis) Close(context.Context) error {
	if p.closeClient {
		if err := p.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}
