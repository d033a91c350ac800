package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds connection parameters for a shared Redis cache.
type RedisConfig struct {
	URL          string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// MaxAge bounds how long any entry survives server-side regardless of
	// the per-read TTL callers apply.
	MaxAge time.Duration
}

// RedisProvider backs the cache with a Redis instance so multiple engine
// replicas share one response cache. Each stored value is prefixed with its
// write timestamp because expiry is decided by the reader's TTL, not a
// single server-side one.
type RedisProvider struct {
	client *redis.Client
	maxAge time.Duration
}

// NewRedisProvider connects to Redis and pings it to fail fast on bad
// credentials or connectivity.
func NewRedisProvider(cfg RedisConfig) (*RedisProvider, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis URL is required")
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = 48 * time.Hour
	}
	return &RedisProvider{client: client, maxAge: maxAge}, nil
}

// Get fetches a value and applies the caller's TTL against the stored
// write timestamp.
func (p *RedisProvider) Get(ctx context.Context, key string, ttl time.Duration) ([]byte, error) {
	raw, err := p.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	storedAt, payload, err := decodeEnvelope(raw)
	if err != nil {
		// A malformed entry is treated as a miss and removed.
		_ = p.client.Del(ctx, key).Err()
		return nil, ErrCacheMiss
	}
	if ttl > 0 && time.Since(storedAt) > ttl {
		_ = p.client.Del(ctx, key).Err()
		return nil, ErrCacheMiss
	}
	return payload, nil
}

// Set stores the payload with the current write timestamp.
func (p *RedisProvider) Set(ctx context.Context, key string, value []byte) error {
	if err := p.client.Set(ctx, key, encodeEnvelope(time.Now(), value), p.maxAge).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Del removes a key.
func (p *RedisProvider) Del(ctx context.Context, key string) error {
	return p.client.Del(ctx, key).Err()
}

// Len reports the size of the backing database.
func (p *RedisProvider) Len(ctx context.Context) (int, error) {
	size, err := p.client.DBSize(ctx).Result()
	if err != nil {
		return 0, fmt.Errorf("redis dbsize: %w", err)
	}
	return int(size), nil
}

// Close releases the connection pool.
func (p *RedisProvider) Close() error { return p.client.Close() }

func encodeEnvelope(storedAt time.Time, payload []byte) []byte {
	buf := make([]byte, 8+len(payload))
	binary.BigEndian.PutUint64(buf, uint64(storedAt.Unix()))
	copy(buf[8:], payload)
	return buf
}

func decodeEnvelope(raw []byte) (time.Time, []byte, error) {
	if len(raw) < 8 {
		return time.Time{}, nil, errors.New("short cache envelope")
	}
	storedAt := time.Unix(int64(binary.BigEndian.Uint64(raw[:8])), 0)
	return storedAt, raw[8:], nil
}
