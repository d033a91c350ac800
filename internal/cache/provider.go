package cache

import (
	"context"
	"errors"
	"time"
)

// Provider defines the cache operations needed by the registry client.
type Provider interface {
	Get(ctx context.Context, key string, ttl time.Duration) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
	Len(ctx context.Context) (int, error)
	Close() error
}

// ErrCacheMiss signals that a cache key was not found or had expired.
var ErrCacheMiss = errors.New("cache miss")

// NoopProvider implements Provider but never stores data.
type NoopProvider struct{}

// Get always returns ErrCacheMiss.
func (NoopProvider) Get(context.Context, string, time.Duration) ([]byte, error) {
	return nil, ErrCacheMiss
}

// Set discards the value and returns nil.
func (NoopProvider) Set(context.Context, string, []byte) error { return nil }

// Del is a no-op for the noop cache.
func (NoopProvider) Del(context.Context, string) error { return nil }

// Len reports zero entries.
func (NoopProvider) Len(context.Context) (int, error) { return 0, nil }

// Close is a no-op.
func (NoopProvider) Close() error { return nil }
