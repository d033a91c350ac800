package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryProvider is an in-process cache keyed by request identity. Entries
// carry their write timestamp and expire by age at read time, so different
// callers can apply different TTLs to the same entry.
type MemoryProvider struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	storedAt time.Time
	payload  []byte
}

// NewMemoryProvider creates an empty in-memory cache.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get returns the payload for key if it was stored less than ttl ago.
// Expired entries are evicted and reported as a miss.
func (p *MemoryProvider) Get(_ context.Context, key string, ttl time.Duration) ([]byte, error) {
	p.mu.RLock()
	entry, ok := p.entries[key]
	p.mu.RUnlock()
	if !ok {
		return nil, ErrCacheMiss
	}

	if ttl > 0 && p.now().Sub(entry.storedAt) > ttl {
		p.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have refreshed it.
		if current, ok := p.entries[key]; ok && current.storedAt.Equal(entry.storedAt) {
			delete(p.entries, key)
		}
		p.mu.Unlock()
		return nil, ErrCacheMiss
	}

	return append([]byte(nil), entry.payload...), nil
}

// Set stores the payload under key with the current timestamp.
func (p *MemoryProvider) Set(_ context.Context, key string, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[key] = memoryEntry{
		storedAt: p.now(),
		payload:  append([]byte(nil), value...),
	}
	return nil
}

// Del removes a single entry.
func (p *MemoryProvider) Del(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.entries, key)
	return nil
}

// Len returns the number of stored entries, expired or not.
func (p *MemoryProvider) Len(context.Context) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries), nil
}

// Close is a no-op for the memory provider.
func (p *MemoryProvider) Close() error { return nil }
