package cache

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	data     []byte
	expireAt time.Time
}

// MemoryCache stands in for redis when no address is configured. Values are
// stored encoded so callers see the same semantics as RedisCache.
type MemoryCache struct {
	mu   sync.Mutex
	data map[string]memoryItem
	now  func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{data: make(map[string]memoryItem), now: time.Now}
}

func (m *MemoryCache) Close() error {
	return nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = memoryItem{data: data, expireAt: m.expiry(expiration)}
	return nil
}

func (m *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	item, ok := m.lookup(key)
	m.mu.Unlock()
	if !ok {
		return ErrCacheMiss
	}
	return decode(item.data, dest)
}

func (m *MemoryCache) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key = "lock:" + key
	if _, ok := m.lookup(key); ok {
		return false, nil
	}
	m.data[key] = memoryItem{data: []byte("1"), expireAt: m.expiry(ttl)}
	return true, nil
}

// lookup drops expired entries; callers hold mu
func (m *MemoryCache) lookup(key string) (memoryItem, bool) {
	item, ok := m.data[key]
	if !ok {
		return memoryItem{}, false
	}
	if !item.expireAt.IsZero() && !m.now().Before(item.expireAt) {
		delete(m.data, key)
		return memoryItem{}, false
	}
	return item, true
}

func (m *MemoryCache) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return m.now().Add(ttl)
}
