package cache

import (
	"context"
	"errors"
	"time"
)

var ErrCacheMiss = errors.New("cache: key not found")

// Store is the subset of cache operations the bot needs
type Store interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	// TryLock sets key only if absent, reporting whether it was acquired
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Close() error
}
