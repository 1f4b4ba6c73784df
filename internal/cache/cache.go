// Package cache provides a small read-through cache boundary. Conversations
// are immutable after creation, so cached copies never go stale; the cache
// keeps the append/list authorization lookup off the database hot path.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent.
var ErrMiss = errors.New("cache: miss")

// Cache is the minimal key-value surface the service layer depends on.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Ping(ctx context.Context) error
	Close() error
}
