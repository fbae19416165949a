// Package distlock provides a distributed lock for the scheduled
// ingestion job so only one replica refreshes the shared snapshot.
package distlock

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DistLock is the interface for distributed locking.
// Implementations must be safe for use from a single goroutine;
// concurrent use across goroutines requires separate lock instances.
type DistLock interface {
	// Acquire tries to acquire the lock. Returns true if successful.
	Acquire(ctx context.Context) (bool, error)
	// Release releases the lock if we still own it.
	Release(ctx context.Context) error
}

// NewLock creates a distributed lock using the best available backend.
// If redisClient is non-nil, uses Redis (required for cross-host locking).
// Otherwise falls back to a process-local lock, which is correct for a
// single-replica deployment.
func NewLock(redisClient *redis.Client, key string, ttl time.Duration) DistLock {
	if redisClient != nil {
		return NewRedisLock(redisClient, key, ttl)
	}
	return NewLocalLock(key)
}

// LocalLock implements DistLock within a single process. Acquire is
// non-blocking to match the Redis behavior.
type LocalLock struct {
	key string
	mu  sync.Mutex
	own bool
}

// NewLocalLock creates a process-local lock.
func NewLocalLock(key string) *LocalLock {
	return &LocalLock{key: key}
}

// Acquire tries to acquire the lock. Returns true if successful.
func (l *LocalLock) Acquire(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.own {
		return false, nil
	}
	l.own = true
	return true, nil
}

// Release releases the lock.
func (l *LocalLock) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.own = false
	return nil
}
