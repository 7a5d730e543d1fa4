package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrAlreadyLocked is reported when another holder owns the lock.
type alreadyLockedError struct{}

func (alreadyLockedError) Error() string { return "lock already held" }

var ErrAlreadyLocked error = alreadyLockedError{}

// RunLock serialises timetable generation runs. Only one holder may own the
// lock at a time; Acquire fails fast instead of blocking.
type RunLock interface {
	Acquire(ctx context.Context) (release func(context.Context) error, err error)
}

// --- Redis-backed lock ---

// redisLock implements RunLock with a SET NX key shared across processes.
type redisLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisLock builds a cross-process advisory lock. The TTL guards against a
// crashed holder leaving the key behind forever.
func NewRedisLock(client *redis.Client, key string, ttl time.Duration) RunLock {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &redisLock{client: client, key: key, ttl: ttl}
}

// releaseScript deletes the key only when the caller still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

func (l *redisLock) Acquire(ctx context.Context) (func(context.Context) error, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlreadyLocked
	}
	release := func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.client, []string{l.key}, token).Err()
	}
	return release, nil
}

// --- In-process fallback ---

// localLock serialises runs within a single process. It is the fallback when
// no Redis deployment is configured; deployments with multiple writers must
// use the Redis lock.
type localLock struct {
	mu sync.Mutex
}

// NewLocalLock builds an in-process run lock.
func NewLocalLock() RunLock {
	return &localLock{}
}

func (l *localLock) Acquire(ctx context.Context) (func(context.Context) error, error) {
	if !l.mu.TryLock() {
		return nil, ErrAlreadyLocked
	}
	release := func(context.Context) error {
		l.mu.Unlock()
		return nil
	}
	return release, nil
}
