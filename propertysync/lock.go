package propertysync

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
)

var ErrSyncInProgress = errors.New("remote sync already in progress")

// Locker serialises remote sync of one property across requests.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

// RedisLocker takes a short redislock lease per key. A held lock reports
// ErrSyncInProgress instead of waiting.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
}

func NewRedisLocker(client *redislock.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisLocker{client: client, ttl: ttl}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	lock, err := l.client.Obtain(ctx, key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrSyncInProgress
	}
	if err != nil {
		return nil, err
	}
	return func() {
		_ = lock.Release(context.WithoutCancel(ctx))
	}, nil
}

func propertyLockKey(propertyId string) string {
	return "propsync:lock:property:" + propertyId
}
