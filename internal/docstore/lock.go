package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/mycms-backend/pkg/errors"
	"github.com/angelmondragon/mycms-backend/pkg/instance"
)

const defaultLockTTL = 30 * time.Second

// Locker serializes read-modify-write cycles on one tenant key.
// The returned release func must be called once the write is done.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(context.Context) error, err error)
}

// NopLocker never blocks. It is used when advisory locking is disabled.
type NopLocker struct{}

func (NopLocker) Lock(context.Context, string) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}

type lockStore interface {
	AcquireLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name, owner string) (bool, error)
}

// RedisLocker implements Locker with a TTL-bounded Redis key holding an owner token.
type RedisLocker struct {
	client lockStore
	ttl    time.Duration
}

func NewRedisLocker(client lockStore, ttl time.Duration) (*RedisLocker, error) {
	if client == nil {
		return nil, errors.New("redis client required for tenant lock")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLocker{client: client, ttl: ttl}, nil
}

// Lock acquires the advisory lock or fails with CONFLICT when another owner holds it.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(context.Context) error, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	owner := instance.ID() + ":" + uuid.NewString()
	ok, err := l.client.AcquireLock(ctx, key, owner, l.ttl)
	if err != nil {
		return nil, dependencyError(fmt.Errorf("acquire lock: %w", err), "lock")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "tenant document is being updated, retry shortly").
			WithDetails(map[string]any{"key": key})
	}
	return func(ctx context.Context) error {
		if _, err := l.client.ReleaseLock(ctx, key, owner); err != nil {
			return fmt.Errorf("release lock: %w", err)
		}
		return nil
	}, nil
}
