package syncer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/sapsync/internal/documents"
	"github.com/odyssey-erp/sapsync/internal/shared"
)

// Locker serialises writers of one document kind.
type Locker interface {
	// Obtain returns a release func, or ErrRunInProgress when the key is held.
	Obtain(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error)
}

// RedisLocker implements Locker with redislock.
type RedisLocker struct {
	client *redislock.Client
}

// NewRedisLocker builds a Locker on top of a redis client.
func NewRedisLocker(rdb redis.UniversalClient) *RedisLocker {
	return &RedisLocker{client: redislock.New(rdb)}
}

// Obtain implements Locker without retries.
func (l *RedisLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	lock, err := l.client.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrRunInProgress
	}
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) error {
		err := lock.Release(ctx)
		if errors.Is(err, redislock.ErrLockNotHeld) {
			return nil
		}
		return err
	}, nil
}

func (s *Service) lock(ctx context.Context, kind documents.Kind) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	key := shared.SyncLockKey(string(kind))
	release, err := s.locker.Obtain(ctx, key, s.cfg.LockTTL)
	if err != nil {
		return nil, err
	}
	return func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("release sync lock", slog.String("key", key), slog.Any("error", err))
		}
	}, nil
}
