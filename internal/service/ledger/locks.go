package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"go.uber.org/zap"

	"github.com/mamadbah2/foodstation/internal/domain/models"
)

// Locker guards the per-pipeline record chain. Writers are exclusive, readers
// share the lock. Different pipelines never contend.
type Locker interface {
	Lock(ctx context.Context, pipeline models.PipelineKind) (unlock func(), err error)
	RLock(ctx context.Context, pipeline models.PipelineKind) (unlock func(), err error)
}

// LocalLocker serializes writers inside one process.
type LocalLocker struct {
	mapMu sync.Mutex
	locks map[models.PipelineKind]*sync.RWMutex
}

// NewLocalLocker creates an empty lock table.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[models.PipelineKind]*sync.RWMutex)}
}

func (l *LocalLocker) pipelineLock(pipeline models.PipelineKind) *sync.RWMutex {
	l.mapMu.Lock()
	defer l.mapMu.Unlock()

	mu, ok := l.locks[pipeline]
	if !ok {
		mu = &sync.RWMutex{}
		l.locks[pipeline] = mu
	}
	return mu
}

// Lock blocks until the pipeline's writer section is free.
func (l *LocalLocker) Lock(_ context.Context, pipeline models.PipelineKind) (func(), error) {
	mu := l.pipelineLock(pipeline)
	mu.Lock()
	return mu.Unlock, nil
}

// RLock takes a shared read section.
func (l *LocalLocker) RLock(_ context.Context, pipeline models.PipelineKind) (func(), error) {
	mu := l.pipelineLock(pipeline)
	mu.RLock()
	return mu.RUnlock, nil
}

// RedisLocker adds a cluster-wide writer lock on top of the local one so
// several service instances cannot cascade the same pipeline at once.
type RedisLocker struct {
	local  *LocalLocker
	client *redislock.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisLocker wraps a redislock client. Held locks are extended every
// ttl/2, so ttl only bounds how long a crashed holder blocks the pipeline.
func NewRedisLocker(client *redislock.Client, ttl time.Duration, logger *zap.Logger) *RedisLocker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{local: NewLocalLocker(), client: client, ttl: ttl, logger: logger}
}

// Lock takes the local writer lock, then the distributed one. If another
// instance holds the pipeline, the caller gets models.ErrConflict.
func (l *RedisLocker) Lock(ctx context.Context, pipeline models.PipelineKind) (func(), error) {
	unlockLocal, _ := l.local.Lock(ctx, pipeline)

	key := fmt.Sprintf("ledger:%s", pipeline)
	lock, err := l.client.Obtain(ctx, key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		unlockLocal()
		return nil, fmt.Errorf("pipeline %s is locked by another writer: %w", pipeline, models.ErrConflict)
	}
	if err != nil {
		unlockLocal()
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}

	stopRefresh := keepAlive(lock, l.ttl, key, l.logger)
	return func() {
		stopRefresh()
		if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.logger.Warn("failed to release pipeline lock", zap.String("key", key), zap.Error(err))
		}
		unlockLocal()
	}, nil
}

// RLock only coordinates readers within this process; cross-instance readers
// rely on the store's versioned writes.
func (l *RedisLocker) RLock(ctx context.Context, pipeline models.PipelineKind) (func(), error) {
	return l.local.RLock(ctx, pipeline)
}

type refresher interface {
	Refresh(ctx context.Context, ttl time.Duration, opt *redislock.Options) error
}

// keepAlive extends lock every ttl/2 until the returned stop func is called or
// the lock is lost.
func keepAlive(lock refresher, ttl time.Duration, key string, logger *zap.Logger) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(ttl / 2)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			err := lock.Refresh(ctx, ttl, nil)
			switch {
			case err == nil:
			case ctx.Err() != nil:
				return
			case errors.Is(err, redislock.ErrNotObtained):
				logger.Error("pipeline lock expired before it could be extended", zap.String("key", key))
				return
			default:
				logger.Warn("failed to extend pipeline lock", zap.String("key", key), zap.Error(err))
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
