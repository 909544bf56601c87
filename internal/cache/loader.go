package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const loadTimeout = 30 * time.Second

// Loader reads through a Store. Concurrent misses on one key share a single
// load. Cache failures are logged and never fail the read.
type Loader struct {
	store Store
	ttl   time.Duration
	group singleflight.Group

	mu          sync.Mutex
	generations map[string]uint64
}

func NewLoader(store Store, ttl time.Duration) *Loader {
	return &Loader{store: store, ttl: ttl, generations: map[string]uint64{}}
}

func (l *Loader) generation(key string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.generations[key]
}

// Fetch returns the cached value for key or computes, caches and returns it.
// The shared load is detached from any one caller's cancellation; each
// caller stops waiting when its own ctx is done. A load that overlapped an
// Invalidate of key is returned but not cached.
func Fetch[T any](ctx context.Context, l *Loader, key string, load func(context.Context) (T, error)) (T, error) {
	var zero T
	var cached T
	found, err := l.store.Get(ctx, key, &cached)
	if err != nil {
		zap.L().Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}
	if found {
		return cached, nil
	}

	shared := context.WithoutCancel(ctx)
	ch := l.group.DoChan(key, func() (any, error) {
		gen := l.generation(key)
		loadCtx, cancel := context.WithTimeout(shared, loadTimeout)
		defer cancel()

		fresh, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		if l.generation(key) != gen {
			return fresh, nil
		}
		if err := l.store.Set(loadCtx, key, fresh, l.ttl); err != nil {
			zap.L().Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
		// An Invalidate may have landed while Set was running.
		if l.generation(key) != gen {
			if err := l.store.Delete(loadCtx, key); err != nil {
				zap.L().Warn("cache invalidate failed", zap.String("key", key), zap.Error(err))
			}
		}
		return fresh, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// Invalidate drops keys after a write that changes what they summarize.
// Loads already in flight for those keys will not cache their result, and
// later callers start a fresh load instead of joining them.
func (l *Loader) Invalidate(ctx context.Context, keys ...string) {
	l.mu.Lock()
	for _, key := range keys {
		l.generations[key]++
		l.group.Forget(key)
	}
	l.mu.Unlock()

	if err := l.store.Delete(ctx, keys...); err != nil {
		zap.L().Warn("cache invalidate failed", zap.Strings("keys", keys), zap.Error(err))
	}
}
