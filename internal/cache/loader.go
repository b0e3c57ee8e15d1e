package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Loader memoizes computed values. Concurrent misses for one key share a
// single computation, and values computed before the latest Invalidate
// are returned to their callers but never stored.
type Loader[T any] struct {
	cache *LRUCache[T]
	group singleflight.Group

	mu  sync.Mutex
	gen uint64
}

func NewLoader[T any](maxSize int, ttl time.Duration) *Loader[T] {
	return &Loader[T]{cache: NewLRUCache[T](maxSize, ttl)}
}

// Load returns the cached value for key or computes it with fn.
func (l *Loader[T]) Load(ctx context.Context, key string, fn func(context.Context) (T, error)) (T, error) {
	if v, ok := l.cache.Get(key); ok {
		return v, nil
	}

	l.mu.Lock()
	gen := l.gen
	l.mu.Unlock()

	v, err, _ := l.group.Do(strconv.FormatUint(gen, 10)+"/"+key, func() (any, error) {
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		if l.gen == gen {
			l.cache.Set(key, v)
		}
		l.mu.Unlock()
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Invalidate forgets every cached value.
func (l *Loader[T]) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	l.cache.Purge()
}

// Cache exposes the backing cache for registration with a Manager.
func (l *Loader[T]) Cache() *LRUCache[T] {
	return l.cache
}
