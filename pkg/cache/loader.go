package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type call[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Loader wraps a Service with read-through loading and single-flight
// coordination: concurrent loads for the same key share one computation.
// Backend failures on either read or write are treated as cache misses and
// never surface to the caller.
type Loader[T any] struct {
	cache    Service
	mu       sync.Mutex
	inflight map[string]*call[T]
}

// NewLoader creates a read-through loader over the given cache backend.
func NewLoader[T any](cache Service) *Loader[T] {
	return &Loader[T]{
		cache:    cache,
		inflight: make(map[string]*call[T]),
	}
}

// Load returns the cached value for key, or runs compute once to produce it.
// Concurrent callers for the same key block on the in-flight computation
// instead of recomputing. The computed value is stored with the given TTL on
// a best-effort basis.
func (l *Loader[T]) Load(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	if data, err := l.cache.Get(ctx, key); err == nil {
		var cached T
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached, nil
		}
		// Undecodable entry, fall through to recompute.
	}

	l.mu.Lock()
	if c, ok := l.inflight[key]; ok {
		l.mu.Unlock()
		select {
		case <-c.done:
			return c.val, c.err
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
	c := &call[T]{done: make(chan struct{})}
	l.inflight[key] = c
	l.mu.Unlock()

	c.val, c.err = compute(ctx)
	if c.err == nil {
		if data, err := json.Marshal(c.val); err == nil {
			_ = l.cache.Set(ctx, key, data, ttl)
		}
	}

	l.mu.Lock()
	delete(l.inflight, key)
	l.mu.Unlock()
	close(c.done)

	return c.val, c.err
}
