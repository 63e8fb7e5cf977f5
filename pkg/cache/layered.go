package cache

import (
	"context"
	"time"
)

// LayeredCache reads through a fast local cache before the shared backend.
// Writes go to both; the local copy keeps a shorter TTL so the shared backend
// stays authoritative.
type LayeredCache struct {
	local    Service
	shared   Service
	localTTL time.Duration
}

// NewLayeredCache combines a local and a shared cache.
func NewLayeredCache(local, shared Service, localTTL time.Duration) *LayeredCache {
	return &LayeredCache{
		local:    local,
		shared:   shared,
		localTTL: localTTL,
	}
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	localTTL := lc.localTTL
	if expiration > 0 && expiration < localTTL {
		localTTL = expiration
	}
	_ = lc.local.Set(ctx, key, value, localTTL)
	return lc.shared.Set(ctx, key, value, expiration)
}

func (lc *LayeredCache) Get(ctx context.Context, key string) ([]byte, error) {
	if data, err := lc.local.Get(ctx, key); err == nil {
		return data, nil
	}
	data, err := lc.shared.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	_ = lc.local.Set(ctx, key, data, lc.localTTL)
	return data, nil
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.local.Delete(ctx, keys...)
	return lc.shared.Delete(ctx, keys...)
}

func (lc *LayeredCache) Close() error {
	_ = lc.local.Close()
	return lc.shared.Close()
}
