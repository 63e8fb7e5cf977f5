package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type flakyCache struct {
	Service
	failGets bool
	failSets bool
}

func (f *flakyCache) Get(ctx context.Context, key string) ([]byte, error) {
	if f.failGets {
		return nil, errors.New("backend down")
	}
	return f.Service.Get(ctx, key)
}

func (f *flakyCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if f.failSets {
		return errors.New("backend down")
	}
	return f.Service.Set(ctx, key, value, ttl)
}

func TestLoaderComputesOnceThenServesCached(t *testing.T) {
	mc := NewMemoryCache(WithCleanupInterval(time.Hour))
	defer mc.Close()
	loader := NewLoader[int](mc)
	ctx := context.Background()

	var calls int32
	compute := func(context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 42, nil
	}

	for i := 0; i < 3; i++ {
		got, err := loader.Load(ctx, "answer", time.Minute, compute)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if got != 42 {
			t.Fatalf("got %d, want 42", got)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("compute ran %d times, want 1", n)
	}
}

func TestLoaderSingleFlight(t *testing.T) {
	mc := NewMemoryCache(WithCleanupInterval(time.Hour))
	defer mc.Close()
	loader := NewLoader[string](mc)
	ctx := context.Background()

	var calls int32
	release := make(chan struct{})
	compute := func(context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "value", nil
	}

	const workers = 8
	var wg sync.WaitGroup
	results := make([]string, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = loader.Load(ctx, "shared", time.Minute, compute)
		}(i)
	}

	// Give every worker a chance to join the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		if results[i] != "value" {
			t.Fatalf("worker %d got %q", i, results[i])
		}
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("compute ran %d times, want 1", n)
	}
}

func TestLoaderErrorNotCached(t *testing.T) {
	mc := NewMemoryCache(WithCleanupInterval(time.Hour))
	defer mc.Close()
	loader := NewLoader[int](mc)
	ctx := context.Background()

	boom := errors.New("boom")
	var calls int32
	fail := func(context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 0, boom
	}

	if _, err := loader.Load(ctx, "k", time.Minute, fail); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if _, err := loader.Load(ctx, "k", time.Minute, fail); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("compute ran %d times, want 2 (errors must not be cached)", n)
	}
}

func TestLoaderBackendFailureIsAMiss(t *testing.T) {
	mc := NewMemoryCache(WithCleanupInterval(time.Hour))
	defer mc.Close()
	flaky := &flakyCache{Service: mc, failGets: true, failSets: true}
	loader := NewLoader[int](flaky)
	ctx := context.Background()

	var calls int32
	compute := func(context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 7, nil
	}

	for i := 0; i < 2; i++ {
		got, err := loader.Load(ctx, "k", time.Minute, compute)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if got != 7 {
			t.Fatalf("got %d, want 7", got)
		}
	}
	// Every call recomputes because the backend never stores anything.
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("compute ran %d times, want 2", n)
	}
}

func TestLoaderExpiredEntryRecomputes(t *testing.T) {
	mc := NewMemoryCache(WithCleanupInterval(time.Hour))
	defer mc.Close()
	loader := NewLoader[int](mc)
	ctx := context.Background()

	var calls int32
	compute := func(context.Context) (int, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	}

	got, err := loader.Load(ctx, "k", 10*time.Millisecond, compute)
	if err != nil || got != 1 {
		t.Fatalf("first load = %d, %v", got, err)
	}
	time.Sleep(30 * time.Millisecond)
	got, err = loader.Load(ctx, "k", 10*time.Millisecond, compute)
	if err != nil || got != 2 {
		t.Fatalf("second load = %d, %v, want recompute", got, err)
	}
}
