package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newMemoryOnly(t *testing.T) *Cache {
	t.Helper()

	c := New(Options{Enabled: true})
	t.Cleanup(func() { c.Close() })
	return c
}

func TestGetOrFetchCachesValue(t *testing.T) {
	c := newMemoryOnly(t)

	calls := 0
	fetcher := func(ctx context.Context) (string, error) {
		calls++
		return "51B", nil
	}

	for i := 0; i < 3; i++ {
		value, err := GetOrFetch(context.Background(), c, "route", time.Minute, fetcher)
		if err != nil {
			t.Fatalf("GetOrFetch returned error: %v", err)
		}
		if value != "51B" {
			t.Errorf("GetOrFetch = %q, want %q", value, "51B")
		}
	}

	if calls != 1 {
		t.Errorf("fetcher called %d times, want 1", calls)
	}
}

func TestGetOrFetchExpiresEntries(t *testing.T) {
	c := newMemoryOnly(t)

	current := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }

	calls := 0
	fetcher := func(ctx context.Context) (int, error) {
		calls++
		return calls, nil
	}

	first, _ := GetOrFetch(context.Background(), c, "key", 10*time.Second, fetcher)

	current = current.Add(5 * time.Second)
	second, _ := GetOrFetch(context.Background(), c, "key", 10*time.Second, fetcher)

	current = current.Add(6 * time.Second)
	third, _ := GetOrFetch(context.Background(), c, "key", 10*time.Second, fetcher)

	if first != 1 || second != 1 || third != 2 {
		t.Errorf("values = %d, %d, %d; want 1, 1, 2", first, second, third)
	}
}

func TestGetOrFetchDisabledCacheAlwaysFetches(t *testing.T) {
	c := New(Options{Enabled: false})
	defer c.Close()

	calls := 0
	for i := 0; i < 2; i++ {
		GetOrFetch(context.Background(), c, "key", time.Minute, func(ctx context.Context) (int, error) {
			calls++
			return calls, nil
		})
	}

	if calls != 2 {
		t.Errorf("fetcher called %d times, want 2", calls)
	}
}

func TestGetOrFetchNilCacheAlwaysFetches(t *testing.T) {
	value, err := GetOrFetch(context.Background(), nil, "key", time.Minute, func(ctx context.Context) (int, error) {
		return 9, nil
	})
	if err != nil {
		t.Fatalf("GetOrFetch returned error: %v", err)
	}
	if value != 9 {
		t.Errorf("GetOrFetch = %d, want 9", value)
	}
}

func TestGetOrFetchPropagatesFetcherError(t *testing.T) {
	c := newMemoryOnly(t)

	wantErr := errors.New("upstream down")
	_, err := GetOrFetch(context.Background(), c, "key", time.Minute, func(ctx context.Context) (int, error) {
		return 0, wantErr
	})

	if !errors.Is(err, wantErr) {
		t.Errorf("GetOrFetch error = %v, want %v", err, wantErr)
	}
}

func TestGetOrFetchUncacheableValueStillReturned(t *testing.T) {
	c := newMemoryOnly(t)

	calls := 0
	fetcher := func(ctx context.Context) (chan int, error) {
		calls++
		return make(chan int), nil
	}

	for i := 0; i < 2; i++ {
		value, err := GetOrFetch(context.Background(), c, "key", time.Minute, fetcher)
		if err != nil {
			t.Fatalf("GetOrFetch returned error: %v", err)
		}
		if value == nil {
			t.Fatal("GetOrFetch returned nil channel")
		}
	}

	// Channels cannot round-trip through the cache, so each call fetches.
	if calls != 2 {
		t.Errorf("fetcher called %d times, want 2", calls)
	}
}

func TestCleanupThresholdSweepsExpiredEntries(t *testing.T) {
	c := New(Options{Enabled: true, CleanupThreshold: 3})
	defer c.Close()

	current := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }

	c.memorySet("a", "payload", time.Second)
	c.memorySet("b", "payload", time.Second)

	current = current.Add(2 * time.Second)

	// Third write crosses the threshold and sweeps the expired entries.
	c.memorySet("c", "payload", time.Minute)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.memory["a"]; ok {
		t.Error("expired entry a survived the sweep")
	}
	if _, ok := c.memory["b"]; ok {
		t.Error("expired entry b survived the sweep")
	}
	if _, ok := c.memory["c"]; !ok {
		t.Error("live entry c was swept")
	}
	if c.writesSinceSweep != 0 {
		t.Errorf("writesSinceSweep = %d, want 0", c.writesSinceSweep)
	}
}

func TestCorruptMemoryEntryTreatedAsMiss(t *testing.T) {
	c := newMemoryOnly(t)

	c.memorySet("key", "not json", time.Minute)

	value, err := GetOrFetch(context.Background(), c, "key", time.Minute, func(ctx context.Context) (string, error) {
		return "fresh", nil
	})
	if err != nil {
		t.Fatalf("GetOrFetch returned error: %v", err)
	}
	if value != "fresh" {
		t.Errorf("GetOrFetch = %q, want %q", value, "fresh")
	}
}
