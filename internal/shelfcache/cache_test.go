package shelfcache_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"shelftags/internal/metrics"
	"shelftags/internal/shelfcache"
	"shelftags/internal/shelves"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func openCache(t *testing.T, ttl time.Duration, opts ...shelfcache.Option) *shelfcache.Cache {
	t.Helper()
	cache, err := shelfcache.Open(filepath.Join(t.TempDir(), "cache", "shelves.db"), ttl, nil, opts...)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestStoreAndLookup(t *testing.T) {
	ctx := context.Background()
	cache := openCache(t, time.Hour)

	if _, ok, err := cache.Lookup(ctx, "42"); err != nil || ok {
		t.Fatalf("expected miss on empty cache, got ok=%v err=%v", ok, err)
	}
	if err := cache.Store(ctx, "42", []byte("page-1")); err != nil {
		t.Fatalf("Store returned error: %v", err)
	}
	if err := cache.Store(ctx, "42", []byte("page-2")); err != nil {
		t.Fatalf("Store overwrite returned error: %v", err)
	}
	body, ok, err := cache.Lookup(ctx, "42")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if string(body) != "page-2" {
		t.Fatalf("expected latest body, got %q", body)
	}
	if n, err := cache.Len(ctx); err != nil || n != 1 {
		t.Fatalf("expected one entry, got %d err=%v", n, err)
	}
}

func TestExpiryAndPurge(t *testing.T) {
	ctx := context.Background()
	clk := &clock{now: time.Unix(1_700_000_000, 0)}
	cache := openCache(t, time.Hour, shelfcache.WithClock(clk.Now))

	if err := cache.Store(ctx, "old", []byte("x")); err != nil {
		t.Fatalf("Store returned error: %v", err)
	}
	clk.now = clk.now.Add(30 * time.Minute)
	if err := cache.Store(ctx, "new", []byte("y")); err != nil {
		t.Fatalf("Store returned error: %v", err)
	}
	clk.now = clk.now.Add(45 * time.Minute)

	if _, ok, _ := cache.Lookup(ctx, "old"); ok {
		t.Fatal("expected old entry to be expired")
	}
	if _, ok, _ := cache.Lookup(ctx, "new"); !ok {
		t.Fatal("expected new entry to be fresh")
	}

	removed, err := cache.Purge(ctx)
	if err != nil {
		t.Fatalf("Purge returned error: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected one purged entry, got %d", removed)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shelves.db")
	first, err := shelfcache.Open(path, 0, nil)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if err := first.Store(ctx, "7", []byte("kept")); err != nil {
		t.Fatalf("Store returned error: %v", err)
	}
	_ = first.Close()

	second, err := shelfcache.Open(path, 0, nil)
	if err != nil {
		t.Fatalf("reopen returned error: %v", err)
	}
	defer second.Close()
	body, ok, err := second.Lookup(ctx, "7")
	if err != nil || !ok || string(body) != "kept" {
		t.Fatalf("expected persisted entry, got %q ok=%v err=%v", body, ok, err)
	}
}

func TestWrapReadsThrough(t *testing.T) {
	m := metrics.New()
	cache := openCache(t, time.Hour, shelfcache.WithMetrics(m))

	var calls atomic.Int32
	fetcher := shelves.FetcherFunc(func(ctx context.Context, id string, timeout time.Duration) ([]byte, error) {
		calls.Add(1)
		return []byte("page for " + id), nil
	})
	wrapped := cache.Wrap(fetcher)

	for i := 0; i < 3; i++ {
		body, err := wrapped.Fetch(context.Background(), "99", time.Second)
		if err != nil {
			t.Fatalf("Fetch returned error: %v", err)
		}
		if string(body) != "page for 99" {
			t.Fatalf("unexpected body %q", body)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one upstream fetch, got %d", calls.Load())
	}
	if hits := m.Value("shelftags_cache_lookups_total", "result=hit"); hits != 2 {
		t.Fatalf("expected 2 hits, got %v", hits)
	}
	if misses := m.Value("shelftags_cache_lookups_total", "result=miss"); misses != 1 {
		t.Fatalf("expected 1 miss, got %v", misses)
	}
}

func TestWrapDoesNotCacheFailures(t *testing.T) {
	cache := openCache(t, time.Hour)
	var calls atomic.Int32
	wrapped := cache.Wrap(shelves.FetcherFunc(func(ctx context.Context, id string, timeout time.Duration) ([]byte, error) {
		calls.Add(1)
		return nil, shelves.ErrFetch
	}))

	for i := 0; i < 2; i++ {
		if _, err := wrapped.Fetch(context.Background(), "1", time.Second); !errors.Is(err, shelves.ErrFetch) {
			t.Fatalf("expected ErrFetch, got %v", err)
		}
	}
	if calls.Load() != 2 {
		t.Fatalf("expected failures to reach upstream each time, got %d calls", calls.Load())
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := shelfcache.Open("  ", time.Hour, nil); err == nil {
		t.Fatal("expected error for empty path")
	}
}
