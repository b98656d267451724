package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

type menuItem struct {
	ID    string `json:"id"`
	Price string `json:"price"`
}

func newTestCache(ttl time.Duration) (*Cache, *MemoryStore) {
	store := NewMemoryStore()
	return New(store, ttl, zap.NewNop()), store
}

// countingFetch returns a fetch function and a pointer to its call count.
func countingFetch(items []menuItem) (func(context.Context) ([]menuItem, error), *int) {
	calls := 0
	return func(ctx context.Context) ([]menuItem, error) {
		calls++
		return items, nil
	}, &calls
}

func TestGetOrFetch_CachesResult(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	ctx := context.Background()
	fetch, calls := countingFetch([]menuItem{{ID: "1", Price: "10.00"}})

	for i := 0; i < 3; i++ {
		got, err := GetOrFetch(ctx, c, "menuItems", fetch)
		if err != nil {
			t.Fatalf("get or fetch: %v", err)
		}
		if len(got) != 1 || got[0].ID != "1" {
			t.Fatalf("unexpected value: %+v", got)
		}
	}
	if *calls != 1 {
		t.Errorf("expected 1 fetch, got %d", *calls)
	}
}

func TestGetOrFetch_ErrorNotCached(t *testing.T) {
	c, store := newTestCache(time.Minute)
	ctx := context.Background()
	fetchErr := errors.New("service unavailable")

	_, err := GetOrFetch(ctx, c, "menuItems", func(ctx context.Context) ([]menuItem, error) {
		return nil, fetchErr
	})
	if !errors.Is(err, fetchErr) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if _, ok, _ := store.Get(ctx, "menuItems"); ok {
		t.Fatal("failed fetch must not be cached")
	}
}

func TestGetOrFetch_NilNotCached(t *testing.T) {
	c, store := newTestCache(time.Minute)
	ctx := context.Background()

	got, err := GetOrFetch(ctx, c, "settings", func(ctx context.Context) (*menuItem, error) {
		return nil, nil
	})
	if err != nil {
		t.Fatalf("get or fetch: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
	if _, ok, _ := store.Get(ctx, "settings"); ok {
		t.Fatal("nil result must not be cached")
	}
}

func TestGetOrFetch_EmptySliceCached(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	ctx := context.Background()
	fetch, calls := countingFetch([]menuItem{})

	GetOrFetch(ctx, c, "menuItems", fetch)
	GetOrFetch(ctx, c, "menuItems", fetch)
	if *calls != 1 {
		t.Errorf("empty (non-nil) result should be cached, got %d fetches", *calls)
	}
}

func TestInvalidate_ThenFetchAlwaysRefetches(t *testing.T) {
	c, _ := newTestCache(time.Hour)
	ctx := context.Background()

	GetOrFetch(ctx, c, "menuItems", func(ctx context.Context) ([]menuItem, error) {
		return []menuItem{{ID: "1", Price: "10.00"}}, nil
	})

	if err := c.Invalidate(ctx, "menuItems"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	fetched := false
	got, err := GetOrFetch(ctx, c, "menuItems", func(ctx context.Context) ([]menuItem, error) {
		fetched = true
		return []menuItem{{ID: "1", Price: "12.50"}}, nil
	})
	if err != nil {
		t.Fatalf("get or fetch: %v", err)
	}
	if !fetched {
		t.Fatal("fetch was not invoked after invalidation")
	}
	if got[0].Price != "12.50" {
		t.Errorf("stale price returned: %s", got[0].Price)
	}
}

func TestInvalidate_ExactKeyOnly(t *testing.T) {
	c, store := newTestCache(time.Hour)
	ctx := context.Background()
	store.Set(ctx, "menuItems", []byte(`[]`), 0)
	store.Set(ctx, "menuItemsArchive", []byte(`[]`), 0)

	if err := c.Invalidate(ctx, "menuItems"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "menuItems"); ok {
		t.Error("menuItems should be removed")
	}
	if _, ok, _ := store.Get(ctx, "menuItemsArchive"); !ok {
		t.Error("exact invalidation removed a key sharing the prefix")
	}
}

func TestInvalidate_Prefix(t *testing.T) {
	c, store := newTestCache(time.Hour)
	ctx := context.Background()
	for _, k := range []string{"overview:sales", "overview:stock", "overviewer", "menuItems"} {
		store.Set(ctx, k, []byte(`{}`), 0)
	}

	if err := c.Invalidate(ctx, "overview:*"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	keys, _ := store.Keys(ctx, "")
	want := []string{"menuItems", "overviewer"}
	if len(keys) != len(want) {
		t.Fatalf("remaining keys: got %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("remaining keys: got %v, want %v", keys, want)
		}
	}
}

// startBlockedFetch runs GetOrFetch for key with a fetch that returns items
// once release is closed. The returned channel closes when GetOrFetch is done.
func startBlockedFetch(c *Cache, key string, items []menuItem) (release chan struct{}, done chan struct{}) {
	release = make(chan struct{})
	done = make(chan struct{})
	inFetch := make(chan struct{})
	go func() {
		defer close(done)
		GetOrFetch(context.Background(), c, key, func(ctx context.Context) ([]menuItem, error) {
			close(inFetch)
			<-release
			return items, nil
		})
	}()
	<-inFetch
	return release, done
}

func TestInvalidate_DuringFetchDropsResult(t *testing.T) {
	c, store := newTestCache(time.Hour)
	ctx := context.Background()

	release, done := startBlockedFetch(c, "menuItems", []menuItem{{ID: "1", Price: "10.00"}})
	if err := c.Invalidate(ctx, "menuItems"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	close(release)
	<-done

	if _, ok, _ := store.Get(ctx, "menuItems"); ok {
		t.Fatal("result fetched before the invalidation was cached")
	}

	fetch, calls := countingFetch([]menuItem{{ID: "1", Price: "12.00"}})
	got, err := GetOrFetch(ctx, c, "menuItems", fetch)
	if err != nil {
		t.Fatalf("get or fetch: %v", err)
	}
	if *calls != 1 || got[0].Price != "12.00" {
		t.Errorf("read after invalidation: %d fetches, price %s", *calls, got[0].Price)
	}

	// The next fetch is cached again.
	GetOrFetch(ctx, c, "menuItems", fetch)
	if *calls != 1 {
		t.Errorf("expected cached read, got %d fetches", *calls)
	}
}

func TestInvalidate_PrefixDuringFetchDropsResult(t *testing.T) {
	c, store := newTestCache(time.Hour)
	ctx := context.Background()

	release, done := startBlockedFetch(c, "overview:sales", []menuItem{{ID: "1"}})
	if err := c.Invalidate(ctx, "overview:*"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	close(release)
	<-done

	if _, ok, _ := store.Get(ctx, "overview:sales"); ok {
		t.Error("prefix invalidation did not stop the write-back")
	}
}

func TestInvalidate_OtherKeyKeepsResult(t *testing.T) {
	c, store := newTestCache(time.Hour)
	ctx := context.Background()

	release, done := startBlockedFetch(c, "menuItems", []menuItem{{ID: "1"}})
	if err := c.Invalidate(ctx, "businessSettings"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	close(release)
	<-done

	if _, ok, _ := store.Get(ctx, "menuItems"); !ok {
		t.Error("unrelated invalidation dropped the result")
	}
}

func TestMemoryStore_ExpiredEntriesRemoved(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	store.Set(ctx, "menuItems", []byte(`[]`), time.Minute)
	store.Set(ctx, "overview:sales", []byte(`{}`), time.Minute)
	store.Set(ctx, "authToken", []byte(`"t"`), 0)
	now = now.Add(time.Minute)

	if _, ok, _ := store.Get(ctx, "menuItems"); ok {
		t.Error("expired entry returned")
	}
	if keys, _ := store.Keys(ctx, ""); len(keys) != 1 || keys[0] != "authToken" {
		t.Errorf("live keys: %v", keys)
	}
	if n := len(store.entries); n != 1 {
		t.Errorf("expired entries kept in memory: %d entries", n)
	}
}

func TestGetOrFetch_TTLExpiry(t *testing.T) {
	c, store := newTestCache(time.Minute)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	fetch, calls := countingFetch([]menuItem{{ID: "1"}})

	GetOrFetch(ctx, c, "menuItems", fetch)
	now = now.Add(59 * time.Second)
	GetOrFetch(ctx, c, "menuItems", fetch)
	if *calls != 1 {
		t.Fatalf("entry expired early: %d fetches", *calls)
	}

	now = now.Add(time.Second)
	GetOrFetch(ctx, c, "menuItems", fetch)
	if *calls != 2 {
		t.Errorf("expected refetch after ttl, got %d fetches", *calls)
	}
}

func TestGetOrFetch_CorruptEntryRefetched(t *testing.T) {
	c, store := newTestCache(time.Minute)
	ctx := context.Background()
	store.Set(ctx, "menuItems", []byte(`{not json`), 0)
	fetch, calls := countingFetch([]menuItem{{ID: "1"}})

	got, err := GetOrFetch(ctx, c, "menuItems", fetch)
	if err != nil {
		t.Fatalf("get or fetch: %v", err)
	}
	if *calls != 1 || len(got) != 1 {
		t.Errorf("corrupt entry should be treated as a miss")
	}
}

func TestEscapeGlob(t *testing.T) {
	got := escapeGlob("pos:t1:overview[*]?")
	want := `pos:t1:overview\[\*\]\?`
	if got != want {
		t.Errorf("escapeGlob: got %q, want %q", got, want)
	}
}
