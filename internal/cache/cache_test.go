package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"swotplan/api/internal/swot"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, s
}

func TestNewRedisStore(t *testing.T) {
	store, _ := setupTestRedis(t)
	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestNewRedisStoreRejectsBadURL(t *testing.T) {
	if _, err := NewRedisStore("not a url"); err == nil {
		t.Fatal("expected error for invalid redis url")
	}
}

func TestRedisStoreRoundTripAndExpiry(t *testing.T) {
	store, s := setupTestRedis(t)
	ctx := context.Background()

	progress := swot.PlanProgress{PlanID: "p1", FilledGroups: 1, TotalGroups: 3}
	if err := store.Set(ctx, "progress:p1", progress, 30*time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if !s.Exists("swotplan:progress:p1") {
		t.Fatal("expected prefixed key in redis")
	}

	var got swot.PlanProgress
	found, err := store.Get(ctx, "progress:p1", &got)
	if err != nil || !found {
		t.Fatalf("Get = %v, %v", found, err)
	}
	if got.PlanID != "p1" || got.TotalGroups != 3 {
		t.Errorf("unexpected progress %+v", got)
	}

	s.FastForward(31 * time.Second)
	found, err = store.Get(ctx, "progress:p1", &got)
	if err != nil {
		t.Fatalf("Get after expiry failed: %v", err)
	}
	if found {
		t.Error("expected entry to expire")
	}
}

func TestRedisStoreDelete(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	_ = store.Set(ctx, "a", 1, 0)
	_ = store.Set(ctx, "b", 2, 0)
	if err := store.Delete(ctx, "a", "b"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	var n int
	if found, _ := store.Get(ctx, "a", &n); found {
		t.Error("expected a to be deleted")
	}
	if err := store.Delete(ctx); err != nil {
		t.Errorf("Delete with no keys failed: %v", err)
	}
}

func TestRedisStoreCorruptValue(t *testing.T) {
	store, s := setupTestRedis(t)
	if err := s.Set("swotplan:bad", "{not json"); err != nil {
		t.Fatal(err)
	}
	var got swot.PlanProgress
	if _, err := store.Get(context.Background(), "bad", &got); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	if err := store.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	var got string
	if found, _ := store.Get(ctx, "k", &got); !found || got != "v" {
		t.Fatalf("Get = %v, %q", found, got)
	}

	now = now.Add(time.Minute)
	if found, _ := store.Get(ctx, "k", &got); found {
		t.Error("expected entry to expire at its deadline")
	}
}

func TestFetchCachesUntilInvalidated(t *testing.T) {
	loader := NewLoader(NewMemoryStore(), time.Minute)
	ctx := context.Background()
	calls := 0
	load := func(context.Context) (swot.PlanProgress, error) {
		calls++
		return swot.PlanProgress{PlanID: "p1", TotalGroups: calls}, nil
	}

	first, err := Fetch(ctx, loader, "progress:p1", load)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	second, _ := Fetch(ctx, loader, "progress:p1", load)
	if calls != 1 || second.TotalGroups != first.TotalGroups {
		t.Fatalf("expected cached value, calls=%d second=%+v", calls, second)
	}

	loader.Invalidate(ctx, "progress:p1")
	third, _ := Fetch(ctx, loader, "progress:p1", load)
	if calls != 2 || third.TotalGroups != 2 {
		t.Fatalf("expected reload after invalidate, calls=%d third=%+v", calls, third)
	}
}

func TestFetchDoesNotCacheErrors(t *testing.T) {
	loader := NewLoader(NewMemoryStore(), time.Minute)
	boom := errors.New("boom")
	_, err := Fetch(context.Background(), loader, "k", func(context.Context) (int, error) { return 0, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("Fetch error = %v, want boom", err)
	}
	got, err := Fetch(context.Background(), loader, "k", func(context.Context) (int, error) { return 7, nil })
	if err != nil || got != 7 {
		t.Fatalf("Fetch = %d, %v", got, err)
	}
}

func TestFetchSurvivesFirstCallerCancellation(t *testing.T) {
	loader := NewLoader(NewMemoryStore(), time.Minute)
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	load := func(ctx context.Context) (int, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		return 7, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := Fetch(ctx, loader, "progress:p1", load)
		firstErr <- err
	}()

	<-started
	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller error = %v, want context.Canceled", err)
	}

	type result struct {
		value int
		err   error
	}
	second := make(chan result, 1)
	go func() {
		v, err := Fetch(context.Background(), loader, "progress:p1", load)
		second <- result{v, err}
	}()
	close(release)

	got := <-second
	if got.err != nil || got.value != 7 {
		t.Fatalf("live caller Fetch = %d, %v; want 7, nil", got.value, got.err)
	}
}

func TestFetchDropsLoadOverlappingInvalidate(t *testing.T) {
	loader := NewLoader(NewMemoryStore(), time.Minute)
	ctx := context.Background()

	var mu sync.Mutex
	state := 1
	started := make(chan struct{})
	release := make(chan struct{})
	first := true
	load := func(context.Context) (int, error) {
		mu.Lock()
		value := state
		blocking := first
		first = false
		mu.Unlock()
		if blocking {
			close(started)
			<-release
		}
		return value, nil
	}

	done := make(chan int, 1)
	go func() {
		v, _ := Fetch(ctx, loader, "progress:p1", load)
		done <- v
	}()

	<-started
	mu.Lock()
	state = 2
	mu.Unlock()
	loader.Invalidate(ctx, "progress:p1")
	close(release)

	if v := <-done; v != 1 {
		t.Fatalf("in-flight Fetch = %d, want the value it read (1)", v)
	}
	got, err := Fetch(ctx, loader, "progress:p1", load)
	if err != nil || got != 2 {
		t.Fatalf("Fetch after invalidate = %d, %v; want 2", got, err)
	}
}
