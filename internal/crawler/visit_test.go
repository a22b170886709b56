package crawler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMemoryVisitCacheNoDuplicates(t *testing.T) {
	c := NewMemoryVisitCache()
	ctx := context.Background()

	if ok, _ := c.ShouldVisit(ctx, "https://example.com/1"); !ok {
		t.Error("first ShouldVisit should return true")
	}
	for _, id := range []string{"https://example.com/1", "  HTTPS://EXAMPLE.COM/1 "} {
		if ok, _ := c.ShouldVisit(ctx, id); ok {
			t.Errorf("ShouldVisit(%q) after first visit should return false", id)
		}
	}
	if c.Len() != 1 {
		t.Errorf("Len: got %d, want 1", c.Len())
	}
}

func TestMemoryVisitCacheForget(t *testing.T) {
	c := NewMemoryVisitCache()
	ctx := context.Background()

	c.ShouldVisit(ctx, "/a")
	if err := c.Forget(ctx, " /A"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := c.ShouldVisit(ctx, "/a"); !ok {
		t.Error("ShouldVisit after Forget should return true")
	}
}

func testConcurrentVisits(t *testing.T, c VisitCache) {
	t.Helper()
	const n = 100
	var (
		wg   sync.WaitGroup
		wins int64
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := "https://example.com/same"
			if i%2 == 0 {
				id = " HTTPS://example.com/SAME"
			}
			ok, err := c.ShouldVisit(context.Background(), id)
			if err != nil {
				t.Errorf("ShouldVisit: %v", err)
				return
			}
			if ok {
				atomic.AddInt64(&wins, 1)
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("expected exactly 1 true, got %d", wins)
	}
}

func TestMemoryVisitCacheConcurrency(t *testing.T) {
	testConcurrentVisits(t, NewMemoryVisitCache())
}

func TestRedisVisitCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	c := NewRedisVisitCache(client, "visits", "run-1", 0)
	testConcurrentVisits(t, c)

	ctx := context.Background()
	if err := c.Forget(ctx, "https://example.com/same"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := c.ShouldVisit(ctx, "https://example.com/same"); !ok {
		t.Error("ShouldVisit after Forget should return true")
	}

	if err := c.Reset(ctx); err != nil {
		t.Fatal(err)
	}
	if mr.Exists("visits:run-1") {
		t.Error("Reset should delete the set")
	}
}

func TestRedisVisitCacheError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	c := NewRedisVisitCache(client, "visits", "run-1", 0)
	if _, err := c.ShouldVisit(context.Background(), "/x"); err == nil {
		t.Error("expected an error with redis down")
	}
}

func TestRedisVisitCacheScopedToRun(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	ctx := context.Background()
	page := "https://shop.example/product/1"

	first := NewRedisVisitCache(client, "catalog:visited", "run-1", time.Hour)
	if ok, err := first.ShouldVisit(ctx, page); err != nil || !ok {
		t.Fatalf("first run ShouldVisit = %v, %v", ok, err)
	}

	second := NewRedisVisitCache(client, "catalog:visited", "run-2", time.Hour)
	if ok, err := second.ShouldVisit(ctx, page); err != nil || !ok {
		t.Errorf("second run ShouldVisit = %v, %v; want true", ok, err)
	}

	joined := NewRedisVisitCache(client, "catalog:visited", "run-1", time.Hour)
	if ok, _ := joined.ShouldVisit(ctx, page); ok {
		t.Error("a process joining run-1 should see its visits")
	}

	if ttl := mr.TTL("catalog:visited:run-1"); ttl <= 0 || ttl > time.Hour {
		t.Errorf("TTL = %v; want (0, 1h]", ttl)
	}
}
