package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestCacheHitWithinTTL(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}
	c := New[int](time.Minute).WithClock(clock.Now)

	calls := 0
	load := func() (int, error) {
		calls++
		return calls * 10, nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.Get("k", load)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v != 10 {
			t.Fatalf("expected cached value 10, got %d", v)
		}
		clock.Advance(19 * time.Second)
	}
	if calls != 1 {
		t.Fatalf("expected a single load within TTL, got %d", calls)
	}
}

func TestCacheReloadsExactlyOnceAfterExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}
	c := New[string](5 * time.Minute).WithClock(clock.Now)

	calls := 0
	get := Wrap(c, "realtime", func(ctx context.Context) (string, error) {
		calls++
		return "v", nil
	})
	ctx := context.Background()

	if _, err := get(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clock.Advance(5*time.Minute - time.Nanosecond)
	_, _ = get(ctx)
	if calls != 1 {
		t.Fatalf("entry should still be valid just before TTL, got %d loads", calls)
	}

	// Valid only while now - computedAt < ttl, so reaching the TTL expires it.
	clock.Advance(time.Nanosecond)
	_, _ = get(ctx)
	_, _ = get(ctx)
	if calls != 2 {
		t.Fatalf("expected exactly one reload after expiry, got %d loads", calls)
	}
}

func TestCacheKeysAreIndependent(t *testing.T) {
	c := New[string](time.Hour)

	a, _ := c.Get("a", func() (string, error) { return "A", nil })
	b, _ := c.Get("b", func() (string, error) { return "B", nil })
	if a != "A" || b != "B" {
		t.Fatalf("unexpected values %q %q", a, b)
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Len())
	}
}

func TestCacheDoesNotStoreErrors(t *testing.T) {
	c := New[int](time.Hour)
	boom := errors.New("boom")

	if _, err := c.Get("k", func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected load error, got %v", err)
	}
	v, err := c.Get("k", func() (int, error) { return 7, nil })
	if err != nil || v != 7 {
		t.Fatalf("expected a fresh load after an error, got %d, %v", v, err)
	}
}

func TestCacheConcurrentMissesShareLoad(t *testing.T) {
	c := New[int](time.Hour)

	var calls int32
	release := make(chan struct{})
	load := func() (int, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = c.Get("k", load)
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, v := range results {
		if v != 42 {
			t.Fatalf("result %d: expected 42, got %d", i, v)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected concurrent misses to share one load, got %d", n)
	}
}
