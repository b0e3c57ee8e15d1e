package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLRUCache_Eviction(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be cached")
	}
	c.Set("c", 3) // evicts b, the least recently used

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %v, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}
}

func TestLRUCache_Expiry(t *testing.T) {
	now := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("2024-07", "view")
	c.Set("2024-06", "view")
	now = now.Add(30 * time.Second)
	c.Set("2024-05", "view")

	now = now.Add(45 * time.Second)
	if _, ok := c.Get("2024-07"); ok {
		t.Error("expired entry returned")
	}
	if removed := c.CleanExpired(); removed != 1 {
		t.Errorf("CleanExpired() = %d, want 1", removed)
	}
	if _, ok := c.Get("2024-05"); !ok {
		t.Error("fresh entry missing")
	}
}

func TestLRUCache_DeleteAndPurge(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("deleted entry returned")
	}
	c.Purge()
	if c.Size() != 0 {
		t.Errorf("Size() after Purge = %d", c.Size())
	}
	c.Set("c", 3)
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Error("cache unusable after Purge")
	}
}

func TestManager_CleanNow(t *testing.T) {
	a := NewLRUCache[int](10, time.Minute)
	b := NewLRUCache[int](10, time.Minute)
	past := func() time.Time { return time.Now().Add(-time.Hour) }
	a.now, b.now = past, past
	a.Set("x", 1)
	b.Set("y", 2)
	b.Set("z", 3)
	a.now, b.now = time.Now, time.Now

	m := NewManager(nil)
	m.Register(a)
	m.Register(b)
	if n := m.CleanNow(); n != 3 {
		t.Errorf("CleanNow() = %d, want 3", n)
	}

	m.StartCleanup(time.Millisecond)
	m.Stop()
}

func TestLoader_CachesAndInvalidates(t *testing.T) {
	l := NewLoader[int](10, time.Minute)
	var calls int
	load := func(context.Context) (int, error) {
		calls++
		return calls, nil
	}

	ctx := context.Background()
	v1, _ := l.Load(ctx, "k", load)
	v2, _ := l.Load(ctx, "k", load)
	if v1 != 1 || v2 != 1 || calls != 1 {
		t.Fatalf("got %d, %d after %d calls", v1, v2, calls)
	}

	l.Invalidate()
	v3, _ := l.Load(ctx, "k", load)
	if v3 != 2 {
		t.Errorf("Load() after Invalidate = %d, want 2", v3)
	}
}

func TestLoader_ErrorsAreNotCached(t *testing.T) {
	l := NewLoader[int](10, time.Minute)
	boom := errors.New("boom")
	if _, err := l.Load(context.Background(), "k", func(context.Context) (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("Load() error = %v", err)
	}
	v, err := l.Load(context.Background(), "k", func(context.Context) (int, error) { return 7, nil })
	if err != nil || v != 7 {
		t.Errorf("Load() = %d, %v", v, err)
	}
}

func TestLoader_InvalidateDuringLoadDiscardsResult(t *testing.T) {
	l := NewLoader[int](10, time.Minute)
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan int)
	go func() {
		v, _ := l.Load(context.Background(), "k", func(context.Context) (int, error) {
			close(started)
			<-release
			return 1, nil
		})
		done <- v
	}()

	<-started
	l.Invalidate()
	close(release)
	if v := <-done; v != 1 {
		t.Errorf("in-flight caller got %d, want 1", v)
	}
	if l.Cache().Size() != 0 {
		t.Error("stale value stored after Invalidate")
	}
}

func TestLoader_CollapsesConcurrentMisses(t *testing.T) {
	l := NewLoader[int](10, time.Minute)
	var calls atomic.Int32
	gate := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = l.Load(context.Background(), "k", func(context.Context) (int, error) {
				calls.Add(1)
				<-gate
				return 1, nil
			})
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	if n := calls.Load(); n < 1 || n > 8 {
		t.Errorf("calls = %d", n)
	}
	if v, ok := l.Cache().Get("k"); !ok || v != 1 {
		t.Errorf("cached = %v, %v", v, ok)
	}
}
