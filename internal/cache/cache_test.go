package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"stima/internal/core"
)

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a")
	}
	c.Set("c", 3) // evicts b, the least recently used

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("a = %v, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Errorf("size = %d, want 2", c.Size())
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Second)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	c.Set("j", "w")
	now = now.Add(2 * time.Second)

	if _, ok := c.Get("k"); ok {
		t.Error("expired entry returned")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired = %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Errorf("size = %d, want 0", c.Size())
	}
}

func TestLRUCachePurgeAndDelete(t *testing.T) {
	c := NewLRUCache[int](5, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("deleted key returned")
	}
	c.Purge()
	if c.Size() != 0 {
		t.Errorf("size after purge = %d", c.Size())
	}
}

func TestManagerStopIsIdempotent(t *testing.T) {
	m := NewManager()
	c := NewLRUCache[int](1, time.Nanosecond)
	m.Register(c)
	c.Set("a", 1)
	time.Sleep(time.Millisecond)
	if n := m.CleanAll(); n != 1 {
		t.Errorf("CleanAll = %d, want 1", n)
	}
	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}

type countingSource struct {
	calls int
	items []core.Observation
	err   error
}

func (s *countingSource) ListAll(context.Context) ([]core.Observation, error) {
	s.calls++
	return s.items, s.err
}

func (s *countingSource) SummarizeByCategory(context.Context) (core.Summary, error) {
	s.calls++
	return core.Summarize(s.items), s.err
}

func (s *countingSource) SeriesForChart(context.Context) ([]core.SeriesPoint, error) {
	s.calls++
	return core.Series(s.items), s.err
}

func TestReportsCachesUntilInvalidated(t *testing.T) {
	src := &countingSource{items: []core.Observation{
		{ID: 1, Date: core.NewDate(2024, 1, 1), Value: 2, Category: core.Sales},
	}}
	r := NewReports(src, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := r.SummarizeByCategory(ctx); err != nil {
			t.Fatalf("summary: %v", err)
		}
	}
	if src.calls != 1 {
		t.Fatalf("expected one source call, got %d", src.calls)
	}

	r.Invalidate()
	s, _ := r.SummarizeByCategory(ctx)
	if src.calls != 2 || s[0].Sum != 2 {
		t.Fatalf("expected reload after invalidate, calls=%d summary=%+v", src.calls, s)
	}

	// Returned slices are copies.
	list, _ := r.ListAll(ctx)
	list[0].Value = 100
	again, _ := r.ListAll(ctx)
	if again[0].Value != 2 {
		t.Fatalf("cache mutated through returned slice")
	}
}

func TestReportsDoesNotCacheErrors(t *testing.T) {
	src := &countingSource{err: errors.New("boom")}
	r := NewReports(src, time.Minute)

	if _, err := r.SeriesForChart(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if _, err := r.SeriesForChart(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if src.calls != 2 {
		t.Fatalf("errors must not be cached, calls=%d", src.calls)
	}
}

// blockingSource snapshots its rows, then waits for release before
// returning them, so a read can straddle an append.
type blockingSource struct {
	countingSource
	mu      sync.Mutex
	started chan struct{}
	release chan struct{}
}

func (s *blockingSource) ListAll(context.Context) ([]core.Observation, error) {
	s.mu.Lock()
	snapshot := append([]core.Observation{}, s.items...)
	s.mu.Unlock()
	if s.started != nil {
		close(s.started)
		s.started = nil
		<-s.release
	}
	return snapshot, nil
}

func (s *blockingSource) add(o core.Observation) {
	s.mu.Lock()
	s.items = append(s.items, o)
	s.mu.Unlock()
}

func TestReportsDropsLoadOverlappingInvalidate(t *testing.T) {
	src := &blockingSource{started: make(chan struct{}), release: make(chan struct{})}
	started := src.started
	r := NewReports(src, time.Minute)
	ctx := context.Background()

	done := make(chan []core.Observation)
	go func() {
		items, _ := r.ListAll(ctx)
		done <- items
	}()
	<-started

	src.add(core.Observation{ID: 1, Date: core.NewDate(2024, 1, 1), Value: 3, Category: core.Sales})
	r.Invalidate()
	close(src.release)

	if stale := <-done; len(stale) != 0 {
		t.Fatalf("in-flight read should see the pre-append rows, got %d", len(stale))
	}
	items, err := r.ListAll(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("after append and invalidate got %d rows, want 1", len(items))
	}
}
