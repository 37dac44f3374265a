package cache

import (
	"context"
	"sync"
	"time"

	"stima/internal/core"
)

// ReportSource is the read side that Reports caches.
type ReportSource interface {
	ListAll(ctx context.Context) ([]core.Observation, error)
	SummarizeByCategory(ctx context.Context) (core.Summary, error)
	SeriesForChart(ctx context.Context) ([]core.SeriesPoint, error)
}

// Reports memoizes report reads for a short TTL. Invalidate must be called
// after every successful append.
type Reports struct {
	src ReportSource

	// gen changes on every Invalidate. A load started under an older
	// generation is returned but never cached.
	mu  sync.Mutex
	gen uint64

	list    *LRUCache[[]core.Observation]
	summary *LRUCache[core.Summary]
	series  *LRUCache[[]core.SeriesPoint]
}

const reportKey = "all"

func NewReports(src ReportSource, ttl time.Duration) *Reports {
	return &Reports{
		src:     src,
		list:    NewLRUCache[[]core.Observation](1, ttl),
		summary: NewLRUCache[core.Summary](1, ttl),
		series:  NewLRUCache[[]core.SeriesPoint](1, ttl),
	}
}

// Register adds the underlying caches to m for periodic cleanup.
func (r *Reports) Register(m *Manager) {
	m.Register(r.list)
	m.Register(r.summary)
	m.Register(r.series)
}

func (r *Reports) ListAll(ctx context.Context) ([]core.Observation, error) {
	return cached(ctx, r, r.list, r.src.ListAll, func(v []core.Observation) []core.Observation {
		return append([]core.Observation{}, v...)
	})
}

func (r *Reports) SummarizeByCategory(ctx context.Context) (core.Summary, error) {
	return cached(ctx, r, r.summary, r.src.SummarizeByCategory, func(v core.Summary) core.Summary {
		return append(core.Summary{}, v...)
	})
}

func (r *Reports) SeriesForChart(ctx context.Context) ([]core.SeriesPoint, error) {
	return cached(ctx, r, r.series, r.src.SeriesForChart, func(v []core.SeriesPoint) []core.SeriesPoint {
		return append([]core.SeriesPoint{}, v...)
	})
}

// Invalidate drops every cached report.
func (r *Reports) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	r.list.Purge()
	r.summary.Purge()
	r.series.Purge()
}

// cached returns a copy so callers cannot mutate the cached slice.
func cached[T any](ctx context.Context, r *Reports, c *LRUCache[T], load func(context.Context) (T, error), clone func(T) T) (T, error) {
	if v, ok := c.Get(reportKey); ok {
		return clone(v), nil
	}
	r.mu.Lock()
	started := r.gen
	r.mu.Unlock()

	v, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	r.mu.Lock()
	if r.gen == started {
		c.Set(reportKey, v)
	}
	r.mu.Unlock()
	return clone(v), nil
}
