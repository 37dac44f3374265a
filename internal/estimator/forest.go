package estimator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

// Options configures forest fitting. The zero values of MaxDepth (no limit)
// and Workers (one per CPU) are meaningful.
type Options struct {
	Trees          int
	Seed           uint64
	MaxDepth       int
	MinSamplesLeaf int
	Workers        int
}

// DefaultOptions mirrors a 100-tree bootstrap forest seeded with 42.
func DefaultOptions() Options {
	return Options{
		Trees:          100,
		Seed:           42,
		MinSamplesLeaf: 1,
	}
}

func (o Options) validate() error {
	if o.Trees < 1 {
		return fmt.Errorf("invalid tree count %d: must be at least 1", o.Trees)
	}
	if o.MaxDepth < 0 {
		return fmt.Errorf("invalid max depth %d: must be >= 0", o.MaxDepth)
	}
	if o.MinSamplesLeaf < 1 {
		return fmt.Errorf("invalid min samples per leaf %d: must be at least 1", o.MinSamplesLeaf)
	}
	return nil
}

// Forest averages the predictions of bootstrap-trained regression trees.
type Forest struct {
	Trees []Tree
}

// Predict returns the mean tree prediction for x.
func (f *Forest) Predict(x []float64) float64 {
	var sum float64
	for i := range f.Trees {
		sum += f.Trees[i].Predict(x)
	}
	return sum / float64(len(f.Trees))
}

// Fit trains a forest on ds. Each tree draws its bootstrap sample and
// feature order from its own PCG stream keyed by (seed, tree index), so the
// result is identical whatever the worker count.
func Fit(ctx context.Context, ds *Dataset, opts Options) (*Forest, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if ds.Len() == 0 {
		return nil, errors.New("fit forest: empty dataset")
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	start := time.Now()
	trees := make([]Tree, opts.Trees)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	n := ds.Len()
	for t := range trees {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(opts.Seed, uint64(t)+1))
			samples := make([]int, n)
			for i := range samples {
				samples[i] = rng.IntN(n)
			}
			trees[t] = fitTree(ds.X, ds.Y, samples, opts.MaxDepth, opts.MinSamplesLeaf, rng)
			slog.DebugContext(gctx, "Tree fitted", "tree", t, "nodes", len(trees[t].Nodes))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fit forest: %w", err)
	}

	slog.InfoContext(ctx, "Forest fitted",
		"trees", opts.Trees,
		"rows", n,
		"workers", workers,
		"duration_ms", time.Since(start).Milliseconds())
	return &Forest{Trees: trees}, nil
}
