package estimator

import (
	"compress/gzip"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"stima/internal/core"
)

// Model is a fitted forest together with the feature order it was fit on.
type Model struct {
	FeatureNames []string
	Target       string
	Forest       Forest
	TrainRows    int
	TestRows     int
	TrainedAt    time.Time
}

// TrainOptions adds the hold-out fraction to the forest options.
type TrainOptions struct {
	Options
	TestFraction float64
}

// DefaultTrainOptions holds out 20% of the rows with the forest seed.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{Options: DefaultOptions(), TestFraction: 0.2}
}

// Train splits ds and fits a forest on the training part. The held-out rows
// are not scored.
func Train(ctx context.Context, ds *Dataset, opts TrainOptions) (*Model, error) {
	train, test, err := Split(ds, opts.TestFraction, opts.Seed)
	if err != nil {
		return nil, fmt.Errorf("split dataset: %w", err)
	}
	slog.InfoContext(ctx, "Dataset split", "train_rows", train.Len(), "test_rows", test.Len(), "seed", opts.Seed)

	forest, err := Fit(ctx, train, opts.Options)
	if err != nil {
		return nil, err
	}
	return &Model{
		FeatureNames: append([]string(nil), ds.FeatureNames...),
		Target:       TargetName,
		Forest:       *forest,
		TrainRows:    train.Len(),
		TestRows:     test.Len(),
		TrainedAt:    time.Now().UTC(),
	}, nil
}

// Save writes the model to path, replacing any previous artifact. The write
// goes to a temporary file first so a crash never leaves a torn artifact.
func Save(path string, m *Model) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create model directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".model-*")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	defer os.Remove(tmp.Name())

	zw := gzip.NewWriter(tmp)
	if err := gob.NewEncoder(zw).Encode(m); err != nil {
		tmp.Close()
		return fmt.Errorf("encode model: %w", err)
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace artifact: %w", err)
	}
	return nil
}

// LoadModel reads an artifact written by Save. Any failure is a model load
// error.
func LoadModel(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, core.NewError(core.KindModelLoad, "open artifact", path, err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, core.NewError(core.KindModelLoad, "read artifact", path, err)
	}
	defer zr.Close()

	var m Model
	if err := gob.NewDecoder(zr).Decode(&m); err != nil {
		return nil, core.NewError(core.KindModelLoad, "decode artifact", path, err)
	}
	if err := m.check(); err != nil {
		return nil, core.NewError(core.KindModelLoad, "check artifact", path, err)
	}
	return &m, nil
}

func (m *Model) check() error {
	if len(m.FeatureNames) == 0 {
		return errors.New("artifact has no feature names")
	}
	if len(m.Forest.Trees) == 0 {
		return errors.New("artifact has no trees")
	}
	for ti, t := range m.Forest.Trees {
		if len(t.Nodes) == 0 {
			return fmt.Errorf("tree %d is empty", ti)
		}
		for ni, n := range t.Nodes {
			if n.Feature < 0 {
				continue
			}
			if n.Feature >= len(m.FeatureNames) {
				return fmt.Errorf("tree %d node %d: feature %d out of range", ti, ni, n.Feature)
			}
			if int(n.Left) <= ni || int(n.Right) <= ni || int(n.Left) >= len(t.Nodes) || int(n.Right) >= len(t.Nodes) {
				return fmt.Errorf("tree %d node %d: child index out of range", ti, ni)
			}
		}
	}
	return nil
}
