package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"stima/internal/cli"
	"stima/internal/config"
	"stima/internal/estimator"
)

var (
	flagDataset  string
	flagModel    string
	flagTrees    int
	flagSeed     uint64
	flagTestSize float64
	flagMaxDepth int
	flagMinLeaf  int
	flagWorkers  int
	flagLogLevel string
)

func newRootCmd(defaults *config.Config) *cobra.Command {
	opts := estimator.DefaultTrainOptions()

	cmd := &cobra.Command{
		Use:   "stima-train",
		Short: "Train the house price model",
		Long: "Fit the random forest on the California housing CSV and write the " +
			"model artifact read by the stima server.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runTrain,
	}

	f := cmd.Flags()
	f.StringVar(&flagDataset, "dataset", defaults.DatasetPath, "California housing CSV (eight features plus MedHouseVal)")
	f.StringVar(&flagModel, "model", defaults.ModelPath, "Output path of the model artifact")
	f.IntVar(&flagTrees, "trees", opts.Trees, "Number of trees")
	f.Uint64Var(&flagSeed, "seed", opts.Seed, "Seed for the split and the bootstrap samples")
	f.Float64Var(&flagTestSize, "test-size", opts.TestFraction, "Fraction of rows held out")
	f.IntVar(&flagMaxDepth, "max-depth", opts.MaxDepth, "Maximum tree depth, 0 for unlimited")
	f.IntVar(&flagMinLeaf, "min-leaf", opts.MinSamplesLeaf, "Minimum samples per leaf")
	f.IntVar(&flagWorkers, "workers", opts.Workers, "Trees fit in parallel, 0 for one per CPU")
	f.StringVar(&flagLogLevel, "log-level", defaults.LogLevel, "debug, info, warn or error")
	return cmd
}

func runTrain(cmd *cobra.Command, _ []string) error {
	logger := cli.SetupLogger(flagLogLevel)
	ctx := cmd.Context()

	start := time.Now()
	ds, err := estimator.LoadDataset(flagDataset)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	logger.InfoContext(ctx, "Dataset loaded", "path", flagDataset, "rows", ds.Len())

	opts := estimator.TrainOptions{
		Options: estimator.Options{
			Trees:          flagTrees,
			Seed:           flagSeed,
			MaxDepth:       flagMaxDepth,
			MinSamplesLeaf: flagMinLeaf,
			Workers:        flagWorkers,
		},
		TestFraction: flagTestSize,
	}
	model, err := estimator.Train(ctx, ds, opts)
	if err != nil {
		return fmt.Errorf("train model: %w", err)
	}

	if err := estimator.Save(flagModel, model); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	logger.InfoContext(ctx, "Model saved",
		"path", flagModel,
		"trees", len(model.Forest.Trees),
		"train_rows", model.TrainRows,
		"duration", time.Since(start).Round(time.Millisecond).String())
	return nil
}

func main() {
	cli.LoadEnvFile()

	defaults, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	if err := newRootCmd(defaults).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
