package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stima/internal/config"
	"stima/internal/estimator"
)

func writeDataset(t *testing.T, rows int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("MedInc,HouseAge,AveRooms,AveBedrms,Population,AveOccup,Latitude,Longitude,MedHouseVal\n")
	for i := 0; i < rows; i++ {
		inc := 1 + float64(i%10)
		fmt.Fprintf(&b, "%g,%d,5,1,%d,3,%g,-120,%g\n", inc, 10+i%30, 100+i, 34+float64(i%5), 0.4*inc)
	}
	path := filepath.Join(t.TempDir(), "housing.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	return path
}

func TestTrainWritesLoadableModel(t *testing.T) {
	dataset := writeDataset(t, 60)
	model := filepath.Join(t.TempDir(), "out", "model.gob.gz")

	cmd := newRootCmd(config.Defaults())
	cmd.SetArgs([]string{"--dataset", dataset, "--model", model, "--trees", "4", "--log-level", "error"})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("train command: %v", err)
	}

	p, err := estimator.Load(model)
	if err != nil {
		t.Fatalf("load trained model: %v", err)
	}
	if n := len(p.Model().Forest.Trees); n != 4 {
		t.Fatalf("trees=%d, want 4", n)
	}
	if m := p.Model(); m.TrainRows+m.TestRows != 60 || m.TestRows == 0 {
		t.Fatalf("split %d/%d does not cover 60 rows", m.TrainRows, m.TestRows)
	}
}

func TestTrainFailures(t *testing.T) {
	dataset := writeDataset(t, 20)
	tests := []struct {
		name string
		args []string
	}{
		{"missing dataset", []string{"--dataset", filepath.Join(t.TempDir(), "none.csv")}},
		{"bad test size", []string{"--dataset", dataset, "--test-size", "1.5"}},
		{"no trees", []string{"--dataset", dataset, "--trees", "0"}},
		{"extra args", []string{"--dataset", dataset, "unexpected"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRootCmd(config.Defaults())
			args := append(tt.args, "--model", filepath.Join(t.TempDir(), "m.gob.gz"), "--log-level", "error")
			cmd.SetArgs(args)
			if err := cmd.ExecuteContext(context.Background()); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
