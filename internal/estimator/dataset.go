package estimator

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"
)

// Dataset is a dense feature matrix with its target column.
type Dataset struct {
	FeatureNames []string
	X            [][]float64
	Y            []float64
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.Y)
}

// LoadDataset reads the housing CSV at path.
func LoadDataset(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return ReadDataset(f)
}

// ReadDataset parses a CSV with a header row. The eight feature columns and
// the target column are located by name; other columns are ignored.
func ReadDataset(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read dataset header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}

	names := FeatureNames()
	featureCols := make([]int, len(names))
	for i, name := range names {
		idx, ok := cols[name]
		if !ok {
			return nil, fmt.Errorf("dataset missing column %q", name)
		}
		featureCols[i] = idx
	}
	targetCol, ok := cols[TargetName]
	if !ok {
		return nil, fmt.Errorf("dataset missing column %q", TargetName)
	}

	ds := &Dataset{FeatureNames: names}
	line := 1
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read dataset line %d: %w", line, err)
		}
		row := make([]float64, len(featureCols))
		for i, c := range featureCols {
			v, err := parseCell(rec, c)
			if err != nil {
				return nil, fmt.Errorf("dataset line %d column %s: %w", line, names[i], err)
			}
			row[i] = v
		}
		y, err := parseCell(rec, targetCol)
		if err != nil {
			return nil, fmt.Errorf("dataset line %d column %s: %w", line, TargetName, err)
		}
		ds.X = append(ds.X, row)
		ds.Y = append(ds.Y, y)
	}
	if ds.Len() == 0 {
		return nil, errors.New("dataset has no rows")
	}
	return ds, nil
}

func parseCell(rec []string, idx int) (float64, error) {
	if idx >= len(rec) {
		return 0, errors.New("missing value")
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(rec[idx]), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", rec[idx])
	}
	return v, nil
}

// Split shuffles the rows with a seeded source and holds out testFraction of
// them (rounded up) as the test set.
func Split(d *Dataset, testFraction float64, seed uint64) (train, test *Dataset, err error) {
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, fmt.Errorf("test fraction %v must be in (0, 1)", testFraction)
	}
	n := d.Len()
	nTest := int(math.Ceil(testFraction * float64(n)))
	if nTest >= n {
		return nil, nil, fmt.Errorf("dataset of %d rows too small for test fraction %v", n, testFraction)
	}

	perm := rand.New(rand.NewPCG(seed, seed)).Perm(n)
	test = subset(d, perm[:nTest])
	train = subset(d, perm[nTest:])
	return train, test, nil
}

func subset(d *Dataset, idx []int) *Dataset {
	out := &Dataset{
		FeatureNames: d.FeatureNames,
		X:            make([][]float64, len(idx)),
		Y:            make([]float64, len(idx)),
	}
	for i, j := range idx {
		out.X[i] = d.X[j]
		out.Y[i] = d.Y[j]
	}
	return out
}
