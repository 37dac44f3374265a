package estimator

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"stima/internal/core"
)

// Predictor serves single-row estimates from a loaded model. It is
// immutable and safe for concurrent use.
type Predictor struct {
	model *Model
	names []string
}

// NewPredictor wraps an in-memory model.
func NewPredictor(m *Model) *Predictor {
	return &Predictor{
		model: m,
		names: append([]string(nil), m.FeatureNames...),
	}
}

// Load reads the artifact at path and returns a ready predictor. A missing
// or corrupt artifact yields a model load error.
func Load(path string) (*Predictor, error) {
	m, err := LoadModel(path)
	if err != nil {
		return nil, err
	}
	return NewPredictor(m), nil
}

// FeatureNames returns the stored feature order.
func (p *Predictor) FeatureNames() []string {
	return append([]string(nil), p.names...)
}

// Model exposes the underlying model metadata.
func (p *Predictor) Model() *Model {
	return p.model
}

// Predict maps the named row onto the stored feature order and returns the
// forest estimate. Missing or unexpected feature names fail loudly.
func (p *Predictor) Predict(row map[string]float64) (float64, error) {
	vec := make([]float64, len(p.names))
	var missing []string
	for i, name := range p.names {
		v, ok := row[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		vec[i] = v
	}
	if len(missing) > 0 {
		return 0, core.NewError(core.KindPrediction, "predict", formatRow(row),
			fmt.Errorf("missing features: %s", strings.Join(missing, ", ")))
	}
	if len(row) != len(p.names) {
		return 0, core.NewError(core.KindPrediction, "predict", formatRow(row),
			fmt.Errorf("unexpected features: %s", strings.Join(p.unknown(row), ", ")))
	}
	for i, v := range vec {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, core.NewError(core.KindPrediction, "predict", formatRow(row),
				fmt.Errorf("feature %s is not finite", p.names[i]))
		}
	}
	return p.model.Forest.Predict(vec), nil
}

// PredictFeatures is Predict for the typed row.
func (p *Predictor) PredictFeatures(h HouseFeatures) (float64, error) {
	return p.Predict(h.Named())
}

func (p *Predictor) unknown(row map[string]float64) []string {
	known := make(map[string]struct{}, len(p.names))
	for _, n := range p.names {
		known[n] = struct{}{}
	}
	var out []string
	for k := range row {
		if _, ok := known[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Unavailable stands in for a predictor whose artifact failed to load.
// Every prediction returns the original load error.
type Unavailable struct {
	Err error
}

func (u Unavailable) FeatureNames() []string {
	return FeatureNames()
}

func (u Unavailable) Predict(map[string]float64) (float64, error) {
	return 0, u.Err
}
