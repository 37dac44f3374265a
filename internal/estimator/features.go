// Package estimator trains, persists and serves the house price regression
// forest.
//
// The feature order a forest was fit on is stored in its artifact. Callers
// always pass named values; Predictor maps them onto that stored order and
// refuses rows that do not match it exactly.
package estimator

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"stima/internal/core"
)

// TargetName is the dataset column the forest predicts (median house value,
// in units of 100,000 USD).
const TargetName = "MedHouseVal"

// FeatureSpec describes one input for the prediction form. Ranges are UI
// hints only; Predict does not enforce them.
type FeatureSpec struct {
	Name    string
	Label   string
	Default float64
	Min     float64
	Max     float64
	Step    float64
}

// Specs lists the features in dataset column order.
var Specs = []FeatureSpec{
	{Name: "MedInc", Label: "Median income (10k USD)", Default: 3.87, Min: 0.5, Max: 15, Step: 0.01},
	{Name: "HouseAge", Label: "House age (years)", Default: 28, Min: 1, Max: 52, Step: 1},
	{Name: "AveRooms", Label: "Average rooms", Default: 5.4, Min: 1, Max: 20, Step: 0.1},
	{Name: "AveBedrms", Label: "Average bedrooms", Default: 1.1, Min: 0.5, Max: 5, Step: 0.1},
	{Name: "Population", Label: "Population", Default: 1425, Min: 3, Max: 35682, Step: 1},
	{Name: "AveOccup", Label: "Average occupancy", Default: 3.0, Min: 0.5, Max: 20, Step: 0.1},
	{Name: "Latitude", Label: "Latitude", Default: 35.6, Min: 30, Max: 50, Step: 0.01},
	{Name: "Longitude", Label: "Longitude", Default: -119.6, Min: -125, Max: -110, Step: 0.01},
}

// FeatureNames returns the dataset feature columns in order.
func FeatureNames() []string {
	names := make([]string, len(Specs))
	for i, s := range Specs {
		names[i] = s.Name
	}
	return names
}

// HouseFeatures is the typed form of one prediction row.
type HouseFeatures struct {
	MedInc     float64 `json:"MedInc"`
	HouseAge   float64 `json:"HouseAge"`
	AveRooms   float64 `json:"AveRooms"`
	AveBedrms  float64 `json:"AveBedrms"`
	Population float64 `json:"Population"`
	AveOccup   float64 `json:"AveOccup"`
	Latitude   float64 `json:"Latitude"`
	Longitude  float64 `json:"Longitude"`
}

// Named maps the struct fields to their feature names.
func (h HouseFeatures) Named() map[string]float64 {
	return map[string]float64{
		"MedInc":     h.MedInc,
		"HouseAge":   h.HouseAge,
		"AveRooms":   h.AveRooms,
		"AveBedrms":  h.AveBedrms,
		"Population": h.Population,
		"AveOccup":   h.AveOccup,
		"Latitude":   h.Latitude,
		"Longitude":  h.Longitude,
	}
}

// ParseFeatures converts raw string inputs to numbers. Any value that is not
// a finite number fails with a prediction error echoing the raw input.
func ParseFeatures(raw map[string]string) (map[string]float64, error) {
	out := make(map[string]float64, len(raw))
	for name, s := range raw {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, core.NewError(core.KindPrediction, "parse features", formatRaw(raw),
				fmt.Errorf("feature %s is not numeric: %q", name, s))
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, core.NewError(core.KindPrediction, "parse features", formatRaw(raw),
				fmt.Errorf("feature %s is not finite: %q", name, s))
		}
		out[name] = v
	}
	return out, nil
}

func formatRaw(raw map[string]string) string {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + raw[k]
	}
	return strings.Join(parts, ", ")
}

func formatRow(row map[string]float64) string {
	raw := make(map[string]string, len(row))
	for k, v := range row {
		raw[k] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return formatRaw(raw)
}
