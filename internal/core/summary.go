package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CategorySummary aggregates observation values for one category.
type CategorySummary struct {
	Category Category `json:"category"`
	Sum      float64  `json:"sum"`
	Mean     float64  `json:"mean"`
	Count    int64    `json:"count"`
}

// Summary lists per-category aggregates. Categories without rows are absent.
type Summary []CategorySummary

// ByCategory indexes the summary by category.
func (s Summary) ByCategory() map[Category]CategorySummary {
	out := make(map[Category]CategorySummary, len(s))
	for _, cs := range s {
		out[cs.Category] = cs
	}
	return out
}

// SeriesPoint is one raw point of the time-series chart.
type SeriesPoint struct {
	Date     Date     `json:"date"`
	Value    float64  `json:"value"`
	Category Category `json:"category"`
}

// ChartSeries holds the points of one category, in date order.
type ChartSeries struct {
	Name   Category      `json:"name"`
	Points []SeriesPoint `json:"points"`
}

// Summarize computes per-category sum, mean and count over observations,
// ordered by category name.
func Summarize(items []Observation) Summary {
	sums := map[Category]decimal.Decimal{}
	counts := map[Category]int64{}
	for _, o := range items {
		sums[o.Category] = sums[o.Category].Add(decimal.NewFromFloat(o.Value))
		counts[o.Category]++
	}
	out := make(Summary, 0, len(sums))
	for cat, sum := range sums {
		n := counts[cat]
		out = append(out, CategorySummary{
			Category: cat,
			Sum:      sum.Round(2).InexactFloat64(),
			Mean:     sum.Div(decimal.NewFromInt(n)).Round(2).InexactFloat64(),
			Count:    n,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// Series projects observations onto chart points ordered by date, then id.
func Series(items []Observation) []SeriesPoint {
	sorted := make([]Observation, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date.Time) {
			return sorted[i].Date.Before(sorted[j].Date.Time)
		}
		return sorted[i].ID < sorted[j].ID
	})
	out := make([]SeriesPoint, 0, len(sorted))
	for _, o := range sorted {
		out = append(out, SeriesPoint{Date: o.Date, Value: o.Value, Category: o.Category})
	}
	return out
}

// GroupSeries splits points into one series per category, keeping the
// order in which categories first appear.
func GroupSeries(points []SeriesPoint) []ChartSeries {
	index := map[Category]int{}
	var out []ChartSeries
	for _, p := range points {
		i, ok := index[p.Category]
		if !ok {
			i = len(out)
			index[p.Category] = i
			out = append(out, ChartSeries{Name: p.Category})
		}
		out[i].Points = append(out[i].Points, p)
	}
	return out
}
