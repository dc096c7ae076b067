package vif

import (
	"math"

	"github.com/leapstack-labs/leapmix/pkg/core"
)

// Collinearity bands.
const (
	BandLow      = "Low"
	BandModerate = "Moderate"
	BandHigh     = "High"
)

// Band thresholds.
const (
	ModerateThreshold = 5.0
	HighThreshold     = 10.0
)

// Band classifies a VIF value.
func Band(v float64) string {
	switch {
	case v >= HighThreshold:
		return BandHigh
	case v >= ModerateThreshold:
		return BandModerate
	default:
		return BandLow
	}
}

// Result is the VIF of one column with its interpretation.
type Result struct {
	Index  int     `json:"index"`
	Column string  `json:"column"`
	VIF    float64 `json:"vif"`
	Band   string  `json:"band"`
}

// Analyze runs Compute and labels each value.
func Analyze(ds *core.MockDataset, indices []int) ([]Result, error) {
	values, err := Compute(ds, indices)
	if err != nil {
		return nil, err
	}
	out := make([]Result, len(values))
	for i, v := range values {
		out[i] = Result{
			Index:  indices[i],
			Column: ds.Columns[indices[i]],
			VIF:    v,
			Band:   Band(v),
		}
	}
	return out, nil
}

// AnalyzeSpend runs Analyze over every spend column of the dataset.
func AnalyzeSpend(ds *core.MockDataset) ([]Result, error) {
	return Analyze(ds, ds.SpendColumnIndices())
}

// CorrelationMatrix returns the Pearson correlation between every pair of the
// selected columns, using rows complete across all of them. Constant columns
// correlate 0 with everything but themselves.
func CorrelationMatrix(ds *core.MockDataset, indices []int) ([][]float64, error) {
	cols, err := selectColumns(ds, indices)
	if err != nil {
		return nil, err
	}
	k := len(cols)
	centered := make([][]float64, k)
	norms := make([]float64, k)
	for i, c := range cols {
		centered[i], _ = center(c)
		norms[i] = math.Sqrt(dot(centered[i], centered[i]))
	}

	m := make([][]float64, k)
	for i := range m {
		m[i] = make([]float64, k)
		for j := range m[i] {
			switch {
			case i == j:
				m[i][j] = 1
			case norms[i] == 0 || norms[j] == 0:
				m[i][j] = 0
			default:
				m[i][j] = dot(centered[i], centered[j]) / (norms[i] * norms[j])
			}
		}
	}
	return m, nil
}
