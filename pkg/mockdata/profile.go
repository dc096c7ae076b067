package mockdata

import (
	"fmt"
	"math"

	"github.com/leapstack-labs/leapmix/pkg/core"
)

// ColumnProfile summarizes one dataset column for the EDA panel.
type ColumnProfile struct {
	Name     string          `json:"name"`
	Type     core.ColumnType `json:"type"`
	Role     core.ColumnRole `json:"role"`
	Count    int             `json:"count"`
	Nulls    int             `json:"nulls"`
	Distinct int             `json:"distinct"`
	// Numeric statistics, only set when Numeric is true
	Numeric bool    `json:"numeric"`
	Min     float64 `json:"min,omitempty"`
	Max     float64 `json:"max,omitempty"`
	Mean    float64 `json:"mean,omitempty"`
	StdDev  float64 `json:"std_dev,omitempty"`
}

// NullRatio returns the fraction of null cells.
func (p ColumnProfile) NullRatio() float64 {
	if p.Count == 0 {
		return 0
	}
	return float64(p.Nulls) / float64(p.Count)
}

// Profile computes a ColumnProfile for every column of the dataset.
func Profile(ds *core.MockDataset) []ColumnProfile {
	out := make([]ColumnProfile, len(ds.Columns))
	for i, name := range ds.Columns {
		p := ColumnProfile{Name: name, Type: ds.TypeAt(i), Count: len(ds.Rows)}
		if i < len(ds.Roles) {
			p.Role = ds.Roles[i]
		}

		distinct := make(map[string]struct{})
		var sum, sumSq float64
		n := 0
		p.Min, p.Max = math.Inf(1), math.Inf(-1)
		for _, row := range ds.Rows {
			v := row[i]
			if v == nil {
				p.Nulls++
				continue
			}
			distinct[fmt.Sprint(v)] = struct{}{}
			if f, ok := core.ToFloat64(v); ok {
				n++
				sum += f
				sumSq += f * f
				p.Min = math.Min(p.Min, f)
				p.Max = math.Max(p.Max, f)
			}
		}
		p.Distinct = len(distinct)

		if n > 0 && p.Type.IsNumeric() {
			p.Numeric = true
			p.Mean = sum / float64(n)
			if n > 1 {
				variance := (sumSq - sum*sum/float64(n)) / float64(n-1)
				p.StdDev = math.Sqrt(math.Max(0, variance))
			}
		} else {
			p.Min, p.Max = 0, 0
		}
		out[i] = p
	}
	return out
}
