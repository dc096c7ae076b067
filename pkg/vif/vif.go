// Package vif computes variance inflation factors for spend columns.
//
// VIF_j = 1 / (1 - R²_j), where R²_j comes from an ordinary least squares
// regression (with intercept) of column j on the other selected columns.
package vif

import (
	"errors"
	"fmt"
	"math"

	"github.com/leapstack-labs/leapmix/pkg/core"
)

// Epsilon is the floor applied to 1 - R² before dividing.
const Epsilon = 1e-10

// MaxVIF is the value reported for perfectly collinear columns.
const MaxVIF = 1 / Epsilon

// Errors returned by Compute.
var (
	ErrInsufficientColumns = errors.New("vif: at least two columns are required")
	ErrInsufficientRows    = errors.New("vif: not enough complete rows for the regression")
)

// ColumnError reports a column that cannot take part in the regression.
type ColumnError struct {
	Index  int
	Column string
	Reason string
}

func (e *ColumnError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("vif: column %d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("vif: column %d (%s): %s", e.Index, e.Column, e.Reason)
}

// Compute returns one VIF per entry of indices, in the same order.
// Rows with a null in any selected column are left out.
func Compute(ds *core.MockDataset, indices []int) ([]float64, error) {
	if len(indices) < 2 {
		return nil, ErrInsufficientColumns
	}
	cols, err := selectColumns(ds, indices)
	if err != nil {
		return nil, err
	}
	// k-1 regressors plus the intercept need at least k observations.
	if len(cols[0]) < len(indices) {
		return nil, fmt.Errorf("%w: %d rows for %d columns", ErrInsufficientRows, len(cols[0]), len(indices))
	}

	out := make([]float64, len(cols))
	for j := range cols {
		others := make([][]float64, 0, len(cols)-1)
		for k := range cols {
			if k != j {
				others = append(others, cols[k])
			}
		}
		r2 := RSquared(cols[j], others)
		out[j] = 1 / math.Max(1-r2, Epsilon)
	}
	return out, nil
}

// selectColumns extracts the requested numeric columns, keeping only rows
// where every selected cell is present.
func selectColumns(ds *core.MockDataset, indices []int) ([][]float64, error) {
	if ds == nil {
		return nil, &ColumnError{Index: -1, Reason: "nil dataset"}
	}
	raw := make([][]float64, len(indices))
	masks := make([][]bool, len(indices))
	for i, idx := range indices {
		if idx < 0 || idx >= len(ds.Columns) {
			return nil, &ColumnError{Index: idx, Reason: "index out of range"}
		}
		if t := ds.TypeAt(idx); !t.IsNumeric() {
			return nil, &ColumnError{Index: idx, Column: ds.Columns[idx], Reason: fmt.Sprintf("column type %q is not numeric", t)}
		}
		raw[i], masks[i] = ds.Float64Column(idx)
	}

	cols := make([][]float64, len(indices))
	for r := range ds.Rows {
		complete := true
		for i := range indices {
			if !masks[i][r] {
				complete = false
				break
			}
		}
		if !complete {
			continue
		}
		for i := range indices {
			cols[i] = append(cols[i], raw[i][r])
		}
	}
	return cols, nil
}
