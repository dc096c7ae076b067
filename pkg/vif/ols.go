package vif

import "math"

// pivotTolerance marks a regressor as redundant during elimination.
const pivotTolerance = 1e-12

// RSquared regresses y on xs (with intercept) and returns the coefficient of
// determination. Regressors that are linear combinations of earlier ones are
// dropped. A constant y is treated as perfectly explained by the intercept.
func RSquared(y []float64, xs [][]float64) float64 {
	n := len(y)
	if n == 0 {
		return 0
	}

	yc, _ := center(y)
	var sst float64
	for _, v := range yc {
		sst += v * v
	}
	if sst == 0 {
		return 1
	}

	// Centering absorbs the intercept.
	p := len(xs)
	xc := make([][]float64, p)
	for i, x := range xs {
		xc[i], _ = center(x)
	}

	// Normal equations: (X'X) b = X'y.
	a := make([][]float64, p)
	for i := 0; i < p; i++ {
		a[i] = make([]float64, p+1)
		for k := 0; k < p; k++ {
			a[i][k] = dot(xc[i], xc[k])
		}
		a[i][p] = dot(xc[i], yc)
	}
	b := solve(a, p)

	var sse float64
	for r := 0; r < n; r++ {
		fit := 0.0
		for i := 0; i < p; i++ {
			fit += b[i] * xc[i][r]
		}
		d := yc[r] - fit
		sse += d * d
	}

	r2 := 1 - sse/sst
	return math.Max(0, math.Min(1, r2))
}

// solve performs Gauss-Jordan elimination with partial pivoting on the
// augmented p×(p+1) matrix. Columns without a usable pivot get coefficient 0.
func solve(a [][]float64, p int) []float64 {
	scale := 0.0
	for i := 0; i < p; i++ {
		scale = math.Max(scale, math.Abs(a[i][i]))
	}
	tol := pivotTolerance * math.Max(scale, 1)

	pivotRow := make([]int, p)
	for i := range pivotRow {
		pivotRow[i] = -1
	}

	row := 0
	for col := 0; col < p && row < p; col++ {
		best := row
		for r := row + 1; r < p; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[best][col]) {
				best = r
			}
		}
		if math.Abs(a[best][col]) <= tol {
			continue
		}
		a[row], a[best] = a[best], a[row]

		piv := a[row][col]
		for k := col; k <= p; k++ {
			a[row][k] /= piv
		}
		for r := 0; r < p; r++ {
			if r == row || a[r][col] == 0 {
				continue
			}
			f := a[r][col]
			for k := col; k <= p; k++ {
				a[r][k] -= f * a[row][k]
			}
		}
		pivotRow[col] = row
		row++
	}

	b := make([]float64, p)
	for col, r := range pivotRow {
		if r >= 0 {
			b[col] = a[r][p]
		}
	}
	return b
}

func center(x []float64) ([]float64, float64) {
	if len(x) == 0 {
		return nil, 0
	}
	var sum float64
	for _, v := range x {
		sum += v
	}
	mean := sum / float64(len(x))
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = v - mean
	}
	return out, mean
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
