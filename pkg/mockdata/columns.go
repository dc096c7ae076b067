package mockdata

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/leapstack-labs/leapmix/pkg/core"
)

// columnGen holds the per-column parameters drawn once per dataset.
type columnGen struct {
	col   Column
	vocab []string
	level float64 // typical magnitude of the column
	roi   float64 // KPI response per unit of total spend
	ratio bool
}

func newColumnGen(c Column, rng *rand.Rand) *columnGen {
	g := &columnGen{
		col:   c,
		ratio: isRatioLike(c.Name),
	}
	if c.Role == core.ColumnRoleDimension || c.Type == core.ColumnTypeString {
		g.vocab = Vocabulary(c.Name)
	}
	switch c.Role {
	case core.ColumnRoleSpend:
		g.level = 500 + rng.Float64()*4500
	case core.ColumnRoleKPI:
		g.level = 5000 + rng.Float64()*15000
		g.roi = 1.5 + rng.Float64()*2.5
	case core.ColumnRoleControl:
		g.level = 50 + rng.Float64()*100
	}
	return g
}

// spend draws a non-negative spend amount.
func (g *columnGen) spend(rng *rand.Rand, season float64) float64 {
	v := g.level * season * (0.6 + 0.8*rng.Float64())
	return round(math.Max(0, v), 2)
}

// kpi draws a KPI value that responds to total spend.
func (g *columnGen) kpi(rng *rand.Rand, season, totalSpend float64, date time.Time) any {
	noise := 0.9 + 0.2*rng.Float64()
	switch g.col.Type {
	case core.ColumnTypeInteger:
		v := (g.level/50 + totalSpend*g.roi/100) * season * noise
		return int64(math.Max(0, math.Round(v)))
	case core.ColumnTypeDecimal:
		if g.ratio {
			return round(0.01+0.09*rng.Float64(), 4)
		}
		return round(math.Max(0, g.level/100*season*noise), 4)
	case core.ColumnTypeString:
		return g.vocab[rng.IntN(len(g.vocab))]
	case core.ColumnTypeDate:
		return date.Format(time.DateOnly)
	default:
		v := (g.level + totalSpend*g.roi) * season * noise
		return round(math.Max(0, v), 2)
	}
}

// control draws a control variable value.
func (g *columnGen) control(rng *rand.Rand, date time.Time) any {
	switch g.col.Type {
	case core.ColumnTypeInteger:
		return int64(rng.IntN(101))
	case core.ColumnTypeCurrency:
		return round(g.level*(0.8+0.4*rng.Float64()), 2)
	case core.ColumnTypeString:
		return []string{"Yes", "No"}[rng.IntN(2)]
	case core.ColumnTypeDate:
		return date.Format(time.DateOnly)
	default:
		if g.ratio {
			return round(rng.Float64(), 4)
		}
		return round(g.level*(0.85+0.3*rng.Float64()), 4)
	}
}

func round(x float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(x*p) / p
}
