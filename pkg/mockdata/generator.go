// Package mockdata synthesizes preview datasets for data models.
//
// The output is meant to look plausible in a preview table or an EDA panel,
// not to be statistically rigorous. Structure (columns, types, row count) is
// fully determined by the model and field catalog; values are random unless a
// seed is given.
package mockdata

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/leapstack-labs/leapmix/pkg/core"
)

// DefaultRowCount is used when the caller asks for zero or fewer rows.
const DefaultRowCount = 20

// DateColumn is the name of the leading date column.
const DateColumn = "Date"

// DefaultEpoch is the first date of every generated dataset.
var DefaultEpoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// DefaultNullRate is the probability of a control cell being null.
const DefaultNullRate = 0.03

// Option configures Generate.
type Option func(*config)

type config struct {
	seed     int64
	seeded   bool
	epoch    time.Time
	nullRate float64
}

// WithSeed makes the generated values reproducible.
func WithSeed(seed int64) Option {
	return func(c *config) {
		c.seed = seed
		c.seeded = true
	}
}

// WithEpoch overrides the first date.
func WithEpoch(t time.Time) Option {
	return func(c *config) {
		c.epoch = t
	}
}

// WithNullRate sets the probability of null control cells. Values outside
// [0, 1] are clamped.
func WithNullRate(rate float64) Option {
	return func(c *config) {
		c.nullRate = math.Max(0, math.Min(1, rate))
	}
}

func applyOptions(opts []Option) *config {
	cfg := &config{
		epoch:    DefaultEpoch,
		nullRate: DefaultNullRate,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if !cfg.seeded {
		cfg.seed = time.Now().UnixNano()
	}
	return cfg
}

// Column describes one column of a generated dataset.
type Column struct {
	Name string          `json:"name"`
	Type core.ColumnType `json:"type"`
	Role core.ColumnRole `json:"role"`
}

// Schema returns the columns Generate will produce, in order: the date, one
// per modeling dimension, one per KPI, one per tactic×metric spend pair and
// one per control variable. Names are made unique by suffixing " (n)".
func Schema(model core.DataModel, fields []core.Field) []Column {
	cols := []Column{{Name: DateColumn, Type: core.ColumnTypeDate, Role: core.ColumnRoleDate}}

	for _, d := range model.ModelingDimensions {
		cols = append(cols, Column{Name: d.Category, Type: core.ColumnTypeString, Role: core.ColumnRoleDimension})
	}

	for _, k := range model.KPIs {
		name, typ := k.Category, core.ColumnTypeCurrency
		if f, ok := core.FindField(fields, k.FieldName); ok {
			name, typ = f.Label(), f.DataType.ColumnType()
		} else if k.FieldName != "" {
			name = k.FieldName
		}
		if name == "" {
			name = "KPI"
		}
		cols = append(cols, Column{Name: name, Type: typ, Role: core.ColumnRoleKPI})
	}

	for _, p := range model.SpendPairs() {
		label := p.Field
		if f, ok := core.FindField(fields, p.Field); ok {
			label = f.Label()
		}
		cols = append(cols, Column{
			Name: fmt.Sprintf("Spend: %s %s", p.Tactic, label),
			Type: core.ColumnTypeCurrency,
			Role: core.ColumnRoleSpend,
		})
	}

	for _, c := range model.ControlVariables {
		typ := c.Type
		if typ == "" {
			typ = core.ColumnTypeDecimal
		}
		cols = append(cols, Column{Name: c.Name, Type: typ, Role: core.ColumnRoleControl})
	}

	used := make(map[string]bool, len(cols))
	for i := range cols {
		base := cols[i].Name
		name := base
		for n := 2; used[name]; n++ {
			name = fmt.Sprintf("%s (%d)", base, n)
		}
		used[name] = true
		cols[i].Name = name
	}
	return cols
}

// Generate synthesizes rowCount rows for the model. rowCount <= 0 means
// DefaultRowCount. The model and fields are not modified.
func Generate(model core.DataModel, fields []core.Field, rowCount int, opts ...Option) *core.MockDataset {
	cfg := applyOptions(opts)
	if rowCount <= 0 {
		rowCount = DefaultRowCount
	}
	rng := rand.New(rand.NewPCG(uint64(cfg.seed), uint64(cfg.seed)^0x9e3779b97f4a7c15))

	schema := Schema(model, fields)
	ds := &core.MockDataset{
		Columns:     make([]string, len(schema)),
		ColumnTypes: make(map[string]core.ColumnType, len(schema)),
		Roles:       make([]core.ColumnRole, len(schema)),
		Rows:        make([][]any, 0, rowCount),
	}
	for i, c := range schema {
		ds.Columns[i] = c.Name
		ds.ColumnTypes[c.Name] = c.Type
		ds.Roles[i] = c.Role
	}

	gens := make([]*columnGen, len(schema))
	for i, c := range schema {
		gens[i] = newColumnGen(c, rng)
	}

	period := seasonPeriod(model.Granularity)
	for r := 0; r < rowCount; r++ {
		date := model.Granularity.Advance(cfg.epoch, r)
		season := 1 + 0.15*math.Sin(2*math.Pi*float64(r)/period)
		row := make([]any, len(schema))

		// Spend first: KPIs respond to it.
		var totalSpend float64
		for i, g := range gens {
			if g.col.Role == core.ColumnRoleSpend {
				v := g.spend(rng, season)
				totalSpend += v
				row[i] = v
			}
		}

		for i, g := range gens {
			switch g.col.Role {
			case core.ColumnRoleDate:
				row[i] = date.Format(time.DateOnly)
			case core.ColumnRoleDimension:
				row[i] = g.vocab[rng.IntN(len(g.vocab))]
			case core.ColumnRoleKPI:
				row[i] = g.kpi(rng, season, totalSpend, date)
			case core.ColumnRoleControl:
				if rng.Float64() < cfg.nullRate {
					row[i] = nil
					continue
				}
				row[i] = g.control(rng, date)
			}
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds
}

func seasonPeriod(g core.Granularity) float64 {
	switch g {
	case core.GranularityDaily:
		return 7
	case core.GranularityMonthly:
		return 12
	default:
		return 52
	}
}
