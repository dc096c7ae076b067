package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leapmix/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.NotEmpty(t, c.Fields)
	require.Len(t, c.Models, 2)

	mmm, ok := c.Model("mmm-retail-weekly")
	require.True(t, ok)
	assert.Equal(t, core.DataModelTypeMMM, mmm.Type)
	assert.Equal(t, core.GranularityWeekly, mmm.Granularity)
	assert.Len(t, mmm.SpendPairs(), 4)
	assert.Equal(t, core.ColumnTypeCurrency, mmm.ControlVariables[0].Type)

	geo, ok := c.Model("social geo lift")
	require.True(t, ok)
	assert.Equal(t, core.DataModelTypeGeoExperiment, geo.Type)
	assert.Equal(t, core.GranularityDaily, geo.Granularity)

	for _, m := range c.Models {
		assert.Empty(t, c.MissingFields(m), m.Name)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		check   func(t *testing.T, c *Catalog)
		wantErr string
	}{
		{
			name: "defaults are filled",
			input: `
fields:
  - name: spend
    data_type: currency
models:
  - name: Minimal
    kpis:
      - category: Revenue
        field_name: revenue
      - category: Footfall
`,
			check: func(t *testing.T, c *Catalog) {
				require.Len(t, c.Models, 1)
				m := c.Models[0]
				_, err := uuid.Parse(m.ID)
				assert.NoError(t, err)
				assert.Equal(t, core.DataModelTypeMMM, m.Type)
				assert.Equal(t, core.GranularityWeekly, m.Granularity)
				assert.Equal(t, core.KPISourceField, m.KPIs[0].SourceType)
				assert.Equal(t, core.KPISourceCustom, m.KPIs[1].SourceType)
				assert.Equal(t, core.DataTypeCurrency, c.Fields[0].DataType)
				assert.Equal(t, core.FieldKindMetric, c.Fields[0].Kind)
			},
		},
		{
			name: "granularity aliases",
			input: `
models:
  - name: M
    type: geo_experiment
    granularity: month
`,
			check: func(t *testing.T, c *Catalog) {
				assert.Equal(t, core.GranularityMonthly, c.Models[0].Granularity)
				assert.Equal(t, core.DataModelTypeGeoExperiment, c.Models[0].Type)
			},
		},
		{
			name:    "invalid yaml",
			input:   "models: [",
			wantErr: "invalid YAML",
		},
		{
			name:    "invalid type",
			input:   "models:\n  - name: M\n    type: BAYES\n",
			wantErr: `invalid type "BAYES"`,
		},
		{
			name:    "invalid granularity",
			input:   "models:\n  - name: M\n    granularity: Hourly\n",
			wantErr: `invalid granularity "Hourly"`,
		},
		{
			name:    "invalid data type",
			input:   "fields:\n  - name: spend\n    data_type: flot64\n",
			wantErr: `invalid data_type "FLOT64"`,
		},
		{
			name:    "invalid control type",
			input:   "models:\n  - name: M\n    control_variables:\n      - name: x\n        type: money\n",
			wantErr: `unknown column type "money"`,
		},
		{
			name:    "missing model name",
			input:   "models:\n  - id: a\n",
			wantErr: "name is required",
		},
		{
			name:    "duplicate id",
			input:   "models:\n  - id: a\n    name: A\n  - id: a\n    name: B\n",
			wantErr: `duplicate id "a"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Parse([]byte(tt.input), "test.yaml")
			if tt.wantErr != "" {
				require.Error(t, err)
				var pe *ParseError
				assert.ErrorAs(t, err, &pe)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Contains(t, err.Error(), "test.yaml")
				return
			}
			require.NoError(t, err)
			tt.check(t, c)
		})
	}
}

func TestParse_UnknownFields(t *testing.T) {
	tests := []struct {
		name  string
		input string
		path  string
		field string
	}{
		{"top level", "modles: []\n", "", "modles"},
		{"field entry", "fields:\n  - name: a\n    datatype: INT64\n", "fields[0]", "datatype"},
		{"model entry", "models:\n  - name: a\n    grain: Daily\n", "models[0]", "grain"},
		{"nested spend", "models:\n  - name: a\n    spend_variables:\n      - tactic: x\n        metrics: [a]\n", "models[0].spend_variables[0]", "metrics"},
		{"nested kpi", "models:\n  - name: a\n    kpis:\n      - category: x\n        field: a\n", "models[0].kpis[0]", "field"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input), "")
			var ufe *UnknownFieldError
			require.ErrorAs(t, err, &ufe)
			assert.Equal(t, tt.path, ufe.Path)
			assert.Equal(t, tt.field, ufe.Field)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("models:\n  - id: x\n    name: X\n"), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, c.Models, 1)

	c, err = Load("")
	require.NoError(t, err)
	assert.Len(t, c.Models, 2)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestCatalog_Lookups(t *testing.T) {
	c := Default()

	f, ok := c.Field("Revenue")
	require.True(t, ok)
	assert.Equal(t, "purchase_revenue", f.Name)

	_, ok = c.Model("nope")
	assert.False(t, ok)

	for _, f := range c.FieldsBySource("meta ads") {
		assert.Equal(t, "Meta Ads", f.Source)
	}
	assert.Len(t, c.FieldsBySource(""), len(c.Fields))
}

func TestCatalog_Merge(t *testing.T) {
	base := Default()
	extra := &Catalog{
		Fields: []core.Field{
			{Name: "SPEND", DisplayName: "Meta Spend", DataType: core.DataTypeCurrency},
			{Name: "tv_grps", DataType: core.DataTypeFloat64},
		},
		Models: []core.DataModel{{ID: "mmm-retail-weekly", Name: "Replaced"}},
	}

	merged := base.Merge(extra)
	assert.Len(t, merged.Fields, len(base.Fields)+1)
	assert.Len(t, merged.Models, len(base.Models))

	f, ok := merged.Field("spend")
	require.True(t, ok)
	assert.Equal(t, "Meta Spend", f.DisplayName)

	m, ok := merged.Model("mmm-retail-weekly")
	require.True(t, ok)
	assert.Equal(t, "Replaced", m.Name)

	// base is untouched
	m, _ = base.Model("mmm-retail-weekly")
	assert.Equal(t, "Retail MMM", m.Name)
}

func TestCatalog_MissingFields(t *testing.T) {
	c := &Catalog{Fields: []core.Field{{Name: "spend"}}}
	m := core.DataModel{
		KPIs: []core.KPI{
			{Category: "Revenue", SourceType: core.KPISourceField, FieldName: "revenue"},
			{Category: "Custom", SourceType: core.KPISourceCustom, FieldName: "ignored"},
		},
		SpendVariables: []core.SpendVariable{
			{Tactic: "Social", MetricFields: []string{"spend", "reach"}},
			{Tactic: "Display", MetricFields: []string{"reach"}},
		},
	}
	assert.Equal(t, []string{"revenue", "reach"}, c.MissingFields(m))
}

func TestCatalog_MarshalRoundTrip(t *testing.T) {
	data, err := Default().Marshal()
	require.NoError(t, err)

	c, err := Parse(data, "")
	require.NoError(t, err)
	assert.Equal(t, Default().Models, c.Models)
}
