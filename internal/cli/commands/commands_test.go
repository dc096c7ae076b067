package commands

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leapmix/internal/cli/config"
	"github.com/leapstack-labs/leapmix/internal/cli/output"
	"github.com/leapstack-labs/leapmix/internal/cli/testutil"
	"github.com/leapstack-labs/leapmix/pkg/core"
	"github.com/leapstack-labs/leapmix/pkg/formula"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, mode output.Mode) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Rows = 10
	cfg.Seed = 42
	cfg.SeedSet = true
	cfg.Output = string(mode)
	cfg.Recipes = filepath.Join(t.TempDir(), "recipes")
	return cfg
}

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		newCmd func() *cobra.Command
		use    string
		flags  []string
	}{
		{NewFormulaCommand, "formula", []string{"source", "agg", "step"}},
		{NewREPLCommand, "repl", []string{"source", "agg", "step"}},
		{NewGenerateCommand, "generate <model>", []string{"rows", "seed", "granularity", "null-rate", "export", "format", "bq-schema"}},
		{NewPreviewCommand, "preview <model>", []string{"source", "pipeline", "group-by", "limit", "table", "rows"}},
		{NewVIFCommand, "vif <model>", []string{"rows", "seed", "correlation"}},
		{NewProfileCommand, "profile <model>", []string{"rows", "null-rate"}},
		{NewRecipeCommand, "recipe [path...]", []string{"watch"}},
		{NewModelsCommand, "models [model]", nil},
		{NewFieldsCommand, "fields", []string{"source"}},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			cmd := tt.newCmd()
			assert.Equal(t, tt.use, cmd.Use)
			assert.NotEmpty(t, cmd.Short, "Short should not be empty")
			assert.NotEmpty(t, cmd.Example, "Example should not be empty")
			for _, f := range tt.flags {
				assert.NotNil(t, cmd.Flags().Lookup(f), "flag %q should exist", f)
			}
		})
	}
}

func TestFormulaCommand(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		out, _, err := testutil.ExecuteCommand(t, NewFormulaCommand(), testConfig(t, output.ModeJSON),
			"-s", "spend", "-a", "sum", "--step", "divide_by=clicks")
		require.NoError(t, err)

		var got formulaOutput
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, "(SUM(spend)) / NULLIF(clicks, 0)", got.Formula)
		assert.Equal(t, `Add up all "spend" values, then divide the result by "clicks" (left empty when "clicks" is zero).`, got.Description)
		assert.Empty(t, got.Warnings)
	})

	t.Run("markdown with warnings", func(t *testing.T) {
		out, _, err := testutil.ExecuteCommand(t, NewFormulaCommand(), testConfig(t, output.ModeMarkdown),
			"--step", "round=two")
		require.NoError(t, err)

		testutil.AssertValidMarkdown(t, out)
		testutil.AssertNoANSI(t, out)
		assert.Contains(t, out, "```sql")
		assert.Contains(t, out, "### Warnings")
		assert.Contains(t, out, `step 1: decimal places "two" is not an integer`)
	})

	t.Run("unknown aggregation", func(t *testing.T) {
		_, _, err := testutil.ExecuteCommand(t, NewFormulaCommand(), testConfig(t, output.ModeJSON),
			"-s", "x", "-a", "median")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "median")
	})

	t.Run("unknown step", func(t *testing.T) {
		_, _, err := testutil.ExecuteCommand(t, NewFormulaCommand(), testConfig(t, output.ModeJSON),
			"--step", "sqrt")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "step 1")
	})
}

func TestDescribeSteps(t *testing.T) {
	assert.Equal(t, "-", describeSteps(nil))
	assert.Equal(t, "divide_by=clicks → round=2 → cast_date", describeSteps([]formula.TransformStep{
		{Operation: formula.OpDivideBy, Value: "clicks"},
		{Operation: formula.OpRound, Value: "2"},
		{Operation: formula.OpCastDate, Value: "ignored"},
	}))
}

func TestModelsCommand(t *testing.T) {
	t.Run("list json", func(t *testing.T) {
		out, _, err := testutil.ExecuteCommand(t, NewModelsCommand(), testConfig(t, output.ModeJSON))
		require.NoError(t, err)

		var models []core.DataModel
		require.NoError(t, json.Unmarshal([]byte(out), &models))
		ids := make([]string, len(models))
		for i, m := range models {
			ids[i] = m.ID
		}
		assert.Contains(t, ids, "mmm-retail-weekly")
		assert.Contains(t, ids, "geo-lift-social")
	})

	t.Run("list markdown", func(t *testing.T) {
		out, _, err := testutil.ExecuteCommand(t, NewModelsCommand(), testConfig(t, output.ModeMarkdown))
		require.NoError(t, err)
		assert.Contains(t, out, "# Data Models")
		assert.Contains(t, out, "| mmm-retail-weekly |")
	})

	t.Run("show by name", func(t *testing.T) {
		out, _, err := testutil.ExecuteCommand(t, NewModelsCommand(), testConfig(t, output.ModeJSON), "social geo lift")
		require.NoError(t, err)

		var got modelOutput
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, "geo-lift-social", got.Model.ID)
		require.NotEmpty(t, got.Columns)
		assert.Equal(t, "Date", got.Columns[0].Name)
		assert.Equal(t, core.ColumnRoleDate, got.Columns[0].Role)
	})

	t.Run("unknown model", func(t *testing.T) {
		_, _, err := testutil.ExecuteCommand(t, NewModelsCommand(), testConfig(t, output.ModeJSON), "nope")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mmm-retail-weekly")
	})
}

func TestFieldsCommand(t *testing.T) {
	out, _, err := testutil.ExecuteCommand(t, NewFieldsCommand(), testConfig(t, output.ModeJSON), "--source", "Meta Ads")
	require.NoError(t, err)

	var fields []core.Field
	require.NoError(t, json.Unmarshal([]byte(out), &fields))
	require.NotEmpty(t, fields)
	for _, f := range fields {
		assert.Equal(t, "Meta Ads", f.Source)
	}
}

func TestModelsCommand_UserCatalog(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	cfg := testConfig(t, output.ModeJSON)
	cfg.Catalog = filepath.Join(dir, "catalog.yaml")

	out, _, err := testutil.ExecuteCommand(t, NewModelsCommand(), cfg, "ctv-test")
	require.NoError(t, err)

	var got modelOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	names := make([]string, len(got.Columns))
	for i, c := range got.Columns {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"Date", "Geo", "Revenue", "Spend: CTV CTV Impressions", "Spend: Search Cost", "Price"}, names)
	assert.Empty(t, got.Missing)
}

func TestGenerateCommand(t *testing.T) {
	t.Run("json dataset", func(t *testing.T) {
		out, _, err := testutil.ExecuteCommand(t, NewGenerateCommand(), testConfig(t, output.ModeJSON), "mmm-retail-weekly")
		require.NoError(t, err)

		var ds core.MockDataset
		require.NoError(t, json.Unmarshal([]byte(out), &ds))
		assert.Len(t, ds.Rows, 10)
		assert.Equal(t, "Date", ds.Columns[0])
		assert.Equal(t, "2024-01-01", ds.Rows[0][0])
		assert.Equal(t, "2024-01-08", ds.Rows[1][0])
	})

	t.Run("seed is reproducible", func(t *testing.T) {
		a, _, err := testutil.ExecuteCommand(t, NewGenerateCommand(), testConfig(t, output.ModeJSON), "mmm-retail-weekly")
		require.NoError(t, err)
		b, _, err := testutil.ExecuteCommand(t, NewGenerateCommand(), testConfig(t, output.ModeJSON), "mmm-retail-weekly")
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("granularity override", func(t *testing.T) {
		cfg := testConfig(t, output.ModeJSON)
		cfg.Granularity = "daily"
		out, _, err := testutil.ExecuteCommand(t, NewGenerateCommand(), cfg, "mmm-retail-weekly")
		require.NoError(t, err)

		var ds core.MockDataset
		require.NoError(t, json.Unmarshal([]byte(out), &ds))
		assert.Equal(t, "2024-01-02", ds.Rows[1][0])
	})

	t.Run("stream csv", func(t *testing.T) {
		out, _, err := testutil.ExecuteCommand(t, NewGenerateCommand(), testConfig(t, output.ModeMarkdown),
			"geo-lift-social", "--format", "csv")
		require.NoError(t, err)
		lines := splitLines(out)
		assert.Len(t, lines, 11)
		assert.Contains(t, lines[0], "Date,DMA")
	})

	t.Run("export and schema files", func(t *testing.T) {
		dir := t.TempDir()
		data := filepath.Join(dir, "data.ndjson")
		schema := filepath.Join(dir, "schema.json")

		out, errOut, err := testutil.ExecuteCommand(t, NewGenerateCommand(), testConfig(t, output.ModeMarkdown),
			"geo-lift-social", "--export", data, "--bq-schema", schema)
		require.NoError(t, err)
		assert.Contains(t, out, "Wrote 10 rows")
		assert.Contains(t, errOut, "schema.json")

		raw, err := os.ReadFile(data)
		require.NoError(t, err)
		assert.Len(t, splitLines(string(raw)), 10)

		raw, err = os.ReadFile(schema)
		require.NoError(t, err)
		var fields []map[string]any
		require.NoError(t, json.Unmarshal(raw, &fields))
		require.NotEmpty(t, fields)
		assert.Equal(t, "date", fields[0]["name"])
		assert.Equal(t, "DATE", fields[0]["type"])
	})

	t.Run("bad format", func(t *testing.T) {
		_, _, err := testutil.ExecuteCommand(t, NewGenerateCommand(), testConfig(t, output.ModeJSON),
			"geo-lift-social", "--format", "parquet")
		require.Error(t, err)
	})

	t.Run("requires model", func(t *testing.T) {
		_, _, err := testutil.ExecuteCommand(t, NewGenerateCommand(), testConfig(t, output.ModeJSON))
		require.Error(t, err)
	})
}

func TestVIFCommand(t *testing.T) {
	t.Run("spend columns", func(t *testing.T) {
		cfg := testConfig(t, output.ModeJSON)
		cfg.Rows = 60
		out, _, err := testutil.ExecuteCommand(t, NewVIFCommand(), cfg, "mmm-retail-weekly", "--correlation")
		require.NoError(t, err)

		var got vifOutput
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, "mmm-retail-weekly", got.Model)
		require.Len(t, got.Results, 4)
		for _, r := range got.Results {
			assert.GreaterOrEqual(t, r.VIF, 1.0-1e-9)
			assert.NotEmpty(t, r.Band)
		}
		require.Len(t, got.Correlation, 4)
		assert.InDelta(t, 1.0, got.Correlation[0][0], 1e-9)
		assert.Len(t, got.Columns, 4)
	})

	t.Run("single spend column warns", func(t *testing.T) {
		dir := t.TempDir()
		catalogFile := filepath.Join(dir, "catalog.yaml")
		require.NoError(t, os.WriteFile(catalogFile, []byte(`models:
  - id: one-channel
    name: One Channel
    kpis:
      - category: Revenue
    spend_variables:
      - tactic: Search
        metric_fields: [cost_micros]
`), 0o600))
		cfg := testConfig(t, output.ModeMarkdown)
		cfg.Catalog = catalogFile

		_, errOut, err := testutil.ExecuteCommand(t, NewVIFCommand(), cfg, "one-channel")
		require.NoError(t, err)
		assert.Contains(t, errOut, "fewer than two spend columns")
	})
}

func TestProfileCommand(t *testing.T) {
	out, _, err := testutil.ExecuteCommand(t, NewProfileCommand(), testConfig(t, output.ModeMarkdown), "geo-lift-social")
	require.NoError(t, err)

	testutil.AssertValidMarkdown(t, out)
	assert.Contains(t, out, "# Profile: Social Geo Lift (10 rows)")
	assert.Contains(t, out, "| Date |")
}

func TestRecipeCommand(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	cfg := testConfig(t, output.ModeJSON)
	cfg.Recipes = filepath.Join(dir, "recipes")

	t.Run("configured directory", func(t *testing.T) {
		out, _, err := testutil.ExecuteCommand(t, NewRecipeCommand(), cfg)
		require.NoError(t, err)

		var got []recipeOutput
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		require.Len(t, got, 1)
		require.Len(t, got[0].Pipelines, 1)
		p := got[0].Pipelines[0]
		assert.Equal(t, "search_cost", p.Name)
		assert.Equal(t, "ROUND((SUM(cost_micros)) / 1000000, 2)", p.Formula)
	})

	t.Run("missing default directory", func(t *testing.T) {
		empty := testConfig(t, output.ModeJSON)
		out, _, err := testutil.ExecuteCommand(t, NewRecipeCommand(), empty)
		require.NoError(t, err)
		assert.JSONEq(t, "[]", out)
	})

	t.Run("explicit missing file", func(t *testing.T) {
		_, _, err := testutil.ExecuteCommand(t, NewRecipeCommand(), cfg, filepath.Join(dir, "nope.star"))
		require.Error(t, err)
	})

	t.Run("evaluation error", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.star")
		require.NoError(t, os.WriteFile(bad, []byte(`pipeline(name = "x", aggregation = "MEDIAN")`), 0o600))
		_, _, err := testutil.ExecuteCommand(t, NewRecipeCommand(), cfg, bad)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad.star")
	})
}

func TestPreviewCommand(t *testing.T) {
	t.Run("aggregate", func(t *testing.T) {
		out, _, err := testutil.ExecuteCommand(t, NewPreviewCommand(), testConfig(t, output.ModeJSON),
			"mmm-retail-weekly", "-s", "date", "-a", "COUNT")
		require.NoError(t, err)

		var got struct {
			SQL  string  `json:"sql"`
			Rows [][]any `json:"rows"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Contains(t, got.SQL, `COUNT("Date")`)
		require.Len(t, got.Rows, 1)
		assert.InDelta(t, 10.0, got.Rows[0][0], 0)
	})

	t.Run("grouped", func(t *testing.T) {
		out, _, err := testutil.ExecuteCommand(t, NewPreviewCommand(), testConfig(t, output.ModeJSON),
			"mmm-retail-weekly", "-s", "Date", "-a", "COUNT", "--group-by", "Geo")
		require.NoError(t, err)

		var got struct {
			Rows [][]any `json:"rows"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		total := 0.0
		for _, row := range got.Rows {
			require.Len(t, row, 2)
			total += row[1].(float64)
		}
		assert.InDelta(t, 10.0, total, 0)
	})

	t.Run("recipe pipeline", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "dates.star"), []byte(`pipeline(name = "row_count", source = "Date", aggregation = "COUNT")
`), 0o600))
		cfg := testConfig(t, output.ModeJSON)
		cfg.Recipes = dir

		out, _, err := testutil.ExecuteCommand(t, NewPreviewCommand(), cfg, "geo-lift-social", "--pipeline", "row_count")
		require.NoError(t, err)
		assert.Contains(t, out, `COUNT(\"Date\")`)
	})

	t.Run("unknown recipe pipeline", func(t *testing.T) {
		_, _, err := testutil.ExecuteCommand(t, NewPreviewCommand(), testConfig(t, output.ModeJSON),
			"geo-lift-social", "--pipeline", "missing")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `pipeline "missing" not found`)
	})
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
