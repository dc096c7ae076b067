package commands

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/leapstack-labs/leapmix/internal/cli/output"
	"github.com/leapstack-labs/leapmix/pkg/core"
	"github.com/leapstack-labs/leapmix/pkg/mockdata"
	"github.com/leapstack-labs/leapmix/pkg/vif"
	"github.com/spf13/cobra"
)

// vifOutput is the JSON shape of the vif command.
type vifOutput struct {
	Model       string       `json:"model"`
	Rows        int          `json:"rows"`
	Results     []vif.Result `json:"results"`
	Correlation [][]float64  `json:"correlation,omitempty"`
	Columns     []string     `json:"columns,omitempty"`
}

// NewVIFCommand creates the vif command.
func NewVIFCommand() *cobra.Command {
	var correlation bool

	cmd := &cobra.Command{
		Use:   "vif <model>",
		Short: "Check spend columns for multicollinearity",
		Long: `Generate a dataset for a data model and compute the Variance Inflation
Factor of every spend column against the others.

VIF below 5 is low, 5 to 10 moderate and 10 or more high. High values mean
the model cannot tell those channels apart.`,
		Example: `  leapmix vif mmm-retail-weekly --rows 104 --seed 7
  leapmix vif mmm-retail-weekly --correlation -o json`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeModels,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewCommandContext(cmd)
			_, m, ds, err := c.generateForArgs(args)
			if err != nil {
				return err
			}
			return runVIF(c.Renderer, m, ds, correlation)
		},
	}
	registerDatasetFlags(cmd)
	cmd.Flags().BoolVar(&correlation, "correlation", false, "Also print the spend correlation matrix")

	return cmd
}

func runVIF(r *output.Renderer, m core.DataModel, ds *core.MockDataset, correlation bool) error {
	results, err := vif.AnalyzeSpend(ds)
	if errors.Is(err, vif.ErrInsufficientColumns) {
		r.Warnf("model %s has fewer than two spend columns, nothing to compare", m.ID)
		if r.EffectiveMode() == output.ModeJSON {
			return r.JSON(vifOutput{Model: m.ID, Rows: len(ds.Rows), Results: []vif.Result{}})
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("vif failed: %w", err)
	}

	out := vifOutput{Model: m.ID, Rows: len(ds.Rows), Results: results}
	if correlation {
		idx := ds.SpendColumnIndices()
		if out.Correlation, err = vif.CorrelationMatrix(ds, idx); err != nil {
			return fmt.Errorf("correlation failed: %w", err)
		}
		for _, i := range idx {
			out.Columns = append(out.Columns, ds.Columns[i])
		}
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}

	r.Header(1, fmt.Sprintf("VIF: %s (%d rows)", m.Name, len(ds.Rows)))
	s := r.Styles()
	rows := make([][]any, len(results))
	for i, res := range results {
		band := res.Band
		if r.EffectiveMode() == output.ModeText {
			switch res.Band {
			case vif.BandHigh:
				band = s.Error.Render(band)
			case vif.BandModerate:
				band = s.Warning.Render(band)
			default:
				band = s.Success.Render(band)
			}
		}
		rows[i] = []any{res.Column, strconv.FormatFloat(res.VIF, 'f', 2, 64), band}
	}
	r.Table([]string{"Column", "VIF", "Band"}, rows)

	if correlation {
		r.Println()
		r.Header(2, "Correlation")
		header := append([]string{""}, out.Columns...)
		matrix := make([][]any, len(out.Correlation))
		for i, row := range out.Correlation {
			cells := make([]any, 0, len(row)+1)
			cells = append(cells, out.Columns[i])
			for _, v := range row {
				cells = append(cells, strconv.FormatFloat(v, 'f', 3, 64))
			}
			matrix[i] = cells
		}
		r.Table(header, matrix)
	}
	return nil
}

// NewProfileCommand creates the profile command.
func NewProfileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile <model>",
		Short: "Summarize the columns of a generated dataset",
		Long: `Generate a dataset for a data model and print per-column statistics:
null ratio, distinct values and, for numeric columns, min, max, mean and
standard deviation.`,
		Example: `  leapmix profile mmm-retail-weekly --rows 52 --null-rate 0.1`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeModels,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewCommandContext(cmd)
			_, m, ds, err := c.generateForArgs(args)
			if err != nil {
				return err
			}
			return runProfile(c.Renderer, m, ds)
		},
	}
	registerDatasetFlags(cmd)

	return cmd
}

func runProfile(r *output.Renderer, m core.DataModel, ds *core.MockDataset) error {
	profiles := mockdata.Profile(ds)
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(profiles)
	}

	r.Header(1, fmt.Sprintf("Profile: %s (%d rows)", m.Name, len(ds.Rows)))
	rows := make([][]any, len(profiles))
	for i, p := range profiles {
		row := []any{p.Name, string(p.Role), string(p.Type), fmt.Sprintf("%.1f%%", p.NullRatio()*100), p.Distinct}
		if p.Numeric {
			row = append(row, formatStat(p.Min), formatStat(p.Max), formatStat(p.Mean), formatStat(p.StdDev))
		} else {
			row = append(row, "", "", "", "")
		}
		rows[i] = row
	}
	r.Table([]string{"Column", "Role", "Type", "Nulls", "Distinct", "Min", "Max", "Mean", "StdDev"}, rows)
	return nil
}

func formatStat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
