package commands

import (
	"strings"

	"github.com/leapstack-labs/leapmix/internal/cli/output"
	"github.com/leapstack-labs/leapmix/pkg/formula"
	"github.com/spf13/cobra"
)

// formulaOutput is the JSON shape of the formula command.
type formulaOutput struct {
	Pipeline    formula.Pipeline `json:"pipeline"`
	Formula     string           `json:"formula"`
	Description string           `json:"description"`
	Warnings    []string         `json:"warnings,omitempty"`
}

// NewFormulaCommand creates the formula command.
func NewFormulaCommand() *cobra.Command {
	var flags pipelineFlags

	cmd := &cobra.Command{
		Use:   "formula",
		Short: "Build a transformation formula and its description",
		Long: `Build a SQL-like transformation formula from an aggregation and an ordered
list of transform steps, and explain it in plain English.

Steps are applied left to right. Available operations:
  multiply=V      multiply the result by V
  divide_by=V     divide by V (a field name is wrapped in NULLIF(V, 0))
  round=N         round to N decimal places
  coalesce=V      replace missing values with V
  cast_date       convert the result to a date
  extract_part=P  extract a date part (YEAR, MONTH, ...)`,
		Example: `  # Cost per click in currency units
  leapmix formula -s cost_micros -a SUM --step divide_by=1000000 --step divide_by=clicks --step round=2

  # Year of a date string
  leapmix formula -s order_date --step cast_date --step extract_part=YEAR -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := flags.pipeline()
			if err != nil {
				return err
			}
			return runFormula(NewCommandContext(cmd).Renderer, p)
		},
	}
	flags.register(cmd)

	return cmd
}

func runFormula(r *output.Renderer, p formula.Pipeline) error {
	out := formulaOutput{
		Pipeline:    p,
		Formula:     p.Formula(),
		Description: p.Description(),
	}
	for _, issue := range p.Validate() {
		out.Warnings = append(out.Warnings, issue.String())
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(2, "Formula"))
		r.Println()
		r.Println(output.FormatCodeBlock("sql", out.Formula))
		if out.Description != "" {
			r.Println()
			r.Println(out.Description)
		}
		if len(out.Warnings) > 0 {
			r.Println()
			r.Println(output.FormatHeader(3, "Warnings"))
			r.Println()
			for _, w := range out.Warnings {
				r.Println("- " + w)
			}
		}
	default:
		s := r.Styles()
		r.Println(s.Code.Render(out.Formula))
		if out.Description != "" {
			r.Println(s.Muted.Render(out.Description))
		}
		for _, w := range out.Warnings {
			r.Warnf("%s", w)
		}
	}
	return nil
}

// describeSteps renders steps in op=value form for listings.
func describeSteps(steps []formula.TransformStep) string {
	if len(steps) == 0 {
		return "-"
	}
	parts := make([]string, len(steps))
	for i, st := range steps {
		parts[i] = st.String()
	}
	return strings.Join(parts, " → ")
}
