package commands

import (
	"fmt"

	"github.com/leapstack-labs/leapmix/internal/cli/output"
	"github.com/leapstack-labs/leapmix/internal/preview"
	"github.com/leapstack-labs/leapmix/pkg/formula"
	"github.com/spf13/cobra"
)

// PreviewOptions holds options for the preview command.
type PreviewOptions struct {
	Pipeline string
	Table    string
	GroupBy  []string
	Limit    int
}

// NewPreviewCommand creates the preview command.
func NewPreviewCommand() *cobra.Command {
	var flags pipelineFlags
	opts := &PreviewOptions{}

	cmd := &cobra.Command{
		Use:   "preview <model>",
		Short: "Evaluate a pipeline against generated data",
		Long: `Generate a dataset for a data model, load it into DuckDB and run a
transformation pipeline over it.

The pipeline comes from --source/--agg/--step, or from a recipe with
--pipeline. Source and field references are matched to dataset columns
case-insensitively.`,
		Example: `  # Cost per click per week
  leapmix preview mmm-retail-weekly -s "Search Cost Micros" --step divide_by=1000000

  # Total sessions by DMA using a recipe pipeline
  leapmix preview geo-lift-social --pipeline total_sessions --group-by DMA`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeModels,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd, args, &flags, opts)
		},
	}
	flags.register(cmd)
	registerDatasetFlags(cmd)
	cmd.Flags().StringVarP(&opts.Pipeline, "pipeline", "p", "", "Use a named pipeline from the recipes directory")
	cmd.Flags().StringVar(&opts.Table, "table", preview.DefaultTable, "Table name to load the dataset into")
	cmd.Flags().StringSliceVarP(&opts.GroupBy, "group-by", "g", nil, "Group an aggregated result by these columns")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", preview.DefaultLimit, "Maximum result rows")

	return cmd
}

func runPreview(cmd *cobra.Command, args []string, flags *pipelineFlags, opts *PreviewOptions) error {
	ctx := cmd.Context()
	c := NewCommandContext(cmd)

	p, err := flags.pipeline()
	if err != nil {
		return err
	}
	if opts.Pipeline != "" {
		if p, err = findRecipePipeline(c, opts.Pipeline); err != nil {
			return err
		}
	}

	_, _, ds, err := c.generateForArgs(args)
	if err != nil {
		return err
	}

	db, err := preview.Open(ctx, c.Cfg.Database, c.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := db.Load(ctx, opts.Table, ds); err != nil {
		return err
	}
	res, err := db.Evaluate(ctx, ds, preview.Request{
		Table:    opts.Table,
		Pipeline: p,
		GroupBy:  opts.GroupBy,
		Limit:    opts.Limit,
	})
	if err != nil {
		return err
	}
	return renderPreview(c.Renderer, res)
}

// findRecipePipeline looks name up across every recipe in the configured
// recipes directory.
func findRecipePipeline(c *CommandContext, name string) (formula.Pipeline, error) {
	recipes, err := loadRecipes(c, []string{c.Cfg.Recipes})
	if err != nil {
		return formula.Pipeline{}, err
	}
	for _, r := range recipes {
		if p, ok := r.Pipeline(name); ok {
			return p, nil
		}
	}
	return formula.Pipeline{}, fmt.Errorf("pipeline %q not found in %s", name, c.Cfg.Recipes)
}

func renderPreview(r *output.Renderer, res *preview.Result) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		if res.Rows == nil {
			res.Rows = [][]any{}
		}
		return r.JSON(res)
	case output.ModeMarkdown:
		r.Println(output.FormatCodeBlock("sql", res.SQL))
		r.Println()
	default:
		r.Println(r.Styles().Code.Render(res.SQL))
		r.Println()
	}
	r.Table(res.Columns, res.Rows)
	return nil
}
