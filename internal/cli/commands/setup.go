package commands

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/leapstack-labs/leapmix/internal/catalog"
	"github.com/leapstack-labs/leapmix/internal/cli/config"
	"github.com/leapstack-labs/leapmix/internal/cli/output"
	"github.com/leapstack-labs/leapmix/pkg/core"
	"github.com/leapstack-labs/leapmix/pkg/formula"
	"github.com/leapstack-labs/leapmix/pkg/mockdata"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext builds the context from the command's config and logger.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := config.GetConfig(cmd.Context())
	logger := config.GetLogger(cmd.Context())
	mode, err := output.ParseMode(cfg.Output)
	if err != nil {
		mode = output.ModeAuto
	}
	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode),
	}
}

// Catalog returns the built-in catalog merged with the configured one.
func (c *CommandContext) Catalog() (*catalog.Catalog, error) {
	base := catalog.Default()
	if c.Cfg.Catalog == "" {
		return base, nil
	}
	user, err := catalog.Load(c.Cfg.Catalog)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("loaded catalog",
		slog.String("path", c.Cfg.Catalog),
		slog.Int("fields", len(user.Fields)),
		slog.Int("models", len(user.Models)))
	return base.Merge(user), nil
}

// Model resolves a data model by ID or name.
func (c *CommandContext) Model(cat *catalog.Catalog, ref string) (core.DataModel, error) {
	if m, ok := cat.Model(ref); ok {
		return m, nil
	}
	ids := make([]string, len(cat.Models))
	for i, m := range cat.Models {
		ids[i] = m.ID
	}
	sort.Strings(ids)
	return core.DataModel{}, fmt.Errorf("unknown data model %q (available: %s)", ref, strings.Join(ids, ", "))
}

// Generate builds a mock dataset for model using the configured row count,
// seed, granularity and null rate.
func (c *CommandContext) Generate(cat *catalog.Catalog, model core.DataModel) *core.MockDataset {
	if c.Cfg.Granularity != "" {
		if g, ok := core.ParseGranularity(c.Cfg.Granularity); ok {
			model.Granularity = g
		}
	}

	opts := []mockdata.Option{mockdata.WithNullRate(c.Cfg.NullRate)}
	if c.Cfg.SeedSet {
		opts = append(opts, mockdata.WithSeed(c.Cfg.Seed))
	}

	start := time.Now()
	ds := mockdata.Generate(model, cat.Fields, c.Cfg.Rows, opts...)
	c.Logger.Debug("generated dataset",
		slog.String("model", model.ID),
		slog.Int("rows", len(ds.Rows)),
		slog.Int("columns", len(ds.Columns)),
		slog.Duration("took", time.Since(start)))

	for _, name := range cat.MissingFields(model) {
		c.Logger.Warn("field not in catalog, using defaults", slog.String("field", name))
	}
	return ds
}

// pipelineFlags are the flags shared by commands that build a pipeline.
type pipelineFlags struct {
	source      string
	aggregation string
	steps       []string
}

func (f *pipelineFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.source, "source", "s", "", "Source field or column")
	cmd.Flags().StringVarP(&f.aggregation, "agg", "a", "NONE", "Aggregation (NONE|SUM|AVG|COUNT|MIN|MAX)")
	cmd.Flags().StringArrayVar(&f.steps, "step", nil, "Transform step as op=value, repeatable (e.g. divide_by=clicks)")

	_ = cmd.RegisterFlagCompletionFunc("agg", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		aggs := formula.Aggregations()
		out := make([]string, len(aggs))
		for i, a := range aggs {
			out[i] = string(a) + "\t" + a.Label()
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("step", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		ops := formula.Operations()
		out := make([]string, len(ops))
		for i, o := range ops {
			name := strings.ToLower(string(o))
			if o.TakesValue() {
				name += "="
			}
			out[i] = name + "\t" + o.Label()
		}
		return out, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
	})
}

func (f *pipelineFlags) pipeline() (formula.Pipeline, error) {
	agg, err := formula.ParseAggregation(f.aggregation)
	if err != nil {
		return formula.Pipeline{}, err
	}
	steps, err := formula.ParseSteps(f.steps)
	if err != nil {
		return formula.Pipeline{}, err
	}
	return formula.Pipeline{Source: f.source, Aggregation: agg, Steps: steps}, nil
}

// completeModels completes data model IDs from the built-in catalog and the
// configured one.
func completeModels(cmd *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	cat, err := NewCommandContext(cmd).Catalog()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	out := make([]string, len(cat.Models))
	for i, m := range cat.Models {
		out[i] = m.ID + "\t" + m.Name
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

// registerDatasetFlags adds the generation flags. Their values are read
// through the config layers, so only flags set on the command line apply.
func registerDatasetFlags(cmd *cobra.Command) {
	cmd.Flags().Int("rows", config.DefaultRows, "Number of rows to generate")
	cmd.Flags().Int64("seed", 0, "Random seed for reproducible data")
	cmd.Flags().String("granularity", "", "Override the model granularity (Daily|Weekly|Monthly)")
	cmd.Flags().Float64("null-rate", config.DefaultNullRate, "Fraction of control cells left empty")

	_ = cmd.RegisterFlagCompletionFunc("granularity", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{string(core.GranularityDaily), string(core.GranularityWeekly), string(core.GranularityMonthly)}, cobra.ShellCompDirectiveNoFileComp
	})
}

// generateForArgs resolves the model named by args[0] and generates its
// dataset.
func (c *CommandContext) generateForArgs(args []string) (*catalog.Catalog, core.DataModel, *core.MockDataset, error) {
	cat, err := c.Catalog()
	if err != nil {
		return nil, core.DataModel{}, nil, err
	}
	m, err := c.Model(cat, args[0])
	if err != nil {
		return nil, core.DataModel{}, nil, err
	}
	return cat, m, c.Generate(cat, m), nil
}
