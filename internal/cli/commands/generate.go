package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/leapstack-labs/leapmix/internal/cli/output"
	"github.com/leapstack-labs/leapmix/internal/export"
	"github.com/leapstack-labs/leapmix/pkg/core"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// GenerateOptions holds options for the generate command.
type GenerateOptions struct {
	Export   string
	Format   string
	BQSchema string
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand() *cobra.Command {
	opts := &GenerateOptions{}

	cmd := &cobra.Command{
		Use:   "generate <model>",
		Short: "Generate a mock dataset for a data model",
		Long: `Generate a synthetic dataset shaped like a data model: a date column,
one column per modeling dimension, KPI, tactic×metric spend pair and
control variable.

Without --export or --format the rows are printed as a table.`,
		Example: `  # Preview 10 weekly rows
  leapmix generate mmm-retail-weekly --rows 10

  # Reproducible daily data as an Excel workbook
  leapmix generate mmm-retail-weekly --granularity daily --seed 42 --export data.xlsx

  # Stream CSV and write the matching BigQuery schema
  leapmix generate geo-lift-social --format csv --bq-schema schema.json > data.csv`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeModels,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, args, opts)
		},
	}
	registerDatasetFlags(cmd)
	cmd.Flags().StringVar(&opts.Export, "export", "", "Write the dataset to a file (format from extension)")
	cmd.Flags().StringVar(&opts.Format, "format", "", "Export format: csv, json, ndjson, xlsx")
	cmd.Flags().StringVar(&opts.BQSchema, "bq-schema", "", "Write a BigQuery JSON schema for the dataset")

	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		formats := export.Formats()
		out := make([]string, len(formats))
		for i, f := range formats {
			out[i] = string(f)
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runGenerate(cmd *cobra.Command, args []string, opts *GenerateOptions) error {
	c := NewCommandContext(cmd)
	_, m, ds, err := c.generateForArgs(args)
	if err != nil {
		return err
	}

	var format export.Format
	if opts.Format != "" {
		if format, err = export.ParseFormat(opts.Format); err != nil {
			return err
		}
	}

	// ds is read-only from here on.
	var g errgroup.Group
	if opts.BQSchema != "" {
		g.Go(func() error { return writeBigQuerySchema(opts.BQSchema, ds) })
	}
	if opts.Export != "" {
		g.Go(func() error { return export.WriteFile(opts.Export, ds, format) })
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if opts.BQSchema != "" {
		_, _ = fmt.Fprintf(c.Renderer.ErrWriter(), "Wrote BigQuery schema to %s\n", opts.BQSchema)
	}
	switch {
	case opts.Export != "":
		s := c.Renderer.Styles()
		c.Renderer.Println(s.Success.Render(fmt.Sprintf("Wrote %d rows × %d columns to %s", len(ds.Rows), len(ds.Columns), opts.Export)))
		return nil
	case format != "":
		if format == export.FormatXLSX && c.Renderer.IsTTY() {
			return errors.New("refusing to write xlsx to a terminal, use --export")
		}
		return export.Write(c.Renderer.Writer(), ds, format)
	}

	return renderDataset(c.Renderer, m, ds)
}

func writeBigQuerySchema(path string, ds *core.MockDataset) (err error) {
	f, err := os.Create(path) //nolint:gosec // G304: path is chosen by the user
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return export.WriteBigQuerySchema(f, ds)
}

func renderDataset(r *output.Renderer, m core.DataModel, ds *core.MockDataset) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(ds)
	}
	r.Header(1, fmt.Sprintf("%s (%s)", m.Name, m.Granularity))
	r.Table(ds.Columns, ds.Rows)
	return nil
}
