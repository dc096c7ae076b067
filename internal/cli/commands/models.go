package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapmix/internal/catalog"
	"github.com/leapstack-labs/leapmix/internal/cli/output"
	"github.com/leapstack-labs/leapmix/pkg/core"
	"github.com/leapstack-labs/leapmix/pkg/mockdata"
	"github.com/spf13/cobra"
)

// NewModelsCommand creates the models command.
func NewModelsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models [model]",
		Short: "List data models or show one in detail",
		Long: `List the data models of the catalog, or show the KPIs, spend variables,
controls, dimensions and generated column layout of one model.

Models come from the built-in catalog plus the file set with --catalog.`,
		Example: `  leapmix models
  leapmix models mmm-retail-weekly -o json`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: completeModels,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewCommandContext(cmd)
			cat, err := c.Catalog()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				return listModels(c.Renderer, cat)
			}
			m, err := c.Model(cat, args[0])
			if err != nil {
				return err
			}
			return showModel(c.Renderer, cat, m)
		},
	}
	return cmd
}

func listModels(r *output.Renderer, cat *catalog.Catalog) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(cat.Models)
	}

	r.Header(1, fmt.Sprintf("Data Models (%d total)", len(cat.Models)))
	rows := make([][]any, len(cat.Models))
	for i, m := range cat.Models {
		rows[i] = []any{m.ID, m.Name, string(m.Type), string(m.Granularity), len(m.KPIs), len(m.SpendPairs()), len(m.ControlVariables)}
	}
	r.Table([]string{"ID", "Name", "Type", "Granularity", "KPIs", "Spend", "Controls"}, rows)
	return nil
}

// modelOutput is the JSON shape of a single model.
type modelOutput struct {
	Model   core.DataModel    `json:"model"`
	Columns []mockdata.Column `json:"columns"`
	Missing []string          `json:"missing_fields,omitempty"`
}

func showModel(r *output.Renderer, cat *catalog.Catalog, m core.DataModel) error {
	out := modelOutput{
		Model:   m,
		Columns: mockdata.Schema(m, cat.Fields),
		Missing: cat.MissingFields(m),
	}
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}

	r.Header(1, m.Name)
	r.KeyValue("ID", m.ID)
	r.KeyValue("Type", string(m.Type))
	r.KeyValue("Granularity", string(m.Granularity))
	if m.Description != "" {
		r.KeyValue("Description", m.Description)
	}
	r.Println()

	r.Header(2, "Columns")
	rows := make([][]any, len(out.Columns))
	for i, c := range out.Columns {
		rows[i] = []any{i, c.Name, string(c.Role), string(c.Type)}
	}
	r.Table([]string{"#", "Column", "Role", "Type"}, rows)

	if len(out.Missing) > 0 {
		r.Warnf("fields not in catalog: %s", strings.Join(out.Missing, ", "))
	}
	return nil
}

// NewFieldsCommand creates the fields command.
func NewFieldsCommand() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "fields",
		Short: "List catalog fields",
		Long:  `List the metric and dimension fields known to the catalog.`,
		Example: `  leapmix fields
  leapmix fields --source "Google Ads"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := NewCommandContext(cmd)
			cat, err := c.Catalog()
			if err != nil {
				return err
			}
			return listFields(c.Renderer, cat.FieldsBySource(source))
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "Only list fields of this source system")

	return cmd
}

func listFields(r *output.Renderer, fields []core.Field) error {
	if r.EffectiveMode() == output.ModeJSON {
		if fields == nil {
			fields = []core.Field{}
		}
		return r.JSON(fields)
	}

	r.Header(1, fmt.Sprintf("Fields (%d total)", len(fields)))
	rows := make([][]any, len(fields))
	for i, f := range fields {
		rows[i] = []any{f.Name, f.Label(), string(f.DataType), string(f.DataType.ColumnType()), f.Source, string(f.Kind)}
	}
	r.Table([]string{"Name", "Display Name", "Data Type", "Column Type", "Source", "Kind"}, rows)
	return nil
}
