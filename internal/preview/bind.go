package preview

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapmix/pkg/core"
	"github.com/leapstack-labs/leapmix/pkg/formula"
)

// QuoteIdent quotes a SQL identifier.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Bind returns a copy of p whose source and field-reference arguments that
// name a dataset column (case-insensitive) are replaced by quoted identifiers.
// Anything else is left verbatim.
func Bind(p formula.Pipeline, ds *core.MockDataset) formula.Pipeline {
	out := p
	out.Source = bindRef(p.Source, ds)
	out.Steps = make([]formula.TransformStep, len(p.Steps))
	for i, s := range p.Steps {
		switch s.Operation {
		case formula.OpDivideBy, formula.OpCoalesce, formula.OpMultiply:
			if !formula.IsNumericLiteral(s.Value) {
				s.Value = bindRef(s.Value, ds)
			}
		}
		out.Steps[i] = s
	}
	return out
}

func bindRef(ref string, ds *core.MockDataset) string {
	if i := columnIndexFold(ds, ref); i >= 0 {
		return QuoteIdent(ds.Columns[i])
	}
	return ref
}

func columnIndexFold(ds *core.MockDataset, name string) int {
	if name == "" {
		return -1
	}
	if i := ds.ColumnIndex(name); i >= 0 {
		return i
	}
	for i, c := range ds.Columns {
		if strings.EqualFold(c, name) {
			return i
		}
	}
	return -1
}

// sqlType maps a dataset column type onto a DuckDB type.
func sqlType(t core.ColumnType) string {
	switch t {
	case core.ColumnTypeDate:
		return "DATE"
	case core.ColumnTypeString:
		return "VARCHAR"
	case core.ColumnTypeInteger:
		return "BIGINT"
	default:
		return "DOUBLE"
	}
}

// CreateTableSQL renders the DDL for a dataset table.
func CreateTableSQL(table string, ds *core.MockDataset) string {
	defs := make([]string, len(ds.Columns))
	for i, c := range ds.Columns {
		defs[i] = fmt.Sprintf("%s %s", QuoteIdent(c), sqlType(ds.ColumnTypes[c]))
	}
	return fmt.Sprintf("CREATE OR REPLACE TABLE %s (%s)", QuoteIdent(table), strings.Join(defs, ", "))
}

// InsertSQL renders the parameterized INSERT for a dataset table.
func InsertSQL(table string, ds *core.MockDataset) string {
	params := make([]string, len(ds.Columns))
	for i, c := range ds.Columns {
		if ds.ColumnTypes[c] == core.ColumnTypeDate {
			params[i] = "CAST(? AS DATE)"
		} else {
			params[i] = "?"
		}
	}
	return fmt.Sprintf("INSERT INTO %s VALUES (%s)", QuoteIdent(table), strings.Join(params, ", "))
}
