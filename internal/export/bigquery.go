package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode"

	"cloud.google.com/go/bigquery"
	"github.com/leapstack-labs/leapmix/pkg/core"
)

// ColumnName converts a dataset column name into a BigQuery column name:
// lower snake case, letters, digits and underscores only, not starting with a
// digit.
func ColumnName(name string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(name) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	out := strings.TrimSuffix(b.String(), "_")
	if out == "" {
		return "column"
	}
	if unicode.IsDigit(rune(out[0])) {
		out = "_" + out
	}
	return out
}

// columnNames returns the BigQuery names of all columns, suffixed with _2,
// _3... when sanitizing makes two names collide.
func columnNames(ds *core.MockDataset) []string {
	names := make([]string, len(ds.Columns))
	seen := make(map[string]int)
	for i, c := range ds.Columns {
		n := ColumnName(c)
		seen[n]++
		if k := seen[n]; k > 1 {
			n = fmt.Sprintf("%s_%d", n, k)
		}
		names[i] = n
	}
	return names
}

// FieldType maps a dataset column type onto a BigQuery field type.
func FieldType(t core.ColumnType) bigquery.FieldType {
	switch t {
	case core.ColumnTypeDate:
		return bigquery.DateFieldType
	case core.ColumnTypeString:
		return bigquery.StringFieldType
	case core.ColumnTypeInteger:
		return bigquery.IntegerFieldType
	case core.ColumnTypeCurrency:
		return bigquery.NumericFieldType
	default:
		return bigquery.FloatFieldType
	}
}

// BigQuerySchema describes the dataset as a BigQuery table schema. Date,
// dimension, KPI and spend columns are required; controls are nullable.
func BigQuerySchema(ds *core.MockDataset) bigquery.Schema {
	names := columnNames(ds)
	schema := make(bigquery.Schema, len(ds.Columns))
	for i, c := range ds.Columns {
		role := core.ColumnRole("")
		if i < len(ds.Roles) {
			role = ds.Roles[i]
		}
		schema[i] = &bigquery.FieldSchema{
			Name:        names[i],
			Type:        FieldType(ds.ColumnTypes[c]),
			Required:    role != core.ColumnRoleControl && role != "",
			Description: c,
		}
	}
	return schema
}

// WriteBigQuerySchema writes the schema in the JSON form accepted by
// `bq load --schema`.
func WriteBigQuerySchema(w io.Writer, ds *core.MockDataset) error {
	data, err := BigQuerySchema(ds).ToJSONFields()
	if err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// Row is one dataset row keyed by BigQuery column name.
type Row struct {
	names  []string
	values []any
	index  int
}

// Save implements bigquery.ValueSaver.
func (r *Row) Save() (map[string]bigquery.Value, string, error) {
	m := make(map[string]bigquery.Value, len(r.names))
	for i, n := range r.names {
		if i < len(r.values) && r.values[i] != nil {
			m[n] = r.values[i]
		}
	}
	return m, fmt.Sprintf("row-%d", r.index), nil
}

var _ bigquery.ValueSaver = (*Row)(nil)

// Rows wraps every dataset row as a bigquery.ValueSaver.
func Rows(ds *core.MockDataset) []*Row {
	names := columnNames(ds)
	rows := make([]*Row, len(ds.Rows))
	for i, r := range ds.Rows {
		rows[i] = &Row{names: names, values: r, index: i}
	}
	return rows
}

// NDJSON writes newline-delimited JSON objects keyed by BigQuery column
// name, the load format of `bq load --source_format=NEWLINE_DELIMITED_JSON`.
// Null cells are omitted.
func NDJSON(w io.Writer, ds *core.MockDataset) error {
	enc := json.NewEncoder(w)
	for _, r := range Rows(ds) {
		m, _, err := r.Save()
		if err != nil {
			return err
		}
		if err := enc.Encode(m); err != nil {
			return err
		}
	}
	return nil
}
