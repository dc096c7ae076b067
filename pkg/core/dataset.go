package core

import (
	"fmt"
	"strings"
)

// ColumnType is the logical type of a generated dataset column.
type ColumnType string

// Column types.
const (
	ColumnTypeDate     ColumnType = "date"
	ColumnTypeString   ColumnType = "string"
	ColumnTypeCurrency ColumnType = "currency"
	ColumnTypeInteger  ColumnType = "integer"
	ColumnTypeDecimal  ColumnType = "decimal"
)

// IsNumeric reports whether cells of this type hold numbers.
func (t ColumnType) IsNumeric() bool {
	return t == ColumnTypeCurrency || t == ColumnTypeInteger || t == ColumnTypeDecimal
}

// ParseColumnType converts a string to a ColumnType.
func ParseColumnType(s string) (ColumnType, error) {
	switch ColumnType(strings.ToLower(strings.TrimSpace(s))) {
	case ColumnTypeDate:
		return ColumnTypeDate, nil
	case ColumnTypeString:
		return ColumnTypeString, nil
	case ColumnTypeCurrency:
		return ColumnTypeCurrency, nil
	case ColumnTypeInteger:
		return ColumnTypeInteger, nil
	case ColumnTypeDecimal, "":
		return ColumnTypeDecimal, nil
	default:
		return "", fmt.Errorf("unknown column type %q", s)
	}
}

// ColumnRole is the part a column plays in the data model.
type ColumnRole string

// Column roles.
const (
	ColumnRoleDate      ColumnRole = "date"
	ColumnRoleDimension ColumnRole = "dimension"
	ColumnRoleKPI       ColumnRole = "kpi"
	ColumnRoleSpend     ColumnRole = "spend"
	ColumnRoleControl   ColumnRole = "control"
)

// MockDataset is a rectangular synthetic dataset.
//
// Every row has exactly len(Columns) cells, in column order. A cell is a
// string, float64, int64 or nil.
type MockDataset struct {
	Columns     []string              `json:"columns"`
	ColumnTypes map[string]ColumnType `json:"column_types"`
	Roles       []ColumnRole          `json:"roles"`
	Rows        [][]any               `json:"rows"`
}

// ColumnIndex returns the position of the named column, or -1.
func (d *MockDataset) ColumnIndex(name string) int {
	for i, c := range d.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// TypeAt returns the column type at index i.
func (d *MockDataset) TypeAt(i int) ColumnType {
	if i < 0 || i >= len(d.Columns) {
		return ""
	}
	return d.ColumnTypes[d.Columns[i]]
}

// IndicesByRole returns the indices of columns with the given role.
func (d *MockDataset) IndicesByRole(role ColumnRole) []int {
	var out []int
	for i, r := range d.Roles {
		if r == role {
			out = append(out, i)
		}
	}
	return out
}

// SpendColumnIndices returns the indices of all spend columns.
func (d *MockDataset) SpendColumnIndices() []int {
	return d.IndicesByRole(ColumnRoleSpend)
}

// Float64Column extracts column i as floats. Null or non-numeric cells are
// reported through the valid mask.
func (d *MockDataset) Float64Column(i int) (values []float64, valid []bool) {
	values = make([]float64, len(d.Rows))
	valid = make([]bool, len(d.Rows))
	for r, row := range d.Rows {
		if i < 0 || i >= len(row) {
			continue
		}
		if f, ok := ToFloat64(row[i]); ok {
			values[r] = f
			valid[r] = true
		}
	}
	return values, valid
}

// ToFloat64 converts a numeric cell to float64.
func ToFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}
