package core

import "strings"

// DataType is the warehouse type of a catalog field.
type DataType string

// Data type constants.
const (
	DataTypeCurrency   DataType = "CURRENCY"
	DataTypeFloat64    DataType = "FLOAT64"
	DataTypeNumeric    DataType = "NUMERIC"
	DataTypeInt64      DataType = "INT64"
	DataTypeString     DataType = "STRING"
	DataTypeDate       DataType = "DATE"
	DataTypeBigNumeric DataType = "BIGNUMERIC"
	DataTypeJSON       DataType = "JSON"
)

// ColumnType maps the data type onto the column type of a generated dataset.
// Unknown data types map to currency.
func (d DataType) ColumnType() ColumnType {
	switch DataType(strings.ToUpper(string(d))) {
	case DataTypeInt64:
		return ColumnTypeInteger
	case DataTypeFloat64, DataTypeNumeric, DataTypeBigNumeric:
		return ColumnTypeDecimal
	case DataTypeString, DataTypeJSON:
		return ColumnTypeString
	case DataTypeDate:
		return ColumnTypeDate
	default:
		return ColumnTypeCurrency
	}
}

// FieldKind tells metrics from dimensions.
type FieldKind string

// Field kinds.
const (
	FieldKindMetric    FieldKind = "metric"
	FieldKindDimension FieldKind = "dimension"
)

// Field is one entry of the metric/dimension catalog.
type Field struct {
	Name        string    `yaml:"name" json:"name"`
	DisplayName string    `yaml:"display_name" json:"display_name"`
	DataType    DataType  `yaml:"data_type" json:"data_type"`
	Source      string    `yaml:"source" json:"source"`
	Kind        FieldKind `yaml:"kind,omitempty" json:"kind,omitempty"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
}

// Label returns the display name, or the name when no display name is set.
func (f Field) Label() string {
	if f.DisplayName != "" {
		return f.DisplayName
	}
	return f.Name
}

// FindField resolves a field by name or display name (case-insensitive).
func FindField(fields []Field, name string) (Field, bool) {
	if name == "" {
		return Field{}, false
	}
	for _, f := range fields {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	for _, f := range fields {
		if strings.EqualFold(f.DisplayName, name) {
			return f, true
		}
	}
	return Field{}, false
}
