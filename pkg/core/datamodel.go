package core

import (
	"strings"
	"time"
)

// Granularity is the time grain of a data model.
type Granularity string

// Granularity constants.
const (
	GranularityDaily   Granularity = "Daily"
	GranularityWeekly  Granularity = "Weekly"
	GranularityMonthly Granularity = "Monthly"
)

// ParseGranularity converts a string to a Granularity (case-insensitive).
// Unknown values fall back to GranularityWeekly and ok=false.
func ParseGranularity(s string) (Granularity, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily", "day":
		return GranularityDaily, true
	case "weekly", "week":
		return GranularityWeekly, true
	case "monthly", "month":
		return GranularityMonthly, true
	default:
		return GranularityWeekly, false
	}
}

// Advance returns t moved forward by n steps of the granularity.
func (g Granularity) Advance(t time.Time, n int) time.Time {
	switch g {
	case GranularityDaily:
		return t.AddDate(0, 0, n)
	case GranularityMonthly:
		return t.AddDate(0, n, 0)
	default:
		return t.AddDate(0, 0, 7*n)
	}
}

// DataModelType distinguishes the kind of analysis a data model feeds.
type DataModelType string

// Data model type constants.
const (
	DataModelTypeMMM           DataModelType = "MMM"
	DataModelTypeGeoExperiment DataModelType = "GEO_EXPERIMENT"
)

// KPI source types.
const (
	KPISourceField  = "field"
	KPISourceCustom = "custom"
)

// KPI is a target metric of the model.
type KPI struct {
	// Category is the business label (e.g. "Revenue", "Conversions")
	Category string `yaml:"category" json:"category"`
	// SourceType is "field" when FieldName refers to the field catalog, "custom" otherwise
	SourceType string `yaml:"source_type" json:"source_type"`
	// FieldName is the catalog field backing the KPI (optional)
	FieldName string `yaml:"field_name,omitempty" json:"field_name,omitempty"`
}

// SpendVariable groups the spend metrics of one marketing tactic.
type SpendVariable struct {
	Tactic       string   `yaml:"tactic" json:"tactic"`
	MetricFields []string `yaml:"metric_fields" json:"metric_fields"`
}

// ControlVariable is a non-media regressor (seasonality, price, promotions...).
type ControlVariable struct {
	Name string `yaml:"name" json:"name"`
	// Type optionally forces the column type (currency, integer, decimal, string).
	// Empty means decimal.
	Type ColumnType `yaml:"type,omitempty" json:"type,omitempty"`
}

// ModelingDimension is a categorical breakdown of the dataset (Geo, Product, ...).
type ModelingDimension struct {
	Category    string `yaml:"category" json:"category"`
	Granularity string `yaml:"granularity,omitempty" json:"granularity,omitempty"`
}

// DataModel is a reusable definition of the inputs to an MMM or geo experiment.
type DataModel struct {
	ID                 string              `yaml:"id" json:"id"`
	Name               string              `yaml:"name" json:"name"`
	Type               DataModelType       `yaml:"type" json:"type"`
	Description        string              `yaml:"description,omitempty" json:"description,omitempty"`
	KPIs               []KPI               `yaml:"kpis" json:"kpis"`
	SpendVariables     []SpendVariable     `yaml:"spend_variables" json:"spend_variables"`
	ControlVariables   []ControlVariable   `yaml:"control_variables" json:"control_variables"`
	ModelingDimensions []ModelingDimension `yaml:"modeling_dimensions" json:"modeling_dimensions"`
	Granularity        Granularity         `yaml:"granularity" json:"granularity"`
}

// SpendPair is one tactic×metric combination of a data model.
type SpendPair struct {
	Tactic string
	Field  string
}

// SpendPairs returns the distinct tactic×metric pairs in declaration order.
func (m DataModel) SpendPairs() []SpendPair {
	seen := make(map[SpendPair]bool)
	var pairs []SpendPair
	for _, sv := range m.SpendVariables {
		for _, f := range sv.MetricFields {
			p := SpendPair{Tactic: sv.Tactic, Field: f}
			if seen[p] {
				continue
			}
			seen[p] = true
			pairs = append(pairs, p)
		}
	}
	return pairs
}
