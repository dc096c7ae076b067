// Package catalog loads field catalogs and data model definitions from YAML.
//
// A catalog file has two top-level keys, fields and models. Unknown keys at any
// level are rejected so that typos surface instead of silently producing an
// empty model.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leapmix/pkg/core"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var seedYAML []byte

// Catalog is the set of known fields and data models.
type Catalog struct {
	Fields []core.Field     `yaml:"fields" json:"fields"`
	Models []core.DataModel `yaml:"models" json:"models"`
}

var (
	topLevelKeys = knownKeys("fields", "models")
	fieldKeys    = knownKeys("name", "display_name", "data_type", "source", "kind", "description")
	modelKeys    = knownKeys("id", "name", "type", "description", "kpis", "spend_variables",
		"control_variables", "modeling_dimensions", "granularity")
	kpiKeys       = knownKeys("category", "source_type", "field_name")
	spendKeys     = knownKeys("tactic", "metric_fields")
	controlKeys   = knownKeys("name", "type")
	dimensionKeys = knownKeys("category", "granularity")
)

func knownKeys(keys ...string) map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse(seedYAML, "seed.yaml")
	if err != nil {
		panic(fmt.Sprintf("catalog: built-in seed is invalid: %v", err))
	}
	return c
}

// Load reads a catalog file. An empty path returns the built-in catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data, path)
}

// Parse decodes catalog YAML. file is only used in error messages.
func Parse(data []byte, file string) (*Catalog, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{File: file, Message: fmt.Sprintf("invalid YAML: %v", err)}
	}
	if err := checkUnknown(raw, file); err != nil {
		return nil, err
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, &ParseError{File: file, Message: fmt.Sprintf("failed to parse catalog: %v", err)}
	}
	if err := c.normalize(file); err != nil {
		return nil, err
	}
	return &c, nil
}

func checkUnknown(raw map[string]any, file string) error {
	if err := checkKeys(raw, topLevelKeys, file, ""); err != nil {
		return err
	}
	for i, f := range asList(raw["fields"]) {
		if err := checkKeys(asMap(f), fieldKeys, file, fmt.Sprintf("fields[%d]", i)); err != nil {
			return err
		}
	}
	for i, m := range asList(raw["models"]) {
		model := asMap(m)
		path := fmt.Sprintf("models[%d]", i)
		if err := checkKeys(model, modelKeys, file, path); err != nil {
			return err
		}
		nested := []struct {
			key   string
			known map[string]bool
		}{
			{"kpis", kpiKeys},
			{"spend_variables", spendKeys},
			{"control_variables", controlKeys},
			{"modeling_dimensions", dimensionKeys},
		}
		for _, n := range nested {
			for j, item := range asList(model[n.key]) {
				if err := checkKeys(asMap(item), n.known, file, fmt.Sprintf("%s.%s[%d]", path, n.key, j)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func checkKeys(m map[string]any, known map[string]bool, file, path string) error {
	// Sorted so the reported key is stable across runs.
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !known[k] {
			return &UnknownFieldError{File: file, Path: path, Field: k}
		}
	}
	return nil
}

func asList(v any) []any {
	l, _ := v.([]any)
	return l
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// normalize validates enum values and fills defaults.
func (c *Catalog) normalize(file string) error {
	for i := range c.Fields {
		f := &c.Fields[i]
		if f.Name == "" {
			return &ParseError{File: file, Message: fmt.Sprintf("fields[%d]: name is required", i)}
		}
		f.DataType = core.DataType(strings.ToUpper(string(f.DataType)))
		switch f.DataType {
		case "", core.DataTypeCurrency, core.DataTypeFloat64, core.DataTypeNumeric, core.DataTypeInt64,
			core.DataTypeString, core.DataTypeDate, core.DataTypeBigNumeric, core.DataTypeJSON:
		default:
			return &ParseError{File: file, Message: fmt.Sprintf("fields[%d]: invalid data_type %q, must be one of: CURRENCY, FLOAT64, NUMERIC, INT64, STRING, DATE, BIGNUMERIC, JSON", i, f.DataType)}
		}
		if f.Kind == "" {
			f.Kind = core.FieldKindMetric
		}
	}

	seen := make(map[string]bool)
	for i := range c.Models {
		m := &c.Models[i]
		if m.Name == "" {
			return &ParseError{File: file, Message: fmt.Sprintf("models[%d]: name is required", i)}
		}
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		if seen[m.ID] {
			return &ParseError{File: file, Message: fmt.Sprintf("models[%d]: duplicate id %q", i, m.ID)}
		}
		seen[m.ID] = true

		switch core.DataModelType(strings.ToUpper(string(m.Type))) {
		case core.DataModelTypeMMM, "":
			m.Type = core.DataModelTypeMMM
		case core.DataModelTypeGeoExperiment:
			m.Type = core.DataModelTypeGeoExperiment
		default:
			return &ParseError{File: file, Message: fmt.Sprintf("models[%d]: invalid type %q, must be one of: MMM, GEO_EXPERIMENT", i, m.Type)}
		}

		if m.Granularity == "" {
			m.Granularity = core.GranularityWeekly
		} else {
			g, ok := core.ParseGranularity(string(m.Granularity))
			if !ok {
				return &ParseError{File: file, Message: fmt.Sprintf("models[%d]: invalid granularity %q, must be one of: Daily, Weekly, Monthly", i, m.Granularity)}
			}
			m.Granularity = g
		}

		for j := range m.KPIs {
			k := &m.KPIs[j]
			if k.SourceType == "" {
				if k.FieldName != "" {
					k.SourceType = core.KPISourceField
				} else {
					k.SourceType = core.KPISourceCustom
				}
			}
		}

		for j := range m.ControlVariables {
			cv := &m.ControlVariables[j]
			if cv.Type == "" {
				continue
			}
			t, err := core.ParseColumnType(string(cv.Type))
			if err != nil {
				return &ParseError{File: file, Message: fmt.Sprintf("models[%d].control_variables[%d]: %v", i, j, err)}
			}
			cv.Type = t
		}
	}
	return nil
}

// Model finds a data model by ID or name (case-insensitive).
func (c *Catalog) Model(ref string) (core.DataModel, bool) {
	for _, m := range c.Models {
		if m.ID == ref {
			return m, true
		}
	}
	for _, m := range c.Models {
		if strings.EqualFold(m.Name, ref) {
			return m, true
		}
	}
	return core.DataModel{}, false
}

// Field resolves a field by name or display name.
func (c *Catalog) Field(name string) (core.Field, bool) {
	return core.FindField(c.Fields, name)
}

// FieldsBySource returns the fields of one source system, or all fields when
// source is empty.
func (c *Catalog) FieldsBySource(source string) []core.Field {
	if source == "" {
		return c.Fields
	}
	var out []core.Field
	for _, f := range c.Fields {
		if strings.EqualFold(f.Source, source) {
			out = append(out, f)
		}
	}
	return out
}

// Merge returns a catalog with other's fields and models added. Entries of
// other replace same-named fields and same-ID models.
func (c *Catalog) Merge(other *Catalog) *Catalog {
	out := &Catalog{}
	fieldIdx := make(map[string]int)
	for _, f := range c.Fields {
		fieldIdx[strings.ToLower(f.Name)] = len(out.Fields)
		out.Fields = append(out.Fields, f)
	}
	modelIdx := make(map[string]int)
	for _, m := range c.Models {
		modelIdx[m.ID] = len(out.Models)
		out.Models = append(out.Models, m)
	}
	if other == nil {
		return out
	}
	for _, f := range other.Fields {
		if i, ok := fieldIdx[strings.ToLower(f.Name)]; ok {
			out.Fields[i] = f
			continue
		}
		out.Fields = append(out.Fields, f)
	}
	for _, m := range other.Models {
		if i, ok := modelIdx[m.ID]; ok {
			out.Models[i] = m
			continue
		}
		out.Models = append(out.Models, m)
	}
	return out
}

// MissingFields returns the metric fields referenced by a model that the
// catalog does not define.
func (c *Catalog) MissingFields(m core.DataModel) []string {
	var missing []string
	seen := make(map[string]bool)
	check := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		if _, ok := c.Field(name); !ok {
			missing = append(missing, name)
		}
	}
	for _, k := range m.KPIs {
		if k.SourceType == core.KPISourceField {
			check(k.FieldName)
		}
	}
	for _, p := range m.SpendPairs() {
		check(p.Field)
	}
	return missing
}

// Marshal encodes the catalog as YAML.
func (c *Catalog) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
