// Package formula builds transformation pipelines for mapped metrics.
//
// A pipeline is an aggregation over a source column followed by an ordered
// list of scalar steps. Compile turns it into a node chain; FormatSQL and
// Describe render that chain as a SQL-like expression and as an English
// sentence respectively, so both outputs always agree.
package formula

import (
	"fmt"
	"strconv"
	"strings"
)

// BuildFormula returns the SQL-like expression for a pipeline.
func BuildFormula(agg Aggregation, steps []TransformStep, source string) string {
	return FormatSQL(Compile(agg, steps, source))
}

// DescribePipeline returns the plain-English description of a pipeline.
func DescribePipeline(agg Aggregation, steps []TransformStep, source string) string {
	return Describe(Compile(agg, steps, source))
}

// Pipeline bundles the inputs of BuildFormula and DescribePipeline.
type Pipeline struct {
	Name        string          `json:"name,omitempty" yaml:"name,omitempty"`
	Source      string          `json:"source" yaml:"source"`
	Aggregation Aggregation     `json:"aggregation" yaml:"aggregation"`
	Steps       []TransformStep `json:"steps,omitempty" yaml:"steps,omitempty"`
}

// Compile returns the node chain for the pipeline.
func (p Pipeline) Compile() Node {
	return Compile(p.Aggregation, p.Steps, p.Source)
}

// Formula returns the SQL-like expression.
func (p Pipeline) Formula() string {
	return FormatSQL(p.Compile())
}

// Description returns the plain-English description.
func (p Pipeline) Description() string {
	return Describe(p.Compile())
}

// WithStep returns a copy of the pipeline with step appended.
func (p Pipeline) WithStep(step TransformStep) Pipeline {
	steps := make([]TransformStep, len(p.Steps), len(p.Steps)+1)
	copy(steps, p.Steps)
	p.Steps = append(steps, step)
	return p
}

// WithoutStep returns a copy of the pipeline with the step at index i removed.
// Out-of-range indices return the pipeline unchanged.
func (p Pipeline) WithoutStep(i int) Pipeline {
	if i < 0 || i >= len(p.Steps) {
		return p
	}
	steps := make([]TransformStep, 0, len(p.Steps)-1)
	steps = append(steps, p.Steps[:i]...)
	p.Steps = append(steps, p.Steps[i+1:]...)
	return p
}

// Issue is a non-fatal problem found by Validate.
type Issue struct {
	// Step is the 1-based step number, or 0 for the pipeline itself
	Step    int
	Message string
}

func (i Issue) String() string {
	if i.Step == 0 {
		return i.Message
	}
	return fmt.Sprintf("step %d: %s", i.Step, i.Message)
}

var dateParts = map[string]bool{
	"YEAR": true, "QUARTER": true, "MONTH": true, "WEEK": true,
	"DAY": true, "DAYOFWEEK": true, "DAYOFYEAR": true, "HOUR": true,
}

// Validate reports values that will produce a questionable formula.
// The formula is still generated; Validate only explains what looks wrong.
func (p Pipeline) Validate() []Issue {
	var issues []Issue
	if strings.TrimSpace(p.Source) == "" {
		issues = append(issues, Issue{Message: fmt.Sprintf("no source column, using %q", DefaultColumn)})
	}
	if !p.Aggregation.IsNone() {
		if _, err := ParseAggregation(string(p.Aggregation)); err != nil {
			issues = append(issues, Issue{Message: err.Error()})
		}
	}

	for i, s := range p.Steps {
		n := i + 1
		v := strings.TrimSpace(s.Value)
		switch s.Operation {
		case OpMultiply:
			if v != "" && !isNumber(v) {
				issues = append(issues, Issue{Step: n, Message: fmt.Sprintf("multiplier %q is not a number", v)})
			}
		case OpDivideBy:
			if IsNumericLiteral(v) {
				if f, _ := strconv.ParseFloat(v, 64); f == 0 {
					issues = append(issues, Issue{Step: n, Message: "division by literal zero"})
				}
			}
		case OpRound:
			if v != "" {
				if _, err := strconv.Atoi(v); err != nil {
					issues = append(issues, Issue{Step: n, Message: fmt.Sprintf("decimal places %q is not an integer", v)})
				}
			}
		case OpExtractPart:
			if v != "" && !dateParts[strings.ToUpper(v)] {
				issues = append(issues, Issue{Step: n, Message: fmt.Sprintf("unknown date part %q", v)})
			}
		case OpCoalesce, OpCastDate:
		default:
			issues = append(issues, Issue{Step: n, Message: fmt.Sprintf("unknown operation %q, step ignored", s.Operation)})
		}
	}
	return issues
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
