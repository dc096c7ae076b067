package formula

import (
	"errors"
	"fmt"
	"strings"
)

// Parse errors.
var (
	ErrUnknownAggregation = errors.New("unknown aggregation")
	ErrUnknownOperation   = errors.New("unknown operation")
)

// Aggregation is a reduction applied across the rows of the source column.
type Aggregation string

// Aggregations.
const (
	AggNone  Aggregation = "NONE"
	AggSum   Aggregation = "SUM"
	AggAvg   Aggregation = "AVG"
	AggCount Aggregation = "COUNT"
	AggMin   Aggregation = "MIN"
	AggMax   Aggregation = "MAX"
)

// Aggregations returns every aggregation in menu order.
func Aggregations() []Aggregation {
	return []Aggregation{AggNone, AggSum, AggAvg, AggCount, AggMin, AggMax}
}

// IsNone reports whether the aggregation leaves values untouched.
// The empty string counts as NONE.
func (a Aggregation) IsNone() bool {
	return a == AggNone || a == ""
}

// Label returns a short human label for menus and help output.
func (a Aggregation) Label() string {
	switch a {
	case AggSum:
		return "Sum"
	case AggAvg:
		return "Average"
	case AggCount:
		return "Count"
	case AggMin:
		return "Minimum"
	case AggMax:
		return "Maximum"
	default:
		return "None (raw value)"
	}
}

// ParseAggregation converts a string to an Aggregation (case-insensitive).
func ParseAggregation(s string) (Aggregation, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "NONE", "RAW":
		return AggNone, nil
	case "SUM":
		return AggSum, nil
	case "AVG", "AVERAGE", "MEAN":
		return AggAvg, nil
	case "COUNT":
		return AggCount, nil
	case "MIN":
		return AggMin, nil
	case "MAX":
		return AggMax, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAggregation, s)
	}
}

// Operation is a scalar post-processing step.
type Operation string

// Operations.
const (
	OpMultiply    Operation = "MULTIPLY"
	OpDivideBy    Operation = "DIVIDE_BY"
	OpRound       Operation = "ROUND"
	OpCoalesce    Operation = "COALESCE"
	OpCastDate    Operation = "CAST_DATE"
	OpExtractPart Operation = "EXTRACT_PART"
)

// Operations returns every operation in menu order.
func Operations() []Operation {
	return []Operation{OpMultiply, OpDivideBy, OpRound, OpCoalesce, OpCastDate, OpExtractPart}
}

// Label returns a short human label for menus and help output.
func (o Operation) Label() string {
	switch o {
	case OpMultiply:
		return "Multiply by"
	case OpDivideBy:
		return "Divide by"
	case OpRound:
		return "Round to decimals"
	case OpCoalesce:
		return "Replace nulls with"
	case OpCastDate:
		return "Cast to date"
	case OpExtractPart:
		return "Extract date part"
	default:
		return string(o)
	}
}

// TakesValue reports whether the operation uses its step value.
func (o Operation) TakesValue() bool {
	return o != OpCastDate
}

// DefaultValue is the value used when a step is left empty.
func (o Operation) DefaultValue() string {
	switch o {
	case OpMultiply, OpDivideBy:
		return "1"
	case OpRound, OpCoalesce:
		return "0"
	case OpExtractPart:
		return "YEAR"
	default:
		return ""
	}
}

// ParseOperation converts a string to an Operation (case-insensitive).
func ParseOperation(s string) (Operation, error) {
	switch strings.ToUpper(strings.TrimSpace(strings.ReplaceAll(s, "-", "_"))) {
	case "MULTIPLY", "MUL", "*":
		return OpMultiply, nil
	case "DIVIDE_BY", "DIVIDE", "DIV", "/":
		return OpDivideBy, nil
	case "ROUND":
		return OpRound, nil
	case "COALESCE", "FILL":
		return OpCoalesce, nil
	case "CAST_DATE", "DATE":
		return OpCastDate, nil
	case "EXTRACT_PART", "EXTRACT":
		return OpExtractPart, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownOperation, s)
	}
}

// TransformStep is one post-processing operation with its argument.
type TransformStep struct {
	Operation Operation `json:"operation" yaml:"operation"`
	Value     string    `json:"value,omitempty" yaml:"value,omitempty"`
}

// String renders the step in the op=value form accepted by ParseStep.
func (s TransformStep) String() string {
	name := strings.ToLower(string(s.Operation))
	if s.Value == "" || !s.Operation.TakesValue() {
		return name
	}
	return name + "=" + s.Value
}

// ParseStep parses "op", "op=value", "op:value" or "op value".
func ParseStep(s string) (TransformStep, error) {
	s = strings.TrimSpace(s)
	name, value := s, ""
	if i := strings.IndexAny(s, "=: "); i >= 0 {
		name, value = s[:i], strings.TrimSpace(s[i+1:])
	}
	op, err := ParseOperation(name)
	if err != nil {
		return TransformStep{}, err
	}
	return TransformStep{Operation: op, Value: value}, nil
}

// ParseSteps parses each element with ParseStep.
func ParseSteps(in []string) ([]TransformStep, error) {
	steps := make([]TransformStep, 0, len(in))
	for i, s := range in {
		step, err := ParseStep(s)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		steps = append(steps, step)
	}
	return steps, nil
}
