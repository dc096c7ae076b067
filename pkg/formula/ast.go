package formula

import (
	"regexp"
	"strings"
)

// DefaultColumn is the column reference used when no source column is given.
const DefaultColumn = "column"

// numericLiteral matches a bare non-negative number.
var numericLiteral = regexp.MustCompile(`^\d+(\.\d+)?$`)

// IsNumericLiteral reports whether v is a bare non-negative number.
func IsNumericLiteral(v string) bool {
	return numericLiteral.MatchString(v)
}

// Node is an element of a compiled pipeline. Each node wraps the node it is
// applied to, so the outermost node is the last step.
type Node interface {
	node()
}

// Column references the source column.
type Column struct {
	Name string
}

// Aggregate reduces its argument across rows.
type Aggregate struct {
	Func Aggregation
	Arg  Node
}

// Multiply scales the expression by a factor.
type Multiply struct {
	Expr   Node
	Factor string
}

// Divide divides the expression. FieldRef is set when the divisor is not a
// numeric literal and must be guarded against zero.
type Divide struct {
	Expr     Node
	Divisor  string
	FieldRef bool
}

// Round rounds to a number of decimal places.
type Round struct {
	Expr   Node
	Places string
}

// Coalesce replaces nulls with a fallback.
type Coalesce struct {
	Expr     Node
	Fallback string
}

// CastDate converts the expression to a date.
type CastDate struct {
	Expr Node
}

// Extract pulls a date part out of the expression.
type Extract struct {
	Expr Node
	Part string
}

func (*Column) node()    {}
func (*Aggregate) node() {}
func (*Multiply) node()  {}
func (*Divide) node()    {}
func (*Round) node()     {}
func (*Coalesce) node()  {}
func (*CastDate) node()  {}
func (*Extract) node()   {}

// Compile turns an aggregation and step list into a node chain.
// All defaults are resolved here so renderers never make decisions of their own.
// Steps with an unknown operation are skipped.
func Compile(agg Aggregation, steps []TransformStep, source string) Node {
	if strings.TrimSpace(source) == "" {
		source = DefaultColumn
	}

	var n Node = &Column{Name: source}
	if !agg.IsNone() {
		n = &Aggregate{Func: agg, Arg: n}
	}

	for _, s := range steps {
		v := stepValue(s)
		switch s.Operation {
		case OpMultiply:
			n = &Multiply{Expr: n, Factor: v}
		case OpDivideBy:
			n = &Divide{Expr: n, Divisor: v, FieldRef: !IsNumericLiteral(v)}
		case OpRound:
			n = &Round{Expr: n, Places: v}
		case OpCoalesce:
			n = &Coalesce{Expr: n, Fallback: v}
		case OpCastDate:
			n = &CastDate{Expr: n}
		case OpExtractPart:
			n = &Extract{Expr: n, Part: v}
		}
	}
	return n
}

func stepValue(s TransformStep) string {
	if strings.TrimSpace(s.Value) == "" {
		return s.Operation.DefaultValue()
	}
	return s.Value
}

// inner returns the node a step is applied to, or nil for leaves.
func inner(n Node) Node {
	switch x := n.(type) {
	case *Aggregate:
		return x.Arg
	case *Multiply:
		return x.Expr
	case *Divide:
		return x.Expr
	case *Round:
		return x.Expr
	case *Coalesce:
		return x.Expr
	case *CastDate:
		return x.Expr
	case *Extract:
		return x.Expr
	default:
		return nil
	}
}
