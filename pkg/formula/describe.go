package formula

import (
	"fmt"
	"strings"
)

// Describe renders a compiled pipeline as a plain-English sentence.
// A raw column with no steps yields the empty string.
func Describe(n Node) string {
	clauses := describeClauses(n)
	switch len(clauses) {
	case 0:
		return ""
	case 1:
		return clauses[0] + "."
	default:
		return strings.Join(clauses, ", then ") + "."
	}
}

func describeClauses(n Node) []string {
	switch x := n.(type) {
	case nil, *Column:
		return nil
	case *Aggregate:
		return []string{aggregateClause(x.Func, columnName(x.Arg))}
	}

	prev := inner(n)
	clauses := describeClauses(prev)
	if len(clauses) == 0 {
		if col, ok := prev.(*Column); ok {
			clauses = []string{fmt.Sprintf("Take the raw value of %q", col.Name)}
		}
	}
	return append(clauses, stepClause(n))
}

func columnName(n Node) string {
	for n != nil {
		if c, ok := n.(*Column); ok {
			return c.Name
		}
		n = inner(n)
	}
	return DefaultColumn
}

func aggregateClause(agg Aggregation, col string) string {
	switch agg {
	case AggSum:
		return fmt.Sprintf("Add up all %q values", col)
	case AggAvg:
		return fmt.Sprintf("Calculate the average of %q", col)
	case AggCount:
		return fmt.Sprintf("Count how many %q values there are", col)
	case AggMin:
		return fmt.Sprintf("Find the lowest %q value", col)
	case AggMax:
		return fmt.Sprintf("Find the highest %q value", col)
	default:
		return fmt.Sprintf("Apply %s to %q", agg, col)
	}
}

func stepClause(n Node) string {
	switch x := n.(type) {
	case *Multiply:
		return "multiply the result by " + x.Factor
	case *Divide:
		if x.FieldRef {
			return fmt.Sprintf("divide the result by %q (left empty when %q is zero)", x.Divisor, x.Divisor)
		}
		return "divide the result by " + x.Divisor
	case *Round:
		switch x.Places {
		case "0":
			return "round to the nearest whole number"
		case "1":
			return "round to 1 decimal place"
		default:
			return fmt.Sprintf("round to %s decimal places", x.Places)
		}
	case *Coalesce:
		return "replace missing values with " + x.Fallback
	case *CastDate:
		return "convert the result to a date"
	case *Extract:
		return fmt.Sprintf("extract the %s from the date", strings.ToLower(x.Part))
	default:
		return ""
	}
}
