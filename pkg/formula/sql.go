package formula

import "fmt"

// FormatSQL renders a compiled pipeline as a SQL-like expression.
func FormatSQL(n Node) string {
	switch x := n.(type) {
	case *Column:
		return x.Name
	case *Aggregate:
		return fmt.Sprintf("%s(%s)", x.Func, FormatSQL(x.Arg))
	case *Multiply:
		return fmt.Sprintf("(%s) * %s", FormatSQL(x.Expr), x.Factor)
	case *Divide:
		if x.FieldRef {
			return fmt.Sprintf("(%s) / NULLIF(%s, 0)", FormatSQL(x.Expr), x.Divisor)
		}
		return fmt.Sprintf("(%s) / %s", FormatSQL(x.Expr), x.Divisor)
	case *Round:
		return fmt.Sprintf("ROUND(%s, %s)", FormatSQL(x.Expr), x.Places)
	case *Coalesce:
		return fmt.Sprintf("COALESCE(%s, %s)", FormatSQL(x.Expr), x.Fallback)
	case *CastDate:
		return fmt.Sprintf("CAST(%s AS DATE)", FormatSQL(x.Expr))
	case *Extract:
		return fmt.Sprintf("EXTRACT(%s FROM %s)", x.Part, FormatSQL(x.Expr))
	default:
		return ""
	}
}
