package recipe

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapmix/pkg/core"
	"github.com/leapstack-labs/leapmix/pkg/formula"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// stepConstructor tags structs built by the step builtins.
const stepConstructor = starlark.String("step")

// predeclared returns the globals of a recipe. pipeline() appends to r.
func (e *Evaluator) predeclared(r *Recipe) starlark.StringDict {
	globals := starlark.StringDict{
		"pipeline":     starlark.NewBuiltin("pipeline", pipelineBuiltin(r)),
		"step":         starlark.NewBuiltin("step", genericStep),
		"multiply":     stepBuiltin(formula.OpMultiply),
		"divide_by":    stepBuiltin(formula.OpDivideBy),
		"round":        stepBuiltin(formula.OpRound),
		"coalesce":     stepBuiltin(formula.OpCoalesce),
		"cast_date":    stepBuiltin(formula.OpCastDate),
		"extract":      stepBuiltin(formula.OpExtractPart),
		"fields":       fieldsToStarlark(e.fields),
		"aggregations": aggregationList(),
	}
	return globals
}

func stepBuiltin(op formula.Operation) *starlark.Builtin {
	name := strings.ToLower(string(op))
	if op == formula.OpExtractPart {
		name = "extract"
	}
	return starlark.NewBuiltin(name, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var value starlark.Value = starlark.None
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0, &value); err != nil {
			return nil, err
		}
		v, err := toValueString(value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
		return makeStep(formula.TransformStep{Operation: op, Value: v}), nil
	})
}

// genericStep implements step(op, value=None).
func genericStep(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var op string
	var value starlark.Value = starlark.None
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "op", &op, "value?", &value); err != nil {
		return nil, err
	}
	operation, err := formula.ParseOperation(op)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	v, err := toValueString(value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return makeStep(formula.TransformStep{Operation: operation, Value: v}), nil
}

func makeStep(s formula.TransformStep) starlark.Value {
	return starlarkstruct.FromStringDict(stepConstructor, starlark.StringDict{
		"operation": starlark.String(s.Operation),
		"value":     starlark.String(s.Value),
	})
}

func pipelineBuiltin(r *Recipe) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var (
			name, source string
			aggregation  = "NONE"
			steps        *starlark.List
		)
		if err := starlark.UnpackArgs(b.Name(), args, kwargs,
			"name", &name,
			"source?", &source,
			"aggregation?", &aggregation,
			"steps?", &steps,
		); err != nil {
			return nil, err
		}
		if name == "" {
			return nil, fmt.Errorf("%s: name must not be empty", b.Name())
		}
		if _, dup := r.Pipeline(name); dup {
			return nil, fmt.Errorf("%s: duplicate pipeline %q", b.Name(), name)
		}

		agg, err := formula.ParseAggregation(aggregation)
		if err != nil {
			return nil, fmt.Errorf("%s %q: %w", b.Name(), name, err)
		}

		p := formula.Pipeline{Name: name, Source: source, Aggregation: agg}
		if steps != nil {
			for i := 0; i < steps.Len(); i++ {
				s, err := toStep(steps.Index(i))
				if err != nil {
					return nil, fmt.Errorf("%s %q: step %d: %w", b.Name(), name, i+1, err)
				}
				p.Steps = append(p.Steps, s)
			}
		}
		r.Pipelines = append(r.Pipelines, p)

		return starlarkstruct.FromStringDict(starlark.String("pipeline"), starlark.StringDict{
			"name":        starlark.String(p.Name),
			"formula":     starlark.String(p.Formula()),
			"description": starlark.String(p.Description()),
		}), nil
	}
}

// toStep accepts a step struct or an "op=value" string.
func toStep(v starlark.Value) (formula.TransformStep, error) {
	switch x := v.(type) {
	case starlark.String:
		return formula.ParseStep(string(x))
	case *starlarkstruct.Struct:
		if x.Constructor() != stepConstructor {
			return formula.TransformStep{}, fmt.Errorf("got %s, want step", x.Constructor())
		}
		op, err := structString(x, "operation")
		if err != nil {
			return formula.TransformStep{}, err
		}
		value, err := structString(x, "value")
		if err != nil {
			return formula.TransformStep{}, err
		}
		return formula.TransformStep{Operation: formula.Operation(op), Value: value}, nil
	default:
		return formula.TransformStep{}, fmt.Errorf("got %s, want step or string", v.Type())
	}
}

func structString(s *starlarkstruct.Struct, attr string) (string, error) {
	v, err := s.Attr(attr)
	if err != nil {
		return "", err
	}
	str, ok := starlark.AsString(v)
	if !ok {
		return "", fmt.Errorf("step.%s: got %s, want string", attr, v.Type())
	}
	return str, nil
}

// toValueString renders a step argument the way it appears in a formula.
func toValueString(v starlark.Value) (string, error) {
	switch x := v.(type) {
	case starlark.NoneType:
		return "", nil
	case starlark.String:
		return string(x), nil
	case starlark.Int:
		return x.String(), nil
	case starlark.Float:
		return strconv.FormatFloat(float64(x), 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("got %s, want string or number", v.Type())
	}
}

func fieldsToStarlark(fields []core.Field) *starlark.List {
	items := make([]starlark.Value, len(fields))
	for i, f := range fields {
		items[i] = starlarkstruct.FromStringDict(starlark.String("field"), starlark.StringDict{
			"name":         starlark.String(f.Name),
			"display_name": starlark.String(f.Label()),
			"data_type":    starlark.String(f.DataType),
			"source":       starlark.String(f.Source),
			"kind":         starlark.String(f.Kind),
		})
	}
	list := starlark.NewList(items)
	list.Freeze()
	return list
}

func aggregationList() *starlark.List {
	aggs := formula.Aggregations()
	items := make([]starlark.Value, len(aggs))
	for i, a := range aggs {
		items[i] = starlark.String(a)
	}
	list := starlark.NewList(items)
	list.Freeze()
	return list
}
