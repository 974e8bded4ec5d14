package hcl_adapter

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	"github.com/zclconf/go-cty/cty/gocty"
)

// functions is the table available to every expression in a sweep file.
func functions() map[string]function.Function {
	return map[string]function.Function{
		"abs":      stdlib.AbsoluteFunc,
		"ceil":     stdlib.CeilFunc,
		"concat":   stdlib.ConcatFunc,
		"distinct": stdlib.DistinctFunc,
		"flatten":  stdlib.FlattenFunc,
		"floor":    stdlib.FloorFunc,
		"format":   stdlib.FormatFunc,
		"join":     stdlib.JoinFunc,
		"length":   stdlib.LengthFunc,
		"linspace": linspaceFunc,
		"log":      stdlib.LogFunc,
		"lower":    stdlib.LowerFunc,
		"max":      stdlib.MaxFunc,
		"min":      stdlib.MinFunc,
		"pow":      stdlib.PowFunc,
		"range":    stdlib.RangeFunc,
		"reverse":  stdlib.ReverseListFunc,
		"upper":    stdlib.UpperFunc,
	}
}

// linspaceFunc returns num evenly spaced numbers from start to stop inclusive.
var linspaceFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "start", Type: cty.Number},
		{Name: "stop", Type: cty.Number},
		{Name: "num", Type: cty.Number},
	},
	Type: function.StaticReturnType(cty.List(cty.Number)),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		var start, stop float64
		var num int
		if err := gocty.FromCtyValue(args[0], &start); err != nil {
			return cty.NilVal, function.NewArgError(0, err)
		}
		if err := gocty.FromCtyValue(args[1], &stop); err != nil {
			return cty.NilVal, function.NewArgError(1, err)
		}
		if err := gocty.FromCtyValue(args[2], &num); err != nil {
			return cty.NilVal, function.NewArgError(2, err)
		}
		if num < 1 {
			return cty.NilVal, function.NewArgErrorf(2, "num must be at least 1, got %d", num)
		}
		if num == 1 {
			return cty.ListVal([]cty.Value{cty.NumberFloatVal(start)}), nil
		}
		step := (stop - start) / float64(num-1)
		vals := make([]cty.Value, num)
		for i := range vals {
			vals[i] = cty.NumberFloatVal(start + float64(i)*step)
		}
		vals[num-1] = cty.NumberFloatVal(stop)
		return cty.ListVal(vals), nil
	},
})

// evalContext builds the context expressions are evaluated in: the function
// table plus user variables under `var`.
func (l *Loader) evalContext() (*hcl.EvalContext, error) {
	vars := l.Variables
	if vars == nil {
		vars = map[string]string{}
	}
	varVal, err := NewConverter().ToCtyValue(vars)
	if err != nil {
		return nil, fmt.Errorf("invalid variables: %w", err)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"var": varVal},
		Functions: functions(),
	}, nil
}
