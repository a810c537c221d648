package interpreter

import (
	"github.com/aescanero/dago-node-cel/internal/eval/cel/activation"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/ast"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/runtime"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/value"
)

// rangeItems returns the elements of a list or the keys of a map.
func rangeItems(id int64, v value.Value) ([]value.Value, value.Value) {
	switch r := value.Unbox(v).(type) {
	case *value.Error, *value.Unknown:
		return nil, r
	case value.List:
		return value.Elements(r), nil
	case value.Map:
		return r.Keys(), nil
	default:
		return nil, value.NewError(id, "expression of type '%s' cannot be range of a comprehension (must be list, map, or dynamic)", r.Type())
	}
}

// iterate runs fn once per item with the iteration variable bound. It
// charges one step per iteration and stops when the evaluation is
// interrupted. fn ends the loop by returning false; its value, possibly
// nil, is then returned.
func iterate(rt *runtime.Context, id int64, items []value.Value, iter *activation.VarActivation, fn func() (value.Value, bool)) value.Value {
	for _, item := range items {
		if err := rt.Interrupted(id); err != nil {
			return err
		}
		if err := rt.Charge(id, 1); err != nil {
			return err
		}
		iter.Set(item)
		if v, more := fn(); !more {
			return v
		}
	}
	return nil
}

// foldNode is the generic comprehension.
type foldNode struct {
	id            int64
	iterVar       string
	accuVar       string
	iterRange     Interpretable
	accuInit      Interpretable
	loopCondition Interpretable
	loopStep      Interpretable
	result        Interpretable
}

func (n *foldNode) ID() int64 { return n.id }

func (n *foldNode) Eval(rt *runtime.Context, act activation.Activation) value.Value {
	items, failed := rangeItems(n.iterRange.ID(), n.iterRange.Eval(rt, act))
	if failed != nil {
		return failed
	}
	// The loop variables form one child scope over the enclosing bindings;
	// the iteration variable shadows the accumulator.
	accu := activation.NewVarActivation(activation.Empty(), n.accuVar, n.accuInit.Eval(rt, act))
	iter := activation.NewVarActivation(accu, n.iterVar, nil)
	loop := activation.NewHierarchicalActivation(act, iter)
	if v := iterate(rt, n.id, items, iter, func() (value.Value, bool) {
		if c, ok := value.Unbox(n.loopCondition.Eval(rt, loop)).(value.Bool); ok && !bool(c) {
			return nil, false
		}
		accu.Set(n.loopStep.Eval(rt, loop))
		return nil, true
	}); v != nil {
		return v
	}
	return n.result.Eval(rt, activation.NewHierarchicalActivation(act, accu))
}

// quantifierNode implements the all, exists and exists_one macros.
type quantifierNode struct {
	id        int64
	macro     string
	iterVar   string
	iterRange Interpretable
	predicate Interpretable
}

func (n *quantifierNode) ID() int64 { return n.id }

func (n *quantifierNode) Eval(rt *runtime.Context, act activation.Activation) value.Value {
	items, failed := rangeItems(n.iterRange.ID(), n.iterRange.Eval(rt, act))
	if failed != nil {
		return failed
	}
	iter := activation.NewVarActivation(act, n.iterVar, nil)
	var pending []value.Value
	count := 0
	decisive := value.Bool(n.macro == ast.MacroExists)
	if v := iterate(rt, n.id, items, iter, func() (value.Value, bool) {
		p := value.Unbox(n.predicate.Eval(rt, iter))
		b, ok := p.(value.Bool)
		switch {
		case !ok && n.macro == ast.MacroExistsOne:
			return notBool(n.predicate.ID(), n.macro, p), false
		case !ok:
			pending = append(pending, notBool(n.predicate.ID(), n.macro, p))
		case n.macro == ast.MacroExistsOne:
			if b {
				count++
			}
		case b == decisive:
			return b, false
		}
		return nil, true
	}); v != nil {
		return v
	}
	if n.macro == ast.MacroExistsOne {
		return value.Bool(count == 1)
	}
	if v := value.Propagate(pending...); v != nil {
		return v
	}
	return !decisive
}

// collectNode implements the map and filter macros.
type collectNode struct {
	id        int64
	macro     string
	iterVar   string
	iterRange Interpretable
	filter    Interpretable
	transform Interpretable
}

func (n *collectNode) ID() int64 { return n.id }

func (n *collectNode) Eval(rt *runtime.Context, act activation.Activation) value.Value {
	items, failed := rangeItems(n.iterRange.ID(), n.iterRange.Eval(rt, act))
	if failed != nil {
		return failed
	}
	iter := activation.NewVarActivation(act, n.iterVar, nil)
	var out []value.Value
	if v := iterate(rt, n.id, items, iter, func() (value.Value, bool) {
		if n.filter != nil {
			p := value.Unbox(n.filter.Eval(rt, iter))
			keep, ok := p.(value.Bool)
			if !ok {
				return notBool(n.filter.ID(), n.macro, p), false
			}
			if !keep {
				return nil, true
			}
		}
		if n.transform == nil {
			v, _ := iter.ResolveName(n.iterVar)
			out = append(out, v)
			return nil, true
		}
		v := n.transform.Eval(rt, iter)
		if value.IsErrorOrUnknown(v) {
			return v, false
		}
		out = append(out, v)
		return nil, true
	}); v != nil {
		return v
	}
	return value.NewList(out...)
}

func notBool(id int64, macro string, v value.Value) value.Value {
	if value.IsErrorOrUnknown(v) {
		return v
	}
	return value.NewError(id, "%s predicate must return bool, got %s", macro, v.Type())
}
