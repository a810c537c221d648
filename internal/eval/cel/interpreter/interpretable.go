package interpreter

import (
	"fmt"

	"github.com/aescanero/dago-node-cel/internal/eval/cel/activation"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/functions"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/runtime"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/value"
)

// Interpretable is an executable node of a plan. Plans are immutable and
// may be evaluated concurrently, each evaluation with its own runtime
// context.
type Interpretable interface {
	// ID returns the id of the expression node this was planned from.
	ID() int64
	// Eval computes the value of the node. Failures are returned as
	// *value.Error or *value.Unknown values, never as panics.
	Eval(rt *runtime.Context, act activation.Activation) value.Value
}

type constNode struct {
	id  int64
	val value.Value
}

func (n *constNode) ID() int64 { return n.id }

func (n *constNode) Eval(*runtime.Context, activation.Activation) value.Value {
	return n.val
}

// callNode dispatches to a function group. Strict groups never see error
// or unknown arguments.
type callNode struct {
	id     int64
	group  *functions.Group
	target Interpretable
	args   []Interpretable
}

func (n *callNode) ID() int64 { return n.id }

func (n *callNode) Eval(rt *runtime.Context, act activation.Activation) value.Value {
	if err := rt.Charge(n.id, 1); err != nil {
		return err
	}
	var target value.Value
	if n.target != nil {
		target = n.target.Eval(rt, act)
	}
	args := make([]value.Value, len(n.args))
	for i, a := range n.args {
		args[i] = a.Eval(rt, act)
	}
	if n.group.IsStrict() {
		all := args
		if target != nil {
			all = append([]value.Value{target}, args...)
		}
		if v := value.Propagate(all...); v != nil {
			return v
		}
	}
	if v := n.group.Call(rt, n.id, target, args); v != nil {
		return v
	}
	if target != nil {
		args = append([]value.Value{target}, args...)
	}
	return value.NoSuchOverload(n.id, n.group.Name(), args...)
}

type conditionalNode struct {
	id                  int64
	cond, truthy, falsy Interpretable
}

func (n *conditionalNode) ID() int64 { return n.id }

func (n *conditionalNode) Eval(rt *runtime.Context, act activation.Activation) value.Value {
	switch c := value.Unbox(n.cond.Eval(rt, act)).(type) {
	case value.Bool:
		if c {
			return n.truthy.Eval(rt, act)
		}
		return n.falsy.Eval(rt, act)
	case *value.Error, *value.Unknown:
		return c
	default:
		return value.NoSuchOverload(n.id, "_?_:_", c)
	}
}

type listNode struct {
	id    int64
	elems []Interpretable
}

func (n *listNode) ID() int64 { return n.id }

func (n *listNode) Eval(rt *runtime.Context, act activation.Activation) value.Value {
	vals := make([]value.Value, len(n.elems))
	for i, e := range n.elems {
		vals[i] = e.Eval(rt, act)
	}
	if v := value.Propagate(vals...); v != nil {
		return v
	}
	return value.NewList(vals...)
}

type mapNode struct {
	id           int64
	keys, values []Interpretable
}

func (n *mapNode) ID() int64 { return n.id }

func (n *mapNode) Eval(rt *runtime.Context, act activation.Activation) value.Value {
	all := make([]value.Value, 0, 2*len(n.keys))
	entries := make([]value.Entry, len(n.keys))
	for i := range n.keys {
		k, v := n.keys[i].Eval(rt, act), n.values[i].Eval(rt, act)
		entries[i] = value.Entry{Key: k, Value: v}
		all = append(all, k, v)
	}
	if v := value.Propagate(all...); v != nil {
		return v
	}
	m, err := value.NewMap(n.id, entries...)
	if err != nil {
		return err
	}
	return m
}

type structNode struct {
	id       int64
	typeName string
	fields   []string
	values   []Interpretable
}

func (n *structNode) ID() int64 { return n.id }

func (n *structNode) Eval(rt *runtime.Context, act activation.Activation) value.Value {
	vals := make([]value.Value, len(n.values))
	fields := make(map[string]value.Value, len(n.values))
	for i, v := range n.values {
		vals[i] = v.Eval(rt, act)
		fields[n.fields[i]] = vals[i]
	}
	if v := value.Propagate(vals...); v != nil {
		return v
	}
	reg := rt.Registry()
	if reg == nil {
		return value.TypeNotFound(n.id, n.typeName)
	}
	return guard(n.id, func() value.Value {
		return reg.NewRecord(n.id, n.typeName, fields)
	})
}

// guard converts a panic in host code into an error value for node id.
func guard(id int64, fn func() value.Value) (result value.Value) {
	defer func() {
		if r := recover(); r != nil {
			if err, ok := r.(error); ok {
				result = value.WrapError(id, err)
				return
			}
			result = value.NewError(id, "%s", fmt.Sprint(r))
		}
	}()
	return fn()
}
