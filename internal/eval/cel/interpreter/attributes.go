package interpreter

import (
	"github.com/aescanero/dago-node-cel/internal/eval/cel/activation"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/runtime"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/value"
)

type fieldStep struct {
	id   int64
	name string
}

// attrPath reads one split of a dotted name: the prefix is looked up as
// a variable under each namespace candidate and the remaining segments
// are selected as fields.
type attrPath struct {
	candidates []string
	fields     []fieldStep
}

// attrNode resolves identifiers and dotted names such as a.b.c. Paths
// are tried most specific first. When no variable matches, a constant
// known at plan time (a type or enum value) is used.
type attrNode struct {
	id        int64
	name      string
	container string
	paths     []attrPath
	fallback  value.Value
}

func (n *attrNode) ID() int64 { return n.id }

func (n *attrNode) Eval(rt *runtime.Context, act activation.Activation) value.Value {
	for _, p := range n.paths {
		for _, cand := range p.candidates {
			v, ok := act.ResolveName(cand)
			if !ok {
				continue
			}
			if u, isUnknown := v.(*value.Unknown); isUnknown && len(u.IDs) == 0 {
				return value.NewUnknown(n.id)
			}
			for _, f := range p.fields {
				v = selectField(f.id, v, f.name)
			}
			return v
		}
	}
	if n.fallback != nil {
		return n.fallback
	}
	return value.IdentNotFound(n.id, n.name, n.container)
}

// selectNode selects a field of a computed operand, or tests its
// presence for has().
type selectNode struct {
	id       int64
	operand  Interpretable
	field    string
	testOnly bool
}

func (n *selectNode) ID() int64 { return n.id }

func (n *selectNode) Eval(rt *runtime.Context, act activation.Activation) value.Value {
	v := n.operand.Eval(rt, act)
	if n.testOnly {
		return testField(n.id, v, n.field)
	}
	return selectField(n.id, v, n.field)
}

func selectField(id int64, v value.Value, field string) value.Value {
	switch v := value.Unbox(v).(type) {
	case *value.Error, *value.Unknown:
		return v
	case value.Map:
		if fv, ok := v.Get(value.String(field)); ok {
			return fv
		}
		return value.NewError(id, "no such key: %s", field)
	case value.Record:
		return guard(id, func() value.Value {
			if fv, ok := v.Field(field); ok {
				return fv
			}
			return value.FieldNotFound(id, field)
		})
	default:
		return value.NewError(id, "type '%s' does not support field selection", v.Type())
	}
}

func testField(id int64, v value.Value, field string) value.Value {
	switch v := value.Unbox(v).(type) {
	case *value.Error, *value.Unknown:
		return v
	case value.Map:
		return value.Bool(value.Has(v, value.String(field)))
	case value.Record:
		return guard(id, func() value.Value {
			set, known := v.IsSet(field)
			if !known {
				return value.FieldNotFound(id, field)
			}
			return value.Bool(set)
		})
	default:
		return value.NewError(id, "invalid type for field selection: %s", v.Type())
	}
}
