package functions

import (
	"fmt"

	"github.com/aescanero/dago-node-cel/internal/eval/cel/runtime"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/value"
)

// Group is the immutable set of overloads registered under one function
// name, in registration order.
type Group struct {
	name      string
	overloads []*Overload
	nonStrict bool
}

// NewGroup creates a strict function: error and unknown arguments are
// propagated by the caller and never reach the overloads.
func NewGroup(name string, overloads ...*Overload) *Group {
	g := &Group{name: name}
	return g.With(overloads...)
}

// NewNonStrictGroup creates a function whose overloads see error and
// unknown arguments, such as the logical operators.
func NewNonStrictGroup(name string, overloads ...*Overload) *Group {
	g := NewGroup(name, overloads...)
	g.nonStrict = true
	return g
}

// Name returns the function name.
func (g *Group) Name() string {
	return g.name
}

// Overloads returns the overloads in call order.
func (g *Group) Overloads() []*Overload {
	return g.overloads
}

// IsStrict reports whether error and unknown arguments short-circuit the call.
func (g *Group) IsStrict() bool {
	return !g.nonStrict
}

// With returns a group with the overloads added. An overload whose id, or
// whose exact signature, matches an existing entry replaces it: the old
// entry is removed and the new one appended.
func (g *Group) With(overloads ...*Overload) *Group {
	next := &Group{name: g.name, nonStrict: g.nonStrict}
	next.overloads = append([]*Overload(nil), g.overloads...)
	for _, o := range overloads {
		o = o.withDerivedID(g.name)
		sig := o.signature()
		kept := next.overloads[:0:0]
		for _, existing := range next.overloads {
			if existing.id == o.id || existing.signature() == sig {
				continue
			}
			kept = append(kept, existing)
		}
		next.overloads = append(kept, o)
	}
	return next
}

// merge folds a later registration of the same function into g.
func (g *Group) merge(later *Group) *Group {
	next := g.With(later.overloads...)
	next.nonStrict = g.nonStrict || later.nonStrict
	return next
}

// Call dispatches to the first overload, in registration order, whose
// signature accepts the arguments and whose implementation returns a
// value. A non-nil target selects member overloads and is passed as the
// first argument. Boxed arguments are unwrapped first. The result is nil
// when no overload matched. Panics in implementations are returned as
// error values for the call node.
func (g *Group) Call(rt *runtime.Context, id int64, target value.Value, args []value.Value) (result value.Value) {
	member := target != nil
	all := args
	if member {
		all = make([]value.Value, 0, len(args)+1)
		all = append(all, target)
		all = append(all, args...)
	}
	unboxed := all
	copied := false
	for i, a := range all {
		if _, ok := a.(value.Boxed); !ok {
			continue
		}
		if !copied {
			unboxed = append([]value.Value(nil), all...)
			copied = true
		}
		unboxed[i] = value.Unbox(a)
	}

	defer func() {
		if r := recover(); r != nil {
			if err, ok := r.(error); ok {
				result = value.WrapError(id, err)
				return
			}
			result = value.NewError(id, "%s: %v", g.name, fmt.Sprint(r))
		}
	}()

	for _, o := range g.overloads {
		if o.member != member || !o.matches(unboxed, g.nonStrict) {
			continue
		}
		if v := o.impl(rt, id, unboxed); v != nil {
			return v
		}
	}
	return nil
}
