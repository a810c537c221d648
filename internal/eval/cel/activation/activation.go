package activation

import (
	"github.com/aescanero/dago-node-cel/internal/eval/cel/value"
)

// Activation resolves variable names to values during evaluation.
type Activation interface {
	// ResolveName returns the value bound to name, if any.
	ResolveName(name string) (value.Value, bool)
	// Parent returns the enclosing activation, or nil.
	Parent() Activation
}

type emptyActivation struct{}

func (emptyActivation) ResolveName(string) (value.Value, bool) { return nil, false }
func (emptyActivation) Parent() Activation                      { return nil }

// Empty returns an activation without bindings.
func Empty() Activation {
	return emptyActivation{}
}

type mapActivation struct {
	bindings map[string]any
	adapter  value.Adapter
}

// New creates an activation over host bindings. Values are converted through
// the adapter when they are first looked up. A func() any binding is called
// on lookup, which lets hosts supply values lazily.
func New(bindings map[string]any, adapter value.Adapter) Activation {
	if adapter == nil {
		adapter = value.DefaultAdapter
	}
	return &mapActivation{bindings: bindings, adapter: adapter}
}

func (a *mapActivation) ResolveName(name string) (value.Value, bool) {
	raw, ok := a.bindings[name]
	if !ok {
		return nil, false
	}
	if lazy, ok := raw.(func() any); ok {
		raw = lazy()
	}
	return a.adapter.NativeToValue(raw), true
}

func (a *mapActivation) Parent() Activation { return nil }

// VarActivation binds exactly one name over a parent.
type VarActivation struct {
	parent Activation
	name   string
	val    value.Value
}

// NewVarActivation overlays name=val onto parent.
func NewVarActivation(parent Activation, name string, val value.Value) *VarActivation {
	return &VarActivation{parent: parent, name: name, val: val}
}

func (a *VarActivation) ResolveName(name string) (value.Value, bool) {
	if name == a.name {
		return a.val, true
	}
	return a.parent.ResolveName(name)
}

func (a *VarActivation) Parent() Activation { return a.parent }

// Set rebinds the value. Loops reuse one VarActivation per iteration
// variable instead of allocating per element.
func (a *VarActivation) Set(val value.Value) {
	a.val = val
}

type hierarchicalActivation struct {
	parent Activation
	child  Activation
}

// NewHierarchicalActivation overlays child onto parent. Child bindings win.
func NewHierarchicalActivation(parent, child Activation) Activation {
	return &hierarchicalActivation{parent: parent, child: child}
}

func (a *hierarchicalActivation) ResolveName(name string) (value.Value, bool) {
	if v, ok := a.child.ResolveName(name); ok {
		return v, true
	}
	return a.parent.ResolveName(name)
}

func (a *hierarchicalActivation) Parent() Activation { return a.parent }
