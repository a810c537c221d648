package functions

import (
	"strings"

	"github.com/aescanero/dago-node-cel/internal/eval/cel/runtime"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/types"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/value"
)

// Impl is the body of an overload. For member overloads args[0] is the
// receiver. Returning nil means the arguments did not match and the next
// overload should be tried; error values are matches.
type Impl func(rt *runtime.Context, id int64, args []value.Value) value.Value

// Overload is one signature of a function.
type Overload struct {
	id         string
	member     bool
	args       []*types.Type
	result     *types.Type
	typeParams []string
	impl       Impl
}

// OverloadOption configures an Overload.
type OverloadOption func(*Overload)

// Member marks the overload as receiver-style: target.f(args...). The
// receiver is the first argument type.
func Member() OverloadOption {
	return func(o *Overload) {
		o.member = true
	}
}

// NewOverload creates an overload. An empty id is derived from the
// signature, e.g. "@global.size(string): int" or "string.size(): int".
func NewOverload(id string, args []*types.Type, result *types.Type, impl Impl, opts ...OverloadOption) *Overload {
	o := &Overload{id: id, args: args, result: result, impl: impl}
	for _, opt := range opts {
		opt(o)
	}
	seen := map[string]bool{}
	for _, a := range args {
		collectTypeParams(a, seen, &o.typeParams)
	}
	collectTypeParams(result, seen, &o.typeParams)
	return o
}

func collectTypeParams(t *types.Type, seen map[string]bool, out *[]string) {
	if t == nil {
		return
	}
	if t.Kind() == types.TypeParamKind {
		if !seen[t.Name()] {
			seen[t.Name()] = true
			*out = append(*out, t.Name())
		}
		return
	}
	for _, p := range t.Parameters() {
		collectTypeParams(p, seen, out)
	}
}

// ID returns the overload identity used for deduplication.
func (o *Overload) ID() string {
	return o.id
}

// IsMember reports whether the overload is receiver-style.
func (o *Overload) IsMember() bool {
	return o.member
}

// ArgTypes returns the parameter types, receiver first for members.
func (o *Overload) ArgTypes() []*types.Type {
	return o.args
}

// ResultType returns the declared result type.
func (o *Overload) ResultType() *types.Type {
	return o.result
}

// TypeParams returns the names of the type parameters in the signature.
func (o *Overload) TypeParams() []string {
	return o.typeParams
}

// signature identifies overloads that accept exactly the same arguments.
func (o *Overload) signature() string {
	var sb strings.Builder
	if o.member {
		sb.WriteString("member:")
	}
	for i, a := range o.args {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(a.String())
	}
	return sb.String()
}

func (o *Overload) withDerivedID(function string) *Overload {
	if o.id != "" {
		return o
	}
	params := make([]string, len(o.args))
	for i, a := range o.args {
		params[i] = a.String()
	}
	scope := "@global"
	if o.member && len(params) > 0 {
		scope, params = params[0], params[1:]
	}
	cp := *o
	cp.id = scope + "." + function + "(" + strings.Join(params, ", ") + "): " + o.result.String()
	return &cp
}

// matches reports whether the runtime arguments fit the signature. Lenient
// matching lets errors and unknowns through for non-strict functions.
func (o *Overload) matches(args []value.Value, lenient bool) bool {
	if len(args) != len(o.args) {
		return false
	}
	for i, a := range args {
		if lenient && value.IsErrorOrUnknown(a) {
			continue
		}
		if !Accepts(o.args[i], a) {
			return false
		}
	}
	return true
}

// Accepts reports whether a runtime value is acceptable for a declared
// parameter type. Element types of containers are not inspected.
func Accepts(t *types.Type, v value.Value) bool {
	switch t.Kind() {
	case types.DynKind, types.TypeParamKind:
		return true
	case types.ListKind:
		_, ok := v.(value.List)
		return ok
	case types.MapKind:
		_, ok := v.(value.Map)
		return ok
	case types.TypeKind:
		_, ok := v.(value.TypeValue)
		return ok
	case types.RecordKind:
		r, ok := v.(value.Record)
		return ok && r.TypeName() == t.Name()
	case types.ErrorKind:
		return value.IsError(v)
	}
	return v.Type().Kind() == t.Kind()
}
