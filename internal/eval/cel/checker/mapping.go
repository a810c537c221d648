package checker

import "github.com/aescanero/dago-node-cel/internal/eval/cel/types"

// Mapping substitutes type parameters with types. Parameters are keyed by
// their canonical string form, so two parameter instances with the same
// name are the same variable.
type Mapping struct {
	subs map[string]*types.Type
}

// NewMapping creates an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{subs: map[string]*types.Type{}}
}

// Add binds the type parameter from to the type to, replacing any earlier
// binding.
func (m *Mapping) Add(from, to *types.Type) {
	m.subs[from.String()] = to
}

// Find returns the type bound to the type parameter from.
func (m *Mapping) Find(from *types.Type) (*types.Type, bool) {
	t, ok := m.subs[from.String()]
	return t, ok
}

// Copy returns an independent snapshot, used to roll back speculative
// unification.
func (m *Mapping) Copy() *Mapping {
	cp := make(map[string]*types.Type, len(m.subs))
	for k, v := range m.subs {
		cp[k] = v
	}
	return &Mapping{subs: cp}
}
