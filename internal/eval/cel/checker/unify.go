package checker

import "github.com/aescanero/dago-node-cel/internal/eval/cel/types"

// isAssignable returns the updated mapping when a value of type t1 can be
// used where t2 is expected. m is left untouched.
func isAssignable(m *Mapping, t1, t2 *types.Type) (*Mapping, bool) {
	cp := m.Copy()
	if assignable(cp, t1, t2) {
		return cp, true
	}
	return nil, false
}

func isAssignableList(m *Mapping, l1, l2 []*types.Type) (*Mapping, bool) {
	cp := m.Copy()
	if assignableList(cp, l1, l2) {
		return cp, true
	}
	return nil, false
}

func assignableList(m *Mapping, l1, l2 []*types.Type) bool {
	if len(l1) != len(l2) {
		return false
	}
	for i := range l1 {
		if !assignable(m, l1[i], l2[i]) {
			return false
		}
	}
	return true
}

func assignable(m *Mapping, t1, t2 *types.Type) bool {
	if t2.Kind() == types.TypeParamKind {
		valid, hasSub := validSubstitution(m, t1, t2)
		if valid {
			return true
		}
		if hasSub {
			return false
		}
	}
	if t1.Kind() == types.TypeParamKind {
		valid, _ := validSubstitution(m, t2, t1)
		return valid
	}
	if isDynOrError(t1) || isDynOrError(t2) {
		return true
	}
	if t1.Kind() == types.NullKind {
		return nullable(t2)
	}
	if t2.Kind() == types.NullKind {
		return nullable(t1)
	}
	switch t1.Kind() {
	case types.ListKind:
		return t2.Kind() == types.ListKind && assignable(m, t1.Elem(), t2.Elem())
	case types.MapKind:
		return t2.Kind() == types.MapKind &&
			assignable(m, t1.Key(), t2.Key()) &&
			assignable(m, t1.Value(), t2.Value())
	case types.TypeKind:
		return t2.Kind() == types.TypeKind
	}
	return t1.Equal(t2)
}

// validSubstitution reports whether t2, or its current substitution, can
// stand for t1, and whether t2 already had a substitution.
func validSubstitution(m *Mapping, t1, t2 *types.Type) (valid, hasSub bool) {
	if t1.Equal(t2) {
		return true, true
	}
	if sub, ok := m.Find(t2); ok {
		if t1.Equal(sub) {
			return true, true
		}
		if assignable(m, t1, sub) {
			general := mostGeneral(t1, sub)
			if notReferencedIn(m, t2, general) {
				m.Add(t2, general)
			}
			return true, true
		}
		return false, true
	}
	if notReferencedIn(m, t2, t1) {
		m.Add(t2, t1)
		return true, false
	}
	return false, false
}

// notReferencedIn is the occurs check.
func notReferencedIn(m *Mapping, t, within *types.Type) bool {
	if t.Equal(within) {
		return false
	}
	if within.Kind() == types.TypeParamKind {
		sub, ok := m.Find(within)
		if !ok {
			return true
		}
		return notReferencedIn(m, t, sub)
	}
	for _, p := range within.Parameters() {
		if !notReferencedIn(m, t, p) {
			return false
		}
	}
	return true
}

// mostGeneral returns the more general of two types known to unify.
func mostGeneral(t1, t2 *types.Type) *types.Type {
	if lessSpecific(t1, t2) {
		return t1
	}
	return t2
}

func lessSpecific(t1, t2 *types.Type) bool {
	if t1.IsDyn() || t1.Kind() == types.TypeKind {
		return true
	}
	if t2.IsDyn() || t2.Kind() == types.TypeKind {
		return false
	}
	if t1.Kind() != t2.Kind() {
		return false
	}
	switch t1.Kind() {
	case types.ListKind:
		return lessSpecific(t1.Elem(), t2.Elem())
	case types.MapKind:
		return lessSpecific(t1.Key(), t2.Key()) && lessSpecific(t1.Value(), t2.Value())
	}
	return t1.Equal(t2)
}

// substitute replaces bound type parameters throughout t. Unbound ones
// become dyn when toDyn is set.
func substitute(m *Mapping, t *types.Type, toDyn bool) *types.Type {
	if sub, ok := m.Find(t); ok {
		return substitute(m, sub, toDyn)
	}
	if t.Kind() == types.TypeParamKind {
		if toDyn {
			return types.Dyn
		}
		return t
	}
	params := t.Parameters()
	if len(params) == 0 {
		return t
	}
	subs := make([]*types.Type, len(params))
	for i, p := range params {
		subs[i] = substitute(m, p, toDyn)
	}
	return t.WithParams(subs...)
}

func isDynOrError(t *types.Type) bool {
	return t.Kind() == types.DynKind || t.Kind() == types.ErrorKind
}

func nullable(t *types.Type) bool {
	switch t.Kind() {
	case types.NullKind, types.RecordKind, types.DurationKind, types.TimestampKind:
		return true
	}
	return false
}
