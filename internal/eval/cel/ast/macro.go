package ast

// Macro names recognized in unexpanded trees.
const (
	MacroHas       = "has"
	MacroAll       = "all"
	MacroExists    = "exists"
	MacroExistsOne = "exists_one"
	MacroMap       = "map"
	MacroFilter    = "filter"
)

// Macro is a comprehension macro call such as range.all(x, pred).
type Macro struct {
	Name    string
	Range   *Expr
	IterVar string
	// Filter is the predicate of the three argument form of map.
	Filter *Expr
	// Step is the predicate, or the transform for map.
	Step *Expr
}

// AsMacro recognizes a receiver call shaped like a comprehension macro.
func AsMacro(e *Expr) (*Macro, bool) {
	if !e.IsMemberCall() || len(e.Args) < 2 || e.Args[0].Kind != IdentKind {
		return nil, false
	}
	m := &Macro{Name: e.Name, Range: e.Operand, IterVar: e.Args[0].Name}
	switch e.Name {
	case MacroAll, MacroExists, MacroExistsOne, MacroFilter:
		if len(e.Args) != 2 {
			return nil, false
		}
		m.Step = e.Args[1]
	case MacroMap:
		switch len(e.Args) {
		case 2:
			m.Step = e.Args[1]
		case 3:
			m.Filter, m.Step = e.Args[1], e.Args[2]
		default:
			return nil, false
		}
	default:
		return nil, false
	}
	return m, true
}

// AsPresenceTest rewrites has(a.f) into the equivalent test-only select,
// keeping the call id.
func AsPresenceTest(e *Expr) (*Expr, bool) {
	if e.Kind != CallKind || e.Operand != nil || e.Name != MacroHas || len(e.Args) != 1 {
		return nil, false
	}
	arg := e.Args[0]
	if arg.Kind != SelectKind || arg.TestOnly {
		return nil, false
	}
	return NewPresenceTest(e.ID, arg.Operand, arg.Name), true
}
