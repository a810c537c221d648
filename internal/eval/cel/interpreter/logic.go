package interpreter

import (
	"github.com/aescanero/dago-node-cel/internal/eval/cel/activation"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/runtime"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/stdlib"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/value"
)

// logicNode evaluates && (decisive false) or || (decisive true) over two
// or more operands, left to right, stopping at the first decisive
// operand. Errors and unknowns in other operands are only reported when
// nothing decides the result.
type logicNode struct {
	id       int64
	function string
	decisive value.Bool
	operands []Interpretable
}

func (n *logicNode) ID() int64 { return n.id }

func (n *logicNode) Eval(rt *runtime.Context, act activation.Activation) value.Value {
	vals := make([]value.Value, 0, len(n.operands))
	for _, op := range n.operands {
		v := op.Eval(rt, act)
		if b, ok := value.Unbox(v).(value.Bool); ok && b == n.decisive {
			return b
		}
		vals = append(vals, v)
	}
	return stdlib.Logic(n.id, n.function, n.decisive, vals...)
}

// balance rebuilds a flattened chain of operands as a balanced tree of
// binary nodes so evaluation depth grows with the log of the chain length.
// ops[i] is the id of the operator between leaves[i] and leaves[i+1], and
// each node keeps the id of the operator it was built from. The split
// matches the parser's, so a parsed chain keeps its shape.
func balance(ops []int64, function string, decisive value.Bool, leaves []Interpretable) Interpretable {
	var build func(lo, hi int) Interpretable
	build = func(lo, hi int) Interpretable {
		if lo == hi {
			return leaves[lo]
		}
		mid := (lo + hi) / 2
		return &logicNode{
			id:       ops[mid],
			function: function,
			decisive: decisive,
			operands: []Interpretable{build(lo, mid), build(mid+1, hi)},
		}
	}
	return build(0, len(leaves)-1)
}
