package value

import (
	"strings"

	"github.com/aescanero/dago-node-cel/internal/eval/cel/types"
)

// List is an immutable, 0-indexed sequence of values.
type List interface {
	Value
	Size() int
	// Get returns the element at i, or false when i is out of range.
	Get(i int) (Value, bool)
}

type sliceList []Value

// NewList creates a list over elems. The slice must not be modified afterwards.
func NewList(elems ...Value) List {
	return sliceList(elems)
}

func (l sliceList) Type() *types.Type { return types.List }
func (l sliceList) Size() int         { return len(l) }

func (l sliceList) Get(i int) (Value, bool) {
	if i < 0 || i >= len(l) {
		return nil, false
	}
	return l[i], true
}

func (l sliceList) String() string {
	return listString(l)
}

type concatList struct {
	parts []List
	size  int
}

// Concat joins lists without copying their elements. Empty operands are
// dropped, so concatenating only empty lists yields an empty list.
func Concat(lists ...List) List {
	parts := make([]List, 0, len(lists))
	size := 0
	for _, l := range lists {
		if l.Size() == 0 {
			continue
		}
		if c, ok := l.(*concatList); ok {
			parts = append(parts, c.parts...)
		} else {
			parts = append(parts, l)
		}
		size += l.Size()
	}
	switch len(parts) {
	case 0:
		return sliceList(nil)
	case 1:
		return parts[0]
	}
	return &concatList{parts: parts, size: size}
}

func (c *concatList) Type() *types.Type { return types.List }
func (c *concatList) Size() int         { return c.size }

func (c *concatList) Get(i int) (Value, bool) {
	if i < 0 || i >= c.size {
		return nil, false
	}
	for _, p := range c.parts {
		if i < p.Size() {
			return p.Get(i)
		}
		i -= p.Size()
	}
	return nil, false
}

func (c *concatList) String() string {
	return listString(c)
}

// Elements copies the elements of l into a slice.
func Elements(l List) []Value {
	if s, ok := l.(sliceList); ok {
		return s
	}
	out := make([]Value, l.Size())
	for i := range out {
		out[i], _ = l.Get(i)
	}
	return out
}

func listString(l List) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i := 0; i < l.Size(); i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		v, _ := l.Get(i)
		sb.WriteString(Format(v))
	}
	sb.WriteByte(']')
	return sb.String()
}
