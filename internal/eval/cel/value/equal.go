package value

import (
	"bytes"
	"math"
	"strings"
)

// Equal implements the language's equality. Numeric values compare across
// int, uint and double by value, NaN equals nothing, containers compare
// deeply and any other tag mismatch is false.
func Equal(a, b Value) bool {
	a, b = Unbox(a), Unbox(b)
	switch a := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		o, ok := b.(Bool)
		return ok && a == o
	case String:
		o, ok := b.(String)
		return ok && a == o
	case Bytes:
		o, ok := b.(Bytes)
		return ok && bytes.Equal(a, o)
	case Int, Uint, Double:
		c, ok := compareNumbers(a, b)
		return ok && c == 0
	case Duration:
		o, ok := b.(Duration)
		return ok && a == o
	case Timestamp:
		o, ok := b.(Timestamp)
		return ok && a == o
	case TypeValue:
		o, ok := b.(TypeValue)
		return ok && a.T.Name() == o.T.Name()
	case List:
		o, ok := b.(List)
		if !ok || a.Size() != o.Size() {
			return false
		}
		for i := 0; i < a.Size(); i++ {
			x, _ := a.Get(i)
			y, _ := o.Get(i)
			if !Equal(x, y) {
				return false
			}
		}
		return true
	case Map:
		o, ok := b.(Map)
		if !ok || a.Size() != o.Size() {
			return false
		}
		for _, k := range a.Keys() {
			y, found := o.Get(k)
			if !found {
				return false
			}
			x, _ := a.Get(k)
			if !Equal(x, y) {
				return false
			}
		}
		return true
	case Record:
		o, ok := b.(Record)
		return ok && a.TypeName() == o.TypeName() && a.Equal(o)
	}
	return false
}

// Has reports whether key is present in m.
func Has(m Map, key Value) bool {
	_, ok := m.Get(key)
	return ok
}

// Compare orders two values of comparable kinds. ok is false when the
// values are not ordered, including any comparison involving NaN.
func Compare(a, b Value) (int, bool) {
	a, b = Unbox(a), Unbox(b)
	switch a := a.(type) {
	case Int, Uint, Double:
		return compareNumbers(a, b)
	case String:
		if o, ok := b.(String); ok {
			return strings.Compare(string(a), string(o)), true
		}
	case Bytes:
		if o, ok := b.(Bytes); ok {
			return bytes.Compare(a, o), true
		}
	case Bool:
		if o, ok := b.(Bool); ok {
			switch {
			case a == o:
				return 0, true
			case !bool(a):
				return -1, true
			default:
				return 1, true
			}
		}
	case Duration:
		if o, ok := b.(Duration); ok {
			return compareSecondsNanos(a.Seconds, a.Nanos, o.Seconds, o.Nanos), true
		}
	case Timestamp:
		if o, ok := b.(Timestamp); ok {
			return compareSecondsNanos(a.Seconds, a.Nanos, o.Seconds, o.Nanos), true
		}
	}
	return 0, false
}

func compareSecondsNanos(s1 int64, n1 int32, s2 int64, n2 int32) int {
	switch {
	case s1 < s2:
		return -1
	case s1 > s2:
		return 1
	case n1 < n2:
		return -1
	case n1 > n2:
		return 1
	}
	return 0
}

func compareNumbers(a, b Value) (int, bool) {
	switch a := a.(type) {
	case Int:
		switch b := b.(type) {
		case Int:
			return cmpOrdered(a, b), true
		case Uint:
			return compareIntUint(int64(a), uint64(b)), true
		case Double:
			c, ok := compareDoubleInt(float64(b), int64(a))
			return -c, ok
		}
	case Uint:
		switch b := b.(type) {
		case Int:
			return -compareIntUint(int64(b), uint64(a)), true
		case Uint:
			return cmpOrdered(a, b), true
		case Double:
			c, ok := compareDoubleUint(float64(b), uint64(a))
			return -c, ok
		}
	case Double:
		switch b := b.(type) {
		case Int:
			return compareDoubleInt(float64(a), int64(b))
		case Uint:
			return compareDoubleUint(float64(a), uint64(b))
		case Double:
			return compareDoubles(float64(a), float64(b))
		}
	}
	return 0, false
}

func cmpOrdered[T Int | Uint](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareIntUint(i int64, u uint64) int {
	if i < 0 {
		return -1
	}
	return cmpOrdered(Uint(i), Uint(u))
}

func compareDoubles(a, b float64) (int, bool) {
	if math.IsNaN(a) || math.IsNaN(b) {
		return 0, false
	}
	switch {
	case a < b:
		return -1, true
	case a > b:
		return 1, true
	}
	return 0, true
}

func compareDoubleInt(d float64, i int64) (int, bool) {
	if math.IsNaN(d) {
		return 0, false
	}
	if d < math.MinInt64 {
		return -1, true
	}
	if d >= math.MaxInt64 {
		return 1, true
	}
	t := math.Trunc(d)
	if c := cmpOrdered(Int(int64(t)), Int(i)); c != 0 {
		return c, true
	}
	return compareDoubles(d, t)
}

func compareDoubleUint(d float64, u uint64) (int, bool) {
	if math.IsNaN(d) {
		return 0, false
	}
	if d < 0 {
		return -1, true
	}
	if d >= math.MaxUint64 {
		return 1, true
	}
	t := math.Trunc(d)
	if c := cmpOrdered(Uint(uint64(t)), Uint(u)); c != 0 {
		return c, true
	}
	return compareDoubles(d, t)
}
