package value

import (
	"math"
	"strings"

	"github.com/aescanero/dago-node-cel/internal/eval/cel/types"
)

// Map is an immutable association from keys to values. Numerically equal
// int, uint and double keys address the same entry.
type Map interface {
	Value
	Size() int
	// Get returns the value for key, or false when absent.
	Get(key Value) (Value, bool)
	// Keys returns the keys in insertion order.
	Keys() []Value
}

// Keys are normalized on insertion so lookups stay a single hash probe:
// non-negative integers of either tag share natKey, negative ones negKey.
type natKey uint64
type negKey int64

// mapKeyOf returns the canonical index key of v. ok is false for values
// that cannot be map keys; exact is false for doubles, which may be used
// for lookups but never for insertion.
func mapKeyOf(v Value) (key any, ok bool, exact bool) {
	switch v := Unbox(v).(type) {
	case String:
		return string(v), true, true
	case Bool:
		return bool(v), true, true
	case Int:
		if v < 0 {
			return negKey(v), true, true
		}
		return natKey(v), true, true
	case Uint:
		return natKey(v), true, true
	case Double:
		f := float64(v)
		if f != math.Trunc(f) || math.IsInf(f, 0) {
			return nil, false, false
		}
		if f >= 0 && f < 18446744073709551616.0 {
			return natKey(uint64(f)), true, false
		}
		if f < 0 && f >= -9223372036854775808.0 {
			return negKey(int64(f)), true, false
		}
	}
	return nil, false, false
}

type hashMap struct {
	index map[any]int
	keys  []Value
	vals  []Value
}

// Entry is a key/value pair used to build maps.
type Entry struct {
	Key   Value
	Value Value
}

// NewMap builds a map. Keys must be int, uint, bool or string and unique
// under numeric equality.
func NewMap(id int64, entries ...Entry) (Map, *Error) {
	m := &hashMap{
		index: make(map[any]int, len(entries)),
		keys:  make([]Value, 0, len(entries)),
		vals:  make([]Value, 0, len(entries)),
	}
	for _, e := range entries {
		k, ok, exact := mapKeyOf(e.Key)
		if !ok || !exact {
			return nil, UnsupportedKeyType(id)
		}
		if _, dup := m.index[k]; dup {
			return nil, MapKeyConflict(id, e.Key)
		}
		m.index[k] = len(m.keys)
		m.keys = append(m.keys, Unbox(e.Key))
		m.vals = append(m.vals, e.Value)
	}
	return m, nil
}

// EmptyMap is a map without entries.
var EmptyMap Map = &hashMap{index: map[any]int{}}

func (m *hashMap) Type() *types.Type { return types.Map }
func (m *hashMap) Size() int         { return len(m.keys) }
func (m *hashMap) Keys() []Value     { return m.keys }

func (m *hashMap) Get(key Value) (Value, bool) {
	k, ok, _ := mapKeyOf(key)
	if !ok {
		return nil, false
	}
	i, ok := m.index[k]
	if !ok {
		return nil, false
	}
	return m.vals[i], true
}

func (m *hashMap) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(Format(k))
		sb.WriteString(": ")
		sb.WriteString(Format(m.vals[i]))
	}
	sb.WriteByte('}')
	return sb.String()
}

// IsValidKey reports whether v can be used as a map key.
func IsValidKey(v Value) bool {
	_, ok, exact := mapKeyOf(v)
	return ok && exact
}
