package value

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aescanero/dago-node-cel/internal/eval/cel/types"
)

func mustMap(t *testing.T, entries ...Entry) Map {
	t.Helper()
	m, err := NewMap(1, entries...)
	require.Nil(t, err)
	return m
}

func TestEqual_Reflexive(t *testing.T) {
	samples := []Value{
		NullValue, True, Int(-3), Uint(7), Double(2.5), String("abc"), Bytes("xyz"),
		DurationOf(time.Second), Timestamp{Seconds: 10},
		TypeValue{T: types.Int},
		NewList(Int(1), String("a")),
		mustMap(t, Entry{Key: String("k"), Value: NewList()}),
	}
	for _, v := range samples {
		assert.True(t, Equal(v, v), "%v should equal itself", v)
	}
	nan := Double(math.NaN())
	assert.False(t, Equal(nan, nan))
	assert.False(t, Equal(NewList(nan), NewList(nan)))
}

func TestEqual_CrossNumeric(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"int uint", Int(1), Uint(1), true},
		{"int double", Int(1), Double(1.0), true},
		{"uint double", Uint(3), Double(3), true},
		{"negative int uint", Int(-1), Uint(math.MaxUint64), false},
		{"fractional", Int(1), Double(1.5), false},
		{"large uint double", Uint(math.MaxUint64), Double(math.MaxUint64), false},
		{"int string", Int(1), String("1"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
			assert.Equal(t, tt.want, Equal(tt.b, tt.a))
		})
	}
}

func TestEqual_Containers(t *testing.T) {
	assert.True(t, Equal(NewList(Int(1), Uint(2)), NewList(Double(1), Int(2))))
	assert.False(t, Equal(NewList(Int(1)), NewList(Int(1), Int(2))))

	a := mustMap(t, Entry{Key: Int(1), Value: String("a")}, Entry{Key: String("b"), Value: True})
	b := mustMap(t, Entry{Key: String("b"), Value: True}, Entry{Key: Uint(1), Value: String("a")})
	c := mustMap(t, Entry{Key: String("b"), Value: True}, Entry{Key: Int(2), Value: String("a")})
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))

	assert.True(t, Equal(TypeValue{T: types.NewList(types.Int)}, TypeValue{T: types.List}))
	assert.False(t, Equal(Bytes("ab"), Bytes("abc")))
	assert.False(t, Equal(NullValue, False))
}

func TestMap_CrossNumericKeys(t *testing.T) {
	m := mustMap(t,
		Entry{Key: Int(1), Value: String("one")},
		Entry{Key: Int(-2), Value: String("minus two")},
		Entry{Key: String("s"), Value: True},
	)

	for _, key := range []Value{Int(1), Uint(1), Double(1.0)} {
		v, ok := m.Get(key)
		require.True(t, ok, "lookup %v", key)
		assert.Equal(t, String("one"), v)
	}
	v, ok := m.Get(Double(-2))
	require.True(t, ok)
	assert.Equal(t, String("minus two"), v)

	_, ok = m.Get(Double(1.5))
	assert.False(t, ok)
	_, ok = m.Get(Uint(2))
	assert.False(t, ok)
	assert.True(t, Has(m, String("s")))
	assert.Equal(t, []Value{Int(1), Int(-2), String("s")}, m.Keys())
}

func TestNewMap_Errors(t *testing.T) {
	_, err := NewMap(4, Entry{Key: Int(1), Value: NullValue}, Entry{Key: Uint(1), Value: NullValue})
	require.NotNil(t, err)
	assert.Equal(t, int64(4), err.ID)
	assert.Contains(t, err.Message, "map key conflict")

	_, err = NewMap(5, Entry{Key: Double(1), Value: NullValue})
	require.NotNil(t, err)
	assert.Equal(t, "unsupported key type", err.Message)
}

func TestConcat(t *testing.T) {
	l := Concat(NewList(Int(1), Int(2), Int(3)), NewList(), NewList(Int(4), Int(5)))
	want := []Value{Int(1), Int(2), Int(3), Int(4), Int(5)}
	require.Equal(t, len(want), l.Size())
	for i, w := range want {
		got, ok := l.Get(i)
		require.True(t, ok)
		assert.Equal(t, w, got)
	}
	_, ok := l.Get(5)
	assert.False(t, ok)
	_, ok = l.Get(-1)
	assert.False(t, ok)

	empty := Concat(NewList(), NewList())
	assert.Equal(t, 0, empty.Size())

	nested := Concat(l, NewList(Int(6)))
	assert.Equal(t, 6, nested.Size())
	assert.Equal(t, append(want, Int(6)), Elements(nested))
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		seconds int64
		nanos   int32
	}{
		{"300ms", 0, 300000000},
		{"-1.5h", -5400, 0},
		{"2h45m", 9900, 0},
		{"0", 0, 0},
		{"-0", 0, 0},
		{"1.5s", 1, 500000000},
		{"-1.5s", -1, -500000000},
		{"1us", 0, 1000},
		{"1µs", 0, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := ParseDuration(tt.in)
			require.NoError(t, err)
			assert.Equal(t, Duration{Seconds: tt.seconds, Nanos: tt.nanos}, d)
		})
	}
}

func TestParseDuration_Errors(t *testing.T) {
	for _, in := range []string{"", "1", "1d", "ms", "1.5", "abc", "--1s", "10000000000000h", "1\u03bcs", "2s1\u03bcs"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseDuration(in)
			require.Error(t, err)
			assert.ErrorContains(t, err, "invalid duration")
			assert.NotContains(t, err.Error(), "time:")
		})
	}

	long := make([]byte, MaxDurationStringLength+1)
	for i := range long {
		long[i] = '1'
	}
	_, err := ParseDuration(string(long) + "s")
	assert.ErrorContains(t, err, "too long")
}

func TestNewDuration_Canonical(t *testing.T) {
	d, err := NewDuration(1, -1)
	require.NoError(t, err)
	assert.Equal(t, Duration{Seconds: 0, Nanos: 999999999}, d)

	d, err = NewDuration(-1, 1)
	require.NoError(t, err)
	assert.Equal(t, Duration{Seconds: 0, Nanos: -999999999}, d)

	_, err = NewDuration(math.MaxInt64/1000000000+1, 0)
	assert.ErrorIs(t, err, ErrDurationRange)
}

func TestNewTimestamp_Canonical(t *testing.T) {
	ts, err := NewTimestamp(10, -1)
	require.NoError(t, err)
	assert.Equal(t, Timestamp{Seconds: 9, Nanos: 999999999}, ts)

	ts, err = NewTimestamp(-1, 1500000000)
	require.NoError(t, err)
	assert.Equal(t, Timestamp{Seconds: 0, Nanos: 500000000}, ts)

	_, err = NewTimestamp(MaxTimestampSeconds+1, 0)
	assert.ErrorIs(t, err, ErrTimestampRange)
	_, err = NewTimestamp(MinTimestampSeconds, -1)
	assert.ErrorIs(t, err, ErrTimestampRange)

	ts, err = ParseTimestamp("2009-02-13T23:31:30Z")
	require.NoError(t, err)
	assert.Equal(t, int64(1234567890), ts.Seconds)
}

func TestTimestamp_Arithmetic(t *testing.T) {
	ts := Timestamp{Seconds: 100, Nanos: 500000000}
	later, err := ts.AddDuration(Duration{Seconds: 1, Nanos: 600000000})
	require.NoError(t, err)
	assert.Equal(t, Timestamp{Seconds: 102, Nanos: 100000000}, later)

	diff, err := later.Sub(ts)
	require.NoError(t, err)
	assert.Equal(t, Duration{Seconds: 1, Nanos: 600000000}, diff)

	_, err = Timestamp{Seconds: MaxTimestampSeconds}.AddDuration(Duration{Seconds: 1})
	assert.ErrorIs(t, err, ErrTimestampRange)
}

func TestCompare(t *testing.T) {
	c, ok := Compare(Int(-1), Uint(0))
	require.True(t, ok)
	assert.Equal(t, -1, c)

	c, ok = Compare(Double(2.5), Int(2))
	require.True(t, ok)
	assert.Equal(t, 1, c)

	c, ok = Compare(Uint(3), Double(3.25))
	require.True(t, ok)
	assert.Equal(t, -1, c)

	_, ok = Compare(Double(math.NaN()), Int(1))
	assert.False(t, ok)

	_, ok = Compare(String("a"), Int(1))
	assert.False(t, ok)

	c, ok = Compare(False, True)
	require.True(t, ok)
	assert.Equal(t, -1, c)
}

func TestNativeToValue(t *testing.T) {
	v := NativeToValue(nil, map[string]any{
		"n":    3,
		"list": []string{"a", "b"},
		"when": time.Unix(5, 0),
		"ptr":  (*int)(nil),
	})
	m, ok := v.(Map)
	require.True(t, ok)

	n, _ := m.Get(String("n"))
	assert.Equal(t, Int(3), n)

	l, _ := m.Get(String("list"))
	assert.True(t, Equal(NewList(String("a"), String("b")), l))

	when, _ := m.Get(String("when"))
	assert.Equal(t, Timestamp{Seconds: 5}, when)

	ptr, _ := m.Get(String("ptr"))
	assert.Equal(t, NullValue, ptr)

	native, err := ToNative(m)
	require.NoError(t, err)
	assert.Equal(t, int64(3), native.(map[string]any)["n"])
}

func TestErrors(t *testing.T) {
	merged := MergeErrors(DivideByZero(1), ModulusByZero(2))
	assert.Equal(t, int64(1), merged.ID)
	assert.Len(t, merged.Additional(), 1)
	assert.Equal(t, "divide by zero; modulus by zero", merged.Error())

	assert.Equal(t,
		"found no matching overload for 'size' applied to '(int, string)'",
		NoSuchOverload(3, "size", Int(1), String("x")).Message,
	)

	u := NewUnknown(7)
	assert.Same(t, u, Propagate(Int(1), DivideByZero(1), u))
	assert.Nil(t, Propagate(Int(1), String("x")))
}
