package value

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/aescanero/dago-node-cel/internal/eval/cel/types"
)

const nanosPerSecond = 1_000_000_000

// Timestamp bounds: 0001-01-01T00:00:00Z through 9999-12-31T23:59:59.999999999Z.
const (
	MinTimestampSeconds int64 = -62135596800
	MaxTimestampSeconds int64 = 253402300799
)

// MaxDurationStringLength caps duration strings before any parsing happens.
const MaxDurationStringLength = 1024

var (
	ErrDurationRange  = errors.New("duration out of range")
	ErrTimestampRange = errors.New("timestamp out of range")
)

// Duration is a signed span of time. Seconds and Nanos always share the
// sign of the total and the total fits in int64 nanoseconds.
type Duration struct {
	Seconds int64
	Nanos   int32
}

// Timestamp is a point in time. Nanos is always in [0, 1e9).
type Timestamp struct {
	Seconds int64
	Nanos   int32
}

func (Duration) Type() *types.Type  { return types.Duration }
func (Timestamp) Type() *types.Type { return types.Timestamp }

// totalNanos returns seconds*1e9 + nanos without overflow.
func totalNanos(seconds, nanos int64) *big.Int {
	t := new(big.Int).Mul(big.NewInt(seconds), big.NewInt(nanosPerSecond))
	return t.Add(t, big.NewInt(nanos))
}

// NewDuration canonicalizes seconds and nanos. nanos may have any sign or
// magnitude.
func NewDuration(seconds, nanos int64) (Duration, error) {
	total := totalNanos(seconds, nanos)
	if !total.IsInt64() {
		return Duration{}, ErrDurationRange
	}
	return DurationOf(time.Duration(total.Int64())), nil
}

// DurationOf converts a Go duration. Truncated division keeps seconds and
// nanos on the same side of zero.
func DurationOf(d time.Duration) Duration {
	n := int64(d)
	return Duration{Seconds: n / nanosPerSecond, Nanos: int32(n % nanosPerSecond)}
}

// Go returns d as a time.Duration.
func (d Duration) Go() time.Duration {
	return time.Duration(d.Seconds*nanosPerSecond + int64(d.Nanos))
}

func (d Duration) String() string {
	return d.Go().String()
}

// ParseDuration reads strings such as "300ms", "-1.5h" or "2h45m".
func ParseDuration(s string) (Duration, error) {
	if len(s) > MaxDurationStringLength {
		return Duration{}, errors.New("invalid duration: input too long")
	}
	// Units are h, m, s, ms, us or µs (U+00B5), and ns. The Greek mu
	// (U+03BC) is not a unit.
	if strings.ContainsRune(s, '\u03bc') {
		return Duration{}, fmt.Errorf("invalid duration %q: unknown unit", s)
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return Duration{}, fmt.Errorf("invalid duration %q", s)
	}
	return DurationOf(d), nil
}

// NewTimestamp canonicalizes seconds and nanos so that nanos is non-negative
// and checks the supported year range.
func NewTimestamp(seconds, nanos int64) (Timestamp, error) {
	seconds += nanos / nanosPerSecond
	nanos %= nanosPerSecond
	if nanos < 0 {
		seconds--
		nanos += nanosPerSecond
	}
	if seconds < MinTimestampSeconds || seconds > MaxTimestampSeconds {
		return Timestamp{}, ErrTimestampRange
	}
	return Timestamp{Seconds: seconds, Nanos: int32(nanos)}, nil
}

// TimestampOf converts a Go time.
func TimestampOf(t time.Time) (Timestamp, error) {
	return NewTimestamp(t.Unix(), int64(t.Nanosecond()))
}

// ParseTimestamp reads an RFC 3339 timestamp.
func ParseTimestamp(s string) (Timestamp, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return Timestamp{}, err
	}
	return TimestampOf(t)
}

// Time returns ts as a UTC time.Time.
func (ts Timestamp) Time() time.Time {
	return time.Unix(ts.Seconds, int64(ts.Nanos)).UTC()
}

func (ts Timestamp) String() string {
	return ts.Time().Format(time.RFC3339Nano)
}

// AddDuration returns ts + d, range checked.
func (ts Timestamp) AddDuration(d Duration) (Timestamp, error) {
	return addTimestamp(ts.Seconds, int64(ts.Nanos), d.Seconds, int64(d.Nanos))
}

// SubDuration returns ts - d, range checked.
func (ts Timestamp) SubDuration(d Duration) (Timestamp, error) {
	if d.Seconds == math.MinInt64 {
		return Timestamp{}, ErrTimestampRange
	}
	return addTimestamp(ts.Seconds, int64(ts.Nanos), -d.Seconds, -int64(d.Nanos))
}

// Sub returns the duration between two timestamps.
func (ts Timestamp) Sub(o Timestamp) (Duration, error) {
	return NewDuration(ts.Seconds-o.Seconds, int64(ts.Nanos)-int64(o.Nanos))
}

func addTimestamp(s1, n1, s2, n2 int64) (Timestamp, error) {
	// Timestamp seconds are bounded well inside int64, so only the duration
	// operand can push the sum out of range.
	if (s2 > 0 && s1 > math.MaxInt64-s2) || (s2 < 0 && s1 < math.MinInt64-s2) {
		return Timestamp{}, ErrTimestampRange
	}
	return NewTimestamp(s1+s2, n1+n2)
}

// Add returns d + o, range checked.
func (d Duration) Add(o Duration) (Duration, error) {
	sum := new(big.Int).Add(totalNanos(d.Seconds, int64(d.Nanos)), totalNanos(o.Seconds, int64(o.Nanos)))
	if !sum.IsInt64() {
		return Duration{}, ErrDurationRange
	}
	return DurationOf(time.Duration(sum.Int64())), nil
}

// Sub returns d - o, range checked.
func (d Duration) Sub(o Duration) (Duration, error) {
	diff := new(big.Int).Sub(totalNanos(d.Seconds, int64(d.Nanos)), totalNanos(o.Seconds, int64(o.Nanos)))
	if !diff.IsInt64() {
		return Duration{}, ErrDurationRange
	}
	return DurationOf(time.Duration(diff.Int64())), nil
}

// Negate returns -d, range checked.
func (d Duration) Negate() (Duration, error) {
	return Duration{}.Sub(d)
}
