package ext

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/aescanero/dago-node-cel/internal/eval/cel/stdlib"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/value"
)

// format implements "%s is %d".format([a, b]) with the clauses %s %d %f
// %e %b %x %X %o and an optional precision such as %.2f.
func format(id int64, args []value.Value) value.Value {
	out, err := formatString(str(args[0]), args[1].(value.List))
	if err != nil {
		return value.InvalidArgument(id, "format", err.Error())
	}
	return value.String(out)
}

func formatString(f string, args value.List) (string, error) {
	var sb strings.Builder
	next := 0
	for i := 0; i < len(f); {
		c := f[i]
		if c != '%' {
			sb.WriteByte(c)
			i++
			continue
		}
		if i+1 >= len(f) {
			return "", errors.New("invalid format string")
		}
		verb := f[i+1]
		i += 2
		if verb == '%' {
			sb.WriteByte('%')
			continue
		}
		precision := 6
		if verb == '.' {
			precision = 0
			for i < len(f) && f[i] >= '0' && f[i] <= '9' {
				precision = precision*10 + int(f[i]-'0')
				i++
			}
			if i >= len(f) {
				return "", errors.New("invalid format string")
			}
			verb = f[i]
			i++
		}
		if next >= args.Size() {
			return "", errors.New("too few arguments for format string")
		}
		arg, _ := args.Get(next)
		next++
		s, err := formatClause(verb, precision, value.Unbox(arg))
		if err != nil {
			return "", err
		}
		sb.WriteString(s)
	}
	if next < args.Size() {
		return "", errors.New("too many arguments for format string")
	}
	return sb.String(), nil
}

func formatClause(verb byte, precision int, v value.Value) (string, error) {
	switch verb {
	case 's':
		return formatValue(v)
	case 'd':
		return formatInteger(v, 10, "invalid integer value")
	case 'o':
		return formatInteger(v, 8, "invalid integer value")
	case 'b':
		if b, ok := v.(value.Bool); ok {
			if b {
				return "1", nil
			}
			return "0", nil
		}
		return formatInteger(v, 2, "only integers and bools can be formatted as binary")
	case 'x', 'X':
		s, err := formatHex(v)
		if verb == 'X' {
			s = strings.ToUpper(s)
		}
		return s, err
	case 'f':
		return formatDouble(v, 'f', precision, "fixed-point clause can only be used on doubles")
	case 'e':
		return formatDouble(v, 'e', precision, "scientific clause can only be used on doubles")
	}
	return "", fmt.Errorf("could not parse formatting clause: unrecognized formatting clause: %c", verb)
}

func formatInteger(v value.Value, base int, msg string) (string, error) {
	switch v := v.(type) {
	case value.Int:
		return strconv.FormatInt(int64(v), base), nil
	case value.Uint:
		return strconv.FormatUint(uint64(v), base), nil
	case value.Double:
		if base == 10 {
			if s, ok := specialDouble(float64(v)); ok {
				return s, nil
			}
		}
	}
	return "", errors.New(msg)
}

func formatHex(v value.Value) (string, error) {
	switch v := v.(type) {
	case value.String:
		return hex.EncodeToString([]byte(v)), nil
	case value.Bytes:
		return hex.EncodeToString(v), nil
	}
	return formatInteger(v, 16, "only integers, byte buffers, and strings can be formatted as hex")
}

func formatDouble(v value.Value, fmtByte byte, precision int, msg string) (string, error) {
	switch v := v.(type) {
	case value.Double:
		if s, ok := specialDouble(float64(v)); ok {
			return s, nil
		}
		return strconv.FormatFloat(float64(v), fmtByte, precision, 64), nil
	case value.String:
		switch v {
		case "Infinity", "-Infinity", "NaN":
			return string(v), nil
		}
		return "", errors.New("invalid floating point value")
	}
	return "", errors.New(msg)
}

func specialDouble(d float64) (string, bool) {
	switch {
	case math.IsNaN(d):
		return "NaN", true
	case math.IsInf(d, 1):
		return "Infinity", true
	case math.IsInf(d, -1):
		return "-Infinity", true
	}
	return "", false
}

// formatValue renders any value for %s. Strings inside lists and maps are
// not quoted; map entries are sorted by their rendered key.
func formatValue(v value.Value) (string, error) {
	switch v := value.Unbox(v).(type) {
	case value.Null:
		return "null", nil
	case value.Bool:
		return strconv.FormatBool(bool(v)), nil
	case value.Int, value.Uint:
		return formatInteger(v, 10, "invalid integer value")
	case value.Double:
		if s, ok := specialDouble(float64(v)); ok {
			return s, nil
		}
		return strconv.FormatFloat(float64(v), 'g', -1, 64), nil
	case value.String:
		return string(v), nil
	case value.Bytes:
		return strings.ToValidUTF8(string(v), "�"), nil
	case value.TypeValue:
		return v.T.Name(), nil
	case value.Timestamp:
		return v.String(), nil
	case value.Duration:
		return stdlib.FormatDuration(v), nil
	case value.List:
		parts := make([]string, v.Size())
		for i := range parts {
			e, _ := v.Get(i)
			s, err := formatValue(e)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	case value.Map:
		parts := make([]string, 0, v.Size())
		for _, k := range v.Keys() {
			ks, err := formatValue(k)
			if err != nil {
				return "", err
			}
			e, _ := v.Get(k)
			vs, err := formatValue(e)
			if err != nil {
				return "", err
			}
			parts = append(parts, ks+": "+vs)
		}
		sort.Strings(parts)
		return "{" + strings.Join(parts, ", ") + "}", nil
	}
	return "", errors.New("invalid string value")
}
