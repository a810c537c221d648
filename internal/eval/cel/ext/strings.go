package ext

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aescanero/dago-node-cel/internal/eval/cel/functions"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/runtime"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/types"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/value"
)

var listOfStrings = types.NewList(types.String)

// Strings returns the string extension functions. Indexes count code
// points, not bytes.
func Strings() functions.Groups {
	return functions.Groups{
		functions.NewGroup("charAt",
			method("string_char_at_int", sig(types.String, types.Int), types.String, charAt)),
		functions.NewGroup("indexOf",
			method("string_index_of_string", sig(types.String, types.String), types.Int, indexOf),
			method("string_index_of_string_int", sig(types.String, types.String, types.Int), types.Int, indexOf)),
		functions.NewGroup("lastIndexOf",
			method("string_last_index_of_string", sig(types.String, types.String), types.Int, lastIndexOf),
			method("string_last_index_of_string_int", sig(types.String, types.String, types.Int), types.Int, lastIndexOf)),
		functions.NewGroup("lowerAscii",
			method("string_lower_ascii", sig(types.String), types.String, mapASCII('A', 'Z', 'a'-'A'))),
		functions.NewGroup("upperAscii",
			method("string_upper_ascii", sig(types.String), types.String, mapASCII('a', 'z', 'A'-'a'))),
		functions.NewGroup("replace",
			method("string_replace_string_string", sig(types.String, types.String, types.String), types.String, replace),
			method("string_replace_string_string_int", sig(types.String, types.String, types.String, types.Int), types.String, replace)),
		functions.NewGroup("split",
			method("string_split_string", sig(types.String, types.String), listOfStrings, split),
			method("string_split_string_int", sig(types.String, types.String, types.Int), listOfStrings, split)),
		functions.NewGroup("substring",
			method("string_substring_int", sig(types.String, types.Int), types.String, substring),
			method("string_substring_int_int", sig(types.String, types.Int, types.Int), types.String, substring)),
		functions.NewGroup("trim",
			method("string_trim", sig(types.String), types.String, func(_ int64, args []value.Value) value.Value {
				return value.String(strings.TrimFunc(str(args[0]), unicode.IsSpace))
			})),
		functions.NewGroup("join",
			method("list_join", sig(listOfStrings), types.String, join),
			method("list_join_string", sig(listOfStrings, types.String), types.String, join)),
		functions.NewGroup("strings.quote",
			functions.NewOverload("strings_quote", sig(types.String), types.String,
				func(_ *runtime.Context, _ int64, args []value.Value) value.Value {
					return value.String(quote(str(args[0])))
				})),
		functions.NewGroup("format",
			method("string_format_list", sig(types.String, types.NewList(types.Dyn)), types.String, format)),
	}
}

func sig(ts ...*types.Type) []*types.Type { return ts }

func method(id string, args []*types.Type, result *types.Type, fn func(id int64, args []value.Value) value.Value) *functions.Overload {
	return functions.NewOverload(id, args, result, func(_ *runtime.Context, call int64, args []value.Value) value.Value {
		return fn(call, args)
	}, functions.Member())
}

func str(v value.Value) string { return string(v.(value.String)) }

func integer(v value.Value) int64 { return int64(v.(value.Int)) }

func charAt(id int64, args []value.Value) value.Value {
	runes := []rune(str(args[0]))
	i := integer(args[1])
	if i < 0 || i > int64(len(runes)) {
		return value.IndexOutOfBounds(id, i, len(runes))
	}
	if i == int64(len(runes)) {
		return value.String("")
	}
	return value.String(runes[i : i+1])
}

func indexOf(id int64, args []value.Value) value.Value {
	runes, sub := []rune(str(args[0])), []rune(str(args[1]))
	start := int64(0)
	if len(args) == 3 {
		start = integer(args[2])
		if start < 0 || start >= int64(len(runes)) {
			return value.IndexOutOfBounds(id, start, len(runes))
		}
	}
	for i := int(start); i+len(sub) <= len(runes); i++ {
		if runesEqual(runes[i:i+len(sub)], sub) {
			return value.Int(i)
		}
	}
	return value.Int(-1)
}

func lastIndexOf(id int64, args []value.Value) value.Value {
	runes, sub := []rune(str(args[0])), []rune(str(args[1]))
	last := int64(len(runes))
	if len(args) == 3 {
		last = integer(args[2])
		if last < 0 || last >= int64(len(runes)) {
			return value.IndexOutOfBounds(id, last, len(runes))
		}
	}
	for i := min(int(last), len(runes)-len(sub)); i >= 0; i-- {
		if runesEqual(runes[i:i+len(sub)], sub) {
			return value.Int(i)
		}
	}
	return value.Int(-1)
}

func runesEqual(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func mapASCII(lo, hi, shift rune) func(int64, []value.Value) value.Value {
	return func(_ int64, args []value.Value) value.Value {
		return value.String(strings.Map(func(r rune) rune {
			if r >= lo && r <= hi {
				return r + shift
			}
			return r
		}, str(args[0])))
	}
}

func replace(_ int64, args []value.Value) value.Value {
	n := -1
	if len(args) == 4 {
		n = int(integer(args[3]))
	}
	return value.String(strings.Replace(str(args[0]), str(args[1]), str(args[2]), n))
}

func split(_ int64, args []value.Value) value.Value {
	n := -1
	if len(args) == 3 {
		n = int(integer(args[2]))
	}
	parts := strings.SplitN(str(args[0]), str(args[1]), n)
	out := make([]value.Value, len(parts))
	for i, p := range parts {
		out[i] = value.String(p)
	}
	return value.NewList(out...)
}

func substring(id int64, args []value.Value) value.Value {
	runes := []rune(str(args[0]))
	start, end := integer(args[1]), int64(len(runes))
	if start < 0 || start > int64(len(runes)) {
		return value.IndexOutOfBounds(id, start, len(runes))
	}
	if len(args) == 3 {
		end = integer(args[2])
		if end < 0 || end > int64(len(runes)) {
			return value.IndexOutOfBounds(id, end, len(runes))
		}
		if start > end {
			return value.InvalidArgument(id, "substring", "start > end")
		}
	}
	return value.String(runes[start:end])
}

func join(id int64, args []value.Value) value.Value {
	sep := ""
	if len(args) == 2 {
		sep = str(args[1])
	}
	l := args[0].(value.List)
	var sb strings.Builder
	for i := 0; i < l.Size(); i++ {
		e, _ := l.Get(i)
		s, ok := value.Unbox(e).(value.String)
		if !ok {
			return value.InvalidArgument(id, "join", "list contains non-string value")
		}
		if i > 0 {
			sb.WriteString(sep)
		}
		sb.WriteString(string(s))
	}
	return value.String(sb.String())
}

var quoteEscapes = map[rune]string{
	0x00: `\0`,
	0x07: `\a`,
	0x08: `\b`,
	0x09: `\t`,
	0x0a: `\n`,
	0x0b: `\v`,
	0x0c: `\f`,
	0x0d: `\r`,
	'"':  `\"`,
	'\\': `\\`,
}

// quote renders s as a double quoted literal. Invalid UTF-8 becomes
// U+FFFD.
func quote(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		s = s[size:]
		if esc, ok := quoteEscapes[r]; ok {
			sb.WriteString(esc)
			continue
		}
		sb.WriteRune(r)
	}
	sb.WriteByte('"')
	return sb.String()
}
