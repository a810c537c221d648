package stdlib

import (
	"regexp"
	"strings"

	"github.com/aescanero/dago-node-cel/internal/eval/cel/functions"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/types"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/value"
)

func stringFunctions() functions.Groups {
	return functions.Groups{
		functions.NewGroup("contains",
			binary("contains_string", types.String, types.String, types.Bool, stringPredicate(strings.Contains), functions.Member())),
		functions.NewGroup("startsWith",
			binary("starts_with_string", types.String, types.String, types.Bool, stringPredicate(strings.HasPrefix), functions.Member())),
		functions.NewGroup("endsWith",
			binary("ends_with_string", types.String, types.String, types.Bool, stringPredicate(strings.HasSuffix), functions.Member())),
		functions.NewGroup("matches",
			binary("matches", types.String, types.String, types.Bool, matches),
			binary("matches_string", types.String, types.String, types.Bool, matches, functions.Member())),
	}
}

func stringPredicate(fn func(s, sub string) bool) binaryFunc {
	return func(_ int64, a, b value.Value) value.Value {
		return value.Bool(fn(string(a.(value.String)), string(b.(value.String))))
	}
}

// matches tests a string against an RE2 pattern. The match is not
// anchored.
func matches(id int64, a, b value.Value) value.Value {
	re, err := regexp.Compile(string(b.(value.String)))
	if err != nil {
		return value.NewError(id, "invalid regular expression: %v", err)
	}
	return value.Bool(re.MatchString(string(a.(value.String))))
}
