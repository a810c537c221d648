package types

import (
	"fmt"
	"strings"
	"unicode"
)

// Parse reads a type expression such as "map(string, list(int))".
// Names that are not predeclared are looked up through p, when given, and
// otherwise treated as record names.
func Parse(s string, p Provider) (*Type, error) {
	tp := &typeParser{src: s, provider: p}
	t, err := tp.parse()
	if err != nil {
		return nil, fmt.Errorf("invalid type %q: %w", s, err)
	}
	tp.skipSpace()
	if tp.pos != len(tp.src) {
		return nil, fmt.Errorf("invalid type %q: unexpected %q", s, tp.src[tp.pos:])
	}
	return t, nil
}

type typeParser struct {
	src      string
	pos      int
	provider Provider
}

func (tp *typeParser) skipSpace() {
	for tp.pos < len(tp.src) && tp.src[tp.pos] == ' ' {
		tp.pos++
	}
}

func (tp *typeParser) ident() string {
	tp.skipSpace()
	start := tp.pos
	for tp.pos < len(tp.src) {
		r := rune(tp.src[tp.pos])
		if r != '.' && r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		tp.pos++
	}
	return tp.src[start:tp.pos]
}

func (tp *typeParser) expect(c byte) error {
	tp.skipSpace()
	if tp.pos >= len(tp.src) || tp.src[tp.pos] != c {
		return fmt.Errorf("expected %q at offset %d", c, tp.pos)
	}
	tp.pos++
	return nil
}

func (tp *typeParser) peek(c byte) bool {
	tp.skipSpace()
	return tp.pos < len(tp.src) && tp.src[tp.pos] == c
}

func (tp *typeParser) parse() (*Type, error) {
	name := tp.ident()
	if name == "" {
		return nil, fmt.Errorf("expected type name at offset %d", tp.pos)
	}
	if !tp.peek('(') {
		if t, ok := byName[name]; ok {
			return t, nil
		}
		if tp.provider != nil {
			if t, ok := tp.provider.FindType(strings.TrimPrefix(name, ".")); ok {
				return t, nil
			}
		}
		return NewRecord(strings.TrimPrefix(name, ".")), nil
	}
	tp.pos++
	var params []*Type
	for {
		p, err := tp.parse()
		if err != nil {
			return nil, err
		}
		params = append(params, p)
		if tp.peek(',') {
			tp.pos++
			continue
		}
		break
	}
	if err := tp.expect(')'); err != nil {
		return nil, err
	}
	switch {
	case name == "list" && len(params) == 1:
		return NewList(params[0]), nil
	case name == "map" && len(params) == 2:
		return NewMap(params[0], params[1]), nil
	case name == "type" && len(params) == 1:
		return NewTypeOf(params[0]), nil
	}
	return nil, fmt.Errorf("%s does not take %d parameters", name, len(params))
}
