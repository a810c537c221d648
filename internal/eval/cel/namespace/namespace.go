package namespace

import (
	"fmt"
	"strings"
)

// Namespace is the container expressions are evaluated in. Unqualified
// names are resolved relative to it.
type Namespace struct {
	name    string
	aliases map[string]string
}

// Root is the empty container.
var Root = New("")

// New creates a namespace for the dot-separated container name.
func New(name string) *Namespace {
	return &Namespace{name: name, aliases: map[string]string{}}
}

// Name returns the container name.
func (ns *Namespace) Name() string {
	return ns.name
}

// WithAlias returns a copy of ns where the simple name alias abbreviates the
// qualified name.
func (ns *Namespace) WithAlias(alias, qualified string) (*Namespace, error) {
	if alias == "" || strings.Contains(alias, ".") {
		return nil, fmt.Errorf("alias must be a simple name: %q", alias)
	}
	if strings.HasPrefix(qualified, ".") || qualified == "" {
		return nil, fmt.Errorf("alias %q must refer to a qualified name: %q", alias, qualified)
	}
	if existing, ok := ns.aliases[alias]; ok && existing != qualified {
		return nil, fmt.Errorf("alias collision: %s refers to both %s and %s", alias, existing, qualified)
	}
	next := &Namespace{name: ns.name, aliases: make(map[string]string, len(ns.aliases)+1)}
	for k, v := range ns.aliases {
		next.aliases[k] = v
	}
	next.aliases[alias] = qualified
	return next, nil
}

// ResolveCandidateNames returns the names name may refer to, most qualified
// first. A leading dot makes the name absolute.
//
// For container "a.b.c.M.N" and name "R.s" the candidates are
// a.b.c.M.N.R.s, a.b.c.M.R.s, a.b.c.R.s, a.b.R.s, a.R.s and R.s.
func (ns *Namespace) ResolveCandidateNames(name string) []string {
	if strings.HasPrefix(name, ".") {
		qn := name[1:]
		if alias, ok := ns.findAlias(qn); ok {
			return []string{alias}
		}
		return []string{qn}
	}
	if alias, ok := ns.findAlias(name); ok {
		return []string{alias}
	}
	if ns.name == "" {
		return []string{name}
	}
	next := ns.name
	candidates := []string{next + "." + name}
	for i := strings.LastIndexByte(next, '.'); i >= 0; i = strings.LastIndexByte(next, '.') {
		next = next[:i]
		candidates = append(candidates, next+"."+name)
	}
	return append(candidates, name)
}

func (ns *Namespace) findAlias(name string) (string, bool) {
	if len(ns.aliases) == 0 {
		return "", false
	}
	simple, qualifier := name, ""
	if dot := strings.IndexByte(name, '.'); dot >= 0 {
		simple, qualifier = name[:dot], name[dot:]
	}
	alias, ok := ns.aliases[simple]
	if !ok {
		return "", false
	}
	return alias + qualifier, true
}
