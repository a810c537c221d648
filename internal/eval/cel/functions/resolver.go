package functions

import "sort"

// Source is anything that contributes functions to a Resolver: a *Group,
// a Groups slice or another *Resolver.
type Source interface {
	addTo(r *Resolver)
}

// Groups is a list of function groups usable as a Source.
type Groups []*Group

func (gs Groups) addTo(r *Resolver) {
	for _, g := range gs {
		g.addTo(r)
	}
}

func (g *Group) addTo(r *Resolver) {
	if existing, ok := r.groups[g.name]; ok {
		r.groups[g.name] = existing.merge(g)
		return
	}
	r.groups[g.name] = g
}

// Resolver is an immutable index of functions by name. Later sources
// extend or override earlier ones.
type Resolver struct {
	groups map[string]*Group
}

// NewResolver flattens the sources into one index.
func NewResolver(sources ...Source) *Resolver {
	r := &Resolver{groups: map[string]*Group{}}
	for _, s := range sources {
		if s != nil {
			s.addTo(r)
		}
	}
	return r
}

func (r *Resolver) addTo(dst *Resolver) {
	for _, name := range r.Names() {
		r.groups[name].addTo(dst)
	}
}

// Extend returns a resolver with the sources layered on top of r.
func (r *Resolver) Extend(sources ...Source) *Resolver {
	return NewResolver(append([]Source{r}, sources...)...)
}

// Find returns the function registered under name.
func (r *Resolver) Find(name string) (*Group, bool) {
	g, ok := r.groups[name]
	return g, ok
}

// Names returns the registered function names in sorted order.
func (r *Resolver) Names() []string {
	names := make([]string, 0, len(r.groups))
	for n := range r.groups {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
