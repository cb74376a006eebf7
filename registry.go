package gomodel

import (
	"errors"
	"fmt"
)

// ErrNameCollision is returned when two distinct types share a name.
var ErrNameCollision = errors.New("gomodel: duplicate type name")

// ErrUnknownName is reported when a Ref names a type that was never defined.
var ErrUnknownName = errors.New("gomodel: unknown type name")

// Registry maps type names to types. A registry is built once (for example
// during a module build), is read-only afterwards and needs no locking.
type Registry struct {
	byName map[string]*Type
	order  []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: map[string]*Type{}}
}

// Define registers a single named type without walking its children. This is
// the entry point for recursive definitions: define the type, then refer to
// it with Ref from other definitions.
func (r *Registry) Define(t *Type) (*Type, error) {
	c := t.Concrete()
	name := c.opts.Name
	if name == "" {
		return nil, fmt.Errorf("gomodel: define: type %s has no name", describe(c))
	}
	if err := r.add(name, c); err != nil {
		return nil, err
	}
	return t, nil
}

// MustDefine is like Define but panics on error.
func (r *Registry) MustDefine(t *Type) *Type {
	out, err := r.Define(t)
	if err != nil {
		panic(err)
	}
	return out
}

// Ref returns a lazy type resolved by name when first traversed. Resolving an
// unknown name panics since it is a programming error.
func (r *Registry) Ref(name string) *Type {
	return Lazy(func() *Type {
		t, ok := r.byName[name]
		if !ok {
			panic(fmt.Errorf("%w: %q", ErrUnknownName, name))
		}
		return t
	})
}

// Lookup returns the type registered under name.
func (r *Registry) Lookup(name string) (*Type, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string { return append([]string(nil), r.order...) }

// Register walks t and registers every named type reachable from it. Cycles
// through lazy types are followed once.
func (r *Registry) Register(t *Type) error {
	seen := map[*Type]bool{}
	return r.walk(t, seen)
}

func (r *Registry) walk(t *Type, seen map[*Type]bool) error {
	c := t.Concrete()
	if seen[c] {
		return nil
	}
	seen[c] = true
	if name := c.opts.Name; name != "" {
		if err := r.add(name, c); err != nil {
			return err
		}
	}
	switch c.kind {
	case KindOptional, KindNullable, KindArray, KindReference:
		return r.walk(c.elem, seen)
	case KindObject, KindEntity:
		for _, f := range c.fields {
			if err := r.walk(f.Type, seen); err != nil {
				return err
			}
		}
	case KindUnion:
		for _, v := range c.variants {
			if err := r.walk(v.Type, seen); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Registry) add(name string, c *Type) error {
	if prev, ok := r.byName[name]; ok {
		if prev == c {
			return nil
		}
		return fmt.Errorf("%w: %q", ErrNameCollision, name)
	}
	r.byName[name] = c
	r.order = append(r.order, name)
	return nil
}
