// Package security evaluates per-entity retrieve policies: which fields of an
// entity a caller may select, which rows it may see (restrictions merged into
// the retrieve where clause) and how returned entities are rewritten
// (mappers).
//
// Entities reached by a selection without any rule are denied.
package security

import (
	"github.com/reoring/gomodel"
)

// Rule allows selecting Fields (nil means every field) of an entity. A
// non-nil Restriction is a where fragment the retrieve spec is narrowed with
// whenever the rule is used.
type Rule struct {
	Fields      []string
	Restriction map[string]any
}

func (r Rule) covers(fields []string) bool {
	if r.Fields == nil {
		return true
	}
	allowed := make(map[string]struct{}, len(r.Fields))
	for _, f := range r.Fields {
		allowed[f] = struct{}{}
	}
	for _, f := range fields {
		if _, ok := allowed[f]; !ok {
			return false
		}
	}
	return true
}

// Mapper rewrites a returned entity instance (e.g. masking a field).
type Mapper func(map[string]any) map[string]any

type entityPolicies struct {
	rules   []Rule
	mappers []Mapper
}

// Policies is the set of rules and mappers of a single call.
type Policies struct {
	entities map[any]*entityPolicies
}

// New returns an empty policy set; it denies every entity.
func New() *Policies {
	return &Policies{entities: map[any]*entityPolicies{}}
}

// On starts a new policy set with rules for entity.
func On(entity *gomodel.Type) *Builder {
	return New().On(entity)
}

// On returns a builder adding rules for entity to p.
func (p *Policies) On(entity *gomodel.Type) *Builder {
	k := key(entity)
	if _, ok := p.entities[k]; !ok {
		p.entities[k] = &entityPolicies{}
	}
	return &Builder{Policies: p, entity: k}
}

// Builder adds rules for one entity. It embeds the Policies being built, so
// On can be chained to move to the next entity.
type Builder struct {
	*Policies
	entity any
}

// Allows adds a retrieve rule.
func (b *Builder) Allows(r Rule) *Builder {
	e := b.entities[b.entity]
	e.rules = append(e.rules, r)
	return b
}

// Maps adds a mapper run on every returned instance of the entity.
func (b *Builder) Maps(fn Mapper) *Builder {
	e := b.entities[b.entity]
	e.mappers = append(e.mappers, fn)
	return b
}

// HasMappers reports whether any mapper is registered. A nil set has none.
func (p *Policies) HasMappers() bool {
	if p == nil {
		return false
	}
	for _, e := range p.entities {
		if len(e.mappers) > 0 {
			return true
		}
	}
	return false
}

func (p *Policies) lookup(entity *gomodel.Type) *entityPolicies {
	if p == nil {
		return nil
	}
	return p.entities[key(entity)]
}

// key identifies an entity by name, falling back to its identity for
// anonymous entities. Projections of a named entity share its policies.
func key(t *gomodel.Type) any {
	c := t.Concrete()
	if n := c.Name(); n != "" {
		return n
	}
	return c
}
