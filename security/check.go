package security

import (
	"fmt"
	"sort"
	"strings"

	"github.com/reoring/gomodel"
	"github.com/reoring/gomodel/retrieve"
)

// Violation is a denied access to an entity reached at Path.
type Violation struct {
	Path   gomodel.Path
	Entity string
	Fields []string
}

// Violations is the list of denied accesses of a Check. It implements error.
type Violations []Violation

func (vs Violations) Error() string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = fmt.Sprintf("%s at %s: [%s]", v.Entity, v.Path, strings.Join(v.Fields, ", "))
	}
	return "unauthorized access: " + strings.Join(parts, "; ")
}

// Value renders the violations in the shape of UnauthorizedAccess details.
func (vs Violations) Value() []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		fields := make([]any, len(v.Fields))
		for j, f := range v.Fields {
			fields[j] = f
		}
		out[i] = map[string]any{"path": v.Path.String(), "entity": v.Entity, "fields": fields}
	}
	return out
}

// UnauthorizedAccess is the standard business error a function declares to
// receive policy violations as a failure instead of a fault.
var UnauthorizedAccess = gomodel.Object(
	gomodel.Field("message", gomodel.String()),
	gomodel.Field("details", gomodel.Object(
		gomodel.Field("path", gomodel.String()),
		gomodel.Field("entity", gomodel.String()),
		gomodel.Field("fields", gomodel.String().Array()),
	).Array()),
).WithName("UnauthorizedAccess")

// UnauthorizedAccessValue builds the payload of an UnauthorizedAccess error.
func UnauthorizedAccessValue(vs Violations) map[string]any {
	return map[string]any{"message": "Unauthorized access.", "details": vs.Value()}
}

// Check walks the selection spec makes on output and verifies that every
// entity reached is covered by a rule allowing all of its selected fields.
// caps are the capabilities of the top-level node. On success it returns the
// spec narrowed by the restrictions of the rules used; spec itself is never
// modified. On failure the error is Violations.
func Check(output *gomodel.Type, caps retrieve.Capabilities, spec *retrieve.Spec, p *Policies) (*retrieve.Spec, error) {
	c := &checker{policies: p, seen: map[*gomodel.Type]bool{}}
	out, _ := c.node(output, caps, spec, gomodel.Root)
	if len(c.violations) > 0 {
		return nil, c.violations
	}
	return out, nil
}

type checker struct {
	policies   *Policies
	violations Violations
	seen       map[*gomodel.Type]bool
}

// node checks one entity or object node and returns the (possibly narrowed)
// spec for it. changed reports whether the returned spec differs from spec.
func (c *checker) node(t *gomodel.Type, caps retrieve.Capabilities, spec *retrieve.Spec, path gomodel.Path) (out *retrieve.Spec, changed bool) {
	inner, _ := gomodel.Unwrap(t)
	kind := inner.Kind()
	if kind != gomodel.KindEntity && kind != gomodel.KindObject {
		return spec, false
	}
	if spec == nil {
		if c.seen[inner] {
			return nil, false
		}
		c.seen[inner] = true
		defer delete(c.seen, inner)
	}
	selected := retrieve.Selected(inner, spec)
	out = spec
	if kind == gomodel.KindEntity {
		restriction, ok := c.entity(inner, caps, selected, path)
		if ok && restriction != nil {
			out = out.Clone()
			if out == nil {
				out = &retrieve.Spec{}
			}
			out.Where = and(out.Where, restriction)
			changed = true
		}
	}
	for _, sf := range selected {
		childInner, many := gomodel.Unwrap(sf.Type)
		var childCaps retrieve.Capabilities
		switch childInner.Kind() {
		case gomodel.KindEntity:
			childCaps = retrieve.RelationCapabilities(childInner, many)
		case gomodel.KindObject:
			childCaps = retrieve.Capabilities{Select: true}
		default:
			continue
		}
		childSpec, childChanged := c.node(sf.Type, childCaps, sf.Spec, child(path, sf.Name))
		if !childChanged {
			continue
		}
		if !changed {
			out = out.Clone()
			if out == nil {
				out = &retrieve.Spec{}
			}
			changed = true
		}
		if out.Select == nil {
			// materialise the default selection before overriding one entry
			out.Select = make(map[string]retrieve.Selection, len(selected))
			for _, s := range selected {
				out.Select[s.Name] = retrieve.Selection{Include: true, Nested: s.Spec}
			}
		}
		out.Select[sf.Name] = retrieve.Selection{Include: true, Nested: childSpec}
	}
	return out, changed
}

// entity finds the rules usable for the selected fields of an entity and
// returns the restriction to apply, or records a violation.
func (c *checker) entity(e *gomodel.Type, caps retrieve.Capabilities, selected []retrieve.SelectedField, path gomodel.Path) (map[string]any, bool) {
	names := make([]string, len(selected))
	for i, sf := range selected {
		names[i] = sf.Name
	}
	ep := c.policies.lookup(e)
	var restrictions []any
	usable := false
	if ep != nil {
		for _, r := range ep.rules {
			if !r.covers(names) {
				continue
			}
			if r.Restriction == nil {
				return nil, true
			}
			if !caps.Where {
				continue
			}
			usable = true
			restrictions = append(restrictions, r.Restriction)
		}
	}
	if !usable {
		c.violations = append(c.violations, Violation{
			Path:   path,
			Entity: entityName(e),
			Fields: uncovered(ep, names),
		})
		return nil, false
	}
	if len(restrictions) == 1 {
		return restrictions[0].(map[string]any), true
	}
	return map[string]any{"OR": restrictions}, true
}

// uncovered lists the fields no rule allows, or all fields when each is
// allowed by some rule but no single rule allows them together.
func uncovered(ep *entityPolicies, names []string) []string {
	allowed := map[string]bool{}
	all := false
	if ep != nil {
		for _, r := range ep.rules {
			if r.Fields == nil {
				all = true
			}
			for _, f := range r.Fields {
				allowed[f] = true
			}
		}
	}
	var out []string
	if !all {
		for _, n := range names {
			if !allowed[n] {
				out = append(out, n)
			}
		}
	}
	if len(out) == 0 {
		out = append(out, names...)
	}
	sort.Strings(out)
	return out
}

// child extends path with a trailing field.
func child(path gomodel.Path, name string) gomodel.Path {
	return gomodel.PathOf(append(path.Fragments(), gomodel.Fragment{Kind: gomodel.FragmentField, Name: name})...)
}

func entityName(e *gomodel.Type) string {
	if n := e.Name(); n != "" {
		return n
	}
	return "entity"
}

func and(where, restriction map[string]any) map[string]any {
	if where == nil {
		return restriction
	}
	return map[string]any{"AND": []any{where, restriction}}
}

// ApplyMappers rewrites every entity instance inside value with the mappers
// registered for its entity. value is expected in decoded form (maps and
// slices); anything else is returned as is.
func ApplyMappers(output *gomodel.Type, p *Policies, value any) any {
	if p == nil || !p.HasMappers() {
		return value
	}
	return mapValue(output, p, value)
}

func mapValue(t *gomodel.Type, p *Policies, v any) any {
	c := t.Concrete()
	switch c.Kind() {
	case gomodel.KindOptional, gomodel.KindNullable, gomodel.KindReference:
		if v == nil || gomodel.IsUndefined(v) {
			return v
		}
		return mapValue(c.Elem(), p, v)
	case gomodel.KindArray:
		items, ok := v.([]any)
		if !ok {
			return v
		}
		out := make([]any, len(items))
		for i, it := range items {
			out[i] = mapValue(c.Elem(), p, it)
		}
		return out
	case gomodel.KindEntity, gomodel.KindObject:
		m, ok := v.(map[string]any)
		if !ok {
			return v
		}
		out := make(map[string]any, len(m))
		for k, fv := range m {
			out[k] = fv
		}
		for _, f := range c.Fields() {
			if fv, present := out[f.Name]; present {
				out[f.Name] = mapValue(f.Type, p, fv)
			}
		}
		if c.Kind() == gomodel.KindEntity {
			if ep := p.lookup(c); ep != nil {
				for _, fn := range ep.mappers {
					out = fn(out)
				}
			}
		}
		return out
	}
	return v
}
