package retrieve

import (
	"github.com/reoring/gomodel"
)

// SelectedField is a field that survives a selection, with the nested spec
// that applies to it (nil means the default selection).
type SelectedField struct {
	Name string
	Type *gomodel.Type
	Spec *Spec
}

// Selected lists, in declaration order, the fields of an entity or object
// node kept by spec. Without a select an entity keeps its non-relation fields
// and a plain object keeps every field. An empty select keeps nothing.
func Selected(node *gomodel.Type, spec *Spec) []SelectedField {
	c := node.Concrete()
	fields := c.Fields()
	out := make([]SelectedField, 0, len(fields))
	if spec == nil || spec.Select == nil {
		entity := c.Kind() == gomodel.KindEntity
		for _, f := range fields {
			if _, _, rel := Relation(f.Type); rel && entity {
				continue
			}
			out = append(out, SelectedField{Name: f.Name, Type: f.Type})
		}
		return out
	}
	for _, f := range fields {
		sel, ok := spec.Select[f.Name]
		if !ok || !sel.Include {
			continue
		}
		out = append(out, SelectedField{Name: f.Name, Type: f.Type, Spec: sel.Nested})
	}
	return out
}

// SelectedType derives the type of exactly the value a caller receives for
// spec: unselected fields are removed, not made optional.
func SelectedType(output *gomodel.Type, spec *Spec) *gomodel.Type {
	p := &projector{defaults: map[*gomodel.Type]*gomodel.Type{}}
	return p.project(output, spec)
}

type projector struct {
	// defaults caches the default projection of each node; recursive plain
	// objects are otherwise expanded forever.
	defaults map[*gomodel.Type]*gomodel.Type
}

func (p *projector) project(t *gomodel.Type, spec *Spec) *gomodel.Type {
	c := t.Concrete()
	switch c.Kind() {
	case gomodel.KindOptional, gomodel.KindNullable, gomodel.KindArray, gomodel.KindReference:
		return c.WithElem(p.project(c.Elem(), spec))
	case gomodel.KindEntity, gomodel.KindObject:
		if spec == nil {
			return memo(p.defaults, c, func() *gomodel.Type { return p.node(c, nil) })
		}
		return p.node(c, spec)
	}
	return t
}

func (p *projector) node(c *gomodel.Type, spec *Spec) *gomodel.Type {
	sel := Selected(c, spec)
	fields := make([]gomodel.FieldDef, len(sel))
	for i, f := range sel {
		fields[i] = gomodel.Field(f.Name, p.project(f.Type, f.Spec))
	}
	return c.WithFields(fields...)
}

// SelectionDepth measures spec against output: every entity reached through
// the selection counts one level, and the depth is the longest chain.
func SelectionDepth(output *gomodel.Type, spec *Spec) int {
	return depth(output, spec, map[*gomodel.Type]bool{})
}

func depth(t *gomodel.Type, spec *Spec, seen map[*gomodel.Type]bool) int {
	inner, _ := gomodel.Unwrap(t)
	switch inner.Kind() {
	case gomodel.KindEntity:
		return 1 + children(inner, spec, seen)
	case gomodel.KindObject:
		return children(inner, spec, seen)
	}
	return 0
}

func children(c *gomodel.Type, spec *Spec, seen map[*gomodel.Type]bool) int {
	if spec == nil {
		// default projections are finite unless a plain object is recursive
		if seen[c] {
			return 0
		}
		seen[c] = true
		defer delete(seen, c)
	}
	maxDepth := 0
	for _, f := range Selected(c, spec) {
		if d := depth(f.Type, f.Spec, seen); d > maxDepth {
			maxDepth = d
		}
	}
	return maxDepth
}

// Trim decodes value against the selected type of spec, dropping every field
// that was not requested. The value is validated as well.
func Trim(output *gomodel.Type, spec *Spec, value any) (any, error) {
	return gomodel.Decode(SelectedType(output, spec), value, gomodel.DecodeOpt{
		ErrorReporting:  gomodel.AllErrors,
		FieldStrictness: gomodel.AllowAdditionalFields,
		UnionDecoding:   gomodel.UntaggedUnions,
	})
}

// Merge combines a default spec with caller overrides: select entries are
// merged field by field (false removes, nested specs merge recursively),
// where clauses are combined with AND, and orderBy, skip and take of the
// override win.
func Merge(output *gomodel.Type, def, override *Spec) *Spec {
	if def == nil {
		return override.Clone()
	}
	if override == nil {
		return def.Clone()
	}
	out := &Spec{}
	if def.Select != nil || override.Select != nil {
		out.Select = make(map[string]Selection, len(def.Select)+len(override.Select))
		for k, v := range def.Select {
			out.Select[k] = Selection{Include: v.Include, Nested: v.Nested.Clone()}
		}
		for k, o := range override.Select {
			if !o.Include {
				delete(out.Select, k)
				continue
			}
			if d, ok := out.Select[k]; ok && d.Include && d.Nested != nil && o.Nested != nil {
				out.Select[k] = Selection{Include: true, Nested: Merge(fieldOf(output, k), d.Nested, o.Nested)}
				continue
			}
			out.Select[k] = Selection{Include: true, Nested: o.Nested.Clone()}
		}
	}
	switch {
	case def.Where != nil && override.Where != nil:
		out.Where = map[string]any{"AND": []any{cloneValue(def.Where), cloneValue(override.Where)}}
	case override.Where != nil:
		out.Where = cloneValue(override.Where).(map[string]any)
	case def.Where != nil:
		out.Where = cloneValue(def.Where).(map[string]any)
	}
	pick := override
	if pick.OrderBy == nil {
		pick = def
	}
	if pick.OrderBy != nil {
		out.OrderBy = pick.Clone().OrderBy
	}
	out.Skip = firstInt(override.Skip, def.Skip)
	out.Take = firstInt(override.Take, def.Take)
	return out
}

func firstInt(a, b *int) *int {
	for _, p := range []*int{a, b} {
		if p != nil {
			n := *p
			return &n
		}
	}
	return nil
}

// fieldOf returns the type of field name on the node output unwraps to, or nil.
func fieldOf(output *gomodel.Type, name string) *gomodel.Type {
	if output == nil {
		return nil
	}
	inner, _ := gomodel.Unwrap(output)
	if k := inner.Kind(); k != gomodel.KindEntity && k != gomodel.KindObject {
		return nil
	}
	t, _ := inner.FieldType(name)
	return t
}
