// Package retrieve computes, validates and applies partial-object selections
// ("retrieve specs") over entity graphs described by gomodel types.
//
// A retrieve document has the shape
//
//	{select?, where?, orderBy?, skip?, take?}
//
// where each key is only accepted when the node declares the matching
// capability. Relations (fields whose type unwraps to an entity) are excluded
// from a result unless selected; plain nested objects are included by default.
package retrieve

import (
	"sort"

	"github.com/reoring/gomodel"
)

// Capabilities is the set of retrieve operations a node accepts.
type Capabilities = gomodel.Capabilities

// Spec is a decoded retrieve document.
type Spec struct {
	Select  map[string]Selection
	Where   map[string]any
	OrderBy []map[string]any
	Skip    *int
	Take    *int
}

// Selection is the value of a single select entry: a toggle, optionally with
// a nested retrieve spec for relations and nested objects.
type Selection struct {
	Include bool
	Nested  *Spec
}

// Select returns a spec that selects the given fields.
func Select(fields ...string) *Spec {
	s := &Spec{Select: make(map[string]Selection, len(fields))}
	for _, f := range fields {
		s.Select[f] = Selection{Include: true}
	}
	return s
}

// With returns a copy of s with an additional nested selection for field.
func (s *Spec) With(field string, nested *Spec) *Spec {
	out := s.Clone()
	if out == nil {
		out = &Spec{}
	}
	if out.Select == nil {
		out.Select = map[string]Selection{}
	}
	out.Select[field] = Selection{Include: true, Nested: nested}
	return out
}

// Clone returns a deep copy of s.
func (s *Spec) Clone() *Spec {
	if s == nil {
		return nil
	}
	out := &Spec{}
	if s.Select != nil {
		out.Select = make(map[string]Selection, len(s.Select))
		for k, v := range s.Select {
			out.Select[k] = Selection{Include: v.Include, Nested: v.Nested.Clone()}
		}
	}
	if s.Where != nil {
		out.Where = cloneValue(s.Where).(map[string]any)
	}
	if s.OrderBy != nil {
		out.OrderBy = make([]map[string]any, len(s.OrderBy))
		for i, o := range s.OrderBy {
			out.OrderBy[i] = cloneValue(o).(map[string]any)
		}
	}
	if s.Skip != nil {
		n := *s.Skip
		out.Skip = &n
	}
	if s.Take != nil {
		n := *s.Take
		out.Take = &n
	}
	return out
}

// Value renders the spec back to its document form.
func (s *Spec) Value() map[string]any {
	if s == nil {
		return nil
	}
	out := map[string]any{}
	if s.Select != nil {
		sel := make(map[string]any, len(s.Select))
		for k, v := range s.Select {
			switch {
			case v.Include && v.Nested != nil:
				sel[k] = v.Nested.Value()
			default:
				sel[k] = v.Include
			}
		}
		out["select"] = sel
	}
	if s.Where != nil {
		out["where"] = cloneValue(s.Where)
	}
	if s.OrderBy != nil {
		ob := make([]any, len(s.OrderBy))
		for i, o := range s.OrderBy {
			ob[i] = cloneValue(o)
		}
		out["orderBy"] = ob
	}
	if s.Skip != nil {
		out["skip"] = *s.Skip
	}
	if s.Take != nil {
		out["take"] = *s.Take
	}
	return out
}

// Fields returns the selected field names, sorted. Fields set to false are
// not listed.
func (s *Spec) Fields() []string {
	if s == nil {
		return nil
	}
	var out []string
	for k, v := range s.Select {
		if v.Include {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// fromValue converts a decoded retrieve document into a Spec.
func fromValue(m map[string]any) *Spec {
	s := &Spec{}
	if sel, ok := m["select"].(map[string]any); ok {
		s.Select = make(map[string]Selection, len(sel))
		for k, v := range sel {
			switch x := v.(type) {
			case bool:
				s.Select[k] = Selection{Include: x}
			case map[string]any:
				s.Select[k] = Selection{Include: true, Nested: fromValue(x)}
			}
		}
	}
	if w, ok := m["where"].(map[string]any); ok {
		s.Where = w
	}
	if ob, ok := m["orderBy"].([]any); ok {
		s.OrderBy = make([]map[string]any, 0, len(ob))
		for _, o := range ob {
			if om, ok := o.(map[string]any); ok {
				s.OrderBy = append(s.OrderBy, om)
			}
		}
	}
	s.Skip = intPtr(m["skip"])
	s.Take = intPtr(m["take"])
	return s
}

func intPtr(v any) *int {
	f, ok := v.(float64)
	if !ok {
		return nil
	}
	n := int(f)
	return &n
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	}
	return v
}
