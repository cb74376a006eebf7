package retrieve

import (
	"github.com/reoring/gomodel"
)

// Relation reports whether a field type points to an entity, unwrapping
// optional, nullable, array and reference wrappers. many is true when an
// array was crossed (a list relation).
func Relation(t *gomodel.Type) (entity *gomodel.Type, many bool, ok bool) {
	inner, many := gomodel.Unwrap(t)
	if inner.Kind() != gomodel.KindEntity {
		return nil, false, false
	}
	return inner, many, true
}

// RelationCapabilities returns what a nested selection on a relation to
// entity may use: list relations get the entity's declared capabilities,
// single relations only its select.
func RelationCapabilities(entity *gomodel.Type, many bool) Capabilities {
	caps, ok := entity.Capabilities()
	if !ok {
		return Capabilities{}
	}
	if many {
		return caps
	}
	return Capabilities{Select: caps.Select}
}

// FromType builds the type of valid retrieve documents for output given the
// capabilities declared by the caller (typically a function). It reports
// false when nothing can be retrieved: no capability is declared, or output
// is neither an entity nor an object.
func FromType(output *gomodel.Type, caps Capabilities) (*gomodel.Type, bool) {
	if !caps.Any() {
		return nil, false
	}
	inner, _ := gomodel.Unwrap(output)
	b := newBuilder()
	switch inner.Kind() {
	case gomodel.KindEntity:
		return b.node(inner, caps), true
	case gomodel.KindObject:
		if !caps.Select {
			return nil, false
		}
		return b.node(inner, Capabilities{Select: true}), true
	}
	return nil, false
}

type nodeKey struct {
	t    *gomodel.Type
	caps Capabilities
}

// builder memoises the generated types so that cyclic entity graphs produce
// cyclic (lazy) retrieve types instead of recursing forever.
type builder struct {
	nodes   map[nodeKey]*gomodel.Type
	selects map[*gomodel.Type]*gomodel.Type
	wheres  map[*gomodel.Type]*gomodel.Type
	orders  map[*gomodel.Type]*gomodel.Type
}

func newBuilder() *builder {
	return &builder{
		nodes:   map[nodeKey]*gomodel.Type{},
		selects: map[*gomodel.Type]*gomodel.Type{},
		wheres:  map[*gomodel.Type]*gomodel.Type{},
		orders:  map[*gomodel.Type]*gomodel.Type{},
	}
}

// memo returns the cached type for key or registers a lazy placeholder and
// builds it.
func memo[K comparable](cache map[K]*gomodel.Type, key K, build func() *gomodel.Type) *gomodel.Type {
	if t, ok := cache[key]; ok {
		return t
	}
	var built *gomodel.Type
	cache[key] = gomodel.Lazy(func() *gomodel.Type { return built })
	built = build()
	cache[key] = built
	return built
}

func (b *builder) node(c *gomodel.Type, caps Capabilities) *gomodel.Type {
	return memo(b.nodes, nodeKey{c, caps}, func() *gomodel.Type {
		var fields []gomodel.FieldDef
		if caps.Select {
			fields = append(fields, gomodel.Field("select", b.selectType(c).Optional()))
		}
		if caps.Where {
			fields = append(fields, gomodel.Field("where", b.whereType(c).Optional()))
		}
		if caps.OrderBy {
			fields = append(fields, gomodel.Field("orderBy", b.orderByType(c).Array().Optional()))
		}
		if caps.Skip {
			fields = append(fields, gomodel.Field("skip", gomodel.Integer(gomodel.Minimum(0, true)).Optional()))
		}
		if caps.Take {
			fields = append(fields, gomodel.Field("take", gomodel.Integer(gomodel.Minimum(0, true)).Optional()))
		}
		return gomodel.Object(fields...)
	})
}

func toggleOr(nested *gomodel.Type) *gomodel.Type {
	return gomodel.Union(
		gomodel.Variant("include", gomodel.Boolean()),
		gomodel.Variant("retrieve", nested),
	)
}

func (b *builder) selectType(c *gomodel.Type) *gomodel.Type {
	return memo(b.selects, c, func() *gomodel.Type {
		fields := c.Fields()
		out := make([]gomodel.FieldDef, 0, len(fields))
		for _, f := range fields {
			var sel *gomodel.Type
			inner, many := gomodel.Unwrap(f.Type)
			switch inner.Kind() {
			case gomodel.KindEntity:
				if rc := RelationCapabilities(inner, many); rc.Any() {
					sel = toggleOr(b.node(inner, rc))
				} else {
					sel = gomodel.Boolean()
				}
			case gomodel.KindObject:
				sel = toggleOr(b.node(inner, Capabilities{Select: true}))
			default:
				sel = gomodel.Boolean()
			}
			out = append(out, gomodel.Field(f.Name, sel.Optional()))
		}
		return gomodel.Object(out...)
	})
}

// filterable reports whether a where/orderBy clause may target a field of
// this (unwrapped) kind.
func filterable(k gomodel.Kind) bool {
	switch k {
	case gomodel.KindBoolean, gomodel.KindNumber, gomodel.KindString,
		gomodel.KindLiteral, gomodel.KindEnum, gomodel.KindCustom:
		return true
	}
	return false
}

func (b *builder) whereType(c *gomodel.Type) *gomodel.Type {
	return memo(b.wheres, c, func() *gomodel.Type {
		var out []gomodel.FieldDef
		for _, f := range c.Fields() {
			inner, many := gomodel.Unwrap(f.Type)
			switch {
			case inner.Kind() == gomodel.KindEntity:
				caps, ok := inner.Capabilities()
				if !ok || !caps.Where {
					continue
				}
				rel := b.whereType(inner)
				if many {
					rel = gomodel.Object(
						gomodel.Field("some", rel.Optional()),
						gomodel.Field("every", rel.Optional()),
						gomodel.Field("none", rel.Optional()),
					)
				}
				out = append(out, gomodel.Field(f.Name, rel.Optional()))
			case !many && filterable(inner.Kind()):
				out = append(out, gomodel.Field(f.Name, gomodel.Object(
					gomodel.Field("equals", inner.Optional()),
					gomodel.Field("in", inner.Array().Optional()),
				).Optional()))
			}
		}
		ref := gomodel.Lazy(func() *gomodel.Type { return b.wheres[c] })
		out = append(out,
			gomodel.Field("AND", ref.Array().Optional()),
			gomodel.Field("OR", ref.Array().Optional()),
			gomodel.Field("NOT", ref.Optional()),
		)
		return gomodel.Object(out...)
	})
}

var direction = gomodel.Enum([]string{"asc", "desc"})

func (b *builder) orderByType(c *gomodel.Type) *gomodel.Type {
	return memo(b.orders, c, func() *gomodel.Type {
		var out []gomodel.FieldDef
		for _, f := range c.Fields() {
			inner, many := gomodel.Unwrap(f.Type)
			switch {
			case many:
				continue
			case inner.Kind() == gomodel.KindEntity:
				caps, ok := inner.Capabilities()
				if !ok || !caps.OrderBy {
					continue
				}
				out = append(out, gomodel.Field(f.Name, b.orderByType(inner).Optional()))
			case filterable(inner.Kind()):
				out = append(out, gomodel.Field(f.Name, direction.Optional()))
			}
		}
		return gomodel.Object(out...)
	})
}

// Decode validates a candidate retrieve document against the type built by
// FromType and converts it into a Spec. A nil or undefined document yields a
// nil Spec. Failures are gomodel.Errors.
func Decode(output *gomodel.Type, caps Capabilities, raw any) (*Spec, error) {
	if raw == nil || gomodel.IsUndefined(raw) {
		return nil, nil
	}
	t, ok := FromType(output, caps)
	if !ok {
		return nil, gomodel.Errors{gomodel.NewError(gomodel.CodeUnknownField, "undefined", raw)}
	}
	v, err := gomodel.Decode(t, raw, gomodel.DecodeOpt{
		ErrorReporting: gomodel.AllErrors,
		UnionDecoding:  gomodel.UntaggedUnions,
	})
	if err != nil {
		return nil, err
	}
	return fromValue(v.(map[string]any)), nil
}
