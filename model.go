package gomodel

import (
	"fmt"
	"regexp"
	"sync"
)

// Kind tags the closed set of type variants.
type Kind uint8

const (
	kindLazy Kind = iota // Deferred; resolved by Concrete.
	KindBoolean
	KindNumber
	KindString
	KindLiteral
	KindEnum
	KindOptional
	KindNullable
	KindArray
	KindObject
	KindEntity
	KindUnion
	KindReference
	KindCustom
)

var kindNames = [...]string{
	kindLazy:      "lazy",
	KindBoolean:   "boolean",
	KindNumber:    "number",
	KindString:    "string",
	KindLiteral:   "literal",
	KindEnum:      "enum",
	KindOptional:  "optional",
	KindNullable:  "nullable",
	KindArray:     "array",
	KindObject:    "object",
	KindEntity:    "entity",
	KindUnion:     "union",
	KindReference: "reference",
	KindCustom:    "custom",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Bound is a numeric limit; Inclusive selects <= / >= instead of < / >.
type Bound struct {
	Value     float64
	Inclusive bool
}

// Capabilities lists the retrieve operations an entity (or a function output)
// accepts. An entity without capabilities can only be toggled on or off in a
// selection.
type Capabilities struct {
	Select  bool
	Where   bool
	OrderBy bool
	Skip    bool
	Take    bool
}

// AllCapabilities enables every retrieve operation.
func AllCapabilities() Capabilities {
	return Capabilities{Select: true, Where: true, OrderBy: true, Skip: true, Take: true}
}

// Any reports whether at least one capability is enabled.
func (c Capabilities) Any() bool {
	return c.Select || c.Where || c.OrderBy || c.Skip || c.Take
}

// Options carries the per-type options. Only the fields relevant to a kind
// are consulted.
type Options struct {
	Name        string
	Description string
	Sensitive   bool

	Default    any
	HasDefault bool

	// number
	Minimum    *Bound
	Maximum    *Bound
	MultipleOf *float64

	// string
	MinLength *int
	MaxLength *int
	Regex     *regexp.Regexp

	// array
	MinItems *int
	MaxItems *int

	// entity
	Retrieve *Capabilities
}

// Option mutates Options during construction.
type Option func(*Options)

// Name sets the type name; named types must be unique within a Registry.
func Name(name string) Option { return func(o *Options) { o.Name = name } }

// Description sets a human readable description.
func Description(d string) Option { return func(o *Options) { o.Description = d } }

// Sensitive marks values of the type as sensitive (hidden by HideSensitive).
func Sensitive() Option { return func(o *Options) { o.Sensitive = true } }

// Default sets the value decoded in place of a missing one.
func Default(v any) Option {
	return func(o *Options) { o.Default, o.HasDefault = v, true }
}

// Minimum sets the lower bound of a number.
func Minimum(v float64, inclusive bool) Option {
	return func(o *Options) { o.Minimum = &Bound{Value: v, Inclusive: inclusive} }
}

// Maximum sets the upper bound of a number.
func Maximum(v float64, inclusive bool) Option {
	return func(o *Options) { o.Maximum = &Bound{Value: v, Inclusive: inclusive} }
}

// MultipleOf requires a number to be an exact multiple of m.
func MultipleOf(m float64) Option { return func(o *Options) { o.MultipleOf = &m } }

// MinLength sets the minimum string length in UTF-16 code units.
func MinLength(n int) Option { return func(o *Options) { o.MinLength = &n } }

// MaxLength sets the maximum string length in UTF-16 code units.
func MaxLength(n int) Option { return func(o *Options) { o.MaxLength = &n } }

// Regex requires strings to match re.
func Regex(re *regexp.Regexp) Option { return func(o *Options) { o.Regex = re } }

// MinItems sets the minimum array length.
func MinItems(n int) Option { return func(o *Options) { o.MinItems = &n } }

// MaxItems sets the maximum array length.
func MaxItems(n int) Option { return func(o *Options) { o.MaxItems = &n } }

// Retrieve declares the retrieve capabilities of an entity.
func Retrieve(c Capabilities) Option { return func(o *Options) { o.Retrieve = &c } }

// FieldDef is a named field of an object or entity.
type FieldDef struct {
	Name string
	Type *Type
}

// Field declares an object field.
func Field(name string, t *Type) FieldDef { return FieldDef{Name: name, Type: t} }

// VariantDef is a named union variant with an optional check predicate run
// against decoded values to confirm which variant a value belongs to.
type VariantDef struct {
	Name  string
	Type  *Type
	Check func(v any) bool
}

// Variant declares a union variant. At most one check may be given.
func Variant(name string, t *Type, check ...func(any) bool) VariantDef {
	vd := VariantDef{Name: name, Type: t}
	if len(check) > 0 {
		vd.Check = check[0]
	}
	return vd
}

// CustomSpec holds the user-supplied behaviour of a custom type. The
// framework never looks inside values of custom types.
type CustomSpec struct {
	TypeName string
	Decode   func(raw any, opt DecodeOpt) (any, Errors)
	Validate func(v any, opt ValidateOpt) Errors
	Encode   func(v any, opt EncodeOpt) any
	// Is recognises decoded values of this type; used to pick union variants.
	Is func(v any) bool
}

type lazyCell struct {
	once sync.Once
	f    func() *Type
	t    *Type
}

// Type is a node of the type tree. Types are built once and never mutated;
// the With* helpers return copies.
type Type struct {
	kind     Kind
	opts     Options
	elem     *Type // optional, nullable, array, reference
	fields   []FieldDef
	variants []VariantDef
	literal  any
	values   []string
	custom   *CustomSpec
	lazy     *lazyCell
}

// Boolean returns a boolean type.
func Boolean(opts ...Option) *Type { return newType(KindBoolean, opts) }

// Number returns a number type.
func Number(opts ...Option) *Type { return newType(KindNumber, opts) }

// Integer returns a number type restricted to whole numbers.
func Integer(opts ...Option) *Type {
	return newType(KindNumber, append([]Option{MultipleOf(1)}, opts...))
}

// String returns a string type.
func String(opts ...Option) *Type { return newType(KindString, opts) }

// Literal returns a type accepting exactly v (bool, number, string or nil).
func Literal(v any, opts ...Option) *Type {
	t := newType(KindLiteral, opts)
	if f, ok := toFloat(v); ok {
		v = f
	}
	t.literal = v
	return t
}

// Enum returns a type accepting one of the given strings (case sensitive).
func Enum(values []string, opts ...Option) *Type {
	t := newType(KindEnum, opts)
	t.values = append([]string(nil), values...)
	return t
}

// Optional accepts undefined (or null) in addition to the wrapped type.
func Optional(t *Type, opts ...Option) *Type { return wrap(KindOptional, t, opts) }

// Nullable accepts null in addition to the wrapped type.
func Nullable(t *Type, opts ...Option) *Type { return wrap(KindNullable, t, opts) }

// Array returns an array of elem.
func Array(elem *Type, opts ...Option) *Type { return wrap(KindArray, elem, opts) }

// Reference marks a value as held by reference. It behaves like the wrapped
// type everywhere except in the retrieve engine, which may cut the graph there.
func Reference(t *Type, opts ...Option) *Type { return wrap(KindReference, t, opts) }

// Object returns an object type with fields in declaration order.
func Object(fields ...FieldDef) *Type {
	t := newType(KindObject, nil)
	t.fields = append([]FieldDef(nil), fields...)
	return t
}

// Entity returns an entity: an object addressable by the retrieve engine.
func Entity(fields ...FieldDef) *Type {
	t := newType(KindEntity, nil)
	t.fields = append([]FieldDef(nil), fields...)
	return t
}

// Union returns a union of the given variants, in declaration order.
func Union(variants ...VariantDef) *Type {
	t := newType(KindUnion, nil)
	t.variants = append([]VariantDef(nil), variants...)
	return t
}

// Custom returns a custom type driven by spec.
func Custom(spec CustomSpec, opts ...Option) *Type {
	t := newType(KindCustom, opts)
	s := spec
	t.custom = &s
	return t
}

// Lazy defers the construction of a type until it is first traversed, which
// allows self-referential definitions.
func Lazy(f func() *Type) *Type {
	return &Type{kind: kindLazy, lazy: &lazyCell{f: f}}
}

func newType(k Kind, opts []Option) *Type {
	t := &Type{kind: k}
	for _, o := range opts {
		if o != nil {
			o(&t.opts)
		}
	}
	return t
}

func wrap(k Kind, inner *Type, opts []Option) *Type {
	if inner == nil {
		panic(fmt.Sprintf("gomodel: %s of nil type", k))
	}
	t := newType(k, opts)
	t.elem = inner
	return t
}

// Concrete resolves lazy types. Every operation works on the concrete type.
func (t *Type) Concrete() *Type {
	for t != nil && t.kind == kindLazy {
		c := t.lazy
		c.once.Do(func() { c.t = c.f() })
		if c.t == nil {
			panic("gomodel: lazy type resolved to nil")
		}
		t = c.t
	}
	return t
}

// Kind returns the kind of the concrete type.
func (t *Type) Kind() Kind { return t.Concrete().kind }

// Options returns a copy of the options of the concrete type.
func (t *Type) Options() Options { return t.Concrete().opts }

// Name returns the declared name, or "".
func (t *Type) Name() string { return t.Concrete().opts.Name }

// Elem returns the wrapped type of optional, nullable, array and reference
// types, or nil.
func (t *Type) Elem() *Type { return t.Concrete().elem }

// Fields returns the fields of an object or entity in declaration order.
func (t *Type) Fields() []FieldDef { return append([]FieldDef(nil), t.Concrete().fields...) }

// FieldType looks up a field by name.
func (t *Type) FieldType(name string) (*Type, bool) {
	for _, f := range t.Concrete().fields {
		if f.Name == name {
			return f.Type, true
		}
	}
	return nil, false
}

// Variants returns the union variants in declaration order.
func (t *Type) Variants() []VariantDef {
	return append([]VariantDef(nil), t.Concrete().variants...)
}

// LiteralValue returns the literal value of a literal type.
func (t *Type) LiteralValue() any { return t.Concrete().literal }

// EnumValues returns the variants of an enum type.
func (t *Type) EnumValues() []string { return append([]string(nil), t.Concrete().values...) }

// CustomSpec returns the spec of a custom type, or nil.
func (t *Type) CustomSpec() *CustomSpec { return t.Concrete().custom }

// Capabilities returns the declared retrieve capabilities of an entity.
func (t *Type) Capabilities() (Capabilities, bool) {
	c := t.Concrete()
	if c.opts.Retrieve == nil {
		return Capabilities{}, false
	}
	return *c.opts.Retrieve, true
}

// With returns a copy of the type with extra options applied.
func (t *Type) With(opts ...Option) *Type {
	if t.kind == kindLazy {
		return Lazy(func() *Type { return t.Concrete().With(opts...) })
	}
	cp := *t
	cp.fields = append([]FieldDef(nil), t.fields...)
	cp.variants = append([]VariantDef(nil), t.variants...)
	for _, o := range opts {
		if o != nil {
			o(&cp.opts)
		}
	}
	return &cp
}

// WithFields returns a copy of an object or entity, options included, whose
// fields are replaced by fields.
func (t *Type) WithFields(fields ...FieldDef) *Type {
	c := t.Concrete()
	if c.kind != KindObject && c.kind != KindEntity {
		panic(fmt.Sprintf("gomodel: WithFields on %s", c.kind))
	}
	cp := *c
	cp.fields = append([]FieldDef(nil), fields...)
	return &cp
}

// WithElem returns a copy of an optional, nullable, array or reference type
// wrapping elem instead.
func (t *Type) WithElem(elem *Type) *Type {
	c := t.Concrete()
	if c.elem == nil {
		panic(fmt.Sprintf("gomodel: WithElem on %s", c.kind))
	}
	cp := *c
	cp.elem = elem
	return &cp
}

// WithName is shorthand for With(Name(name)).
func (t *Type) WithName(name string) *Type { return t.With(Name(name)) }

// Optional wraps t in an optional type.
func (t *Type) Optional() *Type { return Optional(t) }

// Nullable wraps t in a nullable type.
func (t *Type) Nullable() *Type { return Nullable(t) }

// Array wraps t in an array type.
func (t *Type) Array() *Type { return Array(t) }

// Reference wraps t in a reference type.
func (t *Type) Reference() *Type { return Reference(t) }

// Unwrap strips optional, nullable, array and reference wrappers and reports
// whether an array was crossed.
func Unwrap(t *Type) (inner *Type, crossedArray bool) {
	c := t.Concrete()
	for {
		switch c.kind {
		case KindOptional, KindNullable, KindReference:
			c = c.elem.Concrete()
		case KindArray:
			crossedArray = true
			c = c.elem.Concrete()
		default:
			return c, crossedArray
		}
	}
}

// IsScalar reports whether the concrete kind carries no children.
func IsScalar(t *Type) bool {
	switch t.Kind() {
	case KindBoolean, KindNumber, KindString, KindLiteral, KindEnum, KindCustom:
		return true
	}
	return false
}

// String describes the type the way decode errors name it.
func (t *Type) String() string { return describe(t.Concrete()) }
