package gomodel

import "fmt"

// Encode validates v against t and converts it into a JSON-compatible value
// (nil, bool, float64, string, []any, map[string]any). The returned error is
// always Errors.
func Encode(t *Type, v any, opts ...EncodeOpt) (any, error) {
	if errs := validateType(t, v, ValidateOpt{ErrorReporting: AllErrors}); len(errs) > 0 {
		return nil, errs
	}
	return encodeType(t, v, firstEncodeOpt(opts)), nil
}

// EncodeWithoutValidation converts v without checking it first. Values that
// do not match t are passed through as they are.
func EncodeWithoutValidation(t *Type, v any, opts ...EncodeOpt) any {
	return encodeType(t, v, firstEncodeOpt(opts))
}

func encodeType(t *Type, v any, o EncodeOpt) any {
	c := t.Concrete()
	if c.opts.Sensitive && o.SensitiveInformation == HideSensitive {
		return nil
	}
	switch c.kind {
	case KindBoolean, KindString, KindEnum, KindLiteral:
		return v
	case KindNumber:
		if f, ok := toFloat(v); ok {
			return f
		}
		return v
	case KindOptional:
		if v == nil || IsUndefined(v) {
			return Undefined
		}
		return encodeType(c.elem, v, o)
	case KindNullable:
		if v == nil {
			return nil
		}
		return encodeType(c.elem, v, o)
	case KindReference:
		return encodeType(c.elem, v, o)
	case KindArray:
		items, ok := asSlice(v)
		if !ok {
			return v
		}
		out := make([]any, len(items))
		for i, it := range items {
			out[i] = encodeType(c.elem, it, o)
		}
		return out
	case KindObject, KindEntity:
		m, ok := asObject(v)
		if !ok {
			return v
		}
		out := make(map[string]any, len(c.fields))
		for _, f := range c.fields {
			fv, present := m[f.Name]
			if !present {
				continue
			}
			if ev := encodeType(f.Type, fv, o); !IsUndefined(ev) {
				out[f.Name] = ev
			}
		}
		return out
	case KindUnion:
		vd, ok := pickVariant(c, v)
		if !ok {
			return v
		}
		return map[string]any{vd.Name: encodeType(vd.Type, v, o)}
	case KindCustom:
		if c.custom.Encode == nil {
			return v
		}
		return c.custom.Encode(v, o)
	}
	panic(fmt.Sprintf("gomodel: encode: unhandled kind %s", c.kind))
}
