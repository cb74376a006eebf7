package gomodel

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Decode converts an untrusted raw value (JSON-like: nil, bool, numbers,
// string, []any, map[string]any) into a typed value and validates it. The
// returned error is always Errors.
func Decode(t *Type, raw any, opts ...DecodeOpt) (any, error) {
	o := firstDecodeOpt(opts)
	v, errs := decodeType(t, raw, o)
	if len(errs) > 0 {
		return nil, errs
	}
	if errs := validateType(t, v, o.ValidateOpt()); len(errs) > 0 {
		return nil, errs
	}
	return v, nil
}

// DecodeWithoutValidation performs only the structural decoding step.
func DecodeWithoutValidation(t *Type, raw any, opts ...DecodeOpt) (any, error) {
	v, errs := decodeType(t, raw, firstDecodeOpt(opts))
	if len(errs) > 0 {
		return nil, errs
	}
	return v, nil
}

func decodeType(t *Type, raw any, o DecodeOpt) (any, Errors) {
	c := t.Concrete()
	if IsUndefined(raw) && c.opts.HasDefault {
		raw = c.opts.Default
	}
	switch c.kind {
	case KindBoolean:
		return decodeBoolean(raw, o)
	case KindNumber:
		return decodeNumber(raw, o)
	case KindString:
		return decodeString(raw, o)
	case KindLiteral:
		return decodeLiteral(c, raw, o)
	case KindEnum:
		return decodeEnum(c, raw)
	case KindOptional:
		if raw == nil || IsUndefined(raw) {
			return Undefined, nil
		}
		v, errs := decodeType(c.elem, raw, o)
		return v, widenRootErrors(errs, " or undefined")
	case KindNullable:
		if raw == nil || (o.casting() && IsUndefined(raw)) {
			return nil, nil
		}
		v, errs := decodeType(c.elem, raw, o)
		return v, widenRootErrors(errs, " or null")
	case KindReference:
		return decodeType(c.elem, raw, o)
	case KindArray:
		return decodeArray(c, raw, o)
	case KindObject, KindEntity:
		return decodeObject(c, raw, o)
	case KindUnion:
		if o.UnionDecoding == UntaggedUnions {
			return decodeUntaggedUnion(c, raw, o)
		}
		return decodeTaggedUnion(c, raw, o)
	case KindCustom:
		if c.custom.Decode == nil {
			return raw, nil
		}
		v, errs := c.custom.Decode(raw, o)
		if len(errs) > 0 {
			return nil, errs
		}
		return v, nil
	}
	panic(fmt.Sprintf("gomodel: decode: unhandled kind %s", c.kind))
}

func decodeBoolean(raw any, o DecodeOpt) (any, Errors) {
	if b, ok := raw.(bool); ok {
		return b, nil
	}
	if o.casting() {
		switch v := raw.(type) {
		case string:
			if v == "true" {
				return true, nil
			}
			if v == "false" {
				return false, nil
			}
		default:
			if f, ok := toFloat(raw); ok {
				return f != 0, nil
			}
		}
	}
	return nil, fail(CodeInvalidType, "boolean", raw)
}

func decodeNumber(raw any, o DecodeOpt) (any, Errors) {
	if f, ok := toFloat(raw); ok {
		return f, nil
	}
	if s, ok := raw.(string); ok && o.casting() {
		if f, ok := parseNumberString(s); ok {
			return f, nil
		}
	}
	return nil, fail(CodeInvalidType, "number", raw)
}

// parseNumberString accepts decimal notation only; "NaN", "Inf" and hex
// floats are rejected.
func parseNumberString(s string) (float64, bool) {
	if s == "" || strings.ContainsAny(s, "xXpP_") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func decodeString(raw any, o DecodeOpt) (any, Errors) {
	if s, ok := raw.(string); ok {
		return s, nil
	}
	if o.casting() {
		if b, ok := raw.(bool); ok {
			return strconv.FormatBool(b), nil
		}
		if f, ok := toFloat(raw); ok {
			return formatNumber(f), nil
		}
	}
	return nil, fail(CodeInvalidType, "string", raw)
}

func decodeLiteral(c *Type, raw any, o DecodeOpt) (any, Errors) {
	switch lit := c.literal.(type) {
	case nil:
		if raw == nil {
			return nil, nil
		}
		if s, ok := raw.(string); ok && s == "null" && o.casting() {
			return nil, nil
		}
	case float64:
		if f, ok := toFloat(raw); ok && f == lit {
			return lit, nil
		}
	default:
		if raw == c.literal {
			return lit, nil
		}
	}
	return nil, fail(CodeInvalidValue, describe(c), raw)
}

func decodeEnum(c *Type, raw any) (any, Errors) {
	if s, ok := raw.(string); ok {
		for _, v := range c.values {
			if v == s {
				return s, nil
			}
		}
	}
	return nil, fail(CodeInvalidEnum, describe(c), raw)
}

// widenRootErrors rewrites root-level expectations of a wrapped type, e.g.
// "number" becomes "number or null".
func widenRootErrors(errs Errors, suffix string) Errors {
	if len(errs) == 0 {
		return nil
	}
	out := make(Errors, len(errs))
	for i, e := range errs {
		if e.Path.Len() == 0 {
			e.Expected += suffix
		}
		out[i] = e
	}
	return out
}

func decodeArray(c *Type, raw any, o DecodeOpt) (any, Errors) {
	items, ok := asSlice(raw)
	if !ok && o.casting() {
		items, ok = arrayLike(raw)
	}
	if !ok {
		return nil, fail(CodeInvalidType, "array", raw)
	}
	out := make([]any, 0, len(items))
	var errs Errors
	for i, item := range items {
		v, ierrs := decodeType(c.elem, item, o)
		if len(ierrs) > 0 {
			errs = append(errs, ierrs.PrependIndex(i)...)
			if o.stopFirst() {
				return nil, errs
			}
			continue
		}
		out = append(out, v)
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

// arrayLike reassembles a non-empty object whose keys are exactly the
// indices 0..n-1 (in any order) into a slice.
func arrayLike(raw any) ([]any, bool) {
	m, ok := asObject(raw)
	if !ok || len(m) == 0 {
		return nil, false
	}
	out := make([]any, len(m))
	for k, v := range m {
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 || i >= len(m) || strconv.Itoa(i) != k {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func decodeObject(c *Type, raw any, o DecodeOpt) (any, Errors) {
	var m map[string]any
	if raw == nil {
		m = map[string]any{}
	} else {
		var ok bool
		if m, ok = asObject(raw); !ok {
			return nil, fail(CodeInvalidType, "object", raw)
		}
	}
	out := make(map[string]any, len(c.fields))
	var errs Errors
	for _, f := range c.fields {
		fv, present := m[f.Name]
		if !present {
			fv = Undefined
		}
		v, ferrs := decodeType(f.Type, fv, o)
		if len(ferrs) > 0 {
			errs = append(errs, ferrs.PrependField(f.Name)...)
			if o.stopFirst() {
				return nil, errs
			}
			continue
		}
		if !IsUndefined(v) {
			out[f.Name] = v
		}
	}
	if o.FieldStrictness == ExpectExactFields {
		for _, k := range unknownKeys(c, m) {
			errs = append(errs, Error{
				Code:     CodeUnknownField,
				Expected: "undefined",
				Got:      m[k],
				Path:     Root.PrependField(k),
			})
			if o.stopFirst() {
				return nil, errs
			}
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

// unknownKeys lists, sorted, the keys of m that c does not declare. Keys
// holding Undefined count as absent.
func unknownKeys(c *Type, m map[string]any) []string {
	var keys []string
	for k, v := range m {
		if IsUndefined(v) {
			continue
		}
		if _, ok := c.FieldType(k); !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func decodeTaggedUnion(c *Type, raw any, o DecodeOpt) (any, Errors) {
	m, ok := asObject(raw)
	if !ok || len(m) != 1 {
		return nil, fail(CodeUnionTag, describe(c), raw)
	}
	var tag string
	var payload any
	for k, v := range m {
		tag, payload = k, v
	}
	for _, vd := range c.variants {
		if vd.Name != tag {
			continue
		}
		v, errs := decodeType(vd.Type, payload, o)
		if len(errs) > 0 {
			return nil, errs.PrependVariant(vd.Name)
		}
		if vd.Check != nil && !vd.Check(v) {
			return nil, fail(CodeVariantCheck, vd.Name, v)
		}
		// the first matching check decides the variant on validate and encode
		if first, ok := firstChecked(c, v); ok && first.Name != vd.Name {
			return nil, fail(CodeVariantCheck, vd.Name, v)
		}
		return v, nil
	}
	return nil, fail(CodeUnionTag, describe(c), raw)
}

func firstChecked(c *Type, v any) (VariantDef, bool) {
	for _, vd := range c.variants {
		if vd.Check != nil && vd.Check(v) {
			return vd, true
		}
	}
	return VariantDef{}, false
}

func decodeUntaggedUnion(c *Type, raw any, o DecodeOpt) (any, Errors) {
	var errs Errors
	for _, vd := range c.variants {
		v, verrs := decodeType(vd.Type, raw, o)
		if len(verrs) > 0 {
			errs = append(errs, verrs.PrependVariant(vd.Name)...)
			continue
		}
		if vd.Check != nil && !vd.Check(v) {
			errs = append(errs, NewError(CodeVariantCheck, vd.Name, raw))
			continue
		}
		return v, nil
	}
	return nil, errs
}

// describe names a type the way decode errors expect it.
func describe(c *Type) string {
	switch c.kind {
	case KindLiteral:
		return "literal (" + literalString(c.literal) + ")"
	case KindEnum:
		quoted := make([]string, len(c.values))
		for i, v := range c.values {
			quoted[i] = strconv.Quote(v)
		}
		return "enum (" + strings.Join(quoted, " | ") + ")"
	case KindOptional:
		return describe(c.elem.Concrete()) + " or undefined"
	case KindNullable:
		return describe(c.elem.Concrete()) + " or null"
	case KindReference:
		return describe(c.elem.Concrete())
	case KindObject, KindEntity:
		return "object"
	case KindUnion:
		names := make([]string, len(c.variants))
		for i, v := range c.variants {
			names[i] = v.Name
		}
		return "union (" + strings.Join(names, " | ") + ")"
	case KindCustom:
		return c.custom.TypeName
	}
	return c.kind.String()
}

func literalString(v any) string {
	switch l := v.(type) {
	case nil:
		return "null"
	case float64:
		return formatNumber(l)
	case string:
		return l
	}
	return fmt.Sprint(v)
}
