package gomodel

import (
	"fmt"
	"math"

	"github.com/reoring/gomodel/i18n"
)

// Validate checks the semantic constraints (bounds, lengths, patterns,
// custom predicates) of an already decoded value. It never mutates v. The
// returned error is always Errors.
func Validate(t *Type, v any, opts ...ValidateOpt) error {
	if errs := validateType(t, v, firstValidateOpt(opts)); len(errs) > 0 {
		return errs
	}
	return nil
}

func validateType(t *Type, v any, o ValidateOpt) Errors {
	c := t.Concrete()
	switch c.kind {
	case KindBoolean, KindEnum, KindLiteral:
		return nil
	case KindNumber:
		return validateNumber(c, v)
	case KindString:
		return validateString(c, v)
	case KindOptional:
		if v == nil || IsUndefined(v) {
			return nil
		}
		return validateType(c.elem, v, o)
	case KindNullable:
		if v == nil {
			return nil
		}
		return validateType(c.elem, v, o)
	case KindReference:
		return validateType(c.elem, v, o)
	case KindArray:
		return validateArray(c, v, o)
	case KindObject, KindEntity:
		return validateObject(c, v, o)
	case KindUnion:
		return validateUnion(c, v, o)
	case KindCustom:
		if c.custom.Validate == nil {
			return nil
		}
		return c.custom.Validate(v, o)
	}
	panic(fmt.Sprintf("gomodel: validate: unhandled kind %s", c.kind))
}

func validateNumber(c *Type, v any) Errors {
	f, ok := toFloat(v)
	if !ok {
		return fail(CodeInvalidType, "number", v)
	}
	if b := c.opts.Maximum; b != nil {
		if b.Inclusive && f > b.Value {
			return fail(CodeTooBig, i18n.T(i18n.NumberMaxInclusive, formatNumber(b.Value)), v)
		}
		if !b.Inclusive && f >= b.Value {
			return fail(CodeTooBig, i18n.T(i18n.NumberMaxExclusive, formatNumber(b.Value)), v)
		}
	}
	if b := c.opts.Minimum; b != nil {
		if b.Inclusive && f < b.Value {
			return fail(CodeTooSmall, i18n.T(i18n.NumberMinInclusive, formatNumber(b.Value)), v)
		}
		if !b.Inclusive && f <= b.Value {
			return fail(CodeTooSmall, i18n.T(i18n.NumberMinExclusive, formatNumber(b.Value)), v)
		}
	}
	if m := c.opts.MultipleOf; m != nil && math.Mod(f, *m) != 0 {
		return fail(CodeNotMultipleOf, i18n.T(i18n.NumberMultipleOf, formatNumber(*m)), v)
	}
	return nil
}

// utf16Len counts UTF-16 code units, matching the length JSON clients see.
func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}

func validateString(c *Type, v any) Errors {
	s, ok := v.(string)
	if !ok {
		return fail(CodeInvalidType, "string", v)
	}
	if n := c.opts.MaxLength; n != nil && utf16Len(s) > *n {
		return fail(CodeTooLong, i18n.T(i18n.StringMaxLength, *n), v)
	}
	if n := c.opts.MinLength; n != nil && utf16Len(s) < *n {
		return fail(CodeTooShort, i18n.T(i18n.StringMinLength, *n), v)
	}
	if re := c.opts.Regex; re != nil && !re.MatchString(s) {
		return fail(CodePattern, i18n.T(i18n.StringRegex, re.String()), v)
	}
	return nil
}

func validateArray(c *Type, v any, o ValidateOpt) Errors {
	items, ok := asSlice(v)
	if !ok {
		return fail(CodeInvalidType, "array", v)
	}
	if n := c.opts.MaxItems; n != nil && len(items) > *n {
		return fail(CodeTooLong, i18n.T(i18n.ArrayMaxItems, *n), v)
	}
	if n := c.opts.MinItems; n != nil && len(items) < *n {
		return fail(CodeTooShort, i18n.T(i18n.ArrayMinItems, *n), v)
	}
	var errs Errors
	for i, item := range items {
		if ierrs := validateType(c.elem, item, o); len(ierrs) > 0 {
			errs = append(errs, ierrs.PrependIndex(i)...)
			if o.ErrorReporting == StopAtFirstError {
				break
			}
		}
	}
	return errs
}

func validateObject(c *Type, v any, o ValidateOpt) Errors {
	m, ok := asObject(v)
	if !ok {
		return fail(CodeInvalidType, "object", v)
	}
	var errs Errors
	for _, f := range c.fields {
		fv, present := m[f.Name]
		if !present || IsUndefined(fv) {
			continue
		}
		if ferrs := validateType(f.Type, fv, o); len(ferrs) > 0 {
			errs = append(errs, ferrs.PrependField(f.Name)...)
			if o.ErrorReporting == StopAtFirstError {
				break
			}
		}
	}
	return errs
}

func validateUnion(c *Type, v any, o ValidateOpt) Errors {
	vd, ok := pickVariant(c, v)
	if !ok {
		return fail(CodeVariantCheck, i18n.T(i18n.UnionNoVariant), v)
	}
	return validateType(vd.Type, v, o).PrependVariant(vd.Name)
}

// pickVariant finds the variant a decoded value belongs to: the first variant
// whose check accepts it, otherwise the first unchecked variant whose shape
// matches.
func pickVariant(c *Type, v any) (VariantDef, bool) {
	if vd, ok := firstChecked(c, v); ok {
		return vd, true
	}
	for _, vd := range c.variants {
		if vd.Check == nil && conforms(vd.Type, v) {
			return vd, true
		}
	}
	return VariantDef{}, false
}

// conforms reports whether a decoded value has the shape of t. Constraints
// are not checked.
func conforms(t *Type, v any) bool {
	c := t.Concrete()
	switch c.kind {
	case KindBoolean:
		_, ok := v.(bool)
		return ok
	case KindNumber:
		_, ok := toFloat(v)
		return ok
	case KindString:
		_, ok := v.(string)
		return ok
	case KindLiteral:
		_, errs := decodeLiteral(c, v, DecodeOpt{})
		return len(errs) == 0
	case KindEnum:
		_, errs := decodeEnum(c, v)
		return len(errs) == 0
	case KindOptional:
		return v == nil || IsUndefined(v) || conforms(c.elem, v)
	case KindNullable:
		return v == nil || conforms(c.elem, v)
	case KindReference:
		return conforms(c.elem, v)
	case KindArray:
		items, ok := asSlice(v)
		if !ok {
			return false
		}
		for _, it := range items {
			if !conforms(c.elem, it) {
				return false
			}
		}
		return true
	case KindObject, KindEntity:
		m, ok := asObject(v)
		if !ok {
			return false
		}
		for _, f := range c.fields {
			fv, present := m[f.Name]
			if !present {
				fv = Undefined
			}
			if !conforms(f.Type, fv) {
				return false
			}
		}
		return true
	case KindUnion:
		_, ok := pickVariant(c, v)
		return ok
	case KindCustom:
		if c.custom.Is == nil {
			return true
		}
		return c.custom.Is(v)
	}
	return false
}
