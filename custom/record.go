package custom

import (
	"sort"

	"github.com/reoring/gomodel"
)

// Record is an object with arbitrary string keys whose values all have type
// value. Errors are reported under the offending key.
func Record(value *gomodel.Type, opts ...gomodel.Option) *gomodel.Type {
	return gomodel.Custom(gomodel.CustomSpec{
		TypeName: "record",
		Decode: func(raw any, opt gomodel.DecodeOpt) (any, gomodel.Errors) {
			m, ok := raw.(map[string]any)
			if !ok {
				return nil, invalid("record", raw)
			}
			out := make(map[string]any, len(m))
			var errs gomodel.Errors
			for _, k := range sortedKeys(m) {
				v, err := gomodel.DecodeWithoutValidation(value, m[k], opt)
				if err != nil {
					es, _ := gomodel.AsErrors(err)
					errs = append(errs, es.PrependField(k)...)
					if opt.ErrorReporting == gomodel.StopAtFirstError {
						return nil, errs
					}
					continue
				}
				if !gomodel.IsUndefined(v) {
					out[k] = v
				}
			}
			if len(errs) > 0 {
				return nil, errs
			}
			return out, nil
		},
		Validate: func(v any, opt gomodel.ValidateOpt) gomodel.Errors {
			m, ok := v.(map[string]any)
			if !ok {
				return invalid("record", v)
			}
			var errs gomodel.Errors
			for _, k := range sortedKeys(m) {
				if err := gomodel.Validate(value, m[k], opt); err != nil {
					es, _ := gomodel.AsErrors(err)
					errs = append(errs, es.PrependField(k)...)
					if opt.ErrorReporting == gomodel.StopAtFirstError {
						return errs
					}
				}
			}
			return errs
		},
		Encode: func(v any, opt gomodel.EncodeOpt) any {
			m, ok := v.(map[string]any)
			if !ok {
				return v
			}
			out := make(map[string]any, len(m))
			for k, e := range m {
				if enc := gomodel.EncodeWithoutValidation(value, e, opt); !gomodel.IsUndefined(enc) {
					out[k] = enc
				}
			}
			return out
		},
		Is: func(v any) bool { _, ok := v.(map[string]any); return ok },
	}, opts...)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Void accepts anything, decodes to gomodel.Undefined and encodes to
// gomodel.Undefined. It is the output type of functions returning nothing.
func Void(opts ...gomodel.Option) *gomodel.Type {
	return gomodel.Custom(gomodel.CustomSpec{
		TypeName: "void",
		Decode:   func(any, gomodel.DecodeOpt) (any, gomodel.Errors) { return gomodel.Undefined, nil },
		Encode:   func(any, gomodel.EncodeOpt) any { return gomodel.Undefined },
	}, opts...)
}

// Unknown accepts any value and passes it through unchanged.
func Unknown(opts ...gomodel.Option) *gomodel.Type {
	return gomodel.Custom(gomodel.CustomSpec{TypeName: "unknown"}, opts...)
}
