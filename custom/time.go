// Package custom provides ready-made custom types: dates and timestamps,
// identifiers and addresses, free-form records and the void and unknown
// types.
//
// Every constructor returns a *gomodel.Type of kind Custom and accepts the
// usual options (Name, Description, Sensitive...).
package custom

import (
	"time"

	"github.com/reoring/gomodel"
)

// DateTime is an RFC3339 string on the wire and a time.Time once decoded.
// Decoding also accepts a time.Time, and with TryCasting a number of
// milliseconds since the epoch. Values are encoded in UTC.
func DateTime(opts ...gomodel.Option) *gomodel.Type {
	return gomodel.Custom(gomodel.CustomSpec{
		TypeName: "datetime",
		Decode: func(raw any, opt gomodel.DecodeOpt) (any, gomodel.Errors) {
			switch v := raw.(type) {
			case time.Time:
				return v, nil
			case string:
				if t, err := parseRFC3339(v); err == nil {
					return t, nil
				}
			default:
				if opt.TypeCasting == gomodel.TryCasting {
					if t, ok := fromMillis(raw); ok {
						return t, nil
					}
				}
			}
			return nil, invalid("ISO date", raw)
		},
		Validate: isTime,
		Encode: func(v any, _ gomodel.EncodeOpt) any {
			if t, ok := v.(time.Time); ok {
				return formatRFC3339Canonical(t)
			}
			return v
		},
		Is: func(v any) bool { _, ok := v.(time.Time); return ok },
	}, opts...)
}

// Timestamp is a number of milliseconds since the Unix epoch on the wire and
// a time.Time once decoded. With TryCasting numeric strings are accepted.
func Timestamp(opts ...gomodel.Option) *gomodel.Type {
	return gomodel.Custom(gomodel.CustomSpec{
		TypeName: "timestamp",
		Decode: func(raw any, opt gomodel.DecodeOpt) (any, gomodel.Errors) {
			if t, ok := raw.(time.Time); ok {
				return t, nil
			}
			if t, ok := fromMillis(raw, opt); ok {
				return t, nil
			}
			return nil, invalid("timestamp", raw)
		},
		Validate: isTime,
		Encode: func(v any, _ gomodel.EncodeOpt) any {
			if t, ok := v.(time.Time); ok {
				return float64(t.UnixMilli())
			}
			return v
		},
		Is: func(v any) bool { _, ok := v.(time.Time); return ok },
	}, opts...)
}

func isTime(v any, _ gomodel.ValidateOpt) gomodel.Errors {
	if _, ok := v.(time.Time); !ok {
		return invalid("time", v)
	}
	return nil
}

// fromMillis decodes raw as an integral number of milliseconds.
func fromMillis(raw any, opt ...gomodel.DecodeOpt) (time.Time, bool) {
	o := gomodel.DecodeOpt{}
	if len(opt) > 0 {
		o.TypeCasting = opt[0].TypeCasting
	}
	n, err := gomodel.DecodeWithoutValidation(gomodel.Number(), raw, o)
	if err != nil {
		return time.Time{}, false
	}
	ms := n.(float64)
	if ms != float64(int64(ms)) {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(ms)).UTC(), true
}

func parseRFC3339(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		if t2, err2 := time.Parse(time.RFC3339, s); err2 == nil {
			return t2, nil
		}
		return time.Time{}, err
	}
	return t, nil
}

// formatRFC3339Canonical trims trailing zeros of the fraction.
func formatRFC3339Canonical(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func invalid(expected string, got any) gomodel.Errors {
	return gomodel.Errors{gomodel.NewError(gomodel.CodeInvalidType, expected, got)}
}
