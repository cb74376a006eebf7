package custom

import (
	"net/mail"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/reoring/gomodel"
)

// stringType builds a custom type over strings whose decoded form is the
// result of parse.
func stringType(name, expected string, parse func(string) (any, bool), opts []gomodel.Option) *gomodel.Type {
	check := func(v any) bool {
		s, ok := v.(string)
		if !ok {
			return false
		}
		_, ok = parse(s)
		return ok
	}
	return gomodel.Custom(gomodel.CustomSpec{
		TypeName: name,
		Decode: func(raw any, _ gomodel.DecodeOpt) (any, gomodel.Errors) {
			if s, ok := raw.(string); ok {
				if v, ok := parse(s); ok {
					return v, nil
				}
			}
			return nil, invalid(expected, raw)
		},
		Validate: func(v any, _ gomodel.ValidateOpt) gomodel.Errors {
			if !check(v) {
				return invalid(expected, v)
			}
			return nil
		},
		Is: check,
	}, opts...)
}

// UUID is a string in the canonical 8-4-4-4-12 hexadecimal form.
func UUID(opts ...gomodel.Option) *gomodel.Type {
	return stringType("UUID", "UUID", func(s string) (any, bool) {
		if len(s) != 36 {
			return nil, false
		}
		if _, err := uuid.Parse(s); err != nil {
			return nil, false
		}
		return s, true
	}, opts)
}

const maxEmailLength = 320

// Email is a bare address such as "user@example.com". Display names and
// angle brackets are rejected.
func Email(opts ...gomodel.Option) *gomodel.Type {
	return stringType("email", "email", func(s string) (any, bool) {
		if len(s) > maxEmailLength {
			return nil, false
		}
		addr, err := mail.ParseAddress(s)
		if err != nil || addr.Address != s || !strings.Contains(s[strings.LastIndex(s, "@"):], ".") {
			return nil, false
		}
		return s, true
	}, opts)
}

// URL is an absolute URL. It decodes to a *url.URL and encodes back to its
// string form.
func URL(opts ...gomodel.Option) *gomodel.Type {
	parse := func(s string) (*url.URL, bool) {
		u, err := url.Parse(s)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, false
		}
		return u, true
	}
	return gomodel.Custom(gomodel.CustomSpec{
		TypeName: "URL",
		Decode: func(raw any, _ gomodel.DecodeOpt) (any, gomodel.Errors) {
			switch v := raw.(type) {
			case *url.URL:
				if v != nil && v.Scheme != "" && v.Host != "" {
					return v, nil
				}
			case string:
				if u, ok := parse(v); ok {
					return u, nil
				}
			}
			return nil, invalid("URL", raw)
		},
		Validate: func(v any, _ gomodel.ValidateOpt) gomodel.Errors {
			if u, ok := v.(*url.URL); !ok || u == nil || u.Scheme == "" || u.Host == "" {
				return invalid("URL", v)
			}
			return nil
		},
		Encode: func(v any, _ gomodel.EncodeOpt) any {
			if u, ok := v.(*url.URL); ok {
				return u.String()
			}
			return v
		},
		Is: func(v any) bool { _, ok := v.(*url.URL); return ok },
	}, opts...)
}

// Timezone is an IANA time zone name. Matching is case-insensitive and the
// decoded value is the canonical name ("europe/rome" decodes to
// "Europe/Rome").
func Timezone(opts ...gomodel.Option) *gomodel.Type {
	return stringType("timezone", "timezone", func(s string) (any, bool) {
		name, ok := canonicalZone(s)
		if !ok {
			return nil, false
		}
		return name, true
	}, opts)
}

func canonicalZone(s string) (string, bool) {
	if s == "" || s == "Local" || !strings.Contains(s, "/") {
		return "", false
	}
	for _, candidate := range []string{titleZone(s), s} {
		if loc, err := time.LoadLocation(candidate); err == nil {
			return loc.String(), true
		}
	}
	return "", false
}

// titleZone title-cases every segment of a zone name: "america/new_york"
// becomes "America/New_York".
func titleZone(s string) string {
	caser := cases.Title(language.Und)
	var b strings.Builder
	start := 0
	for i := 0; i <= len(s); i++ {
		if i < len(s) && s[i] != '/' && s[i] != '_' && s[i] != '-' {
			continue
		}
		b.WriteString(caser.String(s[start:i]))
		if i < len(s) {
			b.WriteByte(s[i])
		}
		start = i + 1
	}
	return b.String()
}
