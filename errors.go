package gomodel

import (
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
)

// Error codes (exported consts for IDE completion and type safety by convention)
const (
	CodeInvalidType   = "invalid_type"
	CodeInvalidEnum   = "invalid_enum"
	CodeInvalidValue  = "invalid_value"
	CodeUnknownField  = "unknown_field"
	CodeUnionTag      = "union_tag"
	CodeVariantCheck  = "variant_check"
	CodeTooSmall      = "too_small"
	CodeTooBig        = "too_big"
	CodeNotMultipleOf = "not_multiple_of"
	CodeTooShort      = "too_short"
	CodeTooLong       = "too_long"
	CodePattern       = "pattern"
	CodeCustom        = "custom"
)

// Error is a single decode or validation failure bound to a Path.
//
// For decode errors Expected names what the decoder wanted ("string",
// "union (a | b)"); for validation errors it carries the failed assertion
// ("number must be less than 10").
type Error struct {
	Code     string
	Expected string
	Got      any
	Path     Path
}

// NewError creates an error at the root path.
func NewError(code, expected string, got any) Error {
	return Error{Code: code, Expected: expected, Got: got}
}

// Error implements error.
func (e Error) Error() string {
	return fmt.Sprintf("expected %s at %s", e.Expected, e.Path)
}

// MarshalJSON renders {expected, got, path}; path uses the "$" notation.
func (e Error) MarshalJSON() ([]byte, error) {
	got := e.Got
	if IsUndefined(got) {
		got = nil
	}
	return json.Marshal(struct {
		Expected string `json:"expected"`
		Got      any    `json:"got"`
		Path     string `json:"path"`
		Code     string `json:"code,omitempty"`
	}{e.Expected, got, e.Path.String(), e.Code})
}

func (e Error) prepend(f Fragment) Error {
	e.Path = e.Path.prepend(f)
	return e
}

// Errors is a collection of decode or validation errors that implements error.
type Errors []Error

// Error summarizes the first few errors.
func (es Errors) Error() string {
	if len(es) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(es)
	lim := n
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := es[i]
		// e.g. expected string at $.email
		fmt.Fprintf(b, "expected %s at %s", it.Expected, it.Path)
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// PrependField returns a copy of the errors with a field fragment in front of
// every path. The receiver is left untouched.
func (es Errors) PrependField(name string) Errors {
	return es.prependAll(Fragment{Kind: FragmentField, Name: name})
}

// PrependIndex returns a copy of the errors with an index fragment in front.
func (es Errors) PrependIndex(i int) Errors {
	return es.prependAll(Fragment{Kind: FragmentIndex, Index: i})
}

// PrependVariant returns a copy of the errors with a variant fragment in front.
func (es Errors) PrependVariant(name string) Errors {
	return es.prependAll(Fragment{Kind: FragmentVariant, Name: name})
}

func (es Errors) prependAll(f Fragment) Errors {
	if len(es) == 0 {
		return nil
	}
	out := make(Errors, len(es))
	for i, e := range es {
		out[i] = e.prepend(f)
	}
	return out
}

// AsErrors extracts Errors from an error using errors.As internally.
func AsErrors(err error) (Errors, bool) {
	if err == nil {
		return nil, false
	}
	var es Errors
	if errors.As(err, &es) {
		return es, true
	}
	return nil, false
}

// fail builds a single-error Errors at the root path.
func fail(code, expected string, got any) Errors {
	return Errors{NewError(code, expected, got)}
}
