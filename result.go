package gomodel

// Result is a two-variant outcome: either a value (ok) or an error payload
// (fail). It is used where a failure is an expected, typed outcome rather than
// a Go error, e.g. the declared business errors of a function.
type Result[T, E any] struct {
	value T
	err   E
	ok    bool
}

// Ok wraps a successful value.
func Ok[T, E any](v T) Result[T, E] { return Result[T, E]{value: v, ok: true} }

// Fail wraps a failure payload.
func Fail[T, E any](e E) Result[T, E] { return Result[T, E]{err: e} }

// IsOk reports whether the result holds a value.
func (r Result[T, E]) IsOk() bool { return r.ok }

// IsFailure reports whether the result holds a failure payload.
func (r Result[T, E]) IsFailure() bool { return !r.ok }

// Value returns the value; it is the zero value for failures.
func (r Result[T, E]) Value() T { return r.value }

// Error returns the failure payload; it is the zero value for successes.
func (r Result[T, E]) Error() E { return r.err }

// Match calls onOk or onFail depending on the variant.
func (r Result[T, E]) Match(onOk func(T), onFail func(E)) {
	if r.ok {
		if onOk != nil {
			onOk(r.value)
		}
		return
	}
	if onFail != nil {
		onFail(r.err)
	}
}
