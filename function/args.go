package function

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/reoring/gomodel"
	"github.com/reoring/gomodel/retrieve"
)

// Result is the outcome of a function: its output value, or a declared
// business error held as a single-key map {errorName: payload}.
type Result = gomodel.Result[any, map[string]any]

// Ok wraps a successful output.
func Ok(v any) Result { return gomodel.Ok[any, map[string]any](v) }

// Fail wraps the declared business error name with its payload.
func Fail(name string, payload any) Result {
	return gomodel.Fail[any](map[string]any{name: payload})
}

// Args are the arguments of a single call.
type Args struct {
	Input        any
	Retrieve     *retrieve.Spec
	OperationID  string
	FunctionName string
	Logger       zerolog.Logger
	// Deps holds the values resolved by the function providers, by name.
	Deps map[string]any
}

// reservedNames are the built-in argument names providers may not use.
var reservedNames = map[string]struct{}{
	"input":        {},
	"retrieve":     {},
	"operationId":  {},
	"functionName": {},
	"logger":       {},
	"tracer":       {},
}

// Provider resolves a named dependency before the middlewares run. Returning a
// failed Result stops the call with that business error.
type Provider struct {
	Name  string
	Apply func(ctx context.Context, args Args) (Result, error)
}

// Dep returns the provider value stored under name.
func Dep[T any](args Args, name string) (T, error) {
	var zero T
	v, ok := args.Deps[name]
	if !ok {
		return zero, fmt.Errorf("%w: %q", ErrMissingDependency, name)
	}
	tv, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %q holds %T", ErrMissingDependency, name, v)
	}
	return tv, nil
}
