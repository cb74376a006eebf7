// Package middleware provides the built-in function middlewares: a selection
// depth guard, an output conformance check and a policy guard.
package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/reoring/gomodel"
	"github.com/reoring/gomodel/function"
	"github.com/reoring/gomodel/retrieve"
	"github.com/reoring/gomodel/security"
)

// CheckMaxSelectionDepth rejects calls whose retrieve spec is deeper than
// maxDepth before anything else runs.
func CheckMaxSelectionDepth(maxDepth int) function.Middleware {
	return function.MiddlewareFunc(func(ctx context.Context, args function.Args, next function.Next, fn *function.Function) (function.Result, error) {
		depth := retrieve.SelectionDepth(fn.Output, args.Retrieve)
		if depth > maxDepth {
			return function.Result{}, &function.MaxSelectionDepthError{Depth: depth, Max: maxDepth}
		}
		return next(ctx, args)
	}).Named("Check max selection depth")
}

// OnFailure selects what CheckOutputType does with a non-conforming result.
type OnFailure int

const (
	Log   OnFailure = iota // Log a warning and return the original result.
	Throw                  // Fail the call with *function.InvalidOutputError.
)

func (o OnFailure) String() string {
	if o == Throw {
		return "throw"
	}
	return "log"
}

// CheckOutputType decodes the result of a function against the type selected
// by its retrieve spec, leniently (additional fields are trimmed) but with
// full validation. Declared error payloads are decoded against their
// declared type; a payload that does not decode is always a fault.
func CheckOutputType(onFailure OnFailure) function.Middleware {
	return function.MiddlewareFunc(func(ctx context.Context, args function.Args, next function.Next, fn *function.Function) (function.Result, error) {
		res, err := next(ctx, args)
		if err != nil {
			return res, err
		}
		if res.IsFailure() {
			return res, checkFailure(fn, res)
		}
		trimmed, terr := retrieve.Trim(fn.Output, args.Retrieve, res.Value())
		if terr == nil {
			return function.Ok(trimmed), nil
		}
		errs, _ := gomodel.AsErrors(terr)
		if onFailure == Throw {
			return function.Result{}, &function.InvalidOutputError{Function: fn.Name, Errors: errs}
		}
		args.Logger.Warn().
			Interface("retrieve", args.Retrieve.Value()).
			Interface("errors", errs).
			Msgf("invalid value returned by the function %s", fn.Name)
		return res, nil
	}).Named("Check output type")
}

func checkFailure(fn *function.Function, res function.Result) error {
	for name, payload := range res.Error() {
		t, ok := fn.Errors[name]
		if !ok {
			return fmt.Errorf("%w: %s returned %q", function.ErrUndeclaredError, fn.Name, name)
		}
		_, err := gomodel.Decode(t, payload, gomodel.DecodeOpt{
			ErrorReporting:  gomodel.AllErrors,
			FieldStrictness: gomodel.ExpectExactFields,
			UnionDecoding:   gomodel.UntaggedUnions,
		})
		if err != nil {
			errs, _ := gomodel.AsErrors(err)
			return &function.InvalidOutputError{Function: fn.Name, Errors: errs.PrependField(name)}
		}
	}
	return nil
}

// PolicyFunc computes the policies of a call. skip bypasses the check.
type PolicyFunc func(ctx context.Context, args function.Args) (p *security.Policies, skip bool, err error)

type ctxKeyPolicies struct{}

// ContextWithPolicies attaches the policies in force to ctx.
func ContextWithPolicies(ctx context.Context, p *security.Policies) context.Context {
	return context.WithValue(ctx, ctxKeyPolicies{}, p)
}

// PoliciesFromContext returns the policies CheckPolicies evaluated for the
// current call.
func PoliciesFromContext(ctx context.Context) (*security.Policies, bool) {
	p, ok := ctx.Value(ctxKeyPolicies{}).(*security.Policies)
	return p, ok
}

// CheckPolicies enforces the policies returned by policies on the retrieve
// spec of the call. The spec handed to the rest of the chain is narrowed by
// the restrictions of the rules used, and a successful result is rewritten
// by the policy mappers. Violations become the declared
// security.UnauthorizedAccess error when the function declares it, and a
// *function.UnauthorizedAccessError fault otherwise.
func CheckPolicies(policies PolicyFunc) function.Middleware {
	return function.MiddlewareFunc(func(ctx context.Context, args function.Args, next function.Next, fn *function.Function) (function.Result, error) {
		p, skip, err := policies(ctx, args)
		if err != nil {
			return function.Result{}, err
		}
		if skip {
			return next(ctx, args)
		}
		narrowed, cerr := security.Check(fn.Output, fn.Retrieve, args.Retrieve, p)
		if cerr != nil {
			var vs security.Violations
			if !errors.As(cerr, &vs) {
				return function.Result{}, cerr
			}
			if name, ok := fn.ErrorName(security.UnauthorizedAccess); ok {
				return function.Fail(name, security.UnauthorizedAccessValue(vs)), nil
			}
			return function.Result{}, &function.UnauthorizedAccessError{Violations: vs}
		}
		args.Retrieve = narrowed
		res, err := next(ContextWithPolicies(ctx, p), args)
		if err != nil || res.IsFailure() || !p.HasMappers() {
			return res, err
		}
		return function.Ok(security.ApplyMappers(fn.Output, p, res.Value())), nil
	}).Named("Check policies")
}
