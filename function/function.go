// Package function defines functions: typed input and output, declared
// business errors, retrieve capabilities, providers and a middleware chain
// wrapped around a body.
//
// A call runs providers in declaration order, then the middlewares in
// declaration order on the way in and in reverse order on the way out, with
// the body innermost:
//
//	Apply(args) = mw[0](args, next = mw[1](..., next = body))
//
// Expected failures are Result values; faults are Go errors.
package function

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/reoring/gomodel"
	"github.com/reoring/gomodel/retrieve"
)

// Body is the implementation of a function.
type Body func(ctx context.Context, args Args) (Result, error)

// Definition describes a function.
type Definition struct {
	Name   string
	Input  *gomodel.Type
	Output *gomodel.Type
	// Errors maps each declared business error name to its payload type.
	Errors      map[string]*gomodel.Type
	Retrieve    retrieve.Capabilities
	Providers   []Provider
	Body        Body
	Middlewares []Middleware
	Namespace   string
	Description string
}

// Function is a validated Definition ready to be applied.
type Function struct {
	Definition
	metrics *Metrics
}

// New validates def and builds a Function.
func New(def Definition) (*Function, error) {
	if def.Body == nil {
		return nil, fmt.Errorf("%w: %s has no body", ErrInvalidDefinition, def.Name)
	}
	if def.Input == nil || def.Output == nil {
		return nil, fmt.Errorf("%w: %s needs input and output types", ErrInvalidDefinition, def.Name)
	}
	seen := map[string]struct{}{}
	for _, p := range def.Providers {
		if _, ok := reservedNames[p.Name]; ok {
			return nil, fmt.Errorf("%w: provider %q of %s", ErrReservedName, p.Name, def.Name)
		}
		if _, ok := seen[p.Name]; ok {
			return nil, fmt.Errorf("%w: duplicate provider %q of %s", ErrInvalidDefinition, p.Name, def.Name)
		}
		if p.Apply == nil {
			return nil, fmt.Errorf("%w: provider %q of %s has no implementation", ErrInvalidDefinition, p.Name, def.Name)
		}
		seen[p.Name] = struct{}{}
	}
	for name, t := range def.Errors {
		if name == "" || t == nil {
			return nil, fmt.Errorf("%w: %s declares an empty error", ErrInvalidDefinition, def.Name)
		}
	}
	def.Providers = append([]Provider(nil), def.Providers...)
	def.Middlewares = append([]Middleware(nil), def.Middlewares...)
	return &Function{Definition: def}, nil
}

// MustNew is like New but panics on error.
func MustNew(def Definition) *Function {
	f, err := New(def)
	if err != nil {
		panic(err)
	}
	return f
}

// WithMiddlewares returns a copy of f whose chain is mws followed by the
// middlewares of f.
func (f *Function) WithMiddlewares(mws ...Middleware) *Function {
	cp := *f
	cp.Middlewares = append(append([]Middleware(nil), mws...), f.Middlewares...)
	return &cp
}

// Instrument returns a copy of f that records calls into m.
func (f *Function) Instrument(m *Metrics) *Function {
	cp := *f
	cp.metrics = m
	return &cp
}

// HasError reports whether name is a declared business error.
func (f *Function) HasError(name string) bool {
	_, ok := f.Errors[name]
	return ok
}

// ErrorName returns the name under which t is declared as an error.
func (f *Function) ErrorName(t *gomodel.Type) (string, bool) {
	for name, et := range f.Errors {
		if et == t {
			return name, true
		}
	}
	return "", false
}

// Apply runs providers, middlewares and body. The returned error is a fault;
// business errors are failed Results whose single key is a declared error.
func (f *Function) Apply(ctx context.Context, args Args) (Result, error) {
	if args.OperationID == "" {
		args.OperationID = uuid.NewString()
	}
	args.FunctionName = f.Name
	args.Logger = args.Logger.With().
		Str("function", f.Name).
		Str("operationId", args.OperationID).
		Logger()

	start := time.Now()
	res, err := f.apply(ctx, args)
	if err == nil && res.IsFailure() {
		err = f.checkDeclared(res)
	}
	if f.metrics != nil {
		f.metrics.observe(f.Name, res, err, time.Since(start))
	}
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func (f *Function) apply(ctx context.Context, args Args) (Result, error) {
	deps := make(map[string]any, len(args.Deps)+len(f.Providers))
	for k, v := range args.Deps {
		deps[k] = v
	}
	args.Deps = deps
	for _, p := range f.Providers {
		r, err := p.Apply(ctx, args)
		if err != nil {
			return Result{}, fmt.Errorf("provider %s: %w", p.Name, err)
		}
		if r.IsFailure() {
			return r, nil
		}
		deps[p.Name] = r.Value()
	}
	return chain{fn: f}.next(ctx, args)
}

// checkDeclared verifies that a failure names exactly one declared error.
func (f *Function) checkDeclared(res Result) error {
	payload := res.Error()
	if len(payload) != 1 {
		return fmt.Errorf("%w: %s returned %d error keys", ErrUndeclaredError, f.Name, len(payload))
	}
	for name := range payload {
		if !f.HasError(name) {
			return fmt.Errorf("%w: %s returned %q", ErrUndeclaredError, f.Name, name)
		}
	}
	return nil
}

// chain drives the middleware list by index; the body runs past the end.
type chain struct {
	fn    *Function
	index int
}

func (c chain) next(ctx context.Context, args Args) (Result, error) {
	mws := c.fn.Middlewares
	if c.index >= len(mws) {
		args.Logger.Debug().Str("type", "body").Msg("execution")
		return c.fn.Body(ctx, args)
	}
	m := mws[c.index]
	args.Logger.Debug().Str("type", "middleware").Str("name", m.Name()).Msg("execution")
	return m.Apply(ctx, args, chain{fn: c.fn, index: c.index + 1}.next, c.fn)
}
