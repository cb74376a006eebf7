package function

import "context"

// Next continues the chain with (possibly rewritten) arguments.
type Next func(ctx context.Context, args Args) (Result, error)

// Middleware intercepts a call. fn gives access to the function definition
// (output type, declared errors, capabilities).
type Middleware interface {
	Name() string
	Apply(ctx context.Context, args Args, next Next, fn *Function) (Result, error)
}

// MiddlewareFunc adapts a function to the Middleware interface.
type MiddlewareFunc func(ctx context.Context, args Args, next Next, fn *Function) (Result, error)

// Named attaches a name to f.
func (f MiddlewareFunc) Named(name string) Middleware {
	return namedMiddleware{name: name, f: f}
}

// Name implements Middleware.
func (f MiddlewareFunc) Name() string { return "anonymous" }

// Apply implements Middleware.
func (f MiddlewareFunc) Apply(ctx context.Context, args Args, next Next, fn *Function) (Result, error) {
	return f(ctx, args, next, fn)
}

type namedMiddleware struct {
	name string
	f    MiddlewareFunc
}

func (m namedMiddleware) Name() string { return m.name }

func (m namedMiddleware) Apply(ctx context.Context, args Args, next Next, fn *Function) (Result, error) {
	return m.f(ctx, args, next, fn)
}
