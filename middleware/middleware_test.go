package middleware_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/gomodel"
	"github.com/reoring/gomodel/function"
	"github.com/reoring/gomodel/middleware"
	"github.com/reoring/gomodel/retrieve"
	"github.com/reoring/gomodel/security"
)

func userModel() *gomodel.Type {
	reg := gomodel.NewRegistry()
	return reg.MustDefine(gomodel.Entity(
		gomodel.Field("id", gomodel.String()),
		gomodel.Field("email", gomodel.String()),
		gomodel.Field("friends", reg.Ref("User").Array()),
	).With(gomodel.Name("User"), gomodel.Retrieve(gomodel.AllCapabilities())))
}

func fullGraph() []any {
	friend := map[string]any{"id": "2", "email": "c@d.com", "friends": []any{}}
	return []any{map[string]any{"id": "1", "email": "a@b.com", "friends": []any{friend}}}
}

type harness struct {
	calls int
	args  function.Args
	ctx   context.Context
}

func (h *harness) function(t *testing.T, body func() (function.Result, error), errs map[string]*gomodel.Type, mws ...function.Middleware) *function.Function {
	t.Helper()
	return function.MustNew(function.Definition{
		Name:     "users",
		Input:    gomodel.Object(),
		Output:   userModel().Array(),
		Errors:   errs,
		Retrieve: gomodel.AllCapabilities(),
		Body: func(ctx context.Context, args function.Args) (function.Result, error) {
			h.calls++
			h.args = args
			h.ctx = ctx
			return body()
		},
		Middlewares: mws,
	})
}

func okGraph() (function.Result, error) { return function.Ok(fullGraph()), nil }

func TestCheckMaxSelectionDepth(t *testing.T) {
	h := &harness{}
	fn := h.function(t, okGraph, nil, middleware.CheckMaxSelectionDepth(2))

	_, err := fn.Apply(context.Background(), function.Args{Retrieve: retrieve.Select("friends")})
	require.NoError(t, err)
	assert.Equal(t, 1, h.calls)

	deep := retrieve.Select().With("friends", retrieve.Select().With("friends", nil))
	_, err = fn.Apply(context.Background(), function.Args{Retrieve: deep})
	var depthErr *function.MaxSelectionDepthError
	require.True(t, errors.As(err, &depthErr))
	assert.Equal(t, 3, depthErr.Depth)
	assert.Equal(t, 2, depthErr.Max)
	assert.Equal(t, 1, h.calls, "the body must not run")
}

func TestCheckOutputType_TrimsToSelection(t *testing.T) {
	h := &harness{}
	fn := h.function(t, okGraph, nil, middleware.CheckOutputType(middleware.Throw))

	res, err := fn.Apply(context.Background(), function.Args{Retrieve: retrieve.Select("email")})
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"email": "a@b.com"}}, res.Value())

	res, err = fn.Apply(context.Background(), function.Args{})
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"id": "1", "email": "a@b.com"}}, res.Value(), "relations are dropped by default")
}

func TestCheckOutputType_LogAndThrow(t *testing.T) {
	bad := func() (function.Result, error) {
		return function.Ok([]any{map[string]any{"id": 1, "email": "a@b.com"}}), nil
	}
	buf := &bytes.Buffer{}
	logger := zerolog.New(buf)

	h := &harness{}
	fn := h.function(t, bad, nil, middleware.CheckOutputType(middleware.Log))
	res, err := fn.Apply(context.Background(), function.Args{Logger: logger})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Value().([]any)[0].(map[string]any)["id"], "the original value is returned")
	assert.Contains(t, buf.String(), "invalid value returned by the function users")
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `$[0].id`)

	fn = h.function(t, bad, nil, middleware.CheckOutputType(middleware.Throw))
	_, err = fn.Apply(context.Background(), function.Args{})
	var invalid *function.InvalidOutputError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "users", invalid.Function)
	assert.Equal(t, "$[0].id", invalid.Errors[0].Path.String())
}

func TestCheckOutputType_DeclaredErrors(t *testing.T) {
	notFound := gomodel.Object(gomodel.Field("id", gomodel.String()))
	errs := map[string]*gomodel.Type{"notFound": notFound}

	h := &harness{}
	good := h.function(t, func() (function.Result, error) {
		return function.Fail("notFound", map[string]any{"id": "1"}), nil
	}, errs, middleware.CheckOutputType(middleware.Log))
	res, err := good.Apply(context.Background(), function.Args{})
	require.NoError(t, err)
	assert.True(t, res.IsFailure())

	broken := h.function(t, func() (function.Result, error) {
		return function.Fail("notFound", map[string]any{"id": 1}), nil
	}, errs, middleware.CheckOutputType(middleware.Log))
	_, err = broken.Apply(context.Background(), function.Args{})
	var invalid *function.InvalidOutputError
	require.True(t, errors.As(err, &invalid), "undecodable error payloads are faults even in log mode")
	assert.Equal(t, "$.notFound.id", invalid.Errors[0].Path.String())
}

func TestCheckPolicies(t *testing.T) {
	user := userModel()
	mine := map[string]any{"id": map[string]any{"equals": "1"}}
	policies := func(ctx context.Context, args function.Args) (*security.Policies, bool, error) {
		if args.Input.(map[string]any)["admin"] == true {
			return nil, true, nil
		}
		return security.On(user).
			Allows(security.Rule{Fields: []string{"id", "email"}, Restriction: mine}).
			Maps(func(u map[string]any) map[string]any {
				if _, ok := u["email"]; ok {
					u["email"] = "hidden"
				}
				return u
			}).Policies, false, nil
	}

	h := &harness{}
	fn := h.function(t, okGraph, nil, middleware.CheckPolicies(policies))

	res, err := fn.Apply(context.Background(), function.Args{Input: map[string]any{}, Retrieve: retrieve.Select("email")})
	require.NoError(t, err)
	assert.Equal(t, mine, h.args.Retrieve.Where, "the body receives the narrowed spec")
	assert.Equal(t, "hidden", res.Value().([]any)[0].(map[string]any)["email"])
	_, ok := middleware.PoliciesFromContext(h.ctx)
	assert.True(t, ok)

	_, err = fn.Apply(context.Background(), function.Args{Input: map[string]any{}, Retrieve: retrieve.Select("friends")})
	var unauthorized *function.UnauthorizedAccessError
	require.True(t, errors.As(err, &unauthorized))
	assert.Equal(t, []string{"friends"}, unauthorized.Violations[0].Fields)

	res, err = fn.Apply(context.Background(), function.Args{Input: map[string]any{"admin": true}, Retrieve: retrieve.Select("friends")})
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", res.Value().([]any)[0].(map[string]any)["email"], "skip bypasses mappers")

	declared := h.function(t, okGraph, map[string]*gomodel.Type{"unauthorized": security.UnauthorizedAccess}, middleware.CheckPolicies(policies))
	res, err = declared.Apply(context.Background(), function.Args{Input: map[string]any{}, Retrieve: retrieve.Select("friends")})
	require.NoError(t, err)
	require.True(t, res.IsFailure())
	payload := res.Error()["unauthorized"].(map[string]any)
	assert.Equal(t, "Unauthorized access.", payload["message"])
}

func TestCheckPolicies_NilPolicies(t *testing.T) {
	none := middleware.CheckPolicies(func(context.Context, function.Args) (*security.Policies, bool, error) {
		return nil, false, nil
	})
	greet := function.MustNew(function.Definition{
		Name:   "greet",
		Input:  gomodel.Object(),
		Output: gomodel.String(),
		Body: func(context.Context, function.Args) (function.Result, error) {
			return function.Ok("hello"), nil
		},
		Middlewares: []function.Middleware{none},
	})
	res, err := greet.Apply(context.Background(), function.Args{})
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Value())

	h := &harness{}
	fn := h.function(t, okGraph, nil, none)
	_, err = fn.Apply(context.Background(), function.Args{Retrieve: retrieve.Select("email")})
	var unauthorized *function.UnauthorizedAccessError
	require.True(t, errors.As(err, &unauthorized), "no policies deny every entity")
	assert.Zero(t, h.calls)
}

func TestCheckOutputType_EmptySelection(t *testing.T) {
	h := &harness{}
	empty := func() (function.Result, error) { return function.Ok([]any{map[string]any{}}), nil }
	fn := h.function(t, empty, nil, middleware.CheckOutputType(middleware.Throw))
	res, err := fn.Apply(context.Background(), function.Args{Retrieve: retrieve.Select()})
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{}}, res.Value())

	fn = h.function(t, okGraph, nil, middleware.CheckOutputType(middleware.Throw))
	res, err = fn.Apply(context.Background(), function.Args{Retrieve: retrieve.Select()})
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{}}, res.Value(), "every field is trimmed")
}

func TestConfig(t *testing.T) {
	cfg, err := middleware.ParseConfig([]byte("max_selection_depth: 5\noutput_check: throw\n"))
	require.NoError(t, err)
	assert.Equal(t, middleware.Config{MaxSelectionDepth: 5, OutputCheck: "throw"}, cfg)

	cfg, err = middleware.ParseConfig([]byte("output_check: off\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.MaxSelectionDepth)
	assert.Empty(t, cfg.Middlewares()[1:])

	_, err = middleware.ParseConfig([]byte("output_check: maybe\n"))
	assert.Error(t, err)
	_, err = middleware.ParseConfig([]byte("max_selection_depth: -1\n"))
	assert.Error(t, err)
	_, err = middleware.ParseConfig([]byte("max_selection_depth: [\n"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "mw.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_selection_depth: 2\n"), 0o600))
	cfg, err = middleware.LoadConfig(path)
	require.NoError(t, err)

	extra := middleware.CheckPolicies(func(context.Context, function.Args) (*security.Policies, bool, error) { return nil, true, nil })
	var names []string
	for _, m := range cfg.Middlewares(extra) {
		names = append(names, m.Name())
	}
	assert.Equal(t, []string{"Check max selection depth", "Check output type", "Check policies"}, names)
}

func TestDefaultChain_EndToEnd(t *testing.T) {
	h := &harness{}
	fn := h.function(t, okGraph, nil, middleware.DefaultConfig().Middlewares()...)
	res, err := fn.Apply(context.Background(), function.Args{Retrieve: retrieve.Select("email")})
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"email": "a@b.com"}}, res.Value())
}
