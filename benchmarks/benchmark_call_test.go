package benchmarks_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"github.com/reoring/gomodel"
	"github.com/reoring/gomodel/function"
	"github.com/reoring/gomodel/middleware"
	"github.com/reoring/gomodel/module"
	"github.com/reoring/gomodel/retrieve"
	"github.com/reoring/gomodel/wire"
)

// --- Fixtures ---

func userType() *gomodel.Type {
	reg := gomodel.NewRegistry()
	return reg.MustDefine(gomodel.Entity(
		gomodel.Field("id", gomodel.String()),
		gomodel.Field("name", gomodel.String(gomodel.MinLength(1))),
		gomodel.Field("active", gomodel.Boolean()),
		gomodel.Field("friends", reg.Ref("User").Array()),
	).With(gomodel.Name("User"), gomodel.Retrieve(gomodel.AllCapabilities())))
}

func usersJSON(n int) []byte {
	buf := []byte("[")
	for i := 0; i < n; i++ {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, fmt.Sprintf(`{"id":"%d","name":"user-%d","active":true,"friends":[{"id":"f","name":"f","active":false,"friends":[]}]}`, i, i)...)
	}
	return append(buf, ']')
}

// --- Decode ---

func Benchmark_Decode_Users_JSON(b *testing.B) {
	for _, n := range []int{1, 100} {
		b.Run(fmt.Sprint(n), func(b *testing.B) {
			users := userType().Array()
			data := usersJSON(n)
			b.ReportAllocs()
			b.SetBytes(int64(len(data)))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := wire.Decode(users, wire.JSON, data); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// --- Trim ---

func Benchmark_Trim_Users(b *testing.B) {
	users := userType().Array()
	raw, err := wire.Unmarshal(wire.JSON, usersJSON(100))
	if err != nil {
		b.Fatal(err)
	}
	value, err := gomodel.Decode(users, raw)
	if err != nil {
		b.Fatal(err)
	}
	spec := retrieve.Select("name").With("friends", retrieve.Select("id"))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := retrieve.Trim(users, spec, value); err != nil {
			b.Fatal(err)
		}
	}
}

// --- Module call ---

func Benchmark_Module_Call(b *testing.B) {
	users := userType().Array()
	raw, err := wire.Unmarshal(wire.JSON, usersJSON(10))
	if err != nil {
		b.Fatal(err)
	}
	value, err := gomodel.Decode(users, raw)
	if err != nil {
		b.Fatal(err)
	}
	fn := function.MustNew(function.Definition{
		Name:     "users",
		Input:    gomodel.Object(),
		Output:   users,
		Retrieve: gomodel.AllCapabilities(),
		Body: func(context.Context, function.Args) (function.Result, error) {
			return function.Ok(value), nil
		},
		Middlewares: middleware.DefaultConfig().Middlewares(),
	})
	m, err := module.Build(module.Definition{Name: "bench", Functions: map[string]*function.Function{"users": fn}, Logger: zerolog.Nop()})
	if err != nil {
		b.Fatal(err)
	}
	req := module.Request{
		Function: "users",
		Retrieve: map[string]any{"select": map[string]any{"name": true, "friends": true}},
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if resp := m.Call(context.Background(), req); !resp.Success {
			b.Fatal(resp.Reason)
		}
	}
}
