package gomodel_test

import (
	"math"
	"reflect"
	"testing"

	json "github.com/goccy/go-json"

	gm "github.com/reoring/gomodel"
)

var (
	exact   = gm.DecodeOpt{}
	casting = gm.DecodeOpt{TypeCasting: gm.TryCasting}
	all     = gm.DecodeOpt{ErrorReporting: gm.AllErrors}
)

type wantErr struct {
	expected string
	got      any
	path     string
}

func mustFail(t *testing.T, err error, want ...wantErr) {
	t.Helper()
	errs, ok := gm.AsErrors(err)
	if !ok {
		t.Fatalf("expected Errors, got %v", err)
	}
	if len(errs) != len(want) {
		t.Fatalf("expected %d errors, got %d: %v", len(want), len(errs), errs)
	}
	for i, w := range want {
		e := errs[i]
		if e.Expected != w.expected || e.Path.String() != w.path {
			t.Fatalf("error %d: want %q at %s, got %q at %s", i, w.expected, w.path, e.Expected, e.Path)
		}
		if !reflect.DeepEqual(e.Got, w.got) {
			t.Fatalf("error %d: want got=%#v, got %#v", i, w.got, e.Got)
		}
	}
}

func mustDecode(t *testing.T, typ *gm.Type, raw any, opt gm.DecodeOpt) any {
	t.Helper()
	v, err := gm.Decode(typ, raw, opt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return v
}

func TestDecode_Boolean(t *testing.T) {
	b := gm.Boolean()
	if v := mustDecode(t, b, true, exact); v != true {
		t.Fatalf("got %v", v)
	}
	_, err := gm.Decode(b, "true", exact)
	mustFail(t, err, wantErr{"boolean", "true", "$"})

	cases := []struct {
		raw  any
		want bool
	}{
		{"true", true}, {"false", false}, {0, false}, {0.0, false}, {-3.5, true}, {int64(7), true},
	}
	for _, tc := range cases {
		if v := mustDecode(t, b, tc.raw, casting); v != tc.want {
			t.Fatalf("casting %#v: got %v, want %v", tc.raw, v, tc.want)
		}
	}
	_, err = gm.Decode(b, "yes", casting)
	mustFail(t, err, wantErr{"boolean", "yes", "$"})
}

func TestDecode_Number(t *testing.T) {
	n := gm.Number()
	if v := mustDecode(t, n, 3, exact); v != 3.0 {
		t.Fatalf("int input should normalise to float64, got %#v", v)
	}
	if v := mustDecode(t, n, json.Number("1.5"), exact); v != 1.5 {
		t.Fatalf("json.Number: got %#v", v)
	}
	v, err := gm.DecodeWithoutValidation(n, math.NaN(), exact)
	if err != nil || !math.IsNaN(v.(float64)) {
		t.Fatalf("NaN should decode, got %v %v", v, err)
	}
	_, err = gm.Decode(n, "1", exact)
	mustFail(t, err, wantErr{"number", "1", "$"})

	if v := mustDecode(t, n, "+0", casting); v != 0.0 {
		t.Fatalf("+0: got %v", v)
	}
	neg := mustDecode(t, n, "-0", casting).(float64)
	if neg != 0 || !math.Signbit(neg) {
		t.Fatalf("-0 should keep its sign, got %v", neg)
	}
	if v := mustDecode(t, n, "12.25", casting); v != 12.25 {
		t.Fatalf("got %v", v)
	}
	for _, bad := range []string{"foo", "bar", "1.1 not a number", "", "NaN", "0x10"} {
		_, err := gm.Decode(n, bad, casting)
		mustFail(t, err, wantErr{"number", bad, "$"})
	}
}

func TestDecode_String(t *testing.T) {
	s := gm.String()
	_, err := gm.Decode(s, 1, exact)
	mustFail(t, err, wantErr{"string", 1, "$"})
	if v := mustDecode(t, s, 1.5, casting); v != "1.5" {
		t.Fatalf("got %v", v)
	}
	if v := mustDecode(t, s, 10, casting); v != "10" {
		t.Fatalf("got %v", v)
	}
	if v := mustDecode(t, s, false, casting); v != "false" {
		t.Fatalf("got %v", v)
	}
}

func TestDecode_Literal(t *testing.T) {
	one := gm.Literal(1)
	if v := mustDecode(t, one, 1.0, exact); v != 1.0 {
		t.Fatalf("got %v", v)
	}
	_, err := gm.Decode(one, 2, exact)
	mustFail(t, err, wantErr{"literal (1)", 2, "$"})
	_, err = gm.Decode(one, "1", exact)
	mustFail(t, err, wantErr{"literal (1)", "1", "$"})

	str := gm.Literal("mondrian")
	_, err = gm.Decode(str, "piet", exact)
	mustFail(t, err, wantErr{"literal (mondrian)", "piet", "$"})

	tr := gm.Literal(true)
	_, err = gm.Decode(tr, false, exact)
	mustFail(t, err, wantErr{"literal (true)", false, "$"})

	null := gm.Literal(nil)
	if v := mustDecode(t, null, nil, exact); v != nil {
		t.Fatalf("got %v", v)
	}
	_, err = gm.Decode(null, "null", exact)
	mustFail(t, err, wantErr{"literal (null)", "null", "$"})
	if v := mustDecode(t, null, "null", casting); v != nil {
		t.Fatalf("got %v", v)
	}
}

func TestDecode_Enum(t *testing.T) {
	e := gm.Enum([]string{"one", "two", "three"})
	if v := mustDecode(t, e, "two", exact); v != "two" {
		t.Fatalf("got %v", v)
	}
	_, err := gm.Decode(e, "Two", exact)
	mustFail(t, err, wantErr{`enum ("one" | "two" | "three")`, "Two", "$"})
	_, err = gm.Decode(e, 1, casting)
	mustFail(t, err, wantErr{`enum ("one" | "two" | "three")`, 1, "$"})
}

func TestDecode_OptionalAndNullable(t *testing.T) {
	opt := gm.Number().Optional()
	if v := mustDecode(t, opt, nil, exact); !gm.IsUndefined(v) {
		t.Fatalf("null should decode to undefined, got %#v", v)
	}
	if v := mustDecode(t, opt, gm.Undefined, exact); !gm.IsUndefined(v) {
		t.Fatalf("undefined should decode to undefined, got %#v", v)
	}
	_, err := gm.Decode(opt, "x", exact)
	mustFail(t, err, wantErr{"number or undefined", "x", "$"})

	nul := gm.Number().Nullable()
	if v := mustDecode(t, nul, nil, exact); v != nil {
		t.Fatalf("got %#v", v)
	}
	_, err = gm.Decode(nul, "x", exact)
	mustFail(t, err, wantErr{"number or null", "x", "$"})
	_, err = gm.Decode(nul, gm.Undefined, exact)
	if err == nil {
		t.Fatalf("undefined must not decode as null without casting")
	}
	if v := mustDecode(t, nul, gm.Undefined, casting); v != nil {
		t.Fatalf("casting should decode undefined to null, got %#v", v)
	}

	ref := gm.Number().Reference()
	if v := mustDecode(t, ref, 2, exact); v != 2.0 {
		t.Fatalf("reference should be transparent, got %#v", v)
	}
}

func TestDecode_Array(t *testing.T) {
	arr := gm.Number().Array()
	got := mustDecode(t, arr, []any{1, 2, 3}, exact)
	if !reflect.DeepEqual(got, []any{1.0, 2.0, 3.0}) {
		t.Fatalf("got %#v", got)
	}
	if got := mustDecode(t, arr, []int{4, 5}, exact); !reflect.DeepEqual(got, []any{4.0, 5.0}) {
		t.Fatalf("typed slices should decode, got %#v", got)
	}
	_, err := gm.Decode(arr, map[string]any{"0": 1}, exact)
	mustFail(t, err, wantErr{"array", map[string]any{"0": 1}, "$"})

	bad := []any{1, 2, "error1", "error2"}
	_, err = gm.Decode(arr, bad, exact)
	mustFail(t, err, wantErr{"number", "error1", "$[2]"})
	_, err = gm.Decode(arr, bad, all)
	mustFail(t, err,
		wantErr{"number", "error1", "$[2]"},
		wantErr{"number", "error2", "$[3]"},
	)
}

func TestDecode_ArrayLike(t *testing.T) {
	arr := gm.Number().Array()
	got := mustDecode(t, arr, map[string]any{"1": 2, "0": 1, "2": 3}, casting)
	if !reflect.DeepEqual(got, []any{1.0, 2.0, 3.0}) {
		t.Fatalf("got %#v", got)
	}
	for _, bad := range []map[string]any{
		{"0": 1, "2": 3},
		{"0": 1, "foo": 2},
		{"1": 1},
		{"00": 1},
		{},
	} {
		_, err := gm.Decode(arr, bad, casting)
		mustFail(t, err, wantErr{"array", bad, "$"})
	}
	_, err := gm.Decode(arr, map[string]any{"0": 1, "1": 2, "2": "error"}, casting)
	mustFail(t, err, wantErr{"number", "error", "$[2]"})
}

func TestDecode_Object(t *testing.T) {
	obj := gm.Object(
		gm.Field("field1", gm.Number()),
		gm.Field("field2", gm.Number().Optional()),
	)
	got := mustDecode(t, obj, map[string]any{"field1": 1}, exact)
	if !reflect.DeepEqual(got, map[string]any{"field1": 1.0}) {
		t.Fatalf("missing optional field should be absent, got %#v", got)
	}
	_, err := gm.Decode(obj, map[string]any{"field2": 1}, exact)
	mustFail(t, err, wantErr{"number", gm.Undefined, "$.field1"})

	_, err = gm.Decode(obj, nil, exact)
	mustFail(t, err, wantErr{"number", gm.Undefined, "$.field1"})

	_, err = gm.Decode(obj, "nope", exact)
	mustFail(t, err, wantErr{"object", "nope", "$"})

	bad := map[string]any{"field1": "error1", "field2": "error2"}
	_, err = gm.Decode(obj, bad, exact)
	mustFail(t, err, wantErr{"number", "error1", "$.field1"})
	_, err = gm.Decode(obj, bad, all)
	mustFail(t, err,
		wantErr{"number", "error1", "$.field1"},
		wantErr{"number or undefined", "error2", "$.field2"},
	)
}

func TestDecode_ObjectStrictness(t *testing.T) {
	obj := gm.Object(gm.Field("a", gm.String()))
	in := map[string]any{"a": "x", "b": 1}
	_, err := gm.Decode(obj, in, exact)
	mustFail(t, err, wantErr{"undefined", 1, "$.b"})

	got := mustDecode(t, obj, in, gm.DecodeOpt{FieldStrictness: gm.AllowAdditionalFields})
	if !reflect.DeepEqual(got, map[string]any{"a": "x"}) {
		t.Fatalf("additional fields should be dropped, got %#v", got)
	}
}

func TestDecode_ObjectFromStruct(t *testing.T) {
	type user struct {
		Email  string `json:"email"`
		Age    int    `gomodel:"name=age"`
		secret string
		Skip   string `json:"-"`
	}
	obj := gm.Object(gm.Field("email", gm.String()), gm.Field("age", gm.Number()))
	got := mustDecode(t, obj, user{Email: "a@b.com", Age: 3, secret: "x", Skip: "y"}, exact)
	if !reflect.DeepEqual(got, map[string]any{"email": "a@b.com", "age": 3.0}) {
		t.Fatalf("got %#v", got)
	}
}

func TestDecode_Default(t *testing.T) {
	obj := gm.Object(gm.Field("n", gm.Number(gm.Default(3))))
	got := mustDecode(t, obj, map[string]any{}, exact)
	if !reflect.DeepEqual(got, map[string]any{"n": 3.0}) {
		t.Fatalf("default should apply, got %#v", got)
	}
}

func unionModel() *gm.Type {
	return gm.Union(
		gm.Variant("variant1", gm.Number(), func(v any) bool {
			f, ok := v.(float64)
			return ok && math.Mod(f, 2) == 0
		}),
		gm.Variant("variant2", gm.String(), func(v any) bool {
			_, ok := v.(string)
			return ok
		}),
	)
}

func TestDecode_TaggedUnion(t *testing.T) {
	u := unionModel()
	if v := mustDecode(t, u, map[string]any{"variant1": 4}, exact); v != 4.0 {
		t.Fatalf("got %#v", v)
	}
	if v := mustDecode(t, u, map[string]any{"variant2": "x"}, exact); v != "x" {
		t.Fatalf("got %#v", v)
	}
	for _, bad := range []any{
		map[string]any{},
		map[string]any{"variant1": 1, "variant2": 2},
		map[string]any{"notAVariant": 2},
		"string",
	} {
		_, err := gm.Decode(u, bad, exact)
		mustFail(t, err, wantErr{"union (variant1 | variant2)", bad, "$"})
	}
	_, err := gm.Decode(u, map[string]any{"variant1": "x"}, exact)
	mustFail(t, err, wantErr{"number", "x", "$.variant1"})

	_, err = gm.Decode(u, map[string]any{"variant1": 3}, exact)
	mustFail(t, err, wantErr{"variant1", 3.0, "$"})
}

func TestDecode_TaggedUnion_OverlappingChecks(t *testing.T) {
	positive := func(min float64) func(any) bool {
		return func(v any) bool {
			f, ok := v.(float64)
			return ok && f > min
		}
	}
	u := gm.Union(
		gm.Variant("a", gm.Number(), positive(10)),
		gm.Variant("b", gm.Number(), positive(0)),
	)
	if v := mustDecode(t, u, map[string]any{"a": 20}, exact); v != 20.0 {
		t.Fatalf("got %#v", v)
	}
	v := mustDecode(t, u, map[string]any{"b": 5}, exact)
	enc, err := gm.Encode(u, v)
	if err != nil || !reflect.DeepEqual(enc, map[string]any{"b": 5.0}) {
		t.Fatalf("round trip: %#v %v", enc, err)
	}
	_, err = gm.Decode(u, map[string]any{"b": 20}, exact)
	mustFail(t, err, wantErr{"b", 20.0, "$"})
}

func TestDecode_UntaggedUnion(t *testing.T) {
	u := unionModel()
	opt := gm.DecodeOpt{UnionDecoding: gm.UntaggedUnions}
	if v := mustDecode(t, u, 2, opt); v != 2.0 {
		t.Fatalf("got %#v", v)
	}
	if v := mustDecode(t, u, "s", opt); v != "s" {
		t.Fatalf("got %#v", v)
	}
	_, err := gm.Decode(u, true, opt)
	mustFail(t, err,
		wantErr{"number", true, "$.variant1"},
		wantErr{"string", true, "$.variant2"},
	)
	_, err = gm.Decode(u, 3, opt)
	mustFail(t, err,
		wantErr{"variant1", 3, "$"},
		wantErr{"string", 3, "$.variant2"},
	)

	unchecked := gm.Union(gm.Variant("n", gm.Number()), gm.Variant("s", gm.String()))
	if v := mustDecode(t, unchecked, 3, opt); v != 3.0 {
		t.Fatalf("first decodable variant should win, got %#v", v)
	}
}

func TestDecode_Custom(t *testing.T) {
	var seen gm.DecodeOpt
	c := gm.Custom(gm.CustomSpec{
		TypeName: "upper",
		Decode: func(raw any, opt gm.DecodeOpt) (any, gm.Errors) {
			seen = opt
			s, ok := raw.(string)
			if !ok {
				return nil, gm.Errors{gm.NewError(gm.CodeInvalidType, "upper", raw)}
			}
			return s + "!", nil
		},
	})
	if v := mustDecode(t, c, "a", casting); v != "a!" {
		t.Fatalf("got %#v", v)
	}
	if seen.TypeCasting != gm.TryCasting {
		t.Fatalf("custom decoder should receive the caller options")
	}
	_, err := gm.Decode(gm.Object(gm.Field("c", c)), map[string]any{"c": 1}, exact)
	mustFail(t, err, wantErr{"upper", 1, "$.c"})
}

func TestDecode_EndToEnd(t *testing.T) {
	typ := gm.Object(
		gm.Field("email", gm.String()),
		gm.Field("age", gm.Number().Optional()),
	)
	got := mustDecode(t, typ, map[string]any{"email": "a@b.com"}, gm.DecodeOpt{})
	if !reflect.DeepEqual(got, map[string]any{"email": "a@b.com"}) {
		t.Fatalf("got %#v", got)
	}
	_, err := gm.Decode(typ, map[string]any{"email": 123}, gm.DecodeOpt{TypeCasting: gm.ExpectExactTypes})
	mustFail(t, err, wantErr{"string", 123, "$.email"})

	errs, _ := gm.AsErrors(err)
	b, jerr := json.Marshal(errs[0])
	if jerr != nil {
		t.Fatalf("marshal: %v", jerr)
	}
	var wire map[string]any
	_ = json.Unmarshal(b, &wire)
	if wire["expected"] != "string" || wire["got"] != 123.0 || wire["path"] != "$.email" {
		t.Fatalf("unexpected wire error %s", b)
	}
}

func TestDecode_NullEqualsEmptyObject(t *testing.T) {
	typ := gm.Object(gm.Field("a", gm.String().Optional()), gm.Field("b", gm.Boolean().Nullable()))
	v1, err1 := gm.Decode(typ, nil, casting)
	v2, err2 := gm.Decode(typ, map[string]any{}, casting)
	if !reflect.DeepEqual(v1, v2) || (err1 == nil) != (err2 == nil) {
		t.Fatalf("null and {} should decode the same: %#v/%v vs %#v/%v", v1, err1, v2, err2)
	}
}

func TestDecode_UnknownKindPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for an unresolvable lazy type")
		}
	}()
	_, _ = gm.Decode(gm.Lazy(func() *gm.Type { return nil }), 1)
}
