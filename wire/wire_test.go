package wire_test

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/gomodel"
	"github.com/reoring/gomodel/wire"
)

var user = gomodel.Object(
	gomodel.Field("name", gomodel.String()),
	gomodel.Field("age", gomodel.Integer()),
	gomodel.Field("tags", gomodel.String().Array()),
	gomodel.Field("nick", gomodel.String().Optional()),
)

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]wire.Format{
		"json":                            wire.JSON,
		"application/json; charset=utf-8": wire.JSON,
		"YAML":                            wire.YAML,
		"application/x-yaml":              wire.YAML,
		"application/msgpack":             wire.MsgPack,
	} {
		got, err := wire.ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := wire.ParseFormat("text/csv")
	assert.ErrorIs(t, err, wire.ErrUnknownFormat)
	assert.Equal(t, "application/msgpack", wire.MsgPack.ContentType())
}

func TestUnmarshalJSON_KeepsNumbers(t *testing.T) {
	v, err := wire.Unmarshal(wire.JSON, []byte(`{"n": 12345678901234567890, "f": 1.5}`))
	require.NoError(t, err)
	m := v.(map[string]any)
	assert.Equal(t, json.Number("12345678901234567890"), m["n"])

	_, err = wire.Unmarshal(wire.JSON, []byte(`{} {}`))
	assert.Error(t, err)
	_, err = wire.Unmarshal(wire.JSON, []byte(`{`))
	assert.Error(t, err)
}

func TestDecode_AllFormats(t *testing.T) {
	docs := map[wire.Format][]byte{
		wire.JSON: []byte(`{"name":"ada","age":36,"tags":["math"]}`),
		wire.YAML: []byte("name: ada\nage: 36\ntags:\n  - math\n"),
	}
	packed, err := wire.Marshal(wire.MsgPack, map[string]any{"name": "ada", "age": 36, "tags": []any{"math"}})
	require.NoError(t, err)
	docs[wire.MsgPack] = packed

	want := map[string]any{"name": "ada", "age": 36.0, "tags": []any{"math"}}
	for f, data := range docs {
		got, err := wire.Decode(user, f, data)
		require.NoError(t, err, f)
		assert.Equal(t, want, got, f)
	}
}

func TestUnmarshalYAML_NormalizesKeys(t *testing.T) {
	v, err := wire.Unmarshal(wire.YAML, []byte("1: one\ntrue: yes\nnested:\n  2: two\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"1":      "one",
		"true":   "yes",
		"nested": map[string]any{"2": "two"},
	}, v)
}

func TestMarshal_Undefined(t *testing.T) {
	out, err := wire.Marshal(wire.JSON, map[string]any{"a": gomodel.Undefined, "b": []any{gomodel.Undefined, 1}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"b":[null,1]}`, string(out))

	out, err = wire.Marshal(wire.JSON, gomodel.Undefined)
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))
}

func TestEncode_RoundTrip(t *testing.T) {
	value := map[string]any{"name": "ada", "age": 36.0, "tags": []any{}}
	for _, f := range []wire.Format{wire.JSON, wire.YAML, wire.MsgPack} {
		data, err := wire.Encode(user, f, value)
		require.NoError(t, err, f)
		back, err := wire.Decode(user, f, data)
		require.NoError(t, err, f)
		assert.Equal(t, value, back, f)
	}

	_, err := wire.Encode(user, wire.JSON, map[string]any{"name": 1})
	assert.Error(t, err)
	_, err = wire.Marshal("csv", nil)
	assert.ErrorIs(t, err, wire.ErrUnknownFormat)
}

func TestCheckDuplicateKeys(t *testing.T) {
	require.NoError(t, wire.CheckDuplicateKeys([]byte(`{"a":1,"b":{"a":2},"c":[{"a":1},{"a":2}]}`)))

	err := wire.CheckDuplicateKeys([]byte(`{"a":1,"a":2,"list":[{}, {"x":1,"y":[1,2],"x":3}]}`))
	errs, ok := gomodel.AsErrors(err)
	require.True(t, ok)
	require.Len(t, errs, 2)
	assert.Equal(t, "$.a", errs[0].Path.String())
	assert.Equal(t, "$.list[1].x", errs[1].Path.String())
	assert.Equal(t, wire.CodeDuplicateKey, errs[1].Code)

	assert.Error(t, wire.CheckDuplicateKeys([]byte(`{"a":`)))
}

func TestUnmarshalStrict(t *testing.T) {
	_, err := wire.UnmarshalStrict(wire.JSON, []byte(`{"a":1,"a":2}`))
	assert.Error(t, err)
	_, err = wire.UnmarshalStrict(wire.YAML, []byte("a: 1\na: 2\n"))
	assert.Error(t, err)
	v, err := wire.UnmarshalStrict(wire.JSON, []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": json.Number("1")}, v)
}
