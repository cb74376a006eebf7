// Package wire converts between serialized documents and the generic values
// (maps, slices and scalars) the decoder consumes and the encoder produces.
//
// JSON numbers are kept as json.Number so that no precision is lost before
// decoding; YAML and MessagePack map keys are normalised to strings.
package wire

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"github.com/reoring/gomodel"
)

// Format is a serialization format.
type Format string

const (
	JSON    Format = "json"
	YAML    Format = "yaml"
	MsgPack Format = "msgpack"
)

var ErrUnknownFormat = errors.New("wire: unknown format")

// ParseFormat accepts a format name or a media type such as
// "application/json; charset=utf-8".
func ParseFormat(s string) (Format, error) {
	mt := strings.ToLower(strings.TrimSpace(s))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch mt {
	case "json", "application/json":
		return JSON, nil
	case "yaml", "yml", "application/yaml", "application/x-yaml", "text/yaml":
		return YAML, nil
	case "msgpack", "application/msgpack", "application/x-msgpack", "application/vnd.msgpack":
		return MsgPack, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ContentType returns the media type of f.
func (f Format) ContentType() string {
	switch f {
	case YAML:
		return "application/yaml"
	case MsgPack:
		return "application/msgpack"
	}
	return "application/json"
}

// Unmarshal parses data into a generic value.
func Unmarshal(f Format, data []byte) (any, error) {
	switch f {
	case JSON:
		return unmarshalJSON(data)
	case YAML:
		var v any
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("wire: yaml: %w", err)
		}
		return normalize(v)
	case MsgPack:
		var v any
		if err := msgpack.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("wire: msgpack: %w", err)
		}
		return normalize(v)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
}

func unmarshalJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("wire: json: %w", err)
	}
	var extra any
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, errors.New("wire: json: trailing data after document")
	}
	return v, nil
}

// Marshal serializes v. gomodel.Undefined is written as null inside arrays
// and at the top level, and omitted from maps.
func Marshal(f Format, v any) ([]byte, error) {
	v = stripUndefined(v)
	switch f {
	case JSON:
		return json.Marshal(v)
	case YAML:
		return yaml.Marshal(v)
	case MsgPack:
		return msgpack.Marshal(v)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
}

// Decode unmarshals data and decodes the result against t.
func Decode(t *gomodel.Type, f Format, data []byte, opts ...gomodel.DecodeOpt) (any, error) {
	raw, err := Unmarshal(f, data)
	if err != nil {
		return nil, err
	}
	return gomodel.Decode(t, raw, opts...)
}

// Encode encodes v against t and marshals the result.
func Encode(t *gomodel.Type, f Format, v any, opts ...gomodel.EncodeOpt) ([]byte, error) {
	enc, err := gomodel.Encode(t, v, opts...)
	if err != nil {
		return nil, err
	}
	return Marshal(f, enc)
}

// normalize rewrites maps with non-string keys into map[string]any.
func normalize(v any) (any, error) {
	switch x := v.(type) {
	case map[string]any:
		for k, e := range x {
			n, err := normalize(e)
			if err != nil {
				return nil, err
			}
			x[k] = n
		}
		return x, nil
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			key, ok := mapKey(k)
			if !ok {
				return nil, fmt.Errorf("wire: unsupported map key %#v", k)
			}
			n, err := normalize(e)
			if err != nil {
				return nil, err
			}
			out[key] = n
		}
		return out, nil
	case []any:
		for i, e := range x {
			n, err := normalize(e)
			if err != nil {
				return nil, err
			}
			x[i] = n
		}
		return x, nil
	}
	return v, nil
}

func mapKey(k any) (string, bool) {
	switch key := k.(type) {
	case string:
		return key, true
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(key), true
	case nil:
		return "null", true
	}
	return "", false
}

func stripUndefined(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			if gomodel.IsUndefined(e) {
				continue
			}
			out[k] = stripUndefined(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = stripUndefined(e)
		}
		return out
	}
	if gomodel.IsUndefined(v) {
		return nil
	}
	return v
}
