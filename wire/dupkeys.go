package wire

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	json "github.com/goccy/go-json"

	"github.com/reoring/gomodel"
)

// CodeDuplicateKey marks an object key that appears more than once.
const CodeDuplicateKey = "duplicate_key"

// UnmarshalStrict is Unmarshal for documents that must not repeat an object
// key. JSON duplicates are reported as gomodel.Errors carrying the path of
// every repeated key; yaml.v3 already rejects them on its own.
func UnmarshalStrict(f Format, data []byte) (any, error) {
	if f == JSON {
		if err := CheckDuplicateKeys(data); err != nil {
			return nil, err
		}
	}
	return Unmarshal(f, data)
}

type frame struct {
	path      []gomodel.Fragment
	object    bool
	keys      map[string]struct{}
	key       string
	expectKey bool
	index     int
}

// child returns the fragments of the value that is about to be read in fr.
func (fr *frame) child() []gomodel.Fragment {
	f := gomodel.Fragment{Kind: gomodel.FragmentIndex, Index: fr.index}
	if fr.object {
		f = gomodel.Fragment{Kind: gomodel.FragmentField, Name: fr.key}
	}
	return append(append([]gomodel.Fragment(nil), fr.path...), f)
}

// done records that a value of fr was fully read.
func (fr *frame) done() {
	if fr.object {
		fr.expectKey = true
		return
	}
	fr.index++
}

// CheckDuplicateKeys scans a JSON document and fails with gomodel.Errors when
// an object repeats a key. Syntax errors are returned as they are.
func CheckDuplicateKeys(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var (
		stack []*frame
		errs  gomodel.Errors
	)
	current := func() []gomodel.Fragment {
		if len(stack) == 0 {
			return nil
		}
		return stack[len(stack)-1].child()
	}
	valueDone := func() {
		if len(stack) > 0 {
			stack[len(stack)-1].done()
		}
	}
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("wire: json: %w", err)
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				stack = append(stack, &frame{path: current(), object: d == '{', keys: map[string]struct{}{}, expectKey: true})
			case '}', ']':
				stack = stack[:len(stack)-1]
				valueDone()
			}
			continue
		}
		if len(stack) > 0 {
			top := stack[len(stack)-1]
			if k, ok := tok.(string); ok && top.object && top.expectKey {
				if _, seen := top.keys[k]; seen {
					e := gomodel.NewError(CodeDuplicateKey, "unique key", k)
					e.Path = gomodel.PathOf(append(append([]gomodel.Fragment(nil), top.path...),
						gomodel.Fragment{Kind: gomodel.FragmentField, Name: k})...)
					errs = append(errs, e)
				}
				top.keys[k] = struct{}{}
				top.key = k
				top.expectKey = false
				continue
			}
		}
		valueDone()
	}
	if len(stack) > 0 {
		return fmt.Errorf("wire: json: %w", io.ErrUnexpectedEOF)
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
