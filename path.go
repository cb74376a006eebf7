package gomodel

import (
	"strconv"
	"strings"
)

// FragmentKind tags a single step of a Path.
type FragmentKind uint8

const (
	FragmentField FragmentKind = iota
	FragmentIndex
	FragmentVariant
)

// Fragment is one step inside a nested value: a field name, an array index or
// a union variant name.
type Fragment struct {
	Kind  FragmentKind
	Name  string // Field or variant name.
	Index int
}

// Path locates a sub-value inside a nested value. Paths are immutable: every
// Prepend* method returns a new Path and never touches the receiver.
type Path struct {
	fragments []Fragment
}

// Root is the empty path, rendered as "$".
var Root = Path{}

// PathOf builds a path from the given fragments (outermost first).
func PathOf(fragments ...Fragment) Path {
	if len(fragments) == 0 {
		return Path{}
	}
	return Path{fragments: append([]Fragment(nil), fragments...)}
}

func (p Path) prepend(f Fragment) Path {
	out := make([]Fragment, 0, len(p.fragments)+1)
	out = append(out, f)
	out = append(out, p.fragments...)
	return Path{fragments: out}
}

// PrependField returns a new path with a field fragment in front.
func (p Path) PrependField(name string) Path {
	return p.prepend(Fragment{Kind: FragmentField, Name: name})
}

// PrependIndex returns a new path with an index fragment in front.
func (p Path) PrependIndex(i int) Path {
	return p.prepend(Fragment{Kind: FragmentIndex, Index: i})
}

// PrependVariant returns a new path with a variant fragment in front.
func (p Path) PrependVariant(name string) Path {
	return p.prepend(Fragment{Kind: FragmentVariant, Name: name})
}

// Fragments returns a copy of the fragments, outermost first.
func (p Path) Fragments() []Fragment {
	return append([]Fragment(nil), p.fragments...)
}

// Len reports the number of fragments.
func (p Path) Len() int { return len(p.fragments) }

// Equal reports whether both paths have the same fragments.
func (p Path) Equal(o Path) bool {
	if len(p.fragments) != len(o.fragments) {
		return false
	}
	for i := range p.fragments {
		if p.fragments[i] != o.fragments[i] {
			return false
		}
	}
	return true
}

// String renders the path as "$", "$.field", "$[0]" or "$.variant", chained.
// Clients match errors on this rendering, so it must stay stable.
func (p Path) String() string {
	b := &strings.Builder{}
	b.WriteByte('$')
	for _, f := range p.fragments {
		switch f.Kind {
		case FragmentIndex:
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(f.Index))
			b.WriteByte(']')
		default:
			b.WriteByte('.')
			b.WriteString(f.Name)
		}
	}
	return b.String()
}

// MarshalText renders the path for encoders.
func (p Path) MarshalText() ([]byte, error) { return []byte(p.String()), nil }
