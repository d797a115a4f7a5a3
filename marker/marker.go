package marker

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"

	"github.com/cespare/xxhash/v2"
)

var (
	// ErrInvalidArgument indicates an invalid argument was provided.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidName indicates an empty marker name.
	ErrInvalidName = fmt.Errorf("%w: marker name must not be empty", ErrInvalidArgument)
	// ErrInvalidMarker indicates a nil or unnamed value where a [Marker] was
	// required.
	ErrInvalidMarker = fmt.Errorf("%w: not a marker", ErrInvalidArgument)
)

// Marker is a named tag that may own an ordered set of child markers.
//
// Implementations compare equal when they are the same instance or share a
// name, and must derive [Marker.Hash] from the name alone.
type Marker interface {
	// Name returns the marker's immutable name.
	Name() string
	// Children returns a copy of the direct children in insertion order.
	Children() []Marker
	// All iterates the direct children in insertion order. Each iteration
	// observes the children as they are at that time.
	All() iter.Seq[Marker]
	// AddChild appends child unless it equals the receiver or an existing
	// child.
	AddChild(child Marker) error
	// AddChildren calls AddChild for each element in order.
	AddChildren(children ...Marker) error
	// RemoveChild removes the first child equal to child, if any.
	RemoveChild(child Marker) error
	// Contains reports whether target is the receiver or one of its direct
	// children. Target may be a Marker or a name.
	Contains(target any) bool
	// Equal reports whether other is a Marker with the same identity or name.
	Equal(other any) bool
	// Hash returns a hash of the name, consistent with Equal.
	Hash() uint64
}

// BaseMarker is the default [Marker] implementation.
//
// Its children are not synchronized; see the package documentation.
//
// Create instances with [New] or [MustNew].
type BaseMarker struct {
	name     string
	children []Marker
}

// New creates a [BaseMarker] named name. It returns [ErrInvalidName] if name
// is empty.
func New(name string) (*BaseMarker, error) {
	if name == "" {
		return nil, ErrInvalidName
	}

	return &BaseMarker{name: name}, nil
}

// MustNew is like [New] but panics on error.
func MustNew(name string) *BaseMarker {
	m, err := New(name)
	if err != nil {
		panic(err)
	}

	return m
}

// Name returns the marker name. A nil *BaseMarker has an empty name.
func (m *BaseMarker) Name() string {
	if m == nil {
		return ""
	}

	return m.name
}

// Children returns a copy of the direct children. A nil *BaseMarker has
// none.
func (m *BaseMarker) Children() []Marker {
	if m == nil {
		return []Marker{}
	}

	out := make([]Marker, len(m.children))
	copy(out, m.children)

	return out
}

// All returns an iterator over the direct children.
func (m *BaseMarker) All() iter.Seq[Marker] {
	return func(yield func(Marker) bool) {
		if m == nil {
			return
		}

		for _, child := range m.children {
			if !yield(child) {
				return
			}
		}
	}
}

// AddChild appends child to the children. Adding the marker to itself, or
// adding a marker equal to an existing child, does nothing. It returns
// [ErrInvalidMarker] if child is nil or unnamed.
func (m *BaseMarker) AddChild(child Marker) error {
	if !valid(child) {
		return ErrInvalidMarker
	}

	if m.Equal(child) {
		return nil
	}

	if m.indexOf(child) >= 0 {
		return nil
	}

	m.children = append(m.children, child)

	return nil
}

// AddChildren adds each of children in order, stopping at the first error.
// Children added before the failing element are kept.
func (m *BaseMarker) AddChildren(children ...Marker) error {
	for i, child := range children {
		err := m.AddChild(child)
		if err != nil {
			return fmt.Errorf("child %d: %w", i, err)
		}
	}

	return nil
}

// RemoveChild removes the first child equal to child. It returns
// [ErrInvalidMarker] if child is nil or unnamed.
func (m *BaseMarker) RemoveChild(child Marker) error {
	if !valid(child) {
		return ErrInvalidMarker
	}

	i := m.indexOf(child)
	if i < 0 {
		return nil
	}

	m.children = slices.Delete(m.children, i, i+1)

	return nil
}

// Contains reports whether target names or equals the marker or one of its
// direct children. Grandchildren are never considered. Targets that are
// neither a [Marker] nor a string never match, and a nil *BaseMarker
// contains nothing.
func (m *BaseMarker) Contains(target any) bool {
	if m == nil {
		return false
	}

	switch t := target.(type) {
	case Marker:
		if !valid(t) {
			return false
		}

		return m.Equal(t) || m.indexOf(t) >= 0

	case string:
		if t == "" {
			return false
		}

		if t == m.Name() {
			return true
		}

		for _, child := range m.children {
			if child.Name() == t {
				return true
			}
		}
	}

	return false
}

// Equal reports whether other is the same marker, or a [Marker] with the
// same name. Children are not compared.
func (m *BaseMarker) Equal(other any) bool {
	o, ok := other.(Marker)
	if !ok || o == nil {
		return false
	}

	if b, ok := o.(*BaseMarker); ok && b == m {
		return true
	}

	if m == nil {
		return false
	}

	return m.name == o.Name()
}

// Hash returns the xxhash of the name.
func (m *BaseMarker) Hash() uint64 {
	return xxhash.Sum64String(m.Name())
}

// String returns the marker name.
func (m *BaseMarker) String() string {
	return m.Name()
}

// LogValue implements [slog.LogValuer] so that handlers print the name.
func (m *BaseMarker) LogValue() slog.Value {
	return slog.StringValue(m.Name())
}

func (m *BaseMarker) indexOf(child Marker) int {
	if m == nil {
		return -1
	}

	for i, c := range m.children {
		if c.Equal(child) {
			return i
		}
	}

	return -1
}

// valid reports whether m can take part in a hierarchy. Typed nils report an
// empty name and are rejected along with untyped nil.
func valid(m Marker) bool {
	return m != nil && m.Name() != ""
}
