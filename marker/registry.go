package marker

import (
	"slices"
	"sync"
)

var defaultRegistry = sync.OnceValue(NewRegistry)

// Default returns the process-wide [Registry]. It is created on first use and
// lives for the rest of the process; every call returns the same instance.
//
// Prefer passing a [Registry] created with [NewRegistry] to the code that
// needs it. Default exists for callers that cannot thread one through.
func Default() *Registry {
	return defaultRegistry()
}

// Registry hands out one shared [Marker] per name.
//
// [Registry.Get] and [Registry.Delete] are serialized by a single mutex.
// [Registry.Exists] does not take the lock and may observe a result that is
// already stale when the caller acts on it; the registry is an identity
// cache, not a transactional store.
//
// Create instances with [NewRegistry].
type Registry struct {
	markers sync.Map // map[string]Marker
	mu      sync.Mutex
}

// NewRegistry creates an empty [Registry].
func NewRegistry() *Registry {
	return &Registry{}
}

// Get returns the marker registered under name, creating and registering a
// [BaseMarker] if there is none. Repeated calls with the same name return the
// same instance until the name is deleted. It returns [ErrInvalidName] if
// name is empty.
func (r *Registry) Get(name string) (Marker, error) {
	if name == "" {
		return nil, ErrInvalidName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.markers.Load(name); ok {
		return m.(Marker), nil //nolint:forcetypeassert // Only Markers are stored.
	}

	m, err := New(name)
	if err != nil {
		return nil, err
	}

	r.markers.Store(name, Marker(m))

	return m, nil
}

// Exists reports whether name is currently registered. It does not lock.
func (r *Registry) Exists(name string) bool {
	if name == "" {
		return false
	}

	_, ok := r.markers.Load(name)

	return ok
}

// Delete unregisters name and reports whether it was registered. Markers
// already handed out stay valid; a later [Registry.Get] creates a new one.
func (r *Registry) Delete(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.markers.LoadAndDelete(name)

	return ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	var names []string

	r.markers.Range(func(k, _ any) bool {
		names = append(names, k.(string)) //nolint:forcetypeassert // Only strings are stored as keys.

		return true
	})

	slices.Sort(names)

	return names
}
