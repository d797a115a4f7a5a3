package marker_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/marklog/marker"
)

func TestRegistryGet(t *testing.T) {
	t.Parallel()

	reg := marker.NewRegistry()

	first, err := reg.Get("x")
	require.NoError(t, err)

	second, err := reg.Get("x")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, "x", first.Name())

	_, err = reg.Get("")
	require.ErrorIs(t, err, marker.ErrInvalidName)
}

func TestRegistryLifecycle(t *testing.T) {
	t.Parallel()

	reg := marker.NewRegistry()

	assert.False(t, reg.Exists("x"))

	held, err := reg.Get("x")
	require.NoError(t, err)

	assert.True(t, reg.Exists("x"))
	assert.True(t, reg.Delete("x"))
	assert.False(t, reg.Exists("x"))
	assert.False(t, reg.Delete("x"))

	// The deleted instance stays usable.
	assert.Equal(t, "x", held.Name())

	fresh, err := reg.Get("x")
	require.NoError(t, err)
	assert.NotSame(t, held, fresh)
	assert.True(t, held.Equal(fresh))
}

func TestRegistryExistsEdgeCases(t *testing.T) {
	t.Parallel()

	reg := marker.NewRegistry()
	assert.False(t, reg.Exists(""))
	assert.False(t, reg.Exists("unknown"))
	assert.False(t, reg.Delete(""))
}

func TestRegistryNames(t *testing.T) {
	t.Parallel()

	reg := marker.NewRegistry()
	for _, n := range []string{"c", "a", "b"} {
		_, err := reg.Get(n)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"a", "b", "c"}, reg.Names())
}

func TestRegistryIsolation(t *testing.T) {
	t.Parallel()

	a := marker.NewRegistry()
	b := marker.NewRegistry()

	ma, err := a.Get("shared")
	require.NoError(t, err)

	mb, err := b.Get("shared")
	require.NoError(t, err)

	assert.NotSame(t, ma, mb)
	assert.True(t, ma.Equal(mb))
}

func TestDefaultRegistry(t *testing.T) {
	t.Parallel()

	require.Same(t, marker.Default(), marker.Default())

	name := "default-registry-test"

	m1, err := marker.Default().Get(name)
	require.NoError(t, err)

	m2, err := marker.Default().Get(name)
	require.NoError(t, err)

	assert.Same(t, m1, m2)
	assert.True(t, marker.Default().Delete(name))
}

func TestRegistryConcurrentGet(t *testing.T) {
	t.Parallel()

	reg := marker.NewRegistry()

	const workers = 16

	results := make([][]marker.Marker, workers)

	var wg sync.WaitGroup

	for w := range workers {
		wg.Go(func() {
			for i := range 50 {
				m, err := reg.Get(fmt.Sprintf("m%d", i%10))
				if err != nil {
					panic(err)
				}

				results[w] = append(results[w], m)
			}
		})
	}

	wg.Wait()

	for w := 1; w < workers; w++ {
		for i := range results[w] {
			assert.Same(t, results[0][i], results[w][i])
		}
	}

	assert.Len(t, reg.Names(), 10)
}

func TestRegistryConcurrentDelete(t *testing.T) {
	t.Parallel()

	reg := marker.NewRegistry()
	_, err := reg.Get("x")
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		deleted int
	)

	for range 8 {
		wg.Go(func() {
			if reg.Delete("x") {
				mu.Lock()
				deleted++
				mu.Unlock()
			}
		})
	}

	wg.Wait()
	assert.Equal(t, 1, deleted)
}
