package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentAdd(t *testing.T) {
	r := NewRegistry[int]()

	var wg sync.WaitGroup
	const citems = 50
	wg.Add(citems)
	for c := range citems {
		go func(val int) {
			defer wg.Done()
			r.Add(val)
		}(c)
	}
	wg.Wait()

	require.NoError(t, r.Delete(1))
	assert.Len(t, r.GetAll(), citems-1)
	assert.Equal(t, citems-1, r.Len())
}

func TestGetDelete(t *testing.T) {
	r := NewRegistry[string]()
	id := r.Add("one")

	val, err := r.GetByID(id)
	require.NoError(t, err)
	assert.Equal(t, "one", val)

	_, err = r.GetByID(id + 1)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, r.Delete(id+1), ErrNotFound)
	require.NoError(t, r.Delete(id))
	assert.ErrorIs(t, r.Delete(id), ErrNotFound)
}

func TestIdsNotReused(t *testing.T) {
	r := NewRegistry[string]()
	first := r.Add("a")
	require.NoError(t, r.Delete(first))

	second := r.Add("b")
	assert.NotEqual(t, first, second)
}

func TestGetAllIsSnapshot(t *testing.T) {
	r := NewRegistry[string]()
	r.Add("a")

	snap := r.GetAll()
	r.Add("b")
	assert.Len(t, snap, 1)
	assert.Len(t, r.GetAll(), 2)
}
