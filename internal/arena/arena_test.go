package arena_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/keyflow/internal/arena"
)

type instance struct {
	position uint32
	counter  int
}

func TestAllocUntilFull(t *testing.T) {
	a := arena.New[instance](2)

	h1, v1, err := a.Alloc()
	require.NoError(t, err)
	v1.position = 1

	h2, v2, err := a.Alloc()
	require.NoError(t, err)
	v2.position = 2

	_, _, err = a.Alloc()
	assert.ErrorIs(t, err, arena.ErrFull)

	assert.Equal(t, uint32(1), a.Get(h1).position, "existing value must survive a rejected alloc")
	assert.Equal(t, uint32(2), a.Get(h2).position)
	assert.Equal(t, 2, a.Len())
}

func TestStaleHandle(t *testing.T) {
	a := arena.New[instance](1)

	h1, v1, err := a.Alloc()
	require.NoError(t, err)
	v1.counter = 3
	require.True(t, a.Free(h1))

	assert.Nil(t, a.Get(h1))
	assert.False(t, a.Free(h1), "double free must be rejected")

	h2, v2, err := a.Alloc()
	require.NoError(t, err)
	assert.Equal(t, 0, v2.counter, "slot must be zeroed on reuse")
	assert.Equal(t, h1.Index(), h2.Index())
	assert.Nil(t, a.Get(h1), "old generation must not resolve to the new value")
	assert.NotNil(t, a.Get(h2))
}

func TestFindAndEach(t *testing.T) {
	a := arena.New[instance](4)
	for _, p := range []uint32{5, 6, 7} {
		_, v, err := a.Alloc()
		require.NoError(t, err)
		v.position = p
	}

	h, v, ok := a.Find(func(i *instance) bool { return i.position == 6 })
	require.True(t, ok)
	assert.Equal(t, uint32(6), v.position)

	a.Free(h)
	var seen []uint32
	a.Each(func(_ arena.Handle, i *instance) { seen = append(seen, i.position) })
	assert.ElementsMatch(t, []uint32{5, 7}, seen)

	_, _, ok = a.Find(func(i *instance) bool { return i.position == 6 })
	assert.False(t, ok)
	assert.False(t, arena.Handle{}.Valid())
}
