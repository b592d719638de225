package containers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaInsertGet(t *testing.T) {
	a := NewArena[string](4)
	h1 := a.Insert("a")
	h2 := a.Insert("b")

	assert.NotEqual(t, h1, h2)
	v, ok := a.Get(h1)
	require.True(t, ok)
	assert.Equal(t, "a", v)
	assert.Equal(t, 2, a.Len())
	assert.False(t, h1.IsZero())
}

func TestArenaZeroHandleNeverValid(t *testing.T) {
	a := NewArena[int](1)
	a.Insert(7)
	_, ok := a.Get(Handle{})
	assert.False(t, ok)
}

func TestArenaStaleHandleAfterReuse(t *testing.T) {
	a := NewArena[int](2)
	h := a.Insert(1)
	removed, ok := a.Remove(h)
	require.True(t, ok)
	assert.Equal(t, 1, removed)

	h2 := a.Insert(2)
	assert.Equal(t, h.Index, h2.Index)
	assert.NotEqual(t, h.Generation, h2.Generation)

	_, ok = a.Get(h)
	assert.False(t, ok)
	_, ok = a.Remove(h)
	assert.False(t, ok)

	v, ok := a.Get(h2)
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestArenaFreeListIsLIFO(t *testing.T) {
	a := NewArena[int](4)
	h0 := a.Insert(0)
	h1 := a.Insert(1)
	a.Insert(2)

	a.Remove(h0)
	a.Remove(h1)

	assert.Equal(t, h1.Index, a.Insert(10).Index)
	assert.Equal(t, h0.Index, a.Insert(11).Index)
	assert.Equal(t, 3, a.Capacity())
}

func TestArenaGenerationWrapsPastZero(t *testing.T) {
	a := NewArena[int](1)
	h := a.Insert(1)
	a.slots[h.Index].generation = ^uint32(0)
	h = Handle{Index: h.Index, Generation: ^uint32(0)}

	_, ok := a.Remove(h)
	require.True(t, ok)
	h2 := a.Insert(2)
	assert.Equal(t, uint32(1), h2.Generation)
}

func TestArenaGetPtrMutates(t *testing.T) {
	a := NewArena[[2]int](1)
	h := a.Insert([2]int{1, 2})
	p, ok := a.GetPtr(h)
	require.True(t, ok)
	p[0] = 9

	v, _ := a.Get(h)
	assert.Equal(t, 9, v[0])
}

func TestArenaEachSkipsFreeSlots(t *testing.T) {
	a := NewArena[int](3)
	a.Insert(1)
	h := a.Insert(2)
	a.Insert(3)
	a.Remove(h)

	var seen []int
	a.Each(func(_ Handle, v *int) { seen = append(seen, *v) })
	assert.Equal(t, []int{1, 3}, seen)
	assert.True(t, a.Contains(Handle{Index: 0, Generation: 1}))
}
