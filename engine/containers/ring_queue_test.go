package containers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingQueueFullAndEmpty(t *testing.T) {
	q := NewRingQueue[int](2)
	_, err := q.Dequeue()
	assert.ErrorIs(t, err, ErrQueueEmpty)

	require.NoError(t, q.Enqueue(1))
	require.NoError(t, q.Enqueue(2))
	assert.ErrorIs(t, q.Enqueue(3), ErrQueueFull)

	v, err := q.Peek()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = q.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, 1, q.Len())
}

func TestRingQueuePushDropsOldest(t *testing.T) {
	q := NewRingQueue[string](3)
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		q.Push(s)
	}
	assert.Equal(t, []string{"c", "d", "e"}, q.Items())
	assert.True(t, q.IsFull())
}
