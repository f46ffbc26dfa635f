package procsched

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRingQueuePushPopOrder(t *testing.T) {
	q := newRingQueue[int](3)
	require.True(t, q.Empty())
	require.True(t, q.Push(1))
	require.True(t, q.Push(2))
	require.True(t, q.Push(3))
	require.False(t, q.Empty())
	require.Equal(t, 3, q.Size())

	// overflow is a reported, non-mutating no-op
	require.False(t, q.Push(4))
	require.Equal(t, 3, q.Size())

	v, ok := q.Pop()
	require.True(t, ok)
	require.Equal(t, 1, v)
	v, ok = q.Pop()
	require.True(t, ok)
	require.Equal(t, 2, v)
	v, ok = q.Pop()
	require.True(t, ok)
	require.Equal(t, 3, v)

	_, ok = q.Pop()
	require.False(t, ok)
	require.True(t, q.Empty())
}

func TestRingQueueWrapsAroundBackingArray(t *testing.T) {
	q := newRingQueue[int](2)
	require.True(t, q.Push(1))
	require.True(t, q.Push(2))
	v, _ := q.Pop()
	require.Equal(t, 1, v)
	require.True(t, q.Push(3)) // reuses the slot freed by the pop, wrapping front/rear
	require.Equal(t, []int{2, 3}, q.Display())
}

func TestRingQueueDisplayFrontToRear(t *testing.T) {
	q := newRingQueue[string](4)
	q.Push("a")
	q.Push("b")
	q.Push("c")
	require.Equal(t, []string{"a", "b", "c"}, q.Display())
}

func TestRingQueueReset(t *testing.T) {
	q := newRingQueue[int](4)
	q.Push(1)
	q.Push(2)
	q.reset()
	require.True(t, q.Empty())
	require.Equal(t, 0, q.Size())
	require.True(t, q.Push(10))
	require.Equal(t, []int{10}, q.Display())
}

func TestPartitionByRank(t *testing.T) {
	items := []waitRank[string, uint64]{
		{value: "a", rank: 5},
		{value: "b", rank: 40},
		{value: "c", rank: 31},
		{value: "d", rank: 10},
	}
	over, under := partitionByRank(items, uint64(30))
	require.Equal(t, []string{"b", "c"}, over)
	require.Equal(t, []string{"a", "d"}, under)
}
