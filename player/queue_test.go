package player

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueueFIFO(t *testing.T) {
	var q Queue
	require.NoError(t, q.Enqueue(Track{Title: "a"}))
	require.NoError(t, q.Enqueue(Track{Title: "b"}))
	require.NoError(t, q.Enqueue(Track{Title: "c"}))
	require.Equal(t, 3, q.Len())

	for _, want := range []string{"a", "b", "c"} {
		got, ok := q.DequeueNext()
		require.True(t, ok)
		require.Equal(t, want, got.Title)
	}
	_, ok := q.DequeueNext()
	require.False(t, ok)
}

func TestQueueLimit(t *testing.T) {
	q := Queue{limit: 2}
	require.NoError(t, q.Enqueue(Track{Title: "a"}))
	require.NoError(t, q.Enqueue(Track{Title: "b"}))
	require.ErrorIs(t, q.Enqueue(Track{Title: "c"}), ErrQueueFull)

	// Dequeuing frees capacity again.
	_, ok := q.DequeueNext()
	require.True(t, ok)
	require.NoError(t, q.Enqueue(Track{Title: "c"}))
}

func TestQueueClear(t *testing.T) {
	var q Queue
	_ = q.Enqueue(Track{Title: "a"})
	cur := Track{Title: "playing"}
	q.SetCurrent(&cur)

	q.Clear()
	require.Zero(t, q.Len())
	require.Nil(t, q.Current())
}

func TestQueueSnapshotDoesNotAlias(t *testing.T) {
	var q Queue
	_ = q.Enqueue(Track{Title: "a"})
	cur := Track{Title: "playing"}
	q.SetCurrent(&cur)

	snapCur, snapPending := q.Snapshot()
	require.Equal(t, "playing", snapCur.Title)
	require.Len(t, snapPending, 1)

	// Mutating the snapshot leaves the queue untouched.
	snapCur.Title = "mutated"
	snapPending[0].Title = "mutated"
	require.Equal(t, "playing", q.Current().Title)
	head, _ := q.DequeueNext()
	require.Equal(t, "a", head.Title)
}
