package pqueue

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func drain(q *Queue) []string {
	var out []string
	for q.Len() > 0 {
		out = append(out, q.Dequeue().ID)
	}
	return out
}

func TestPriorityOrderStable(t *testing.T) {
	q := New()
	q.Enqueue("a", 1, nil)
	q.Enqueue("b", 0, nil)
	q.Enqueue("c", 1, nil)
	q.Enqueue("d", 1, nil)
	q.Enqueue("e", 2, nil)
	q.Enqueue("f", -1, nil)

	require.Equal(t, []string{"e", "a", "c", "d", "b", "f"}, drain(q))
}

func TestDequeueEmpty(t *testing.T) {
	q := New()
	require.Nil(t, q.Dequeue())
	require.Equal(t, 0, q.Len())
}

func TestSetPriorityReordersAndKeepsTieBreak(t *testing.T) {
	q := New()
	q.Enqueue("low", 0, nil)
	q.Enqueue("mid", 0, nil)

	ok := q.SetPriority("low", 5)
	require.True(t, ok)

	require.Equal(t, []string{"low", "mid"}, drain(q))
}

func TestSetPriorityUnknownID(t *testing.T) {
	q := New()
	q.Enqueue("x", 0, nil)
	require.False(t, q.SetPriority("missing", 3))
}

func TestSetPriorityOnlyAffectsWaiting(t *testing.T) {
	q := New()
	q.Enqueue("x", 0, nil)
	item := q.Dequeue()
	require.Equal(t, "x", item.ID)

	// Already dequeued; SetPriority must not find it anymore.
	require.False(t, q.SetPriority("x", 9))
}

func TestFilter(t *testing.T) {
	q := New()
	q.Enqueue("a", 0, 10)
	q.Enqueue("b", 1, 20)
	q.Enqueue("c", 2, 30)

	got := q.Filter(func(i *Item) bool { return i.Payload.(int) >= 20 })
	require.Len(t, got, 2)

	// Filter must not mutate the queue.
	require.Equal(t, 3, q.Len())
}

func TestPeekDoesNotRemove(t *testing.T) {
	q := New()
	q.Enqueue("a", 0, nil)
	require.Equal(t, "a", q.Peek().ID)
	require.Equal(t, 1, q.Len())
}
