// Package pqueue implements component A of the task queue core: an
// ordered container of waiting task records, sorted by priority
// descending with insertion order as the stable tie-break.
//
// It is grounded on the teacher's container/heap-based TaskQueue
// (FluxForge's control_plane/scheduler/queue.go) but drops that queue's
// priority-aging formula — the spec calls for plain stable priority
// order, not deadline-aware aging — and adds an id index so SetPriority
// doesn't need a linear scan.
package pqueue

import "container/heap"

// Item is one waiting record. Payload is opaque to the queue; callers
// attach whatever they need (the task record) and look it up again via
// Payload after Dequeue/Filter.
type Item struct {
	ID       string
	Priority int
	Payload  any

	seq   uint64 // insertion sequence, breaks priority ties (ascending)
	index int    // heap index, maintained by container/heap
}

// heapData is the container/heap.Interface implementation. It is kept
// distinct from Queue so Queue's exported surface isn't heap.Interface
// itself (callers shouldn't be able to call heap.Push/Pop directly and
// bypass the id index).
type heapData []*Item

func (h heapData) Len() int { return len(h) }

func (h heapData) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority // higher priority first
	}
	return h[i].seq < h[j].seq // earlier insertion first
}

func (h heapData) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *heapData) Push(x any) {
	item := x.(*Item)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *heapData) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// Queue is the stable priority container described in spec.md §4.A.
// It is not safe for concurrent use; the owning scheduler is expected to
// serialize access (see the root package's single-goroutine dispatcher).
type Queue struct {
	data heapData
	byID map[string]*Item
	next uint64
}

// New returns an empty Queue.
func New() *Queue {
	return &Queue{byID: make(map[string]*Item)}
}

// Enqueue inserts a new waiting item with the given id, priority, and
// payload, and returns the Item handle. Stability is guaranteed by the
// monotonically increasing insertion sequence, not by insertion position,
// so Enqueue is always O(log n) via the heap rather than the spec's
// described O(1) fast-path for an already-sorted tail — that fast path
// is an optimization detail of an array-backed implementation and isn't
// observable behavior.
func (q *Queue) Enqueue(id string, priority int, payload any) *Item {
	item := &Item{ID: id, Priority: priority, Payload: payload, seq: q.next}
	q.next++
	heap.Push(&q.data, item)
	q.byID[id] = item
	return item
}

// Dequeue removes and returns the head (highest priority, earliest
// inserted among ties), or nil if the queue is empty.
func (q *Queue) Dequeue() *Item {
	if len(q.data) == 0 {
		return nil
	}
	item := heap.Pop(&q.data).(*Item)
	delete(q.byID, item.ID)
	return item
}

// Peek returns the head without removing it, or nil if empty.
func (q *Queue) Peek() *Item {
	if len(q.data) == 0 {
		return nil
	}
	return q.data[0]
}

// Filter returns every waiting item for which keep returns true, in no
// particular order. It does not mutate the queue.
func (q *Queue) Filter(keep func(*Item) bool) []*Item {
	var out []*Item
	for _, item := range q.data {
		if keep == nil || keep(item) {
			out = append(out, item)
		}
	}
	return out
}

// SetPriority reassigns the priority of the waiting item with the given
// id and restores heap order. It reports ok=false if no waiting item has
// that id (the caller turns that into a NotFoundError).
//
// The item keeps its original insertion sequence, so among items that
// end up at equal priority after this call, tie-break order still
// reflects original submission order rather than the order SetPriority
// calls happened to run in.
func (q *Queue) SetPriority(id string, priority int) (ok bool) {
	item, exists := q.byID[id]
	if !exists {
		return false
	}
	item.Priority = priority
	heap.Fix(&q.data, item.index)
	return true
}

// Len reports the number of waiting items.
func (q *Queue) Len() int { return len(q.data) }
