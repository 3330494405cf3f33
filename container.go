package taskqueue

import "github.com/fluxqueue/taskqueue/internal/pqueue"

// defaultContainer adapts internal/pqueue.Queue to the public
// PriorityContainer contract, so the default queue-class and any
// caller-supplied replacement are driven through exactly the same
// interface.
type defaultContainer struct {
	q *pqueue.Queue
}

func newDefaultContainer() PriorityContainer {
	return &defaultContainer{q: pqueue.New()}
}

func (d *defaultContainer) Enqueue(id string, priority int, payload any) {
	d.q.Enqueue(id, priority, payload)
}

func (d *defaultContainer) Dequeue() (QueueItem, bool) {
	item := d.q.Dequeue()
	if item == nil {
		return QueueItem{}, false
	}
	return QueueItem{ID: item.ID, Priority: item.Priority, Payload: item.Payload}, true
}

func (d *defaultContainer) Peek() (QueueItem, bool) {
	item := d.q.Peek()
	if item == nil {
		return QueueItem{}, false
	}
	return QueueItem{ID: item.ID, Priority: item.Priority, Payload: item.Payload}, true
}

func (d *defaultContainer) Filter(keep func(QueueItem) bool) []QueueItem {
	items := d.q.Filter(func(item *pqueue.Item) bool {
		return keep(QueueItem{ID: item.ID, Priority: item.Priority, Payload: item.Payload})
	})
	out := make([]QueueItem, len(items))
	for i, item := range items {
		out[i] = QueueItem{ID: item.ID, Priority: item.Priority, Payload: item.Payload}
	}
	return out
}

func (d *defaultContainer) SetPriority(id string, priority int) bool {
	return d.q.SetPriority(id, priority)
}

func (d *defaultContainer) Len() int { return d.q.Len() }
