package sched

import (
	"github.com/emirpasic/gods/trees/binaryheap"
)

// TaskQueue orders pending tasks by ascending expiration time, breaking ties
// by ascending id so equally urgent tasks leave in submission order.
//
// It is not safe for concurrent use; the scheduler serialises access.
type TaskQueue struct {
	heap *binaryheap.Heap
}

// NewTaskQueue creates an empty queue.
func NewTaskQueue() *TaskQueue {
	return &TaskQueue{heap: binaryheap.NewWith(byExpiration)}
}

// Insert adds t in O(log n).
func (q *TaskQueue) Insert(t *Task) {
	q.heap.Push(t)
}

// PeekMin returns the most urgent task without removing it. The boolean is
// false when the queue is empty.
func (q *TaskQueue) PeekMin() (*Task, bool) {
	v, ok := q.heap.Peek()
	if !ok {
		return nil, false
	}
	return v.(*Task), true
}

// PopMin removes and returns the task PeekMin would return.
func (q *TaskQueue) PopMin() (*Task, bool) {
	v, ok := q.heap.Pop()
	if !ok {
		return nil, false
	}
	return v.(*Task), true
}

// IsEmpty reports whether the queue holds no tasks, cancelled ones included.
func (q *TaskQueue) IsEmpty() bool {
	return q.heap.Empty()
}

// Len returns the number of queued tasks, cancelled ones included.
func (q *TaskQueue) Len() int {
	return q.heap.Size()
}

// byExpiration implements the heap comparator over (expirationTime, id).
func byExpiration(a, b interface{}) int {
	ta, tb := a.(*Task), b.(*Task)
	switch {
	case ta.expirationTime.Before(tb.expirationTime):
		return -1
	case ta.expirationTime.After(tb.expirationTime):
		return 1
	case ta.id < tb.id:
		return -1
	case ta.id > tb.id:
		return 1
	default:
		return 0
	}
}
