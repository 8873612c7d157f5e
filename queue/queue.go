package queue

import (
	"container/heap"

	sommos "github.com/Thijssvd/SommOS-sub001"
	"github.com/Thijssvd/SommOS-sub001/id"
)

// Entry is one queued reference awaiting dispatch.
type Entry struct {
	JobID    id.JobID
	Priority int

	// seq is the monotonic arrival number used to break priority ties.
	seq uint64

	// index is maintained by the heap implementation.
	index int
}

// Queue is a bounded priority buffer of pending jobs. Dequeue order is
// priority descending, then arrival ascending within a tier.
//
// The Queue is not safe for concurrent use; the engine touches it only
// from its coordinator goroutine.
type Queue struct {
	pq       entryHeap
	byJob    map[string]*Entry
	capacity int
	nextSeq  uint64
}

// New creates a Queue holding at most capacity entries. A capacity of
// zero or less means unbounded.
func New(capacity int) *Queue {
	return &Queue{
		pq:       make(entryHeap, 0, 64),
		byJob:    make(map[string]*Entry),
		capacity: capacity,
	}
}

// Push inserts a job reference, maintaining the strict total order.
// Returns sommos.ErrQueueFull when the queue is at capacity.
func (q *Queue) Push(jobID id.JobID, priority int) error {
	if q.capacity > 0 && len(q.pq) >= q.capacity {
		return sommos.ErrQueueFull
	}

	e := &Entry{JobID: jobID, Priority: priority, seq: q.nextSeq}
	q.nextSeq++
	heap.Push(&q.pq, e)
	q.byJob[jobID.String()] = e
	return nil
}

// Pop removes and returns the highest-priority, earliest-arrived entry.
// The second return value is false when the queue is empty.
func (q *Queue) Pop() (*Entry, bool) {
	if len(q.pq) == 0 {
		return nil, false
	}

	e := heap.Pop(&q.pq).(*Entry)
	delete(q.byJob, e.JobID.String())
	return e, true
}

// Restore puts a popped entry back with its original sequence number,
// preserving its queue position. Used when dispatch is deferred (e.g. a
// rate-limited job type).
func (q *Queue) Restore(e *Entry) {
	heap.Push(&q.pq, e)
	q.byJob[e.JobID.String()] = e
}

// Remove cancels a queued (not yet dispatched) job and reports whether
// it was found.
func (q *Queue) Remove(jobID id.JobID) bool {
	e, ok := q.byJob[jobID.String()]
	if !ok {
		return false
	}

	heap.Remove(&q.pq, e.index)
	delete(q.byJob, jobID.String())
	return true
}

// Len returns the number of queued entries.
func (q *Queue) Len() int { return len(q.pq) }

// entryHeap implements heap.Interface. Less orders by priority
// descending, then seq ascending, so the heap root is always the
// highest-priority, earliest-arrived entry.
type entryHeap []*Entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority
	}
	return h[i].seq < h[j].seq
}

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *entryHeap) Push(x any) {
	e := x.(*Entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}
