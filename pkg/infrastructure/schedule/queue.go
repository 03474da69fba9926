package schedule

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Task runs when its scheduled time is reached; at is the scheduled time
type Task func(ctx context.Context, at time.Time) error

type entry struct {
	at   time.Time
	seq  uint64
	name string
	task Task
}

type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].seq < h[j].seq
	}
	return h[i].at.Before(h[j].at)
}
func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x any)   { *h = append(*h, x.(*entry)) }
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// Queue holds deferred tasks keyed by logical time.
// Tasks due at the same instant run in the order they were scheduled.
type Queue struct {
	mu    sync.Mutex
	items entryHeap
	seq   uint64
}

// NewQueue creates an empty queue
func NewQueue() *Queue {
	return &Queue{}
}

// Schedule enqueues task to run at the given time
func (q *Queue) Schedule(at time.Time, name string, task Task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seq++
	heap.Push(&q.items, &entry{at: at, seq: q.seq, name: name, task: task})
}

// Len returns the number of pending tasks
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// NextDue returns the time of the earliest pending task
func (q *Queue) NextDue() (time.Time, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.items.Len() == 0 {
		return time.Time{}, false
	}
	return q.items[0].at, true
}

// RunDue runs every task due at or before now, including tasks scheduled by
// tasks run in this call. A failing task does not stop the others.
func (q *Queue) RunDue(ctx context.Context, now time.Time) (int, error) {
	return q.run(ctx, func(at time.Time) bool { return !at.After(now) })
}

// Drain runs every pending task in time order regardless of the clock
func (q *Queue) Drain(ctx context.Context) (int, error) {
	return q.run(ctx, func(time.Time) bool { return true })
}

func (q *Queue) run(ctx context.Context, due func(time.Time) bool) (int, error) {
	var errs []error
	ran := 0
	for {
		e := q.popIf(due)
		if e == nil {
			break
		}
		ran++
		if err := e.task(ctx, e.at); err != nil {
			errs = append(errs, fmt.Errorf("task %s: %w", e.name, err))
		}
	}
	return ran, errors.Join(errs...)
}

func (q *Queue) popIf(due func(time.Time) bool) *entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.items.Len() == 0 || !due(q.items[0].at) {
		return nil
	}
	return heap.Pop(&q.items).(*entry)
}
