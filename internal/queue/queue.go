package queue

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrQueueFull is returned when the queue is at capacity
	ErrQueueFull = errors.New("queue is full")

	// ErrQueueClosed is returned when operations are attempted on a closed queue
	ErrQueueClosed = errors.New("queue is closed")

	// ErrQueueEmpty is returned by Peek on an empty queue
	ErrQueueEmpty = errors.New("queue is empty")

	// ErrDuplicateJob is returned when the same document is already waiting
	ErrDuplicateJob = errors.New("document is already queued")
)

// Priority orders jobs. Higher runs first.
type Priority int

const (
	PriorityNormal Priority = iota
	PriorityHigh
)

// Job is a document waiting to be processed.
type Job struct {
	ID       string
	Path     string
	Priority Priority
	Enqueued time.Time
}

// Stats tracks queue activity
type Stats struct {
	TotalEnqueued   int64
	TotalDequeued   int64
	TotalRejected   int64
	CurrentSize     int
	PeakSize        int
	LastEnqueue     time.Time
	LastDequeue     time.Time
	AverageWaitTime time.Duration
}

// JobQueue is a bounded priority queue of jobs. Jobs of equal priority
// leave in the order they arrived.
type JobQueue struct {
	items   jobHeap
	paths   map[string]bool
	maxSize int
	seq     int64

	mu     sync.Mutex
	notify chan struct{}
	done   chan struct{}
	closed bool

	stats     Stats
	totalWait time.Duration
}

// NewJobQueue creates a queue holding at most maxSize jobs.
func NewJobQueue(maxSize int) *JobQueue {
	if maxSize <= 0 {
		maxSize = 1
	}
	q := &JobQueue{
		paths:   make(map[string]bool),
		maxSize: maxSize,
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	heap.Init(&q.items)
	return q
}

// Enqueue adds job without blocking. A job whose Path is already waiting
// is rejected with ErrDuplicateJob.
func (q *JobQueue) Enqueue(job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	if q.paths[job.Path] {
		q.stats.TotalRejected++
		return ErrDuplicateJob
	}
	if q.items.Len() >= q.maxSize {
		q.stats.TotalRejected++
		return ErrQueueFull
	}

	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now()
	}
	q.seq++
	heap.Push(&q.items, &jobItem{job: job, seq: q.seq})
	q.paths[job.Path] = true

	q.stats.TotalEnqueued++
	q.stats.LastEnqueue = job.Enqueued
	if n := q.items.Len(); n > q.stats.PeakSize {
		q.stats.PeakSize = n
	}
	q.signal()
	return nil
}

// Dequeue removes and returns the next job, waiting until one arrives, ctx
// is done or the queue is closed.
func (q *JobQueue) Dequeue(ctx context.Context) (Job, error) {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return Job{}, ErrQueueClosed
		}
		if q.items.Len() > 0 {
			item := heap.Pop(&q.items).(*jobItem)
			delete(q.paths, item.job.Path)

			now := time.Now()
			q.stats.TotalDequeued++
			q.stats.LastDequeue = now
			q.totalWait += now.Sub(item.job.Enqueued)
			if q.items.Len() > 0 {
				// Wake the next waiting consumer.
				q.signal()
			}
			q.mu.Unlock()
			return item.job, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return Job{}, ctx.Err()
		case <-q.done:
			return Job{}, ErrQueueClosed
		case <-q.notify:
		}
	}
}

// Peek returns the next job without removing it from the queue.
func (q *JobQueue) Peek() (Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return Job{}, ErrQueueClosed
	}
	if q.items.Len() == 0 {
		return Job{}, ErrQueueEmpty
	}
	return q.items[0].job, nil
}

// Size returns the current number of waiting jobs.
func (q *JobQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// Stats returns current queue statistics.
func (q *JobQueue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats := q.stats
	stats.CurrentSize = q.items.Len()
	if q.stats.TotalDequeued > 0 {
		stats.AverageWaitTime = q.totalWait / time.Duration(q.stats.TotalDequeued)
	}
	return stats
}

// Close wakes every waiting consumer. Waiting jobs are dropped.
func (q *JobQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	close(q.done)
	return nil
}

// signal must be called with the lock held.
func (q *JobQueue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Priority queue implementation using a heap
type jobItem struct {
	job   Job
	seq   int64
	index int
}

type jobHeap []*jobItem

func (h jobHeap) Len() int { return len(h) }

func (h jobHeap) Less(i, j int) bool {
	if h[i].job.Priority != h[j].job.Priority {
		return h[i].job.Priority > h[j].job.Priority
	}
	return h[i].seq < h[j].seq
}

func (h jobHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *jobHeap) Push(x any) {
	item := x.(*jobItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}
