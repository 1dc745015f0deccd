package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestJobQueue_BasicOperations(t *testing.T) {
	q := NewJobQueue(10)
	defer q.Close()

	// Test empty queue
	if size := q.Size(); size != 0 {
		t.Errorf("Expected empty queue, got size %d", size)
	}

	// Test peek on empty queue
	_, err := q.Peek()
	if err != ErrQueueEmpty {
		t.Errorf("Expected ErrQueueEmpty, got %v", err)
	}

	// Test enqueue
	job := Job{ID: "j1", Path: "inbox/a.txt"}
	if err := q.Enqueue(job); err != nil {
		t.Errorf("Enqueue failed: %v", err)
	}
	if size := q.Size(); size != 1 {
		t.Errorf("Expected size 1, got %d", size)
	}

	// Test peek
	peeked, err := q.Peek()
	if err != nil {
		t.Errorf("Peek failed: %v", err)
	}
	if peeked.ID != job.ID {
		t.Errorf("Peeked wrong job: %v", peeked)
	}

	// Test dequeue
	dequeued, err := q.Dequeue(context.Background())
	if err != nil {
		t.Errorf("Dequeue failed: %v", err)
	}
	if dequeued.ID != job.ID {
		t.Errorf("Dequeued wrong job: %v", dequeued)
	}
	if dequeued.Enqueued.IsZero() {
		t.Error("Enqueue time should be set")
	}
	if size := q.Size(); size != 0 {
		t.Errorf("Expected empty queue after dequeue, got size %d", size)
	}
}

func TestJobQueue_PriorityHandling(t *testing.T) {
	q := NewJobQueue(10)
	defer q.Close()

	for i := 0; i < 3; i++ {
		job := Job{ID: fmt.Sprintf("regular-%d", i), Path: fmt.Sprintf("inbox/%d.txt", i)}
		if err := q.Enqueue(job); err != nil {
			t.Fatalf("Failed to enqueue regular job: %v", err)
		}
	}
	for i := 0; i < 2; i++ {
		job := Job{ID: fmt.Sprintf("priority-%d", i), Path: fmt.Sprintf("upload/%d.txt", i), Priority: PriorityHigh}
		if err := q.Enqueue(job); err != nil {
			t.Fatalf("Failed to enqueue priority job: %v", err)
		}
	}

	want := []string{"priority-0", "priority-1", "regular-0", "regular-1", "regular-2"}
	for _, id := range want {
		job, err := q.Dequeue(context.Background())
		if err != nil {
			t.Fatalf("Dequeue failed: %v", err)
		}
		if job.ID != id {
			t.Errorf("Expected %s, got %s", id, job.ID)
		}
	}
}

func TestJobQueue_Rejections(t *testing.T) {
	q := NewJobQueue(2)
	defer q.Close()

	if err := q.Enqueue(Job{ID: "1", Path: "a.txt"}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if err := q.Enqueue(Job{ID: "2", Path: "a.txt"}); err != ErrDuplicateJob {
		t.Errorf("Expected ErrDuplicateJob, got %v", err)
	}
	if err := q.Enqueue(Job{ID: "3", Path: "b.txt"}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if err := q.Enqueue(Job{ID: "4", Path: "c.txt"}); err != ErrQueueFull {
		t.Errorf("Expected ErrQueueFull, got %v", err)
	}

	// A dequeued document may be queued again.
	if _, err := q.Dequeue(context.Background()); err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if err := q.Enqueue(Job{ID: "5", Path: "a.txt"}); err != nil {
		t.Errorf("Re-enqueue after dequeue failed: %v", err)
	}

	stats := q.Stats()
	if stats.TotalRejected != 2 {
		t.Errorf("Expected 2 rejections, got %d", stats.TotalRejected)
	}
	if stats.PeakSize != 2 {
		t.Errorf("Expected peak size 2, got %d", stats.PeakSize)
	}
}

func TestJobQueue_DequeueWaits(t *testing.T) {
	q := NewJobQueue(5)
	defer q.Close()

	got := make(chan Job, 1)
	go func() {
		job, err := q.Dequeue(context.Background())
		if err != nil {
			t.Errorf("Dequeue failed: %v", err)
		}
		got <- job
	}()

	select {
	case <-got:
		t.Fatal("Dequeue should block on an empty queue")
	case <-time.After(50 * time.Millisecond):
	}

	if err := q.Enqueue(Job{ID: "late", Path: "late.txt"}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	select {
	case job := <-got:
		if job.ID != "late" {
			t.Errorf("Expected late job, got %s", job.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("Dequeue did not wake up")
	}
}

func TestJobQueue_DequeueContext(t *testing.T) {
	q := NewJobQueue(5)
	defer q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

func TestJobQueue_Close(t *testing.T) {
	q := NewJobQueue(5)

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := q.Dequeue(context.Background())
			errs <- err
		}()
	}
	time.Sleep(20 * time.Millisecond)

	if err := q.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		select {
		case err := <-errs:
			if err != ErrQueueClosed {
				t.Errorf("Expected ErrQueueClosed, got %v", err)
			}
		case <-time.After(time.Second):
			t.Fatal("Close did not wake consumers")
		}
	}

	if err := q.Enqueue(Job{ID: "x", Path: "x.txt"}); err != ErrQueueClosed {
		t.Errorf("Expected ErrQueueClosed, got %v", err)
	}
	// Closing twice is fine.
	if err := q.Close(); err != nil {
		t.Errorf("Second close failed: %v", err)
	}
}

func TestJobQueue_ConcurrentConsumers(t *testing.T) {
	q := NewJobQueue(100)
	defer q.Close()

	const jobs = 50
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var mu sync.Mutex
	seen := make(map[string]int)
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				mu.Lock()
				n := len(seen)
				mu.Unlock()
				if n == jobs {
					return
				}
				job, err := q.Dequeue(ctx)
				if err != nil {
					return
				}
				mu.Lock()
				seen[job.ID]++
				done := len(seen) == jobs
				mu.Unlock()
				if done {
					cancel()
					return
				}
			}
		}()
	}

	for i := 0; i < jobs; i++ {
		if err := q.Enqueue(Job{ID: fmt.Sprintf("j%d", i), Path: fmt.Sprintf("%d.txt", i)}); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}
	wg.Wait()

	if len(seen) != jobs {
		t.Errorf("Expected %d jobs processed, got %d", jobs, len(seen))
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("Job %s processed %d times", id, n)
		}
	}
}

func TestWorker_ProcessesJobs(t *testing.T) {
	q := NewJobQueue(10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var handled []string
	w := &Worker{
		Queue: q,
		Handle: func(ctx context.Context, job Job) error {
			mu.Lock()
			handled = append(handled, job.ID)
			n := len(handled)
			mu.Unlock()
			if n == 3 {
				q.Close()
			}
			if job.ID == "b" {
				return errors.New("bad document")
			}
			return nil
		},
	}

	for _, id := range []string{"a", "b", "c"} {
		if err := q.Enqueue(Job{ID: id, Path: id + ".txt"}); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	if err := w.Run(ctx); err != nil {
		t.Fatalf("Worker returned %v", err)
	}
	if len(handled) != 3 {
		t.Errorf("Expected 3 jobs handled despite an error, got %v", handled)
	}
}
