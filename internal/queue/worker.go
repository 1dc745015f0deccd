package queue

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
)

// Handler processes one job.
type Handler func(ctx context.Context, job Job) error

// Worker takes jobs off a queue one at a time.
type Worker struct {
	Queue  *JobQueue
	Handle Handler
	Logger *log.Logger
}

// Run processes jobs until ctx is done or the queue is closed. Handler
// errors are logged and do not stop the worker.
func (w *Worker) Run(ctx context.Context) error {
	logger := w.Logger
	if logger == nil {
		logger = log.WithPrefix("queue")
	}

	for {
		job, err := w.Queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, ErrQueueClosed) {
				return nil
			}
			return err
		}

		logger.Debug("Starting job", "id", job.ID, "path", job.Path, "waiting", w.Queue.Size())
		if err := w.Handle(ctx, job); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Error("Job failed", "id", job.ID, "path", job.Path, "err", err)
		}
	}
}
