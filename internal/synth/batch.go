package synth

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// Output is the result for one request of a batch, in request order.
type Output struct {
	Index   int
	Request Request
	Audio   []byte
	Err     error
	Elapsed time.Duration
}

// BatchOptions controls SynthesizeAll.
type BatchOptions struct {
	Workers    int
	Retries    int
	RetryDelay time.Duration
	// OnProgress is called after each request finishes. It may be called
	// from several goroutines.
	OnProgress func(done, total int)
}

// SynthesizeAll runs reqs through engine with at most Workers in flight.
// A failed chunk is logged and left with Err set so the caller can skip it;
// only cancellation or every chunk failing is an error.
func SynthesizeAll(ctx context.Context, engine Engine, reqs []Request, opts BatchOptions) ([]Output, error) {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}

	out := make([]Output, len(reqs))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, req := range reqs {
		g.Go(func() error {
			start := time.Now()
			data, err := synthesizeWithRetry(gctx, engine, req, opts)
			out[i] = Output{Index: i, Request: req, Audio: data, Err: err, Elapsed: time.Since(start)}

			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				log.Warn("Chunk synthesis failed, skipping", "chunk", i+1, "voice", req.Voice, "err", err)
			}
			if opts.OnProgress != nil {
				opts.OnProgress(int(done.Add(1)), len(reqs))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}

	var firstErr error
	for _, o := range out {
		if o.Err == nil {
			return out, nil
		}
		if firstErr == nil {
			firstErr = o.Err
		}
	}
	if firstErr != nil {
		return out, fmt.Errorf("%w: %w", ErrAllChunksFailed, firstErr)
	}
	return out, nil
}

func synthesizeWithRetry(ctx context.Context, engine Engine, req Request, opts BatchOptions) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= opts.Retries; attempt++ {
		if attempt > 0 {
			log.Debug("Retrying chunk", "attempt", attempt, "err", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(opts.RetryDelay * time.Duration(attempt)):
			}
		}
		data, err := engine.Synthesize(ctx, req)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !IsRetryable(err) {
			break
		}
	}
	return nil, lastErr
}
