// Package server exposes the deduplicator and the document pipeline over
// HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/legaltts/legaltts/internal/config"
	"github.com/legaltts/legaltts/internal/pipeline"
	"github.com/legaltts/legaltts/internal/queue"
)

// QueueSize bounds the documents waiting for the pipeline.
const QueueSize = 64

// Server routes HTTP requests and runs queued documents through a
// pipeline, one at a time.
type Server struct {
	cfg      config.Config
	pipeline *pipeline.Pipeline
	queue    *queue.JobQueue
	jobs     *jobStore
	router   *gin.Engine
	logger   *log.Logger
}

// New creates a server for p. Settings come from cfg.Server and
// cfg.Dedup.
func New(cfg config.Config, p *pipeline.Pipeline) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:      cfg,
		pipeline: p,
		queue:    queue.NewJobQueue(QueueSize),
		jobs:     newJobStore(),
		logger:   log.WithPrefix("server"),
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger))
	r.MaxMultipartMemory = 32 << 20

	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(p.Metrics().Registry, promhttp.HandlerOpts{})))

	v1 := r.Group("/v1", limitBody(cfg.Server.MaxUploadSize))
	v1.GET("/voices", s.handleVoices)
	v1.POST("/dedup", s.handleDedup)
	v1.POST("/runs", s.handleSubmit)
	v1.GET("/runs", s.handleListRuns)
	v1.GET("/runs/:id", s.handleGetRun)
	v1.GET("/runs/:id/audio", s.handleRunAudio)

	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Submit queues the document at path and returns its job ID.
func (s *Server) Submit(path string, priority queue.Priority) (string, error) {
	return s.submit(uuid.NewString(), path, priority)
}

func (s *Server) submit(id, path string, priority queue.Priority) (string, error) {
	s.jobs.add(id, path)
	if err := s.queue.Enqueue(queue.Job{ID: id, Path: path, Priority: priority}); err != nil {
		s.jobs.remove(id)
		return "", err
	}
	s.logger.Info("Queued document", "id", id, "path", path, "waiting", s.queue.Size())
	return id, nil
}

// Job returns the status of a submitted job.
func (s *Server) Job(id string) (JobStatus, bool) {
	return s.jobs.get(id)
}

// RunWorker processes queued documents until ctx is done.
func (s *Server) RunWorker(ctx context.Context) error {
	w := &queue.Worker{Queue: s.queue, Handle: s.process, Logger: s.logger}
	return w.Run(ctx)
}

func (s *Server) process(ctx context.Context, job queue.Job) error {
	s.jobs.start(job.ID)
	res, err := s.pipeline.RunObserved(ctx, job.Path, func(e pipeline.Event) {
		s.jobs.progress(job.ID, e)
	})
	s.jobs.finish(job.ID, res, err)
	return err
}

// Serve listens on the configured address and processes queued documents
// until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.router,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.RunWorker(gctx)
	})
	g.Go(func() error {
		s.logger.Info("Listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.queue.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
