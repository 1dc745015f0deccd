package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/legaltts/legaltts/internal/audio"
	"github.com/legaltts/legaltts/internal/dedup"
	"github.com/legaltts/legaltts/internal/document"
	"github.com/legaltts/legaltts/internal/pipeline"
	"github.com/legaltts/legaltts/internal/queue"
	"github.com/legaltts/legaltts/internal/synth"
	"github.com/legaltts/legaltts/internal/transcribe"
)

func abort(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// handleHealth reports liveness. With ?deep=1 the pipeline's collaborators
// are probed and an unready pipeline answers 503.
func (s *Server) handleHealth(c *gin.Context) {
	info := s.pipeline.Engine().Info()
	body := gin.H{
		"status":  "ok",
		"engine":  info.Name,
		"model":   info.Model,
		"waiting": s.queue.Size(),
	}
	if deep, _ := strconv.ParseBool(c.Query("deep")); !deep {
		c.JSON(http.StatusOK, body)
		return
	}

	results := s.pipeline.Check(c.Request.Context())
	body["checks"] = results
	if !pipeline.Ready(results) {
		body["status"] = "degraded"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleVoices(c *gin.Context) {
	voices := make([]gin.H, 0, len(synth.Voices))
	for _, v := range synth.Voices {
		voices = append(voices, gin.H{"name": v.Name, "description": v.Description})
	}
	c.JSON(http.StatusOK, gin.H{"default": synth.DefaultVoice, "voices": voices})
}

// handleDedup removes repeats from an uploaded WAV file. The form carries
// the audio as "audio", a verbose JSON transcript as "segments" (file or
// text field) and optional "threshold", "lookback" and "mode" overrides.
// The cleaned WAV is returned unless "format" is "json".
func (s *Server) handleDedup(c *gin.Context) {
	fh, err := c.FormFile("audio")
	if err != nil {
		abort(c, http.StatusBadRequest, fmt.Errorf("missing audio file: %w", err))
		return
	}
	data, err := readUpload(fh)
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	if len(data) < transcribe.MinAudioBytes {
		abort(c, http.StatusBadRequest, transcribe.ErrAudioTooSmall)
		return
	}
	track, err := audio.DecodeWAV(data)
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}

	raw, err := formData(c, "segments")
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	tr, err := transcribe.ParseVerboseJSON(raw)
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}

	cfg, err := s.dedupConfig(c)
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}

	res, err := pipeline.Deduplicate(track, tr, cfg, s.logger)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, dedup.ErrInvalidInput) {
			status = http.StatusUnprocessableEntity
		}
		abort(c, status, err)
		return
	}
	rep := res.Report
	s.pipeline.Metrics().RecordDedup(rep.RepeatCount, rep.ExcisedDuration)

	c.Header("X-Repeats", strconv.Itoa(rep.RepeatCount))
	c.Header("X-Excised-Seconds", strconv.FormatFloat(rep.ExcisedDuration.Seconds(), 'f', 3, 64))

	if c.PostForm("format") == "json" {
		c.JSON(http.StatusOK, gin.H{
			"report":   pipeline.NewReport("", fh.Filename, "", cfg, rep),
			"segments": res.Segments,
		})
		return
	}

	out, err := audio.EncodeWAV(res.Track)
	if err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	c.Data(http.StatusOK, "audio/wav", out)
}

// dedupConfig applies form overrides to the configured dedup settings.
func (s *Server) dedupConfig(c *gin.Context) (dedup.Config, error) {
	cfg := s.cfg.Dedup
	if v := c.PostForm("threshold"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid threshold %q", v)
		}
		cfg.SimilarityThreshold = f
	}
	if v := c.PostForm("lookback"); v != "" {
		w, err := dedup.ParseWindow(v)
		if err != nil {
			return cfg, err
		}
		cfg.Lookback = w
	}
	if v := c.PostForm("mode"); v != "" {
		cfg.Mode = dedup.Mode(v)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (s *Server) handleSubmit(c *gin.Context) {
	fh, err := c.FormFile("document")
	if err != nil {
		abort(c, http.StatusBadRequest, fmt.Errorf("missing document: %w", err))
		return
	}
	name := filepath.Base(fh.Filename)
	if !document.Supported(name) {
		abort(c, http.StatusUnsupportedMediaType, fmt.Errorf("%w: %s", document.ErrUnsupportedFormat, filepath.Ext(name)))
		return
	}

	id := uuid.NewString()
	dir := filepath.Join(s.cfg.OutputDir, "uploads", id)
	path := filepath.Join(dir, name)
	if err := c.SaveUploadedFile(fh, path); err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}

	if _, err := s.submit(id, path, queue.PriorityHigh); err != nil {
		os.RemoveAll(dir)
		status := http.StatusInternalServerError
		if errors.Is(err, queue.ErrQueueFull) || errors.Is(err, queue.ErrQueueClosed) {
			status = http.StatusServiceUnavailable
		}
		abort(c, status, err)
		return
	}

	job, _ := s.jobs.get(id)
	c.JSON(http.StatusAccepted, job)
}

func (s *Server) handleListRuns(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"runs": s.jobs.list()})
}

func (s *Server) handleGetRun(c *gin.Context) {
	job, ok := s.jobs.get(c.Param("id"))
	if !ok {
		abort(c, http.StatusNotFound, fmt.Errorf("unknown run %q", c.Param("id")))
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) handleRunAudio(c *gin.Context) {
	job, ok := s.jobs.get(c.Param("id"))
	if !ok {
		abort(c, http.StatusNotFound, fmt.Errorf("unknown run %q", c.Param("id")))
		return
	}
	if job.State != StateDone || job.Audio == "" {
		abort(c, http.StatusConflict, fmt.Errorf("run %s has no audio (state %s)", job.ID, job.State))
		return
	}
	c.FileAttachment(job.Audio, filepath.Base(job.Audio))
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// formData reads a form field sent either as a file or as text.
func formData(c *gin.Context, name string) ([]byte, error) {
	if fh, err := c.FormFile(name); err == nil {
		return readUpload(fh)
	}
	if v, ok := c.GetPostForm(name); ok && v != "" {
		return []byte(v), nil
	}
	return nil, fmt.Errorf("missing %s", name)
}
