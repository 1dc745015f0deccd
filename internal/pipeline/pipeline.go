package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/legaltts/legaltts/internal/audio"
	"github.com/legaltts/legaltts/internal/cache"
	"github.com/legaltts/legaltts/internal/chunk"
	"github.com/legaltts/legaltts/internal/config"
	"github.com/legaltts/legaltts/internal/dedup"
	"github.com/legaltts/legaltts/internal/document"
	"github.com/legaltts/legaltts/internal/summarize"
	"github.com/legaltts/legaltts/internal/synth"
	"github.com/legaltts/legaltts/internal/transcribe"
)

var (
	// ErrEmptyDocument is returned when cleaning leaves no text to read.
	ErrEmptyDocument = errors.New("document has no readable text")

	// ErrNoChunks is returned when the script yields nothing to speak.
	ErrNoChunks = errors.New("script produced no chunks to speak")

	// ErrNoTranscriber is returned by Clean when no recognizer is configured
	// and no transcript was given.
	ErrNoTranscriber = errors.New("no transcriber configured")
)

// Pipeline runs documents through every stage. It is safe to call Run from
// several goroutines when the engine and summarizer are.
type Pipeline struct {
	cfg         config.Config
	engine      synth.Engine
	summarizer  summarize.Summarizer
	transcriber transcribe.Transcriber
	metrics     *Metrics
	logger      *log.Logger
	onEvent     func(Event)

	// cache is owned when the engine was built from the config.
	cache *cache.Manager

	// observers maps run IDs to callbacks given to RunObserved.
	observers sync.Map
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithEngine replaces the engine built from the config.
func WithEngine(e synth.Engine) Option {
	return func(p *Pipeline) { p.engine = e }
}

// WithSummarizer replaces the summarizer built from the config.
func WithSummarizer(s summarize.Summarizer) Option {
	return func(p *Pipeline) { p.summarizer = s }
}

// WithTranscriber replaces the transcriber built from the config.
func WithTranscriber(t transcribe.Transcriber) Option {
	return func(p *Pipeline) { p.transcriber = t }
}

// WithMetrics records into m instead of a private registry.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger replaces the default logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithProgress registers a callback for progress events. It may be called
// from several goroutines.
func WithProgress(fn func(Event)) Option {
	return func(p *Pipeline) { p.onEvent = fn }
}

// New builds a pipeline from cfg. Collaborators not given as options are
// created from the config.
func New(cfg config.Config, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{cfg: cfg, logger: log.WithPrefix("pipeline")}
	for _, opt := range opts {
		opt(p)
	}
	if p.metrics == nil {
		p.metrics = NewMetrics()
	}

	if p.engine == nil {
		engine, c, err := NewEngine(cfg)
		if err != nil {
			return nil, err
		}
		p.engine, p.cache = engine, c
	}
	if p.summarizer == nil {
		s, err := summarize.ForModel(cfg.Summarize.Model, cfg.Summarize)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("failed to create summarizer: %w", err)
		}
		p.summarizer = s
	}
	if p.transcriber == nil && cfg.Transcribe.Backend == config.TranscriberWhisper {
		w, err := transcribe.NewWhisperHTTP(cfg.Transcribe.Whisper)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("failed to create transcriber: %w", err)
		}
		p.transcriber = w
	}
	return p, nil
}

// NewEngine builds the speech engine named in cfg. The returned cache is nil
// unless caching is enabled for a remote engine; the caller closes it.
func NewEngine(cfg config.Config) (synth.Engine, *cache.Manager, error) {
	switch cfg.Synth.Engine {
	case config.EngineMock:
		return synth.NewMock(), nil, nil
	case config.EngineOrpheus, "":
		var opts []synth.OrpheusOption
		var c *cache.Manager
		if cfg.Cache.Enabled {
			m, err := cache.NewManager(cfg.Cache)
			if err != nil {
				return nil, nil, err
			}
			c = m
			opts = append(opts, synth.WithCache(m))
		}
		o, err := synth.NewOrpheus(cfg.Synth.Orpheus, opts...)
		if err != nil {
			if c != nil {
				c.Close()
			}
			return nil, nil, fmt.Errorf("failed to create speech engine: %w", err)
		}
		return o, c, nil
	default:
		return nil, nil, fmt.Errorf("unknown speech engine %q", cfg.Synth.Engine)
	}
}

// Config returns the pipeline's configuration.
func (p *Pipeline) Config() config.Config {
	return p.cfg
}

// Metrics returns the metrics the pipeline records into.
func (p *Pipeline) Metrics() *Metrics {
	return p.metrics
}

// Engine returns the speech engine.
func (p *Pipeline) Engine() synth.Engine {
	return p.engine
}

// Close releases the engine and cache.
func (p *Pipeline) Close() error {
	var errs []error
	if p.engine != nil {
		errs = append(errs, p.engine.Close())
	}
	if p.cache != nil {
		st := p.cache.Stats()
		p.logger.Debug("Speech cache", "hits", st.Hits, "misses", st.Misses, "size", humanize.IBytes(uint64(p.cache.Size())))
		errs = append(errs, p.cache.Close())
	}
	return errors.Join(errs...)
}

// Result describes a finished run.
type Result struct {
	RunID    string
	Document string
	Outputs  Outputs

	// Script is the text that was spoken, before tags were removed.
	Script       string
	Chunks       []chunk.Chunk
	FailedChunks int

	// Duration is the length of the combined narration.
	Duration time.Duration
	// Dedup is nil when deduplication did not run.
	Dedup *dedup.Report
	// DedupErr records why transcription or deduplication failed. Neither
	// fails the run; the uncleaned narration is still usable.
	DedupErr error

	Started time.Time
	Elapsed time.Duration
}

// PlayTarget returns the cleaned narration when it was written, otherwise
// the combined narration.
func (r *Result) PlayTarget() string {
	if r.Dedup != nil {
		if _, err := os.Stat(r.Outputs.Cleaned); err == nil {
			return r.Outputs.Cleaned
		}
	}
	return r.Outputs.Audio
}

// Run processes the document at path. The returned Result is non-nil even
// on error and holds whatever stages completed. Cancelling ctx stops the
// run before deduplication; once deduplication starts it completes.
func (p *Pipeline) Run(ctx context.Context, path string) (*Result, error) {
	return p.RunObserved(ctx, path, nil)
}

// RunObserved is Run with an extra progress callback for this run only.
func (p *Pipeline) RunObserved(ctx context.Context, path string, fn func(Event)) (res *Result, err error) {
	res = &Result{RunID: uuid.New().String(), Started: time.Now()}
	if fn != nil {
		p.observers.Store(res.RunID, fn)
		defer p.observers.Delete(res.RunID)
	}
	logger := p.logger.With("run", res.RunID[:8])
	defer func() {
		res.Elapsed = time.Since(res.Started)
		p.metrics.RecordRun(err == nil)
		if err != nil {
			p.emit(res.RunID, StageFailed, 100, err.Error())
		}
	}()

	// Load and clean
	start := time.Now()
	p.emit(res.RunID, StageLoad, 0, filepath.Base(path))
	doc, err := document.Load(path)
	if err != nil {
		return res, err
	}
	res.Document = doc.Base
	res.Outputs = OutputsFor(filepath.Join(p.cfg.OutputDir, doc.Base+".wav"), p.cfg.LogsDir)

	text := document.Clean(doc.Text)
	if strings.TrimSpace(text) == "" {
		return res, fmt.Errorf("%w: %s", ErrEmptyDocument, path)
	}
	logger.Info("Loaded document", "path", path, "format", doc.Format, "chars", humanize.Comma(int64(len(text))))
	p.metrics.RecordStage(StageLoad, time.Since(start))

	// Summarize
	start = time.Now()
	script, err := p.summarize(ctx, res, text, logger)
	if err != nil {
		return res, err
	}
	res.Script = script
	p.metrics.RecordStage(StageSummarize, time.Since(start))

	// Chunk
	res.Chunks = chunk.AssignVoices(script, p.cfg.Voice, synth.VoiceNames(), p.cfg.MaxChunkLength)
	if len(res.Chunks) == 0 {
		return res, ErrNoChunks
	}
	p.emit(res.RunID, StageChunk, 100, fmt.Sprintf("%d chunks", len(res.Chunks)))
	logger.Info("Split script", "chunks", len(res.Chunks), "voice", p.cfg.Voice)
	for _, c := range res.Chunks {
		logger.Debug("Chunk", "index", c.Index+1, "voice", c.Voice, "text", c.Preview(60))
	}

	if p.cfg.SkipTTS {
		logger.Info("Skipping speech synthesis")
		p.emit(res.RunID, StageDone, 100, "speech synthesis skipped")
		return res, nil
	}

	// Synthesize
	start = time.Now()
	track, err := p.synthesize(ctx, res, logger)
	if err != nil {
		return res, err
	}
	res.Duration = track.Duration()
	if err := audio.WriteWAVFile(res.Outputs.Audio, track); err != nil {
		return res, fmt.Errorf("failed to write narration: %w", err)
	}
	p.metrics.RecordStage(StageSynthesize, time.Since(start))
	logger.Info("Wrote narration",
		"path", res.Outputs.Audio,
		"duration", res.Duration.Round(time.Millisecond),
		"failed_chunks", res.FailedChunks,
	)

	if p.cfg.SkipDedup || p.transcriber == nil {
		p.emit(res.RunID, StageDone, 100, res.Outputs.Audio)
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	// Transcribe and deduplicate
	report, err := p.clean(ctx, res.RunID, track, res.Outputs, nil, logger)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		logger.Warn("Deduplication failed, keeping the uncleaned narration", "err", err)
		res.DedupErr = err
	} else {
		res.Dedup = report
	}

	p.emit(res.RunID, StageDone, 100, res.PlayTarget())
	return res, nil
}

func (p *Pipeline) summarize(ctx context.Context, res *Result, text string, logger *log.Logger) (string, error) {
	if p.summarizer.Name() == summarize.NoModel {
		p.emit(res.RunID, StageSummarize, 100, "no model")
		return text, nil
	}

	prompt, err := summarize.ResolvePrompt(p.cfg.Prompt, p.cfg.CustomPrompt, p.cfg.PromptsDir, p.cfg.Constants)
	if err != nil {
		return "", err
	}

	logger.Info("Generating script", "model", p.summarizer.Name(), "prompt", p.cfg.Prompt)
	p.emit(res.RunID, StageSummarize, 0, p.summarizer.Name())
	script, err := p.summarizer.Summarize(ctx, prompt, text, func(percent int) {
		p.emit(res.RunID, StageSummarize, percent, "")
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate script with %s: %w", p.summarizer.Name(), err)
	}

	if err := writeText(res.Outputs.LLMLog, script); err != nil {
		logger.Warn("Failed to save model response", "path", res.Outputs.LLMLog, "err", err)
	} else {
		logger.Info("Saved model response", "path", res.Outputs.LLMLog)
	}
	return script, nil
}

// synthesize speaks every chunk and joins the audio with the configured
// pause. Chunks that fail or return unreadable audio are skipped.
func (p *Pipeline) synthesize(ctx context.Context, res *Result, logger *log.Logger) (*audio.Track, error) {
	reqs := make([]synth.Request, len(res.Chunks))
	for i, c := range res.Chunks {
		reqs[i] = synth.Request{Text: c.Text, Voice: c.Voice, Speed: p.cfg.Synth.Speed}
	}

	info := p.engine.Info()
	logger.Info("Synthesizing speech", "engine", info.Name, "chunks", len(reqs), "workers", p.cfg.Synth.Workers, "speed", p.cfg.Synth.Speed)
	p.emit(res.RunID, StageSynthesize, 0, info.Name)

	outs, err := synth.SynthesizeAll(ctx, p.engine, reqs, synth.BatchOptions{
		Workers:    p.cfg.Synth.Workers,
		Retries:    p.cfg.Synth.Retries,
		RetryDelay: p.cfg.Synth.RetryDelay,
		OnProgress: func(done, total int) {
			p.emit(res.RunID, StageSynthesize, done*100/total, fmt.Sprintf("%d/%d", done, total))
		},
	})
	for _, o := range outs {
		if o.Err == nil && o.Audio != nil {
			p.metrics.RecordChunk(true)
		} else if o.Err != nil && !errors.Is(o.Err, context.Canceled) {
			p.metrics.RecordChunk(false)
		}
	}
	if err != nil {
		return nil, err
	}

	tracks := make([]*audio.Track, 0, len(outs))
	for _, o := range outs {
		if o.Err != nil {
			res.FailedChunks++
			continue
		}
		t, err := audio.DecodeWAV(o.Audio)
		if err != nil {
			logger.Warn("Skipping chunk with unreadable audio", "chunk", o.Index+1, "err", err)
			res.FailedChunks++
			continue
		}
		logger.Debug("Chunk audio",
			"chunk", o.Index+1,
			"duration", t.Duration().Round(10*time.Millisecond),
			"size", humanize.Bytes(uint64(len(o.Audio))),
			"took", o.Elapsed.Round(time.Millisecond),
		)
		tracks = append(tracks, t)
	}
	if len(tracks) == 0 {
		return nil, synth.ErrAllChunksFailed
	}

	track, err := audio.Concat(tracks, p.cfg.Pause)
	if err != nil {
		return nil, fmt.Errorf("failed to join chunk audio: %w", err)
	}
	return track, nil
}

// Clean removes repeats from the WAV at audioPath and writes the cleaned
// file, word log and report named by OutputsFor. A nil transcript is
// produced with the configured transcriber.
func (p *Pipeline) Clean(ctx context.Context, audioPath string, tr *transcribe.Transcript) (*dedup.Report, Outputs, error) {
	outputs := OutputsFor(audioPath, p.cfg.LogsDir)
	if tr == nil && p.transcriber == nil {
		return nil, outputs, ErrNoTranscriber
	}

	track, err := audio.ReadWAVFile(audioPath)
	if err != nil {
		return nil, outputs, err
	}
	runID := uuid.New().String()
	report, err := p.clean(ctx, runID, track, outputs, tr, p.logger.With("run", runID[:8]))
	return report, outputs, err
}

func (p *Pipeline) clean(ctx context.Context, runID string, track *audio.Track, outputs Outputs, tr *transcribe.Transcript, logger *log.Logger) (*dedup.Report, error) {
	if tr == nil {
		start := time.Now()
		p.emit(runID, StageTranscribe, 0, p.transcriber.Name())
		logger.Info("Transcribing narration", "backend", p.transcriber.Name(), "path", outputs.Audio)

		var err error
		tr, err = p.transcriber.Transcribe(ctx, outputs.Audio)
		if err != nil {
			return nil, fmt.Errorf("transcription failed: %w", err)
		}
		p.metrics.RecordStage(StageTranscribe, time.Since(start))
		p.emit(runID, StageTranscribe, 100, fmt.Sprintf("%d segments", len(tr.Segments)))

		if err := transcribe.SaveFile(outputs.Transcript, tr); err != nil {
			logger.Warn("Failed to save transcript", "path", outputs.Transcript, "err", err)
		}
	}
	if len(tr.Words) > 0 {
		if err := transcribe.WriteWordLogFile(outputs.WordLog, tr.Words); err != nil {
			logger.Warn("Failed to save word log", "path", outputs.WordLog, "err", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Deduplication always runs to completion.
	start := time.Now()
	p.emit(runID, StageDedup, 0, "")
	result, err := Deduplicate(track, tr, p.cfg.Dedup, logger)
	if err != nil {
		return nil, err
	}
	if err := audio.WriteWAVFile(outputs.Cleaned, result.Track); err != nil {
		return nil, fmt.Errorf("failed to write cleaned narration: %w", err)
	}

	rep := result.Report
	p.metrics.RecordDedup(rep.RepeatCount, rep.ExcisedDuration)
	p.metrics.RecordStage(StageDedup, time.Since(start))
	if err := WriteReport(outputs.Report, NewReport(runID, outputs.Audio, outputs.Cleaned, p.cfg.Dedup, rep)); err != nil {
		logger.Warn("Failed to save report", "path", outputs.Report, "err", err)
	}
	for _, w := range rep.Warnings {
		logger.Warn("Deduplication", "warning", w)
	}
	logger.Info("Removed repeats",
		"repeats", rep.RepeatCount,
		"excised", rep.ExcisedDuration.Round(time.Millisecond),
		"duration", rep.OutputDuration.Round(time.Millisecond),
		"path", outputs.Cleaned,
	)
	p.emit(runID, StageDedup, 100, fmt.Sprintf("%d repeats", rep.RepeatCount))
	return &rep, nil
}

// Deduplicate removes repeats from track using the timings in tr.
// Recognizers round times, so segment times that overrun the track by no
// more than cfg.DurationTolerance are clamped to its end. Larger mismatches
// reach the deduplicator unchanged and are rejected there.
func Deduplicate(track *audio.Track, tr *transcribe.Transcript, cfg dedup.Config, logger *log.Logger) (*dedup.Result, error) {
	opts := []dedup.Option{}
	if logger != nil {
		opts = append(opts, dedup.WithLogger(logger))
	}
	d, err := dedup.New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return d.Run(track, fitToTrack(tr.DedupSegments(cfg.Mode), track.Duration(), cfg.DurationTolerance))
}

// fitToTrack returns a copy of segs with times past limit, by at most
// tolerance, moved back to limit.
func fitToTrack(segs []dedup.Segment, limit, tolerance time.Duration) []dedup.Segment {
	out := slices.Clone(segs)
	clamp := func(t time.Duration) time.Duration {
		if t > limit && t-limit <= tolerance {
			return limit
		}
		return t
	}
	for i := range out {
		out[i].Start = clamp(out[i].Start)
		out[i].End = clamp(out[i].End)
	}
	return out
}

func writeText(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(text), 0o644)
}
