package dedup

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/legaltts/legaltts/internal/audio"
	"github.com/legaltts/legaltts/internal/textsim"
)

// Deduplicator detects and removes repeated speech. It holds no per-run
// state and may be reused.
type Deduplicator struct {
	cfg    Config
	metric textsim.Metric
	logger *log.Logger
}

// Option customizes a Deduplicator.
type Option func(*Deduplicator)

// WithLogger replaces the default logger.
func WithLogger(l *log.Logger) Option {
	return func(d *Deduplicator) {
		d.logger = l
	}
}

// WithMetric overrides the metric named in Config.
func WithMetric(m textsim.Metric) Option {
	return func(d *Deduplicator) {
		d.metric = m
	}
}

// New validates cfg and returns a Deduplicator.
func New(cfg Config, opts ...Option) (*Deduplicator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dedup config: %w", err)
	}
	metric, err := textsim.MetricByName(cfg.Metric)
	if err != nil {
		return nil, err
	}

	d := &Deduplicator{
		cfg:    cfg,
		metric: metric,
		logger: log.WithPrefix("dedup"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Config returns the configuration the Deduplicator was built with.
func (d *Deduplicator) Config() Config {
	return d.cfg
}

// Deduplicate is shorthand for New(cfg) followed by Run.
func Deduplicate(track *audio.Track, segments []Segment, cfg Config) (*Result, error) {
	d, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return d.Run(track, segments)
}

// Detect returns the repeats found in segments without touching any audio.
func (d *Deduplicator) Detect(segments []Segment) []RepeatSpan {
	if d.cfg.Mode == ModePhrase {
		return detectPhrases(segments, d.cfg)
	}
	return detectSegments(segments, d.cfg, d.metric)
}

// Analysis is the detection half of a run, before any audio is edited.
type Analysis struct {
	// Spans are the repeats as detected, one per repeated segment or phrase.
	Spans []RepeatSpan
	// Merged joins spans that continue one another.
	Merged []RepeatSpan
	Plan   EditPlan
}

// Analyze validates the input, detects repeats and builds a validated
// EditPlan. It is the dry-run form of Run.
func (d *Deduplicator) Analyze(track *audio.Track, segments []Segment) (*Analysis, error) {
	if err := d.validateInput(track, segments); err != nil {
		return nil, err
	}

	spans := d.Detect(segments)
	merged := mergeSpans(spans)
	plan := buildPlan(merged, track.Duration())
	if err := plan.Validate(track.Duration()); err != nil {
		d.logger.Error("Refusing to apply edit plan", "err", err, "ranges", plan.Ranges)
		return nil, err
	}
	return &Analysis{Spans: spans, Merged: merged, Plan: plan}, nil
}

// Run removes repeated speech from track. The returned Result owns a new
// track and segment slice; neither input is modified.
func (d *Deduplicator) Run(track *audio.Track, segments []Segment) (*Result, error) {
	a, err := d.Analyze(track, segments)
	if err != nil {
		return nil, err
	}
	spans, merged, plan := a.Spans, a.Merged, a.Plan

	for _, s := range merged {
		d.logger.Debug("Repeat",
			"at", s.Start,
			"until", s.End,
			"anchor", s.Anchor.First,
			"similarity", fmt.Sprintf("%.3f", s.Similarity),
			"text", s.Text,
		)
	}

	out := applyPlan(track, plan)
	kept := remapSegments(segments, merged, plan)

	report := Report{
		RepeatCount:     len(spans),
		Spans:           spans,
		Plan:            plan,
		InputDuration:   track.Duration(),
		OutputDuration:  out.Duration(),
		ExcisedDuration: plan.Total(),
		InputSegments:   len(segments),
		OutputSegments:  len(kept),
	}
	if w := d.emptyResult(report); w != nil {
		d.logger.Warn("Nearly all audio was removed", "remaining", w.OutputDuration, "of", w.InputDuration)
		report.Warnings = append(report.Warnings, w)
	}

	d.logger.Info("Deduplication complete",
		"mode", d.cfg.Mode,
		"repeats", report.RepeatCount,
		"ranges", len(plan.Ranges),
		"excised", report.ExcisedDuration,
		"duration", report.OutputDuration,
	)

	return &Result{Track: out, Segments: kept, Report: report}, nil
}

func (d *Deduplicator) emptyResult(r Report) *EmptyResultWarning {
	w := &EmptyResultWarning{
		InputDuration:  r.InputDuration,
		OutputDuration: r.OutputDuration,
		Surviving:      r.OutputSegments,
	}
	if r.OutputSegments == 0 {
		return w
	}
	if r.RepeatCount > 0 && r.InputDuration > 0 &&
		float64(r.OutputDuration) <= d.cfg.EmptyResultRatio*float64(r.InputDuration) {
		return w
	}
	return nil
}

func (d *Deduplicator) validateInput(track *audio.Track, segments []Segment) error {
	if track == nil {
		return inputErr(-1, "missing audio track")
	}
	if len(segments) == 0 {
		return inputErr(-1, "empty transcript")
	}

	for i, s := range segments {
		if s.Start < 0 {
			return inputErr(i, "negative start %s", s.Start)
		}
		if s.End < s.Start {
			return inputErr(i, "end %s before start %s", s.End, s.Start)
		}
		if i > 0 && s.Start < segments[i-1].Start {
			return inputErr(i, "start %s before previous start %s", s.Start, segments[i-1].Start)
		}
	}

	last := segments[len(segments)-1].End
	diff := track.Duration() - last
	if diff < 0 {
		diff = -diff
	}
	if diff > d.cfg.DurationTolerance {
		return inputErr(-1, "track lasts %s but transcript ends at %s (tolerance %s)", track.Duration(), last, d.cfg.DurationTolerance)
	}
	return nil
}
