package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects counters for pipeline runs on its own registry, so that
// several pipelines (and tests) do not share state.
type Metrics struct {
	Registry *prometheus.Registry

	// RunsTotal counts runs by status (success/error).
	RunsTotal *prometheus.CounterVec
	// ChunksTotal counts synthesized chunks by status (success/error).
	ChunksTotal *prometheus.CounterVec
	// RepeatsTotal counts repeats removed from audio.
	RepeatsTotal prometheus.Counter
	// ExcisedSeconds counts seconds of audio removed.
	ExcisedSeconds prometheus.Counter
	// StageDuration observes how long each stage takes.
	StageDuration *prometheus.HistogramVec
}

// NewMetrics registers the pipeline metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		RunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "legaltts_runs_total",
				Help: "Total number of pipeline runs by status",
			},
			[]string{"status"},
		),
		ChunksTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "legaltts_chunks_total",
				Help: "Total number of text chunks synthesized by status",
			},
			[]string{"status"},
		),
		RepeatsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "legaltts_repeats_total",
			Help: "Total number of repeated passages removed from audio",
		}),
		ExcisedSeconds: f.NewCounter(prometheus.CounterOpts{
			Name: "legaltts_excised_seconds_total",
			Help: "Total seconds of audio removed as repeats",
		}),
		// Buckets: 0.1s .. 30min
		StageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "legaltts_stage_duration_seconds",
				Help:    "Pipeline stage duration in seconds by stage",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900, 1800},
			},
			[]string{"stage"},
		),
	}
}

// RecordRun records the outcome of a run.
func (m *Metrics) RecordRun(success bool) {
	m.RunsTotal.WithLabelValues(status(success)).Inc()
}

// RecordChunk records the outcome of one synthesized chunk.
func (m *Metrics) RecordChunk(success bool) {
	m.ChunksTotal.WithLabelValues(status(success)).Inc()
}

// RecordDedup records repeats removed by one deduplication.
func (m *Metrics) RecordDedup(repeats int, excised time.Duration) {
	m.RepeatsTotal.Add(float64(repeats))
	m.ExcisedSeconds.Add(excised.Seconds())
}

// RecordStage records how long stage took.
func (m *Metrics) RecordStage(stage Stage, d time.Duration) {
	m.StageDuration.WithLabelValues(string(stage)).Observe(d.Seconds())
}

// WriteTextfile writes every metric to path in the node exporter textfile
// format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
