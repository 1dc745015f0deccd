package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/legaltts/legaltts/internal/dedup"
)

// Report is the YAML record written next to a cleaned file.
type Report struct {
	RunID   string    `yaml:"run_id,omitempty" json:"run_id,omitempty"`
	Audio   string    `yaml:"audio" json:"audio"`
	Cleaned string    `yaml:"cleaned" json:"cleaned"`
	Created time.Time `yaml:"created" json:"created"`

	Threshold float64 `yaml:"similarity_threshold" json:"similarity_threshold"`
	Lookback  string  `yaml:"lookback_window" json:"lookback_window"`
	Mode      string  `yaml:"mode" json:"mode"`

	InputDuration  string `yaml:"input_duration" json:"input_duration"`
	OutputDuration string `yaml:"output_duration" json:"output_duration"`
	Excised        string `yaml:"excised" json:"excised"`
	InputSegments  int    `yaml:"input_segments" json:"input_segments"`
	OutputSegments int    `yaml:"output_segments" json:"output_segments"`

	Repeats  []RepeatEntry `yaml:"repeats" json:"repeats"`
	Warnings []string      `yaml:"warnings,omitempty" json:"warnings,omitempty"`
}

// RepeatEntry is one removed passage.
type RepeatEntry struct {
	Start      string  `yaml:"start" json:"start"`
	End        string  `yaml:"end" json:"end"`
	Anchor     string  `yaml:"anchor" json:"anchor"`
	Similarity float64 `yaml:"similarity" json:"similarity"`
	Text       string  `yaml:"text" json:"text"`
}

// NewReport builds a Report from a deduplication run.
func NewReport(runID, audioPath, cleanedPath string, cfg dedup.Config, r dedup.Report) Report {
	rep := Report{
		RunID:          runID,
		Audio:          audioPath,
		Cleaned:        cleanedPath,
		Created:        time.Now().UTC().Truncate(time.Second),
		Threshold:      cfg.SimilarityThreshold,
		Lookback:       cfg.Lookback.String(),
		Mode:           string(cfg.Mode),
		InputDuration:  roundDuration(r.InputDuration),
		OutputDuration: roundDuration(r.OutputDuration),
		Excised:        roundDuration(r.ExcisedDuration),
		InputSegments:  r.InputSegments,
		OutputSegments: r.OutputSegments,
		Repeats:        make([]RepeatEntry, 0, len(r.Spans)),
	}
	for _, s := range r.Spans {
		anchor := fmt.Sprintf("%d", s.Anchor.First)
		if s.Anchor.Last != s.Anchor.First {
			anchor = fmt.Sprintf("%d-%d", s.Anchor.First, s.Anchor.Last)
		}
		rep.Repeats = append(rep.Repeats, RepeatEntry{
			Start:      roundDuration(s.Start),
			End:        roundDuration(s.End),
			Anchor:     anchor,
			Similarity: float64(int(s.Similarity*1000+0.5)) / 1000,
			Text:       s.Text,
		})
	}
	for _, w := range r.Warnings {
		rep.Warnings = append(rep.Warnings, w.Error())
	}
	return rep
}

// WriteReport writes rep to path as YAML.
func WriteReport(path string, rep Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(rep); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadReport reads a report written by WriteReport.
func ReadReport(path string) (Report, error) {
	var rep Report
	data, err := os.ReadFile(path)
	if err != nil {
		return rep, err
	}
	if err := yaml.Unmarshal(data, &rep); err != nil {
		return rep, fmt.Errorf("failed to parse report %s: %w", path, err)
	}
	return rep, nil
}

func roundDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
