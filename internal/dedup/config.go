package dedup

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/legaltts/legaltts/internal/textsim"
)

// Mode selects how the transcript is compared.
type Mode string

const (
	// ModeSegment compares whole transcript segments by text similarity.
	ModeSegment Mode = "segment"
	// ModePhrase treats segments as single words and looks for the same
	// run of words spoken twice in a row. Words must match exactly after
	// normalization, so SimilarityThreshold and Lookback.Segments do not
	// apply. The gap between the two runs is bounded by Lookback.Span.
	ModePhrase Mode = "phrase"
)

// Window bounds how far back a repeat may look for its anchor. A zero field
// is unbounded on that axis; at least one must be set.
type Window struct {
	// Span is the largest silence allowed between the end of the anchor and
	// the start of the repeat.
	Span time.Duration `yaml:"span" mapstructure:"span"`
	// Segments is the largest index distance between anchor and repeat.
	Segments int `yaml:"segments" mapstructure:"segments"`
}

// IsZero reports whether no bound is set.
func (w Window) IsZero() bool {
	return w.Span == 0 && w.Segments == 0
}

func (w Window) String() string {
	switch {
	case w.Span > 0 && w.Segments > 0:
		return fmt.Sprintf("%s/%d", w.Span, w.Segments)
	case w.Segments > 0:
		return strconv.Itoa(w.Segments)
	default:
		return w.Span.String()
	}
}

// ParseWindow parses "2s" (elapsed time), "3" (segment count) or "2s/3"
// (both).
func ParseWindow(s string) (Window, error) {
	var w Window
	for _, part := range strings.Split(strings.TrimSpace(s), "/") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if n, err := strconv.Atoi(part); err == nil {
			if n <= 0 {
				return Window{}, fmt.Errorf("lookback segment count must be positive, got %d", n)
			}
			w.Segments = n
			continue
		}
		d, err := time.ParseDuration(part)
		if err != nil {
			return Window{}, fmt.Errorf("invalid lookback window %q: want a duration or a segment count", part)
		}
		if d <= 0 {
			return Window{}, fmt.Errorf("lookback span must be positive, got %s", d)
		}
		w.Span = d
	}
	if w.IsZero() {
		return Window{}, fmt.Errorf("empty lookback window %q", s)
	}
	return w, nil
}

// PhraseConfig tunes ModePhrase.
type PhraseConfig struct {
	MinWords int `yaml:"min_words" mapstructure:"min_words"`
	MaxWords int `yaml:"max_words" mapstructure:"max_words"`
	// StutterRun is how many identical words in a row count as a stutter
	// regardless of the gap between them.
	StutterRun int `yaml:"stutter_run" mapstructure:"stutter_run"`
}

// Config is passed explicitly to New; there is no package-level state.
type Config struct {
	SimilarityThreshold float64       `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
	Lookback            Window        `yaml:"lookback_window" mapstructure:"lookback_window"`
	Metric              string        `yaml:"metric" mapstructure:"metric"`
	Mode                Mode          `yaml:"mode" mapstructure:"mode"`
	DurationTolerance   time.Duration `yaml:"duration_tolerance" mapstructure:"duration_tolerance"`
	EmptyResultRatio    float64       `yaml:"empty_result_ratio" mapstructure:"empty_result_ratio"`
	Phrase              PhraseConfig  `yaml:"phrase" mapstructure:"phrase"`
}

// DefaultConfig returns the settings used by the pipeline.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: 0.85,
		Lookback:            Window{Span: 2 * time.Second},
		Metric:              textsim.MetricLevenshtein,
		Mode:                ModeSegment,
		DurationTolerance:   2 * time.Second,
		EmptyResultRatio:    0.05,
		Phrase: PhraseConfig{
			MinWords:   1,
			MaxWords:   20,
			StutterRun: 3,
		},
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity threshold must be in (0, 1], got %f", c.SimilarityThreshold)
	}
	if c.Lookback.Span < 0 || c.Lookback.Segments < 0 {
		return fmt.Errorf("lookback window must not be negative, got %s", c.Lookback)
	}
	if c.Lookback.IsZero() {
		return fmt.Errorf("lookback window must bound elapsed time, segment count or both")
	}
	if _, err := textsim.MetricByName(c.Metric); err != nil {
		return err
	}
	switch c.Mode {
	case ModeSegment, ModePhrase:
	default:
		return fmt.Errorf("mode must be %q or %q, got %q", ModeSegment, ModePhrase, c.Mode)
	}
	if c.DurationTolerance < 0 {
		return fmt.Errorf("duration tolerance must not be negative, got %s", c.DurationTolerance)
	}
	if c.EmptyResultRatio < 0 || c.EmptyResultRatio >= 1 {
		return fmt.Errorf("empty result ratio must be in [0, 1), got %f", c.EmptyResultRatio)
	}
	if c.Mode == ModePhrase {
		if c.Lookback.Span == 0 {
			return fmt.Errorf("phrase mode needs an elapsed time lookback window, got %s", c.Lookback)
		}
		p := c.Phrase
		if p.MinWords < 1 || p.MaxWords < p.MinWords {
			return fmt.Errorf("phrase words must satisfy 1 <= min <= max, got %d..%d", p.MinWords, p.MaxWords)
		}
		if p.StutterRun != 0 && p.StutterRun < 2 {
			return fmt.Errorf("stutter run must be 0 (off) or at least 2, got %d", p.StutterRun)
		}
	}
	return nil
}
