package dedup

import (
	"fmt"
	"time"

	"github.com/legaltts/legaltts/internal/audio"
)

// Segment is one timed span of transcript text, in playback order.
type Segment struct {
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
	Text  string        `json:"text"`
}

// Duration returns End - Start.
func (s Segment) Duration() time.Duration {
	return s.End - s.Start
}

func (s Segment) String() string {
	return fmt.Sprintf("[%s-%s] %q", s.Start, s.End, s.Text)
}

// IndexRange is an inclusive range of segment indices.
type IndexRange struct {
	First int `json:"first"`
	Last  int `json:"last"`
}

// RepeatSpan records that the segments in Repeat restate the segments in
// Anchor. Start and End bound the audio of the repeat.
type RepeatSpan struct {
	Anchor     IndexRange    `json:"anchor"`
	Repeat     IndexRange    `json:"repeat"`
	Start      time.Duration `json:"start"`
	End        time.Duration `json:"end"`
	Similarity float64       `json:"similarity"`
	Text       string        `json:"text"`
}

// Range is a half-open time interval [Start, End) to excise.
type Range struct {
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
}

// Duration returns End - Start.
func (r Range) Duration() time.Duration {
	return r.End - r.Start
}

func (r Range) String() string {
	return fmt.Sprintf("[%s, %s)", r.Start, r.End)
}

// Result is the output of a deduplication run. Track and Segments are newly
// allocated.
type Result struct {
	Track    *audio.Track
	Segments []Segment
	Report   Report
}

// Report summarizes a run for logs and the run report.
type Report struct {
	RepeatCount     int
	Spans           []RepeatSpan
	Plan            EditPlan
	InputDuration   time.Duration
	OutputDuration  time.Duration
	ExcisedDuration time.Duration
	InputSegments   int
	OutputSegments  int
	Warnings        []error
}

// EmptyResult reports whether the run excised (nearly) the whole track.
func (r Report) EmptyResult() bool {
	for _, w := range r.Warnings {
		if _, ok := w.(*EmptyResultWarning); ok {
			return true
		}
	}
	return false
}
