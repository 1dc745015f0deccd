package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/legaltts/legaltts/internal/dedup"
)

var (
	// ErrAudioTooSmall is returned for files too small to hold speech.
	ErrAudioTooSmall = errors.New("audio file is empty or too small to process")

	// ErrAudioTooShort is returned for audio shorter than MinAudioDuration.
	ErrAudioTooShort = errors.New("audio is too short to process")

	// ErrInvalidTranscript is returned when transcript data cannot be used.
	ErrInvalidTranscript = errors.New("invalid transcript")
)

const (
	// MinAudioBytes is the smallest file worth sending to a recognizer.
	MinAudioBytes = 1024
	// MinAudioDuration is the shortest audio worth sending to a recognizer.
	MinAudioDuration = 500 * time.Millisecond
)

// Segment is a recognizer segment, usually a sentence or clause.
type Segment struct {
	ID    int
	Start time.Duration
	End   time.Duration
	Text  string
}

// Word is a single recognized word.
type Word struct {
	Text  string
	Start time.Duration
	End   time.Duration
}

// Transcript is the timed text of one audio file.
type Transcript struct {
	Language string
	Duration time.Duration
	Segments []Segment
	Words    []Word
}

// Transcriber produces a transcript for an audio file.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (*Transcript, error)
	Name() string
}

// Text joins the segment texts.
func (t *Transcript) Text() string {
	parts := make([]string, 0, len(t.Segments))
	for _, s := range t.Segments {
		if txt := strings.TrimSpace(s.Text); txt != "" {
			parts = append(parts, txt)
		}
	}
	return strings.Join(parts, " ")
}

// DedupSegments converts the transcript into deduplicator input. Segment
// mode uses recognizer segments; phrase mode uses one segment per word and
// falls back to segments when no word timestamps are present.
func (t *Transcript) DedupSegments(mode dedup.Mode) []dedup.Segment {
	if mode == dedup.ModePhrase {
		if len(t.Words) > 0 {
			out := make([]dedup.Segment, len(t.Words))
			for i, w := range t.Words {
				out[i] = dedup.Segment{Start: w.Start, End: w.End, Text: strings.TrimSpace(w.Text)}
			}
			return out
		}
		log.Warn("Transcript has no word timestamps, comparing segments instead")
	}

	out := make([]dedup.Segment, len(t.Segments))
	for i, s := range t.Segments {
		out[i] = dedup.Segment{Start: s.Start, End: s.End, Text: strings.TrimSpace(s.Text)}
	}
	return out
}

// Whisper verbose_json wire types. Times are seconds.
type verboseWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type verboseSegment struct {
	ID    int           `json:"id"`
	Start float64       `json:"start"`
	End   float64       `json:"end"`
	Text  string        `json:"text"`
	Words []verboseWord `json:"words,omitempty"`
}

type verboseTranscript struct {
	Text     string           `json:"text"`
	Language string           `json:"language,omitempty"`
	Duration float64          `json:"duration,omitempty"`
	Segments []verboseSegment `json:"segments"`
	Words    []verboseWord    `json:"words,omitempty"`
}

// ParseVerboseJSON decodes a Whisper verbose_json response. Words may be
// given at the top level or nested in their segments.
func ParseVerboseJSON(data []byte) (*Transcript, error) {
	var v verboseTranscript
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTranscript, err)
	}

	t := &Transcript{
		Language: v.Language,
		Duration: seconds(v.Duration),
		Segments: make([]Segment, 0, len(v.Segments)),
	}
	for i, s := range v.Segments {
		if s.End < s.Start {
			return nil, fmt.Errorf("%w: segment %d ends at %.2fs before it starts at %.2fs", ErrInvalidTranscript, i, s.End, s.Start)
		}
		t.Segments = append(t.Segments, Segment{ID: s.ID, Start: seconds(s.Start), End: seconds(s.End), Text: s.Text})
	}

	words := v.Words
	if len(words) == 0 {
		for _, s := range v.Segments {
			words = append(words, s.Words...)
		}
	}
	for _, w := range words {
		t.Words = append(t.Words, Word{Text: w.Word, Start: seconds(w.Start), End: seconds(w.End)})
	}

	if t.Duration == 0 && len(t.Segments) > 0 {
		t.Duration = t.Segments[len(t.Segments)-1].End
	}
	return t, nil
}

// VerboseJSON encodes t in the shape ParseVerboseJSON reads.
func (t *Transcript) VerboseJSON() ([]byte, error) {
	v := verboseTranscript{
		Text:     t.Text(),
		Language: t.Language,
		Duration: t.Duration.Seconds(),
		Segments: make([]verboseSegment, len(t.Segments)),
	}
	for i, s := range t.Segments {
		v.Segments[i] = verboseSegment{ID: s.ID, Start: s.Start.Seconds(), End: s.End.Seconds(), Text: s.Text}
	}
	for _, w := range t.Words {
		v.Words = append(v.Words, verboseWord{Word: w.Text, Start: w.Start.Seconds(), End: w.End.Seconds()})
	}
	return json.MarshalIndent(v, "", "  ")
}

func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}
