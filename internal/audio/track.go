package audio

import (
	"errors"
	"fmt"
	"time"
)

// ErrFormatMismatch is returned when tracks with different formats are combined.
var ErrFormatMismatch = errors.New("audio format mismatch")

// Track is a decoded, in-memory PCM track. Samples are interleaved by channel.
// A Track is treated as immutable once handed to another component; every
// editing operation returns a new Track.
type Track struct {
	Format
	Samples []int16
}

// NewTrack validates the format and sample alignment and returns a track
// that owns samples.
func NewTrack(format Format, samples []int16) (*Track, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	if len(samples)%format.Channels != 0 {
		return nil, fmt.Errorf("sample count %d is not a multiple of %d channels", len(samples), format.Channels)
	}
	return &Track{Format: format, Samples: samples}, nil
}

// Silent returns a track of silence lasting d.
func Silent(format Format, d time.Duration) *Track {
	return &Track{Format: format, Samples: format.Silence(d)}
}

// Frames returns the number of frames in the track.
func (t *Track) Frames() int {
	if t == nil || t.Channels == 0 {
		return 0
	}
	return len(t.Samples) / t.Channels
}

// Duration returns the playback length of the track.
func (t *Track) Duration() time.Duration {
	if t == nil {
		return 0
	}
	return t.DurationOf(t.Frames())
}

// FrameAt maps a time offset to a frame index clamped to [0, Frames()].
func (t *Track) FrameAt(d time.Duration) int {
	return min(t.FramesIn(d), t.Frames())
}

// TimeAt maps a frame index to its time offset.
func (t *Track) TimeAt(frame int) time.Duration {
	return t.DurationOf(frame)
}

// Slice copies the frames in [start, end) into a new track.
func (t *Track) Slice(start, end time.Duration) *Track {
	from, to := t.FrameAt(start), t.FrameAt(end)
	if to < from {
		to = from
	}
	out := make([]int16, (to-from)*t.Channels)
	copy(out, t.Samples[from*t.Channels:to*t.Channels])
	return &Track{Format: t.Format, Samples: out}
}

// Clone returns a deep copy.
func (t *Track) Clone() *Track {
	out := make([]int16, len(t.Samples))
	copy(out, t.Samples)
	return &Track{Format: t.Format, Samples: out}
}

// Bytes returns the track as little-endian PCM.
func (t *Track) Bytes() []byte {
	return PCMBytes(t.Samples)
}

// Concat joins tracks in order, inserting pause of silence between
// consecutive tracks. All tracks must share one format.
func Concat(tracks []*Track, pause time.Duration) (*Track, error) {
	if len(tracks) == 0 {
		return nil, errors.New("no tracks to concatenate")
	}

	format := tracks[0].Format
	gap := format.Silence(pause)
	total := 0
	for i, tr := range tracks {
		if tr.Format != format {
			return nil, fmt.Errorf("%w: track %d is %s, want %s", ErrFormatMismatch, i, tr.Format, format)
		}
		total += len(tr.Samples)
	}
	total += len(gap) * (len(tracks) - 1)

	out := make([]int16, 0, total)
	for i, tr := range tracks {
		if i > 0 {
			out = append(out, gap...)
		}
		out = append(out, tr.Samples...)
	}
	return &Track{Format: format, Samples: out}, nil
}
