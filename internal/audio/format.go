package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// Orpheus emits 24 kHz mono 16-bit PCM.
const (
	DefaultSampleRate = 24000
	DefaultChannels   = 1
	BitDepth          = 16
)

// Format describes interleaved signed 16-bit little-endian PCM.
type Format struct {
	SampleRate int
	Channels   int
}

// DefaultFormat returns the format produced by the speech engine.
func DefaultFormat() Format {
	return Format{SampleRate: DefaultSampleRate, Channels: DefaultChannels}
}

// Validate checks that the format can address frames.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", f.SampleRate)
	}
	if f.Channels <= 0 || f.Channels > 8 {
		return fmt.Errorf("channels must be between 1 and 8, got %d", f.Channels)
	}
	return nil
}

// BytesPerFrame returns the size of one frame across all channels.
func (f Format) BytesPerFrame() int {
	return BitDepth / 8 * f.Channels
}

// FramesIn converts a duration to a frame count, rounding to the nearest frame.
func (f Format) FramesIn(d time.Duration) int {
	if d <= 0 || f.SampleRate <= 0 {
		return 0
	}
	return int((int64(d)*int64(f.SampleRate) + int64(time.Second)/2) / int64(time.Second))
}

// DurationOf converts a frame count to a duration.
func (f Format) DurationOf(frames int) time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

// Silence returns interleaved zero samples covering d.
func (f Format) Silence(d time.Duration) []int16 {
	return make([]int16, f.FramesIn(d)*f.Channels)
}

func (f Format) String() string {
	return fmt.Sprintf("%d Hz, %d ch, %d bit", f.SampleRate, f.Channels, BitDepth)
}

// PCMBytes encodes samples as little-endian bytes for playback.
func PCMBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// SamplesFromPCM decodes little-endian 16-bit PCM bytes.
func SamplesFromPCM(data []byte) ([]int16, error) {
	if len(data)%2 != 0 {
		return nil, errors.New("PCM data length is not aligned to 16-bit samples")
	}
	out := make([]int16, len(data)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return out, nil
}
