package audio

import (
	"errors"
	"testing"
	"time"
)

func rampTrack(t *testing.T, format Format, frames int) *Track {
	t.Helper()
	samples := make([]int16, frames*format.Channels)
	for i := range samples {
		samples[i] = int16(i % 30000)
	}
	tr, err := NewTrack(format, samples)
	if err != nil {
		t.Fatalf("NewTrack: %v", err)
	}
	return tr
}

func TestNewTrackValidation(t *testing.T) {
	tests := []struct {
		name    string
		format  Format
		samples []int16
		wantErr bool
	}{
		{"valid mono", Format{SampleRate: 1000, Channels: 1}, make([]int16, 10), false},
		{"valid stereo", Format{SampleRate: 1000, Channels: 2}, make([]int16, 10), false},
		{"misaligned stereo", Format{SampleRate: 1000, Channels: 2}, make([]int16, 11), true},
		{"zero rate", Format{SampleRate: 0, Channels: 1}, nil, true},
		{"zero channels", Format{SampleRate: 1000, Channels: 0}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTrack(tt.format, tt.samples)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewTrack() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTrackTiming(t *testing.T) {
	tr := rampTrack(t, Format{SampleRate: 1000, Channels: 2}, 2500)

	if got := tr.Frames(); got != 2500 {
		t.Errorf("Frames() = %d, want 2500", got)
	}
	if got := tr.Duration(); got != 2500*time.Millisecond {
		t.Errorf("Duration() = %v, want 2.5s", got)
	}
	if got := tr.FrameAt(1200 * time.Millisecond); got != 1200 {
		t.Errorf("FrameAt(1.2s) = %d, want 1200", got)
	}
	if got := tr.FrameAt(10 * time.Second); got != 2500 {
		t.Errorf("FrameAt past end = %d, want clamp to 2500", got)
	}
	if got := tr.FrameAt(-time.Second); got != 0 {
		t.Errorf("FrameAt negative = %d, want 0", got)
	}
	if got := tr.TimeAt(500); got != 500*time.Millisecond {
		t.Errorf("TimeAt(500) = %v, want 500ms", got)
	}
}

func TestTrackSliceCopies(t *testing.T) {
	tr := rampTrack(t, Format{SampleRate: 1000, Channels: 1}, 1000)

	s := tr.Slice(100*time.Millisecond, 300*time.Millisecond)
	if s.Frames() != 200 {
		t.Fatalf("Slice frames = %d, want 200", s.Frames())
	}
	if s.Samples[0] != tr.Samples[100] {
		t.Errorf("Slice first sample = %d, want %d", s.Samples[0], tr.Samples[100])
	}

	s.Samples[0] = -1
	if tr.Samples[100] == -1 {
		t.Error("Slice shares memory with source track")
	}

	if empty := tr.Slice(500*time.Millisecond, 100*time.Millisecond); empty.Frames() != 0 {
		t.Errorf("inverted Slice frames = %d, want 0", empty.Frames())
	}
}

func TestTrackClone(t *testing.T) {
	tr := rampTrack(t, Format{SampleRate: 1000, Channels: 1}, 10)
	c := tr.Clone()
	c.Samples[3] = -7
	if tr.Samples[3] == -7 {
		t.Error("Clone shares memory with source track")
	}
}

func TestConcat(t *testing.T) {
	format := Format{SampleRate: 1000, Channels: 1}
	a := rampTrack(t, format, 100)
	b := rampTrack(t, format, 50)

	out, err := Concat([]*Track{a, b}, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("Concat: %v", err)
	}
	if out.Frames() != 170 {
		t.Errorf("Concat frames = %d, want 170", out.Frames())
	}
	for i := 100; i < 120; i++ {
		if out.Samples[i] != 0 {
			t.Fatalf("pause sample %d = %d, want silence", i, out.Samples[i])
		}
	}
	if out.Samples[120] != b.Samples[0] {
		t.Errorf("second track starts with %d, want %d", out.Samples[120], b.Samples[0])
	}

	single, err := Concat([]*Track{a}, time.Second)
	if err != nil {
		t.Fatalf("Concat single: %v", err)
	}
	if single.Frames() != a.Frames() {
		t.Errorf("single track concat added a pause")
	}
}

func TestConcatErrors(t *testing.T) {
	if _, err := Concat(nil, 0); err == nil {
		t.Error("expected error for empty input")
	}

	a := rampTrack(t, Format{SampleRate: 1000, Channels: 1}, 10)
	b := rampTrack(t, Format{SampleRate: 2000, Channels: 1}, 10)
	_, err := Concat([]*Track{a, b}, 0)
	if !errors.Is(err, ErrFormatMismatch) {
		t.Errorf("Concat mixed formats error = %v, want ErrFormatMismatch", err)
	}
}

func TestPCMBytes(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768}
	data := PCMBytes(samples)
	if len(data) != 10 {
		t.Fatalf("PCMBytes length = %d, want 10", len(data))
	}
	if data[2] != 0x01 || data[3] != 0x00 {
		t.Errorf("sample 1 encoded as % x, want little-endian 01 00", data[2:4])
	}

	back, err := SamplesFromPCM(data)
	if err != nil {
		t.Fatalf("SamplesFromPCM: %v", err)
	}
	for i := range samples {
		if back[i] != samples[i] {
			t.Errorf("sample %d = %d, want %d", i, back[i], samples[i])
		}
	}

	if _, err := SamplesFromPCM([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for odd-length PCM")
	}
}
