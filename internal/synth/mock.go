package synth

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/legaltts/legaltts/internal/audio"
)

// Mock synthesizes a short tone per word. It needs no server and is used for
// dry runs and tests.
type Mock struct {
	Format       audio.Format
	WordDuration time.Duration
	// Fail, when set, is consulted before each request.
	Fail func(Request) error

	calls atomic.Int64
	mu    sync.Mutex
	seen  []Request
}

// NewMock returns a mock engine producing 24 kHz mono audio.
func NewMock() *Mock {
	return &Mock{Format: audio.DefaultFormat(), WordDuration: 250 * time.Millisecond}
}

func (m *Mock) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.seen = append(m.seen, req)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, NewError(ErrorCodeCanceled, "request canceled", err)
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if m.Fail != nil {
		if err := m.Fail(req); err != nil {
			return nil, err
		}
	}

	words := len(strings.Fields(req.Text))
	d := time.Duration(words) * m.WordDuration
	if req.Speed > 0 {
		d = time.Duration(float64(d) / req.Speed)
	}
	return audio.EncodeWAV(m.tone(req.Voice, d))
}

// tone is a quiet sine whose pitch depends on the voice.
func (m *Mock) tone(voice string, d time.Duration) *audio.Track {
	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(voice)))
	freq := 180 + float64(h.Sum32()%200)

	frames := m.Format.FramesIn(d)
	samples := make([]int16, frames*m.Format.Channels)
	for i := 0; i < frames; i++ {
		v := int16(3000 * math.Sin(2*math.Pi*freq*float64(i)/float64(m.Format.SampleRate)))
		for c := 0; c < m.Format.Channels; c++ {
			samples[i*m.Format.Channels+c] = v
		}
	}
	return &audio.Track{Format: m.Format, Samples: samples}
}

// Calls returns how many requests were made.
func (m *Mock) Calls() int {
	return int(m.calls.Load())
}

// Requests returns a copy of the requests seen so far.
func (m *Mock) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.seen...)
}

func (m *Mock) Info() EngineInfo {
	return EngineInfo{Name: "mock", Model: "tone", SampleRate: m.Format.SampleRate, Voices: VoiceNames()}
}

func (m *Mock) Validate() error {
	return m.Format.Validate()
}

func (m *Mock) Close() error {
	return nil
}
