//go:build !nocgo

package audio

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

// oto allows one context per process.
var (
	otoOnce    sync.Once
	otoContext *oto.Context
	otoFormat  Format
	otoErr     error
)

// Player plays tracks on the default output device.
type Player struct {
	ctx    *oto.Context
	format Format
	volume float64
}

// NewPlayer opens the output device for format. Later calls must use the same
// format.
func NewPlayer(format Format) (*Player, error) {
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("invalid format: %w", err)
	}

	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   format.SampleRate,
			ChannelCount: format.Channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   100 * time.Millisecond,
		}
		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			otoErr = fmt.Errorf("failed to create oto context: %w", err)
			return
		}
		<-ready
		otoContext, otoFormat = ctx, format
	})
	if otoErr != nil {
		return nil, otoErr
	}
	if otoFormat != format {
		return nil, fmt.Errorf("%w: device opened as %s, track is %s", ErrFormatMismatch, otoFormat, format)
	}

	return &Player{ctx: otoContext, format: format, volume: 1.0}, nil
}

// SetVolume sets the playback volume in [0, 1].
func (p *Player) SetVolume(v float64) {
	p.volume = max(0, min(1, v))
}

// Play blocks until t has finished playing or ctx is cancelled.
func (p *Player) Play(ctx context.Context, t *Track) error {
	if t.Format != p.format {
		return fmt.Errorf("%w: player is %s, track is %s", ErrFormatMismatch, p.format, t.Format)
	}

	// The byte slice must stay reachable for the whole playback.
	data := t.Bytes()
	pl := p.ctx.NewPlayer(bytes.NewReader(data))
	pl.SetVolume(p.volume)
	pl.Play()
	log.Debug("Playback started", "duration", t.Duration())

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for pl.IsPlaying() {
		select {
		case <-ctx.Done():
			pl.Pause()
			_ = pl.Close()
			return ctx.Err()
		case <-ticker.C:
		}
	}

	if err := pl.Err(); err != nil {
		_ = pl.Close()
		return fmt.Errorf("playback failed: %w", err)
	}
	return pl.Close()
}
