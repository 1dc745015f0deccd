//go:build nocgo

package audio

import (
	"context"
	"errors"
)

// ErrPlaybackUnavailable is returned by builds without cgo audio support.
var ErrPlaybackUnavailable = errors.New("audio playback not available in nocgo build")

// Player is a stub for builds without an audio backend.
type Player struct{}

func NewPlayer(format Format) (*Player, error) {
	return nil, ErrPlaybackUnavailable
}

func (p *Player) SetVolume(float64) {}

func (p *Player) Play(ctx context.Context, t *Track) error {
	return ErrPlaybackUnavailable
}
