package synth

import (
	"context"
	"strings"
)

// Request is one chunk of text to speak.
type Request struct {
	Text  string
	Voice string
	Speed float64
}

// Engine synthesizes speech. Synthesize returns a complete WAV file.
type Engine interface {
	Synthesize(ctx context.Context, req Request) ([]byte, error)
	Info() EngineInfo
	Validate() error
	Close() error
}

// EngineInfo describes an engine for logs and the voices command.
type EngineInfo struct {
	Name       string
	Model      string
	Endpoint   string
	SampleRate int
	Voices     []string
}

func validateRequest(req Request) error {
	if strings.TrimSpace(req.Text) == "" {
		return NewError(ErrorCodeInvalidInput, "empty request", ErrEmptyText)
	}
	return nil
}
