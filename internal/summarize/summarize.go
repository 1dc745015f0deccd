package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// NoModel selects the passthrough summarizer.
const NoModel = "no_model"

var (
	// ErrEmptyResponse is returned when a model produced no text.
	ErrEmptyResponse = errors.New("model returned an empty response")

	// ErrMissingAPIKey is returned when a hosted model has no credentials.
	ErrMissingAPIKey = errors.New("API key not set")

	// ErrModelNotFound is returned when a server does not offer the model.
	ErrModelNotFound = errors.New("model not found")
)

// ProgressFunc receives a completion percentage from 0 to 100.
type ProgressFunc func(percent int)

// Summarizer turns document text into the script that will be spoken.
type Summarizer interface {
	Summarize(ctx context.Context, systemPrompt, text string, progress ProgressFunc) (string, error)
	Name() string
}

// Models lists the model names offered by default.
var Models = []string{
	NoModel,
	"gemma3:1b",
	"mistral:7b",
	"llama3:8b",
	"sushruth/solar-uncensored",
	"gemini-2.5-pro",
	"gemini-2.5-flash",
}

// Config holds the settings for every backend.
type Config struct {
	Model  string       `yaml:"model" mapstructure:"model"`
	Ollama OllamaConfig `yaml:"ollama" mapstructure:"ollama"`
	Gemini GeminiConfig `yaml:"gemini" mapstructure:"gemini"`
}

// DefaultConfig uses no model.
func DefaultConfig() Config {
	return Config{
		Model:  NoModel,
		Ollama: DefaultOllamaConfig(),
		Gemini: DefaultGeminiConfig(),
	}
}

// IsGemini reports whether name is served by the Gemini API.
func IsGemini(name string) bool {
	return strings.HasPrefix(strings.ToLower(name), "gemini-")
}

// ForModel returns the summarizer for name: passthrough for "no_model" or
// an empty name, Gemini for "gemini-*" and Ollama for anything else.
func ForModel(name string, cfg Config) (Summarizer, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "" || name == NoModel:
		return Passthrough{}, nil
	case IsGemini(name):
		g := cfg.Gemini
		g.Model = name
		return NewGemini(g)
	default:
		o := cfg.Ollama
		o.Model = name
		return NewOllama(o)
	}
}

// Passthrough returns the text unchanged.
type Passthrough struct{}

func (Passthrough) Name() string { return NoModel }

func (Passthrough) Summarize(ctx context.Context, _ string, text string, progress ProgressFunc) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if progress != nil {
		progress(100)
	}
	return text, nil
}

func checkResponse(model, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%s: %w", model, ErrEmptyResponse)
	}
	return text, nil
}
