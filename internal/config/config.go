// Package config holds the application configuration and loads it from
// the config file, the environment and command line flags.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/legaltts/legaltts/internal/cache"
	"github.com/legaltts/legaltts/internal/chunk"
	"github.com/legaltts/legaltts/internal/dedup"
	"github.com/legaltts/legaltts/internal/summarize"
	"github.com/legaltts/legaltts/internal/synth"
	"github.com/legaltts/legaltts/internal/transcribe"
)

// Config contains every option of the application.
type Config struct {
	// Paths
	OutputDir  string `yaml:"output_dir" env:"LEGALTTS_OUTPUT_DIR"`
	LogsDir    string `yaml:"logs_dir" env:"LEGALTTS_LOGS_DIR"`
	PromptsDir string `yaml:"prompts_dir" env:"LEGALTTS_PROMPTS_DIR"`

	// Script settings
	Voice          string            `yaml:"voice" env:"LEGALTTS_VOICE"`
	Prompt         string            `yaml:"prompt"`
	CustomPrompt   string            `yaml:"custom_prompt"`
	MaxChunkLength int               `yaml:"max_chunk_length"`
	Constants      map[string]string `yaml:"constants"`

	// Output settings
	Pause     time.Duration `yaml:"pause"`
	SkipTTS   bool          `yaml:"skip_tts"`
	SkipDedup bool          `yaml:"skip_dedup"`
	Play      bool          `yaml:"play"`

	Synth      SynthConfig      `yaml:"synth"`
	Summarize  summarize.Config `yaml:"summarize"`
	Transcribe TranscribeConfig `yaml:"transcribe"`
	Dedup      dedup.Config     `yaml:"dedup"`
	Cache      cache.Config     `yaml:"cache"`
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// SynthConfig selects and tunes the speech engine.
type SynthConfig struct {
	Engine     string              `yaml:"engine" env:"LEGALTTS_ENGINE"`
	Speed      float64             `yaml:"speed"`
	Workers    int                 `yaml:"workers"`
	Retries    int                 `yaml:"retries"`
	RetryDelay time.Duration       `yaml:"retry_delay"`
	Orpheus    synth.OrpheusConfig `yaml:"orpheus"`
}

// TranscribeConfig selects the speech recognizer.
type TranscribeConfig struct {
	Backend string                   `yaml:"backend" env:"LEGALTTS_TRANSCRIBER"`
	Whisper transcribe.WhisperConfig `yaml:"whisper"`
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	Addr          string        `yaml:"addr" env:"LEGALTTS_ADDR"`
	MaxUploadSize int64         `yaml:"max_upload_size"`
	ReadTimeout   time.Duration `yaml:"read_timeout"`
}

// LogConfig configures logging. An empty File logs to stderr only.
type LogConfig struct {
	Level      string `yaml:"level" env:"LEGALTTS_LOG_LEVEL"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// MetricsConfig configures metrics export. Textfile, when set, receives
// the metrics of each run in node exporter text format.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

const (
	EngineOrpheus = "orpheus"
	EngineMock    = "mock"

	TranscriberWhisper = "whisper"
	TranscriberNone    = "none"
)

// DefaultConfig returns a Config with sensible defaults. Directories are
// relative to the working directory until Resolve fills them in.
func DefaultConfig() Config {
	return Config{
		OutputDir:      "outputs",
		LogsDir:        "logs",
		Voice:          synth.DefaultVoice,
		Prompt:         "legal",
		MaxChunkLength: chunk.DefaultMaxLength,
		Constants:      summarize.DefaultConstants(),

		Pause: time.Second,

		Synth: SynthConfig{
			Engine:     EngineOrpheus,
			Speed:      synth.DefaultSpeed,
			Workers:    1,
			Retries:    2,
			RetryDelay: 2 * time.Second,
			Orpheus:    synth.DefaultOrpheusConfig(),
		},
		Summarize: summarize.DefaultConfig(),
		Transcribe: TranscribeConfig{
			Backend: TranscriberWhisper,
			Whisper: transcribe.DefaultWhisperConfig(),
		},
		Dedup: dedup.DefaultConfig(),
		Cache: cache.DefaultConfig(),
		Server: ServerConfig{
			Addr:          "127.0.0.1:8089",
			MaxUploadSize: 512 << 20,
			ReadTimeout:   5 * time.Minute,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  20,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
	}
}

// Validate checks if the configuration is valid. Names are normalized to
// lower case as a side effect.
func (c *Config) Validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("output directory must be set")
	}

	v, err := synth.ResolveVoice(c.Voice)
	if err != nil {
		return err
	}
	c.Voice = v.Name

	if c.Prompt == "" {
		return fmt.Errorf("prompt must be set (use %q with custom_prompt for literal text)", summarize.CustomPromptKey)
	}
	if c.Prompt == summarize.CustomPromptKey && strings.TrimSpace(c.CustomPrompt) == "" && c.Summarize.Model != summarize.NoModel {
		return fmt.Errorf("custom prompt selected but custom_prompt is empty")
	}
	if c.MaxChunkLength < 50 || c.MaxChunkLength > 5000 {
		return fmt.Errorf("max chunk length must be between 50 and 5000, got %d", c.MaxChunkLength)
	}
	if c.Pause < 0 || c.Pause > 10*time.Second {
		return fmt.Errorf("pause must be between 0 and 10s, got %s", c.Pause)
	}

	if err := c.Synth.validate(); err != nil {
		return err
	}

	c.Transcribe.Backend = strings.ToLower(c.Transcribe.Backend)
	switch c.Transcribe.Backend {
	case TranscriberWhisper:
		if err := c.Transcribe.Whisper.Validate(); err != nil {
			return err
		}
	case TranscriberNone:
	default:
		return fmt.Errorf("invalid transcriber '%s': must be one of %v", c.Transcribe.Backend, []string{TranscriberWhisper, TranscriberNone})
	}

	if err := c.Dedup.Validate(); err != nil {
		return fmt.Errorf("dedup: %w", err)
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}

	validLevels := []string{"debug", "info", "warn", "error", "fatal"}
	levelValid := false
	for _, l := range validLevels {
		if strings.EqualFold(c.Log.Level, l) {
			levelValid = true
			c.Log.Level = l
			break
		}
	}
	if !levelValid {
		return fmt.Errorf("invalid log level '%s': must be one of %v", c.Log.Level, validLevels)
	}

	if c.Server.MaxUploadSize <= 0 {
		return fmt.Errorf("server max upload size must be positive, got %d", c.Server.MaxUploadSize)
	}
	return nil
}

func (s *SynthConfig) validate() error {
	s.Engine = strings.ToLower(s.Engine)
	switch s.Engine {
	case EngineOrpheus:
		if err := s.Orpheus.Validate(); err != nil {
			return err
		}
	case EngineMock:
	default:
		return fmt.Errorf("invalid speech engine '%s': must be one of %v", s.Engine, []string{EngineOrpheus, EngineMock})
	}
	if err := synth.ValidateSpeed(s.Speed); err != nil {
		return err
	}
	if s.Workers < 1 || s.Workers > 16 {
		return fmt.Errorf("synth workers must be between 1 and 16, got %d", s.Workers)
	}
	if s.Retries < 0 || s.Retries > 10 {
		return fmt.Errorf("synth retries must be between 0 and 10, got %d", s.Retries)
	}
	if s.RetryDelay < 0 {
		return fmt.Errorf("synth retry delay must not be negative, got %s", s.RetryDelay)
	}
	return nil
}
