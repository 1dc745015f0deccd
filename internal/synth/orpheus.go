package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/legaltts/legaltts/internal/cache"
)

// OrpheusConfig configures the Orpheus engine.
type OrpheusConfig struct {
	Endpoint          string        `yaml:"endpoint" mapstructure:"endpoint" env:"TTS_ENDPOINT"`
	Model             string        `yaml:"model" mapstructure:"model"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	SampleRate        int           `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// DefaultOrpheusConfig returns the settings of a local Orpheus-FastAPI server.
func DefaultOrpheusConfig() OrpheusConfig {
	return OrpheusConfig{
		Endpoint:          "http://localhost:5005/v1/audio/speech",
		Model:             "orpheus-tts",
		Timeout:           500 * time.Second,
		RequestsPerMinute: 0,
		SampleRate:        24000,
	}
}

// Validate checks the configuration.
func (c *OrpheusConfig) Validate() error {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("invalid TTS endpoint %q: %w", c.Endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("TTS endpoint must be http or https, got %q", c.Endpoint)
	}
	if c.Model == "" {
		return fmt.Errorf("TTS model must not be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("TTS timeout must be positive, got %s", c.Timeout)
	}
	if c.RequestsPerMinute < 0 {
		return fmt.Errorf("requests per minute must not be negative, got %d", c.RequestsPerMinute)
	}
	return nil
}

// speechRequest is the OpenAI-compatible speech payload.
type speechRequest struct {
	Input          string  `json:"input"`
	Model          string  `json:"model"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format"`
	Speed          float64 `json:"speed"`
}

// Orpheus talks to an OpenAI-compatible /v1/audio/speech endpoint serving
// the Orpheus model.
type Orpheus struct {
	cfg     OrpheusConfig
	client  *http.Client
	limiter *rate.Limiter
	cache   cache.Cache
}

// OrpheusOption customizes an Orpheus engine.
type OrpheusOption func(*Orpheus)

// WithCache stores responses in c keyed by text, voice, model and speed.
func WithCache(c cache.Cache) OrpheusOption {
	return func(o *Orpheus) {
		o.cache = c
	}
}

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) OrpheusOption {
	return func(o *Orpheus) {
		o.client = c
	}
}

// NewOrpheus creates an Orpheus engine.
func NewOrpheus(cfg OrpheusConfig, opts ...OrpheusOption) (*Orpheus, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &Orpheus{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
	if cfg.RequestsPerMinute > 0 {
		o.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Synthesize requests WAV audio for req, consulting the cache first.
func (o *Orpheus) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if req.Speed == 0 {
		req.Speed = 1
	}
	voice := strings.ToLower(req.Voice)
	if voice == "" {
		voice = strings.ToLower(DefaultVoice)
	}

	key := cache.Key{Text: req.Text, Voice: voice, Model: o.cfg.Model, Speed: req.Speed}.String()
	if o.cache != nil {
		if data, ok := o.cache.Get(key); ok {
			log.Debug("Speech cache hit", "voice", voice, "chars", len(req.Text))
			return data, nil
		}
	}

	if err := o.limiter.Wait(ctx); err != nil {
		return nil, NewError(ErrorCodeCanceled, "rate limit wait cancelled", err)
	}

	body, err := json.Marshal(speechRequest{
		Input:          req.Text,
		Model:          o.cfg.Model,
		Voice:          voice,
		ResponseFormat: "wav",
		Speed:          req.Speed,
	})
	if err != nil {
		return nil, NewError(ErrorCodeInvalidInput, "encoding request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, NewError(ErrorCodeInvalidInput, "building request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	log.Debug("Requesting speech", "voice", voice, "chars", len(req.Text))
	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(ctx, err).WithContext("voice", voice)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(ctx, err).WithContext("voice", voice)
	}
	if resp.StatusCode != http.StatusOK {
		code := ErrorCodeEngineFailure
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			code = ErrorCodeInvalidInput
		}
		msg := strings.TrimSpace(string(data))
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return nil, NewError(code, fmt.Sprintf("speech server returned %s", resp.Status), fmt.Errorf("%s", msg)).
			WithContext("voice", voice).
			WithContext("status", resp.StatusCode)
	}
	if len(data) < 12 || string(data[:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, NewError(ErrorCodeAudioFormat, "speech server did not return WAV audio", nil).
			WithContext("bytes", len(data))
	}

	log.Debug("Speech received", "voice", voice, "bytes", len(data), "elapsed", time.Since(start))
	if o.cache != nil {
		if err := o.cache.Put(key, data); err != nil {
			log.Debug("Speech cache write failed", "err", err)
		}
	}
	return data, nil
}

func (o *Orpheus) Info() EngineInfo {
	return EngineInfo{
		Name:       "orpheus",
		Model:      o.cfg.Model,
		Endpoint:   o.cfg.Endpoint,
		SampleRate: o.cfg.SampleRate,
		Voices:     VoiceNames(),
	}
}

func (o *Orpheus) Validate() error {
	return o.cfg.Validate()
}

func (o *Orpheus) Close() error {
	o.client.CloseIdleConnections()
	return nil
}
