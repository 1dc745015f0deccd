package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"github.com/legaltts/legaltts/internal/audio"
)

// WhisperConfig configures a Whisper server speaking the OpenAI
// transcription API, such as faster-whisper-server or whisper.cpp.
type WhisperConfig struct {
	URL      string        `yaml:"url" mapstructure:"url" env:"WHISPER_URL"`
	Model    string        `yaml:"model" mapstructure:"model"`
	Language string        `yaml:"language" mapstructure:"language"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// DefaultWhisperConfig returns settings for a local English base model.
func DefaultWhisperConfig() WhisperConfig {
	return WhisperConfig{
		URL:      "http://localhost:8000",
		Model:    "base.en",
		Language: "en",
		Timeout:  30 * time.Minute,
	}
}

// Validate checks the configuration.
func (c *WhisperConfig) Validate() error {
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid whisper URL %q: %w", c.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("whisper URL must be http or https, got %q", c.URL)
	}
	if c.Model == "" {
		return fmt.Errorf("whisper model must not be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("whisper timeout must be positive, got %s", c.Timeout)
	}
	return nil
}

// WhisperHTTP uploads audio to <URL>/v1/audio/transcriptions and asks for
// segment and word timestamps.
type WhisperHTTP struct {
	cfg    WhisperConfig
	client *http.Client
}

// NewWhisperHTTP creates a Whisper client.
func NewWhisperHTTP(cfg WhisperConfig) (*WhisperHTTP, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &WhisperHTTP{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (w *WhisperHTTP) Name() string {
	return "whisper"
}

// Transcribe checks that path holds enough audio, then uploads it.
func (w *WhisperHTTP) Transcribe(ctx context.Context, path string) (*Transcript, error) {
	data, err := CheckAudioFile(path)
	if err != nil {
		return nil, err
	}

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to copy audio data: %w", err)
	}

	fields := [][2]string{
		{"model", w.cfg.Model},
		{"response_format", "verbose_json"},
		{"temperature", "0.0"},
		{"timestamp_granularities[]", "segment"},
		{"timestamp_granularities[]", "word"},
	}
	if w.cfg.Language != "" {
		fields = append(fields, [2]string{"language", w.cfg.Language})
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, fmt.Errorf("failed to write %s field: %w", f[0], err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	endpoint := strings.TrimRight(w.cfg.URL, "/") + "/v1/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	start := time.Now()
	log.Info("Transcribing audio", "file", filepath.Base(path), "size", humanize.Bytes(uint64(len(data))), "model", w.cfg.Model)
	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcription response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("whisper returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	t, err := ParseVerboseJSON(respBody)
	if err != nil {
		return nil, err
	}
	log.Info("Transcription complete",
		"segments", len(t.Segments),
		"words", len(t.Words),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return t, nil
}

// HealthCheck asks the server for its model list.
func (w *WhisperHTTP) HealthCheck(ctx context.Context) error {
	endpoint := strings.TrimRight(w.cfg.URL, "/") + "/v1/models"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: status %d", resp.StatusCode)
	}
	return nil
}

// CheckAudioFile reads path and rejects files that are too small or too
// short to transcribe. It returns the file contents.
func CheckAudioFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	if len(data) < MinAudioBytes {
		return nil, fmt.Errorf("%w: %s (%s)", ErrAudioTooSmall, path, humanize.Bytes(uint64(len(data))))
	}
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		track, err := audio.DecodeWAV(data)
		if err != nil {
			return nil, err
		}
		if d := track.Duration(); d < MinAudioDuration {
			return nil, fmt.Errorf("%w: %s lasts %s", ErrAudioTooShort, path, d)
		}
	}
	return data, nil
}
