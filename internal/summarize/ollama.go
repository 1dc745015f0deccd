package summarize

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// OllamaConfig configures a local Ollama server.
type OllamaConfig struct {
	Host    string        `yaml:"host" mapstructure:"host" env:"OLLAMA_HOST"`
	Model   string        `yaml:"-" mapstructure:"-"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// DefaultOllamaConfig returns settings for a local server.
func DefaultOllamaConfig() OllamaConfig {
	return OllamaConfig{
		Host:    "http://localhost:11434",
		Timeout: 30 * time.Minute,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error,omitempty"`
}

// Ollama streams a chat completion from /api/chat.
type Ollama struct {
	cfg    OllamaConfig
	client *http.Client
}

// NewOllama creates an Ollama summarizer.
func NewOllama(cfg OllamaConfig) (*Ollama, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("ollama model must not be empty")
	}
	if cfg.Host == "" {
		cfg.Host = DefaultOllamaConfig().Host
	}
	if !strings.HasPrefix(cfg.Host, "http://") && !strings.HasPrefix(cfg.Host, "https://") {
		cfg.Host = "http://" + cfg.Host
	}
	return &Ollama{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}, nil
}

func (o *Ollama) Name() string { return o.cfg.Model }

// Summarize sends the system prompt and text and accumulates the streamed
// reply. Progress advances by one per streamed chunk, capped at 99 until
// the stream finishes.
func (o *Ollama) Summarize(ctx context.Context, systemPrompt, text string, progress ProgressFunc) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: o.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: text},
		},
		Stream: true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(o.cfg.Host, "/")+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	log.Info("Sending text to Ollama", "model", o.cfg.Model, "chars", len(text))
	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var sb strings.Builder
	chunks := 0
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk chatResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			return "", fmt.Errorf("failed to decode ollama stream: %w", err)
		}
		if chunk.Error != "" {
			return "", fmt.Errorf("ollama: %s", chunk.Error)
		}
		sb.WriteString(chunk.Message.Content)
		chunks++
		if progress != nil {
			progress(min(chunks, 99))
		}
		if chunk.Done {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("failed to read ollama stream: %w", err)
	}
	if progress != nil {
		progress(100)
	}

	return checkResponse(o.cfg.Model, sb.String())
}

// HealthCheck asks the server for its installed models and reports whether
// the configured model is among them.
func (o *Ollama) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(o.cfg.Host, "/")+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama unreachable at %s: %w", o.cfg.Host, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama health check failed: status %d", resp.StatusCode)
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return fmt.Errorf("failed to decode model list: %w", err)
	}
	for _, m := range tags.Models {
		if m.Name == o.cfg.Model || strings.TrimSuffix(m.Name, ":latest") == o.cfg.Model {
			return nil
		}
	}
	return fmt.Errorf("%w: %s is not installed (ollama pull %s)", ErrModelNotFound, o.cfg.Model, o.cfg.Model)
}
