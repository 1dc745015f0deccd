package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/legaltts/legaltts/internal/config"
	"github.com/legaltts/legaltts/internal/summarize"
)

// CheckResult reports whether one collaborator of the pipeline is ready.
type CheckResult struct {
	Component string `json:"component"`
	Available bool   `json:"available"`
	Error     string `json:"error,omitempty"`

	// Guidance explains how to fix an unavailable component.
	Guidance string            `json:"guidance,omitempty"`
	Details  map[string]string `json:"details,omitempty"`
}

func (r *CheckResult) fail(err error, guidance string) CheckResult {
	r.Available = false
	r.Error = err.Error()
	r.Guidance = guidance
	return *r
}

type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Check validates the configured collaborators without processing a
// document. Remote services are probed when they support it.
func (p *Pipeline) Check(ctx context.Context) []CheckResult {
	return []CheckResult{
		p.checkEngine(ctx),
		p.checkSummarizer(ctx),
		p.checkPrompt(),
		p.checkTranscriber(ctx),
		checkDir("output directory", p.cfg.OutputDir),
		checkDir("logs directory", p.cfg.LogsDir),
	}
}

// Ready reports whether every result is available.
func Ready(results []CheckResult) bool {
	for _, r := range results {
		if !r.Available {
			return false
		}
	}
	return true
}

func (p *Pipeline) checkEngine(ctx context.Context) CheckResult {
	info := p.engine.Info()
	r := CheckResult{
		Component: "speech engine",
		Available: true,
		Details:   map[string]string{"engine": info.Name},
	}
	if info.Model != "" {
		r.Details["model"] = info.Model
	}
	if info.Endpoint != "" {
		r.Details["endpoint"] = info.Endpoint
	}
	if p.cache != nil {
		r.Details["cache"] = p.cfg.Cache.Dir
	}

	if err := p.engine.Validate(); err != nil {
		return r.fail(err, "Check the synth section of the config file.")
	}
	if hc, ok := p.engine.(healthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return r.fail(err, orpheusGuidance)
		}
	}
	return r
}

func (p *Pipeline) checkSummarizer(ctx context.Context) CheckResult {
	name := p.summarizer.Name()
	r := CheckResult{
		Component: "language model",
		Available: true,
		Details:   map[string]string{"model": name},
	}
	switch {
	case name == summarize.NoModel:
		r.Details["note"] = "documents are read as is"
	case summarize.IsGemini(name):
		if p.cfg.Summarize.Gemini.APIKey == "" {
			return r.fail(summarize.ErrMissingAPIKey, "Set GOOGLE_API_KEY in the environment or in .env.")
		}
	default:
		r.Details["host"] = p.cfg.Summarize.Ollama.Host
	}
	if hc, ok := p.summarizer.(healthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return r.fail(err, ollamaGuidance(name))
		}
	}
	return r
}

func (p *Pipeline) checkPrompt() CheckResult {
	r := CheckResult{
		Component: "system prompt",
		Available: true,
		Details:   map[string]string{"prompt": p.cfg.Prompt},
	}
	if p.summarizer.Name() == summarize.NoModel {
		r.Details["note"] = "not used without a model"
		return r
	}
	if p.cfg.Prompt != summarize.CustomPromptKey {
		r.Details["dir"] = p.cfg.PromptsDir
	}
	if _, err := summarize.ResolvePrompt(p.cfg.Prompt, p.cfg.CustomPrompt, p.cfg.PromptsDir, p.cfg.Constants); err != nil {
		return r.fail(err, promptGuidance(p.cfg.PromptsDir, p.cfg.Prompt))
	}
	return r
}

func (p *Pipeline) checkTranscriber(ctx context.Context) CheckResult {
	r := CheckResult{
		Component: "speech recognizer",
		Available: true,
		Details:   map[string]string{"backend": p.cfg.Transcribe.Backend},
	}
	if p.transcriber == nil {
		r.Details["note"] = "repeats are not removed"
		return r
	}
	r.Details["backend"] = p.transcriber.Name()
	if p.cfg.Transcribe.Backend == config.TranscriberWhisper {
		r.Details["url"] = p.cfg.Transcribe.Whisper.URL
	}
	if hc, ok := p.transcriber.(healthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return r.fail(err, whisperGuidance)
		}
	}
	return r
}

func checkDir(component, dir string) CheckResult {
	r := CheckResult{
		Component: component,
		Available: true,
		Details:   map[string]string{"path": dir},
	}
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec
		return r.fail(err, "Pick a directory you can write to.")
	}
	f, err := os.CreateTemp(dir, ".check-*")
	if err != nil {
		return r.fail(fmt.Errorf("%s is not writable: %w", dir, err), "Pick a directory you can write to.")
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return r
}

const orpheusGuidance = `The Orpheus speech server is not reachable. To fix:

1. Start an OpenAI compatible Orpheus server, for example Orpheus-FastAPI.
2. Point synth.orpheus.endpoint (or TTS_ENDPOINT) at its /v1/audio/speech URL.
3. Or use --engine mock to test the pipeline without speech.`

const whisperGuidance = `The Whisper server is not reachable. To fix:

1. Start an OpenAI compatible Whisper server, for example faster-whisper-server:
   docker run -p 8000:8000 fedirz/faster-whisper-server:latest-cpu
2. Point transcribe.whisper.url (or WHISPER_URL) at it.
3. Or use --transcriber none to skip removing repeats.`

func ollamaGuidance(model string) string {
	return fmt.Sprintf(`The Ollama model is not available. To fix:

1. Install and start Ollama: https://ollama.com/download
2. Pull the model:
   ollama pull %s
3. Point summarize.ollama.host (or OLLAMA_HOST) at the server.
4. Or use --model no_model to read documents as is.`, model)
}

func promptGuidance(dir, key string) string {
	if key == summarize.CustomPromptKey {
		return "Set custom_prompt in the config file or pick a prompt file with --prompt."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Create %s, or pick another prompt with --prompt.", filepath.Join(dir, key+".txt"))
	if keys, err := summarize.ListPrompts(dir); err == nil && len(keys) > 0 {
		fmt.Fprintf(&b, "\nAvailable prompts: %s", strings.Join(keys, ", "))
	}
	return b.String()
}
