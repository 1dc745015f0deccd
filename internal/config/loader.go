package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/legaltts/legaltts/internal/dedup"
)

// LoadConfigFromViper builds a Config from DefaultConfig and every key set
// in v, then validates it. Duration keys accept Go duration strings and
// size keys accept human sizes such as "64MB".
func LoadConfigFromViper(v *viper.Viper) (Config, error) {
	cfg, err := fromViper(v)
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Overlay copies the keys set in v onto cfg and validates the result. It
// lets command line flags win over values taken from the environment.
func Overlay(cfg Config, v *viper.Viper) (Config, error) {
	cfg, err := overlay(cfg, v)
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) (Config, error) {
	return overlay(DefaultConfig(), v)
}

func overlay(cfg Config, v *viper.Viper) (Config, error) {
	cfg.Constants = copyConstants(cfg.Constants)
	l := loader{v: v}

	// Paths
	l.setString("output_dir", &cfg.OutputDir)
	l.setString("logs_dir", &cfg.LogsDir)
	l.setString("prompts_dir", &cfg.PromptsDir)

	// Script settings
	l.setString("voice", &cfg.Voice)
	l.setString("prompt", &cfg.Prompt)
	l.setString("custom_prompt", &cfg.CustomPrompt)
	l.setInt("max_chunk_length", &cfg.MaxChunkLength)
	if v.IsSet("constants") {
		for k, val := range v.GetStringMapString("constants") {
			cfg.Constants[constantKey(cfg.Constants, k)] = val
		}
	}

	// Output settings
	l.setDuration("pause", &cfg.Pause)
	l.setBool("skip_tts", &cfg.SkipTTS)
	l.setBool("skip_dedup", &cfg.SkipDedup)
	l.setBool("play", &cfg.Play)

	// Speech engine
	l.setString("synth.engine", &cfg.Synth.Engine)
	l.setFloat("synth.speed", &cfg.Synth.Speed)
	l.setInt("synth.workers", &cfg.Synth.Workers)
	l.setInt("synth.retries", &cfg.Synth.Retries)
	l.setDuration("synth.retry_delay", &cfg.Synth.RetryDelay)
	l.setString("synth.orpheus.endpoint", &cfg.Synth.Orpheus.Endpoint)
	l.setString("synth.orpheus.model", &cfg.Synth.Orpheus.Model)
	l.setDuration("synth.orpheus.timeout", &cfg.Synth.Orpheus.Timeout)
	l.setInt("synth.orpheus.requests_per_minute", &cfg.Synth.Orpheus.RequestsPerMinute)
	l.setInt("synth.orpheus.sample_rate", &cfg.Synth.Orpheus.SampleRate)

	// Language model
	l.setString("summarize.model", &cfg.Summarize.Model)
	l.setString("summarize.ollama.host", &cfg.Summarize.Ollama.Host)
	l.setDuration("summarize.ollama.timeout", &cfg.Summarize.Ollama.Timeout)
	l.setString("summarize.gemini.base_url", &cfg.Summarize.Gemini.BaseURL)
	l.setDuration("summarize.gemini.timeout", &cfg.Summarize.Gemini.Timeout)

	// Speech recognition
	l.setString("transcribe.backend", &cfg.Transcribe.Backend)
	l.setString("transcribe.whisper.url", &cfg.Transcribe.Whisper.URL)
	l.setString("transcribe.whisper.model", &cfg.Transcribe.Whisper.Model)
	l.setString("transcribe.whisper.language", &cfg.Transcribe.Whisper.Language)
	l.setDuration("transcribe.whisper.timeout", &cfg.Transcribe.Whisper.Timeout)

	// Deduplication
	l.setFloat("dedup.similarity_threshold", &cfg.Dedup.SimilarityThreshold)
	if v.IsSet("dedup.lookback_window") {
		w, err := dedup.ParseWindow(v.GetString("dedup.lookback_window"))
		if err != nil {
			l.fail("dedup.lookback_window", err)
		} else {
			cfg.Dedup.Lookback = w
		}
	}
	l.setString("dedup.metric", &cfg.Dedup.Metric)
	if v.IsSet("dedup.mode") {
		cfg.Dedup.Mode = dedup.Mode(v.GetString("dedup.mode"))
	}
	l.setDuration("dedup.duration_tolerance", &cfg.Dedup.DurationTolerance)
	l.setFloat("dedup.empty_result_ratio", &cfg.Dedup.EmptyResultRatio)
	l.setInt("dedup.phrase.min_words", &cfg.Dedup.Phrase.MinWords)
	l.setInt("dedup.phrase.max_words", &cfg.Dedup.Phrase.MaxWords)
	l.setInt("dedup.phrase.stutter_run", &cfg.Dedup.Phrase.StutterRun)

	// Cache
	l.setBool("cache.enabled", &cfg.Cache.Enabled)
	l.setString("cache.dir", &cfg.Cache.Dir)
	l.setBytes("cache.memory_capacity", &cfg.Cache.MemoryCapacity)
	l.setBytes("cache.disk_capacity", &cfg.Cache.DiskCapacity)
	l.setInt("cache.compression_level", &cfg.Cache.CompressionLevel)
	l.setDuration("cache.ttl", &cfg.Cache.TTL)

	// Server
	l.setString("server.addr", &cfg.Server.Addr)
	l.setBytes("server.max_upload_size", &cfg.Server.MaxUploadSize)
	l.setDuration("server.read_timeout", &cfg.Server.ReadTimeout)

	// Logging and metrics
	l.setString("log.level", &cfg.Log.Level)
	l.setString("log.file", &cfg.Log.File)
	l.setInt("log.max_size_mb", &cfg.Log.MaxSizeMB)
	l.setInt("log.max_backups", &cfg.Log.MaxBackups)
	l.setInt("log.max_age_days", &cfg.Log.MaxAgeDays)
	l.setString("metrics.textfile", &cfg.Metrics.Textfile)

	if l.err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", l.err)
	}
	return cfg, nil
}

func copyConstants(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// constantKey maps a key lowercased by viper back onto the spelling of an
// existing constant.
func constantKey(constants map[string]string, key string) string {
	for k := range constants {
		if strings.EqualFold(k, key) {
			return k
		}
	}
	return key
}

// SetDefaults registers the defaults in v so that they show up in
// AllSettings and the generated config file.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("logs_dir", d.LogsDir)
	v.SetDefault("voice", d.Voice)
	v.SetDefault("prompt", d.Prompt)
	v.SetDefault("max_chunk_length", d.MaxChunkLength)
	v.SetDefault("pause", d.Pause.String())

	v.SetDefault("synth.engine", d.Synth.Engine)
	v.SetDefault("synth.speed", d.Synth.Speed)
	v.SetDefault("synth.workers", d.Synth.Workers)
	v.SetDefault("synth.retries", d.Synth.Retries)
	v.SetDefault("synth.orpheus.endpoint", d.Synth.Orpheus.Endpoint)
	v.SetDefault("synth.orpheus.timeout", d.Synth.Orpheus.Timeout.String())

	v.SetDefault("summarize.model", d.Summarize.Model)
	v.SetDefault("summarize.ollama.host", d.Summarize.Ollama.Host)

	v.SetDefault("transcribe.backend", d.Transcribe.Backend)
	v.SetDefault("transcribe.whisper.url", d.Transcribe.Whisper.URL)
	v.SetDefault("transcribe.whisper.model", d.Transcribe.Whisper.Model)

	v.SetDefault("dedup.similarity_threshold", d.Dedup.SimilarityThreshold)
	v.SetDefault("dedup.lookback_window", d.Dedup.Lookback.String())
	v.SetDefault("dedup.metric", d.Dedup.Metric)
	v.SetDefault("dedup.mode", string(d.Dedup.Mode))

	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.memory_capacity", humanize.IBytes(uint64(d.Cache.MemoryCapacity)))
	v.SetDefault("cache.disk_capacity", humanize.IBytes(uint64(d.Cache.DiskCapacity)))
	v.SetDefault("cache.ttl", d.Cache.TTL.String())

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("log.level", d.Log.Level)
}

// loader copies set viper keys into config fields and keeps the first
// parse error.
type loader struct {
	v   *viper.Viper
	err error
}

func (l *loader) fail(key string, err error) {
	if l.err == nil {
		l.err = fmt.Errorf("%s: %w", key, err)
	}
}

func (l *loader) setString(key string, dst *string) {
	if l.v.IsSet(key) {
		*dst = l.v.GetString(key)
	}
}

func (l *loader) setInt(key string, dst *int) {
	if l.v.IsSet(key) {
		*dst = l.v.GetInt(key)
	}
}

func (l *loader) setBool(key string, dst *bool) {
	if l.v.IsSet(key) {
		*dst = l.v.GetBool(key)
	}
}

func (l *loader) setFloat(key string, dst *float64) {
	if l.v.IsSet(key) {
		*dst = l.v.GetFloat64(key)
	}
}

func (l *loader) setDuration(key string, dst *time.Duration) {
	if !l.v.IsSet(key) {
		return
	}
	d, err := time.ParseDuration(l.v.GetString(key))
	if err != nil {
		l.fail(key, err)
		return
	}
	*dst = d
}

func (l *loader) setBytes(key string, dst *int64) {
	if !l.v.IsSet(key) {
		return
	}
	n, err := humanize.ParseBytes(l.v.GetString(key))
	if err != nil {
		l.fail(key, err)
		return
	}
	*dst = int64(n)
}
