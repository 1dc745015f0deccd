package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# where narrations, transcripts and reports are written
output_dir: "outputs"
# where the LLM and Whisper logs are written
logs_dir: "logs"
# directory with <name>.txt system prompts (default: user data dir)
# prompts_dir: ""

# narrator voice: Tara, Leah, Jess, Leo, Dan, Mia, Zac or Zoe
voice: "Tara"
# system prompt name, or "__custom__" to use custom_prompt
prompt: "legal"
# custom_prompt: "Summarize this transcript for the {Username}."
# longest chunk sent to the speech engine, in characters
max_chunk_length: 1000
# silence between chunks
pause: "1s"
# values substituted for {Name} placeholders in prompts
constants:
  Username: "Deponent"

skip_tts: false
skip_dedup: false
# play the narration when done
play: false

synth:
  # orpheus or mock
  engine: "orpheus"
  # speaking speed, 0.5 to 2.0
  speed: 1.0
  workers: 1
  retries: 2
  retry_delay: "2s"
  orpheus:
    endpoint: "http://localhost:5005/v1/audio/speech"
    model: "orpheus-tts"
    timeout: "500s"
    # 0 disables rate limiting
    requests_per_minute: 0
    sample_rate: 24000

summarize:
  # no_model, an Ollama model such as gemma3:4b, or a gemini-* model
  model: "no_model"
  ollama:
    host: "http://localhost:11434"
    timeout: "30m"

transcribe:
  # whisper or none
  backend: "whisper"
  whisper:
    url: "http://localhost:8000"
    model: "base.en"
    language: "en"
    timeout: "30m"

dedup:
  # 0..1, higher keeps more near-duplicates
  similarity_threshold: 0.85
  # elapsed time ("2s"), segment count ("3") or both ("2s/3")
  lookback_window: "2s"
  # levenshtein or simhash
  metric: "levenshtein"
  # segment or phrase
  mode: "segment"

cache:
  enabled: true
  # dir: ""
  memory_capacity: "64 MiB"
  disk_capacity: "1.0 GiB"
  ttl: "720h"

server:
  addr: "127.0.0.1:8089"
  max_upload_size: "512 MiB"
  read_timeout: "5m"

log:
  # debug, info, warn or error
  level: "info"
  # file: "logs/legaltts.log"

metrics:
  # textfile: "/var/lib/node_exporter/legaltts.prom"
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the legaltts config file",
	Long:    paragraph(fmt.Sprintf("\n%s the legaltts config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("legaltts config\nlegaltts config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("legaltts", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
