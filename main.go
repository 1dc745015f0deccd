// Package main provides the entry point for the legaltts CLI application.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/legaltts/legaltts/internal/config"
	"github.com/legaltts/legaltts/internal/synth"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	envFile    string

	// cfg is loaded before any command runs.
	cfg       config.Config
	logCloser = func() error { return nil }

	rootCmd = &cobra.Command{
		Use:   "legaltts [FILE]",
		Short: "Turn legal documents into narrated audio",
		Long: paragraph(
			fmt.Sprintf("\nTurn legal documents into narrated audio, %s.", keyword("minus the stutters")),
		),
		Example: paragraph("legaltts deposition.txt\nlegaltts --model gemma3:4b --voice leo brief.md\nlegaltts dedup hearing.wav"),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return []string{"txt", "md", "markdown"}, cobra.ShellCompDirectiveFilterFileExt
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return logCloser()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runDocument(cmd, args[0])
		},
	}
)

// flagKeys maps persistent flags onto config keys.
var flagKeys = map[string]string{
	"output-dir":  "output_dir",
	"logs-dir":    "logs_dir",
	"prompts-dir": "prompts_dir",
	"voice":       "voice",
	"model":       "summarize.model",
	"prompt":      "prompt",
	"pause":       "pause",
	"max-chunk":   "max_chunk_length",
	"skip-tts":    "skip_tts",
	"skip-dedup":  "skip_dedup",
	"play":        "play",
	"engine":      "synth.engine",
	"speed":       "synth.speed",
	"workers":     "synth.workers",
	"transcriber": "transcribe.backend",
	"threshold":   "dedup.similarity_threshold",
	"lookback":    "dedup.lookback_window",
	"mode":        "dedup.mode",
	"no-cache":    "cache.enabled",
	"log-level":   "log.level",
	"log-file":    "log.file",
}

// loadConfig builds cfg from the config file, .env, the environment and
// flags, in increasing order of precedence, and sets up logging.
func loadConfig(cmd *cobra.Command) error {
	switch cmd.Name() {
	case "config", "man", "completion", "help":
		return nil
	}

	if cmd.Flags().Changed("config") {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
	}

	c, err := config.Load(viper.GetViper(), envFile)
	if err != nil {
		return err //nolint:wrapcheck
	}
	c, err = config.Overlay(c, changedFlags(cmd.Flags()))
	if err != nil {
		return err //nolint:wrapcheck
	}
	if err := c.ResolvePaths(); err != nil {
		return err //nolint:wrapcheck
	}

	closer, err := setupLog(c.Log)
	if err != nil {
		return err
	}
	logCloser = closer
	cfg = c

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
	}
	return nil
}

// changedFlags returns the flags given on the command line as config keys.
func changedFlags(flags *pflag.FlagSet) *viper.Viper {
	v := viper.New()
	flags.VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || !f.Changed {
			return
		}
		if f.Name == "no-cache" {
			v.Set(key, f.Value.String() != "true")
			return
		}
		v.Set(key, f.Value.String())
	})
	return v
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		_ = logCloser()
		os.Exit(1)
	}
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", configFile, "config file")
	pf.StringVar(&envFile, "env-file", ".env", "load environment variables from this file")
	pf.String("output-dir", "", "directory for narrations, transcripts and reports")
	pf.String("logs-dir", "", "directory for LLM and Whisper logs")
	pf.String("prompts-dir", "", "directory with system prompts")
	pf.StringP("voice", "v", "", "narrator voice (see 'legaltts voices')")
	pf.StringP("model", "m", "", "language model used to summarize (no_model reads the text as is)")
	pf.StringP("prompt", "p", "", "system prompt name")
	pf.Duration("pause", 0, "silence between chunks")
	pf.Int("max-chunk", 0, "longest chunk sent to the speech engine, in characters")
	pf.Bool("skip-tts", false, "stop after preparing the script")
	pf.Bool("skip-dedup", false, "keep the narration as synthesized")
	pf.Bool("play", false, "play the narration when done")
	pf.String("engine", "", "speech engine (orpheus or mock)")
	pf.Float64("speed", 0, "speaking speed, 0.5 to 2.0")
	pf.Int("workers", 0, "chunks synthesized in parallel")
	pf.String("transcriber", "", "speech recognizer (whisper or none)")
	pf.Float64("threshold", 0, "similarity at or above which a segment is a repeat (0..1)")
	pf.String("lookback", "", "how far back a repeat may reach: \"2s\", \"3\" or \"2s/3\"")
	pf.String("mode", "", "repeat detection mode (segment or phrase)")
	pf.Bool("no-cache", false, "do not cache synthesized speech")
	pf.String("log-level", "", "log level (debug, info, warn or error)")
	pf.String("log-file", "", "also write logs to this file, rotated")

	for name, key := range flagKeys {
		if name == "no-cache" {
			continue
		}
		_ = viper.BindPFlag(key, pf.Lookup(name))
	}
	config.SetDefaults(viper.GetViper())
	_ = rootCmd.RegisterFlagCompletionFunc("speed", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		steps := make([]string, len(synth.SpeedSteps))
		for i, s := range synth.SpeedSteps {
			steps[i] = strconv.FormatFloat(s, 'g', -1, 64)
		}
		return steps, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("voice", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return synth.VoiceNames(), cobra.ShellCompDirectiveNoFileComp
	})

	addRunFlags(rootCmd)
	rootCmd.AddCommand(runCmd, dedupCmd, serveCmd, watchCmd, voicesCmd, doctorCmd, configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	dirs, err := config.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName(config.AppName)
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix(config.AppName)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		configFile = used
		return
	}

	configFile = filepath.Join(dirs[0], config.AppName+".yml")
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
