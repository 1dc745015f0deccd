package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/legaltts/legaltts/internal/audio"
	"github.com/legaltts/legaltts/internal/dedup"
	"github.com/legaltts/legaltts/internal/pipeline"
	"github.com/legaltts/legaltts/internal/transcribe"
)

var (
	showText       bool
	width          uint
	transcriptFile string

	runCmd = &cobra.Command{
		Use:     "run FILE",
		Short:   "Narrate a document",
		Long:    paragraph(fmt.Sprintf("\n%s a .txt or .md document: summarize it if a model is set, synthesize every chunk, then remove repeated speech from the narration.", keyword("Narrate"))),
		Example: paragraph("legaltts run deposition.txt\nlegaltts run --skip-tts --show-text brief.md"),
		Args:    cobra.ExactArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return []string{"txt", "md", "markdown"}, cobra.ShellCompDirectiveFilterFileExt
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDocument(cmd, args[0])
		},
	}

	dedupCmd = &cobra.Command{
		Use:     "dedup AUDIO.wav",
		Short:   "Remove repeated speech from a narration",
		Long:    paragraph(fmt.Sprintf("\n%s repeated phrases from a WAV narration. The narration is transcribed unless --transcript names a verbose JSON transcript or a word log.", keyword("Remove"))),
		Example: paragraph("legaltts dedup outputs/deposition.wav\nlegaltts dedup --transcript hearing.json --threshold 0.9 hearing.wav"),
		Args:    cobra.ExactArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return []string{"wav"}, cobra.ShellCompDirectiveFilterFileExt
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return dedupAudio(cmd, args[0])
		},
	}
)

func init() {
	addRunFlags(runCmd)
	dedupCmd.Flags().StringVarP(&transcriptFile, "transcript", "t", "", "use this transcript instead of transcribing")
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&showText, "show-text", "s", false, "print the narrated script")
	cmd.Flags().UintVarP(&width, "width", "w", 0, "word-wrap the script at width (0 detects the terminal)")
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func runDocument(cmd *cobra.Command, path string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	p, err := pipeline.New(cfg, pipeline.WithProgress(progressPrinter()))
	if err != nil {
		return err //nolint:wrapcheck
	}
	defer p.Close() //nolint:errcheck

	res, err := p.Run(ctx, path)
	writeMetrics(p)
	if err != nil {
		return err //nolint:wrapcheck
	}

	if showText {
		if err := printScript(res.Script); err != nil {
			return err
		}
	}
	fmt.Println(runSummary(res))

	if cfg.Play && res.Duration > 0 {
		return play(ctx, res.PlayTarget())
	}
	return nil
}

func dedupAudio(cmd *cobra.Command, path string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	var tr *transcribe.Transcript
	if transcriptFile != "" {
		var err error
		if tr, err = transcribe.LoadFile(transcriptFile); err != nil {
			return err //nolint:wrapcheck
		}
	}

	p, err := pipeline.New(cfg, pipeline.WithProgress(progressPrinter()))
	if err != nil {
		return err //nolint:wrapcheck
	}
	defer p.Close() //nolint:errcheck

	rep, out, err := p.Clean(ctx, path, tr)
	writeMetrics(p)
	if err != nil {
		return err //nolint:wrapcheck
	}
	fmt.Println(dedupSummary(rep, out))

	if cfg.Play {
		return play(ctx, out.Cleaned)
	}
	return nil
}

// progressPrinter prints a line per stage when stderr is a terminal.
func progressPrinter() func(pipeline.Event) {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return nil
	}
	var last pipeline.Stage
	return func(e pipeline.Event) {
		if e.Stage == last && e.Percent < 100 {
			return
		}
		last = e.Stage
		fmt.Fprintln(os.Stderr, faint(fmt.Sprintf("  %-11s %3d%%  %s", e.Stage, e.Percent, e.Message)))
	}
}

func writeMetrics(p *pipeline.Pipeline) {
	if cfg.Metrics.Textfile == "" {
		return
	}
	if err := p.Metrics().WriteTextfile(cfg.Metrics.Textfile); err != nil {
		log.Warn("Could not write metrics", "path", cfg.Metrics.Textfile, "err", err)
	}
}

// printScript renders the script as markdown. Speaker tags are shown as
// inline code so they stay visible.
func printScript(script string) error {
	w := int(width) //nolint:gosec
	isTerminal := term.IsTerminal(int(os.Stdout.Fd()))
	if w == 0 {
		w = 80
		if isTerminal {
			if tw, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
				w = min(tw, 120)
			}
		}
	}

	style := "auto"
	if !isTerminal {
		style = "notty"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithColorProfile(lipgloss.ColorProfile()),
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(w),
		glamour.WithPreservedNewLines(),
	)
	if err != nil {
		return fmt.Errorf("unable to create renderer: %w", err)
	}

	out, err := r.Render(markTags(script))
	if err != nil {
		return fmt.Errorf("unable to render script: %w", err)
	}
	fmt.Print(out)
	return nil
}

// markTags wraps lines holding only a speaker tag in backticks.
func markTags(script string) string {
	lines := strings.Split(script, "\n")
	for i, l := range lines {
		t := strings.TrimSpace(l)
		if strings.HasPrefix(t, "<") && strings.HasSuffix(t, ">") {
			lines[i] = "`" + t + "`"
		}
	}
	return strings.Join(lines, "\n")
}

func row(label, value string) string {
	return fmt.Sprintf("  %s %s", faint(fmt.Sprintf("%-11s", label)), value)
}

func runSummary(res *pipeline.Result) string {
	var b strings.Builder
	b.WriteString(header.Render(res.Document) + "\n")
	b.WriteString(row("Run", res.RunID) + "\n")
	b.WriteString(row("Chunks", fmt.Sprintf("%d", len(res.Chunks))) + "\n")
	if res.FailedChunks > 0 {
		b.WriteString(row("Failed", warn(fmt.Sprintf("%d chunks skipped", res.FailedChunks))) + "\n")
	}
	if res.Duration == 0 {
		b.WriteString(row("Narration", faint("skipped")) + "\n")
		b.WriteString(row("Elapsed", res.Elapsed.Round(time.Millisecond).String()))
		return b.String()
	}
	b.WriteString(row("Narration", fmt.Sprintf("%s (%s)", res.Outputs.Audio, res.Duration.Round(time.Millisecond))) + "\n")
	switch {
	case res.DedupErr != nil:
		b.WriteString(row("Cleaned", warn(res.DedupErr.Error())) + "\n")
	case res.Dedup != nil:
		b.WriteString(repeatRows(*res.Dedup, res.Outputs))
	}
	b.WriteString(row("Elapsed", res.Elapsed.Round(time.Millisecond).String()))
	return b.String()
}

func dedupSummary(rep *dedup.Report, out pipeline.Outputs) string {
	var b strings.Builder
	b.WriteString(header.Render(out.Audio) + "\n")
	b.WriteString(strings.TrimSuffix(repeatRows(*rep, out), "\n"))
	return b.String()
}

func repeatRows(rep dedup.Report, out pipeline.Outputs) string {
	var b strings.Builder
	b.WriteString(row("Repeats", fmt.Sprintf("%d (%s removed)", rep.RepeatCount, rep.ExcisedDuration.Round(time.Millisecond))) + "\n")
	b.WriteString(row("Cleaned", fmt.Sprintf("%s (%s)", out.Cleaned, rep.OutputDuration.Round(time.Millisecond))) + "\n")
	b.WriteString(row("Report", out.Report) + "\n")
	for _, w := range rep.Warnings {
		b.WriteString(row("Warning", warn(w.Error())) + "\n")
	}
	return b.String()
}

func play(ctx context.Context, path string) error {
	track, err := audio.ReadWAVFile(path)
	if err != nil {
		return err //nolint:wrapcheck
	}
	player, err := audio.NewPlayer(track.Format)
	if err != nil {
		log.Warn("Playback unavailable", "err", err)
		return nil
	}
	log.Info("Playing", "path", path, "duration", track.Duration().Round(time.Second))
	if err := player.Play(ctx, track); err != nil && ctx.Err() == nil {
		return err //nolint:wrapcheck
	}
	return nil
}
