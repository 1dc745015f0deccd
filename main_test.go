package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legaltts/legaltts/internal/config"
	"github.com/legaltts/legaltts/internal/dedup"
	"github.com/legaltts/legaltts/internal/pipeline"
	"github.com/legaltts/legaltts/internal/queue"
)

func TestDefaultConfigFile(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(defaultConfig)))

	got, err := config.LoadConfigFromViper(v)
	require.NoError(t, err)

	want := config.DefaultConfig()
	require.NoError(t, want.Validate())
	assert.Equal(t, want, got)
}

func TestChangedFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("voice", "", "")
	fs.Float64("threshold", 0, "")
	fs.Bool("no-cache", false, "")
	fs.String("engine", "", "")
	fs.Bool("show-text", false, "")
	require.NoError(t, fs.Parse([]string{"--voice", "leo", "--threshold", "0.9", "--no-cache", "--show-text"}))

	v := changedFlags(fs)
	assert.Equal(t, "leo", v.GetString("voice"))
	assert.InDelta(t, 0.9, v.GetFloat64("dedup.similarity_threshold"), 1e-9)
	assert.True(t, v.IsSet("cache.enabled"))
	assert.False(t, v.GetBool("cache.enabled"))
	assert.False(t, v.IsSet("synth.engine"), "unchanged flags are not set")
	assert.False(t, v.IsSet("show-text"))
}

func TestMarkTags(t *testing.T) {
	in := "<AI Summary>\nThe witness was sworn.\n  <SPEAKER 2>  \nNo further questions."
	want := "`<AI Summary>`\nThe witness was sworn.\n`<SPEAKER 2>`\nNo further questions."
	assert.Equal(t, want, markTags(in))
}

func TestVoiceTable(t *testing.T) {
	out := voiceTable("Leo", false)
	assert.Contains(t, out, "VOICE")
	for _, name := range []string{"Tara", "Leah", "Leo", "Zoe"} {
		assert.Contains(t, out, name)
	}

	var marked string
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "*") {
			marked = line
		}
	}
	assert.Contains(t, marked, "Leo")
}

func TestSetupLog(t *testing.T) {
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetLevel(log.InfoLevel)
	})

	_, err := setupLog(config.LogConfig{Level: "loud"})
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "logs", "legaltts.log")
	closer, err := setupLog(config.LogConfig{Level: "debug", File: path, MaxSizeMB: 1, MaxBackups: 1})
	require.NoError(t, err)
	assert.Equal(t, log.DebugLevel, log.GetLevel())

	log.Debug("Objection sustained", "line", 12)
	require.NoError(t, closer())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Objection sustained")
}

func TestRunSummary(t *testing.T) {
	res := &pipeline.Result{
		RunID:    "2f1c",
		Document: "deposition",
		Outputs:  pipeline.OutputsFor(filepath.Join("out", "deposition.wav"), "logs"),
		Duration: 90 * time.Second,
		Dedup: &dedup.Report{
			RepeatCount:     2,
			ExcisedDuration: 3 * time.Second,
			OutputDuration:  87 * time.Second,
		},
		FailedChunks: 1,
	}
	out := runSummary(res)
	assert.Contains(t, out, "deposition.wav (1m30s)")
	assert.Contains(t, out, "2 (3s removed)")
	assert.Contains(t, out, "deposition_Cleaned.wav (1m27s)")
	assert.Contains(t, out, "1 chunks skipped")

	res.Dedup = nil
	res.DedupErr = errors.New("whisper unreachable")
	assert.Contains(t, runSummary(res), "whisper unreachable")

	skipped := runSummary(&pipeline.Result{Document: "brief"})
	assert.Contains(t, skipped, "skipped")
}

type fakeSubmitter struct {
	mu    sync.Mutex
	paths []string
	err   error
}

func (f *fakeSubmitter) Submit(path string, _ queue.Priority) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.paths = append(f.paths, path)
	return "job", nil
}

func TestInboxAccepts(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "outputs")
	in, err := newInbox(dir, &fakeSubmitter{}, out, "")
	require.NoError(t, err)

	tests := []struct {
		path string
		want bool
	}{
		{filepath.Join(dir, "deposition.txt"), true},
		{filepath.Join(dir, "brief.MD"), true},
		{filepath.Join(dir, "hearing.wav"), false},
		{filepath.Join(dir, ".draft.txt"), false},
		{filepath.Join(out, "deposition_LLMLOG.txt"), false},
		{filepath.Join(dir, "outputs-old.txt"), true},
	}
	for _, tt := range tests {
		t.Run(filepath.Base(tt.path), func(t *testing.T) {
			assert.Equal(t, tt.want, in.accepts(tt.path))
		})
	}
}

func TestInboxFlush(t *testing.T) {
	dir := t.TempDir()
	sub := &fakeSubmitter{}
	in, err := newInbox(dir, sub)
	require.NoError(t, err)

	doc := filepath.Join(dir, "deposition.txt")
	require.NoError(t, os.WriteFile(doc, []byte("Q. State your name."), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.wav"), []byte("RIFF"), 0o600))

	now := time.Now()
	in.note(doc, now)
	in.note(filepath.Join(dir, "notes.wav"), now)

	in.flush(now.Add(in.settle / 2))
	assert.Empty(t, sub.paths, "unsettled files wait")

	in.flush(now.Add(in.settle))
	assert.Equal(t, []string{doc}, sub.paths)

	// Same contents again are not queued twice.
	in.note(doc, now)
	in.flush(now.Add(2 * in.settle))
	assert.Len(t, sub.paths, 1)

	// A rewrite is.
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(doc, later, later))
	in.note(doc, now)
	in.flush(now.Add(2 * in.settle))
	assert.Len(t, sub.paths, 2)
}

func TestInboxScan(t *testing.T) {
	dir := t.TempDir()
	sub := &fakeSubmitter{}
	in, err := newInbox(dir, sub)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("# b"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "c.txt"), 0o700))

	now := time.Now()
	require.NoError(t, in.scan(now))
	in.flush(now)
	assert.ElementsMatch(t, []string{filepath.Join(dir, "a.txt"), filepath.Join(dir, "b.md")}, sub.paths)
}

func TestInboxSubmitErrors(t *testing.T) {
	dir := t.TempDir()
	sub := &fakeSubmitter{err: queue.ErrQueueFull}
	in, err := newInbox(dir, sub)
	require.NoError(t, err)

	doc := filepath.Join(dir, "deposition.txt")
	require.NoError(t, os.WriteFile(doc, []byte("text"), 0o600))
	now := time.Now()
	in.note(doc, now)
	in.flush(now.Add(in.settle))
	assert.Empty(t, in.queued, "failed submissions are retried on the next write")

	_, err = newInbox(filepath.Join(dir, "missing"), sub)
	assert.Error(t, err)
	_, err = newInbox(doc, sub)
	assert.Error(t, err)
}

func TestCheckReport(t *testing.T) {
	out := checkReport([]pipeline.CheckResult{
		{Component: "speech engine", Available: true, Details: map[string]string{"engine": "mock"}},
		{Component: "speech recognizer", Error: "status 503", Guidance: "Start Whisper.\nThen retry."},
	})
	assert.Contains(t, out, "speech engine")
	assert.Contains(t, out, "engine: mock")
	assert.Contains(t, out, "speech recognizer: status 503")
	assert.Contains(t, out, "    Start Whisper.\n    Then retry.")
	assert.Equal(t, 1, failed([]pipeline.CheckResult{{Available: true}, {}}))
}
