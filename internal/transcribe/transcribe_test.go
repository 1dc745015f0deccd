package transcribe

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legaltts/legaltts/internal/audio"
	"github.com/legaltts/legaltts/internal/dedup"
)

const sampleVerbose = `{
  "text": "The witness may step down. The witness may step down.",
  "language": "en",
  "duration": 4.2,
  "segments": [
    {"id": 0, "start": 0.0, "end": 2.0, "text": " The witness may step down.",
     "words": [
       {"word": " The", "start": 0.0, "end": 0.3},
       {"word": " witness", "start": 0.3, "end": 0.8}
     ]},
    {"id": 1, "start": 2.1, "end": 4.1, "text": " The witness may step down."}
  ]
}`

func writeWAV(t *testing.T, dir string, d time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, "speech.wav")
	require.NoError(t, audio.WriteWAVFile(path, audio.Silent(audio.DefaultFormat(), d)))
	return path
}

func TestParseVerboseJSON(t *testing.T) {
	tr, err := ParseVerboseJSON([]byte(sampleVerbose))
	require.NoError(t, err)

	assert.Equal(t, "en", tr.Language)
	assert.Equal(t, 4200*time.Millisecond, tr.Duration)
	require.Len(t, tr.Segments, 2)
	assert.Equal(t, 2100*time.Millisecond, tr.Segments[1].Start)
	require.Len(t, tr.Words, 2, "nested words are collected")
	assert.Equal(t, 300*time.Millisecond, tr.Words[1].Start)
	assert.Equal(t, "The witness may step down. The witness may step down.", tr.Text())
}

func TestParseVerboseJSONErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "hello"},
		{"reversed segment", `{"segments":[{"start":2,"end":1,"text":"x"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseVerboseJSON([]byte(tt.data))
			assert.ErrorIs(t, err, ErrInvalidTranscript)
		})
	}
}

func TestVerboseJSONRoundTrip(t *testing.T) {
	tr, err := ParseVerboseJSON([]byte(sampleVerbose))
	require.NoError(t, err)

	data, err := tr.VerboseJSON()
	require.NoError(t, err)
	again, err := ParseVerboseJSON(data)
	require.NoError(t, err)
	assert.Equal(t, tr, again)
}

func TestDedupSegments(t *testing.T) {
	tr, err := ParseVerboseJSON([]byte(sampleVerbose))
	require.NoError(t, err)

	segs := tr.DedupSegments(dedup.ModeSegment)
	require.Len(t, segs, 2)
	assert.Equal(t, dedup.Segment{Start: 0, End: 2 * time.Second, Text: "The witness may step down."}, segs[0])

	words := tr.DedupSegments(dedup.ModePhrase)
	require.Len(t, words, 2)
	assert.Equal(t, "witness", words[1].Text)

	tr.Words = nil
	assert.Len(t, tr.DedupSegments(dedup.ModePhrase), 2, "falls back to segments")
}

func TestWordLog(t *testing.T) {
	words := []Word{
		{Text: " Objection", Start: 1230 * time.Millisecond, End: 1800 * time.Millisecond},
		{Text: " sustained", Start: 2 * time.Second, End: 2500 * time.Millisecond},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteWordLog(&buf, words))
	assert.Equal(t, " Objection\t1.23\t1.80\n sustained\t2.00\t2.50\n", buf.String())

	got, err := ReadWordLog(&buf)
	require.NoError(t, err)
	assert.Equal(t, words, got)

	_, err = ReadWordLog(bytes.NewBufferString("only\ttwo\n"))
	assert.ErrorIs(t, err, ErrInvalidTranscript)
}

func TestFileTranscriber(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "t.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(sampleVerbose), 0o644))
	tr, err := FileTranscriber{Path: jsonPath}.Transcribe(context.Background(), "ignored.wav")
	require.NoError(t, err)
	assert.Len(t, tr.Segments, 2)

	logPath := filepath.Join(dir, "x_WHISPERLOG.txt")
	require.NoError(t, WriteWordLogFile(logPath, tr.Words))
	fromLog, err := LoadFile(logPath)
	require.NoError(t, err)
	assert.Len(t, fromLog.Segments, 2)
	assert.Equal(t, 800*time.Millisecond, fromLog.Duration)

	savePath := filepath.Join(dir, "out", "t.json")
	require.NoError(t, SaveFile(savePath, tr))
	saved, err := LoadFile(savePath)
	require.NoError(t, err)
	assert.Equal(t, tr, saved)
}

func TestWhisperHTTPTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(10<<20))
		assert.Equal(t, "verbose_json", r.FormValue("response_format"))
		assert.Equal(t, "base.en", r.FormValue("model"))
		assert.Equal(t, []string{"segment", "word"}, r.MultipartForm.Value["timestamp_granularities[]"])
		_, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "speech.wav", hdr.Filename)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleVerbose))
	}))
	defer srv.Close()

	cfg := DefaultWhisperConfig()
	cfg.URL = srv.URL + "/"
	wh, err := NewWhisperHTTP(cfg)
	require.NoError(t, err)

	tr, err := wh.Transcribe(context.Background(), writeWAV(t, t.TempDir(), 2*time.Second))
	require.NoError(t, err)
	assert.Len(t, tr.Segments, 2)
}

func TestWhisperHTTPServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := DefaultWhisperConfig()
	cfg.URL = srv.URL
	wh, err := NewWhisperHTTP(cfg)
	require.NoError(t, err)

	_, err = wh.Transcribe(context.Background(), writeWAV(t, t.TempDir(), time.Second))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not loaded")
	assert.Error(t, wh.HealthCheck(context.Background()))
}

func TestCheckAudioFile(t *testing.T) {
	dir := t.TempDir()

	tiny := filepath.Join(dir, "tiny.wav")
	require.NoError(t, os.WriteFile(tiny, []byte("RIFF"), 0o644))
	_, err := CheckAudioFile(tiny)
	assert.ErrorIs(t, err, ErrAudioTooSmall)

	short := filepath.Join(dir, "short.wav")
	require.NoError(t, audio.WriteWAVFile(short, audio.Silent(audio.DefaultFormat(), 200*time.Millisecond)))
	_, err = CheckAudioFile(short)
	assert.ErrorIs(t, err, ErrAudioTooShort)

	data, err := CheckAudioFile(writeWAV(t, dir, time.Second))
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestWhisperConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*WhisperConfig)
		wantErr bool
	}{
		{"default", func(c *WhisperConfig) {}, false},
		{"bad scheme", func(c *WhisperConfig) { c.URL = "unix:///tmp/sock" }, true},
		{"no model", func(c *WhisperConfig) { c.Model = "" }, true},
		{"no timeout", func(c *WhisperConfig) { c.Timeout = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultWhisperConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			assert.Equal(t, tt.wantErr, err != nil, "Validate() error = %v", err)
		})
	}
}
