package transcribe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileTranscriber reads a transcript prepared earlier instead of running a
// recognizer. Path may be verbose_json (.json) or a word log (.txt).
type FileTranscriber struct {
	Path string
}

func (f FileTranscriber) Name() string {
	return "file"
}

// Transcribe ignores audioPath and loads f.Path.
func (f FileTranscriber) Transcribe(ctx context.Context, audioPath string) (*Transcript, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadFile(f.Path)
}

// LoadFile reads a transcript from path, choosing the format by extension.
func LoadFile(path string) (*Transcript, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".log":
		fh, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open word log: %w", err)
		}
		defer fh.Close()
		words, err := ReadWordLog(fh)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return TranscriptFromWords(words), nil
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read transcript: %w", err)
		}
		t, err := ParseVerboseJSON(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return t, nil
	}
}

// SaveFile writes t as verbose_json.
func SaveFile(path string, t *Transcript) error {
	data, err := t.VerboseJSON()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create transcript directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
