package pipeline

import (
	"path/filepath"
	"strings"
)

// Outputs names every file a run writes for one document.
type Outputs struct {
	// Audio is the combined narration.
	Audio string
	// Cleaned is the narration with repeats removed.
	Cleaned string
	// Transcript is the recognizer output as verbose JSON.
	Transcript string
	// Report describes the removed repeats.
	Report string
	// WordLog lists every recognized word with its timing.
	WordLog string
	// LLMLog holds the language model's script.
	LLMLog string
}

// OutputsFor derives the output names for audioPath. Logs go to logsDir;
// everything else sits next to the audio.
func OutputsFor(audioPath, logsDir string) Outputs {
	dir := filepath.Dir(audioPath)
	ext := filepath.Ext(audioPath)
	base := strings.TrimSuffix(filepath.Base(audioPath), ext)
	if ext == "" {
		ext = ".wav"
	}

	return Outputs{
		Audio:      audioPath,
		Cleaned:    filepath.Join(dir, base+"_Cleaned"+ext),
		Transcript: filepath.Join(dir, base+"_transcript.json"),
		Report:     filepath.Join(dir, base+"_report.yaml"),
		WordLog:    filepath.Join(logsDir, base+"_WHISPERLOG.txt"),
		LLMLog:     filepath.Join(logsDir, base+"_LLMLOG.txt"),
	}
}
