package transcribe

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// WriteWordLog writes one "word<TAB>start<TAB>end" line per word, times in
// seconds with two decimals.
func WriteWordLog(w io.Writer, words []Word) error {
	bw := bufio.NewWriter(w)
	for _, word := range words {
		if _, err := fmt.Fprintf(bw, "%s\t%.2f\t%.2f\n", word.Text, word.Start.Seconds(), word.End.Seconds()); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteWordLogFile writes a word log to path, creating parent directories.
func WriteWordLogFile(path string, words []Word) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create word log: %w", err)
	}
	if err := WriteWordLog(f, words); err != nil {
		f.Close()
		return fmt.Errorf("failed to write word log: %w", err)
	}
	return f.Close()
}

// ReadWordLog parses the format written by WriteWordLog. Blank lines are
// skipped.
func ReadWordLog(r io.Reader) ([]Word, error) {
	var words []Word
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		fields := strings.Split(text, "\t")
		if len(fields) != 3 {
			return nil, fmt.Errorf("%w: line %d: want 3 tab-separated fields, got %d", ErrInvalidTranscript, line, len(fields))
		}
		start, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad start: %w", ErrInvalidTranscript, line, err)
		}
		end, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad end: %w", ErrInvalidTranscript, line, err)
		}
		words = append(words, Word{Text: fields[0], Start: seconds(start), End: seconds(end)})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return words, nil
}

// TranscriptFromWords builds a transcript with one segment per word, for
// word logs that carry no segment boundaries.
func TranscriptFromWords(words []Word) *Transcript {
	t := &Transcript{Words: words, Segments: make([]Segment, len(words))}
	for i, w := range words {
		t.Segments[i] = Segment{ID: i, Start: w.Start, End: w.End, Text: w.Text}
	}
	if len(words) > 0 {
		t.Duration = words[len(words)-1].End
	}
	return t
}
