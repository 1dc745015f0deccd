package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrInvalidWAV is returned for data that is not an integer PCM WAV file.
var ErrInvalidWAV = errors.New("invalid WAV data")

const wavFormatPCM = 1

// ReadWAV decodes an integer PCM WAV stream into a 16-bit track. 8, 24 and
// 32-bit sources are rescaled.
func ReadWAV(r io.ReadSeeker) (*Track, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrInvalidWAV
	}
	if dec.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: unsupported audio format %d", ErrInvalidWAV, dec.WavAudioFormat)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decoding PCM: %w", err)
	}

	samples := make([]int16, len(buf.Data))
	shift := int(dec.BitDepth) - BitDepth
	for i, v := range buf.Data {
		switch {
		case dec.BitDepth == 8:
			samples[i] = int16((v - 128) << 8)
		case shift > 0:
			samples[i] = int16(v >> shift)
		default:
			samples[i] = int16(v)
		}
	}

	return NewTrack(Format{SampleRate: int(dec.SampleRate), Channels: int(dec.NumChans)}, samples)
}

// DecodeWAV decodes WAV bytes, typically a speech engine response.
func DecodeWAV(data []byte) (*Track, error) {
	return ReadWAV(bytes.NewReader(data))
}

// ReadWAVFile decodes the WAV file at path.
func ReadWAVFile(path string) (*Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := ReadWAV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// WriteWAV encodes t as a 16-bit PCM WAV stream.
func WriteWAV(w io.WriteSeeker, t *Track) error {
	enc := wav.NewEncoder(w, t.SampleRate, BitDepth, t.Channels, wavFormatPCM)

	data := make([]int, len(t.Samples))
	for i, s := range t.Samples {
		data[i] = int(s)
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: t.Channels, SampleRate: t.SampleRate},
		Data:           data,
		SourceBitDepth: BitDepth,
	}

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encoding PCM: %w", err)
	}
	return enc.Close()
}

// WriteWAVFile writes t to path atomically via a temporary file.
func WriteWAVFile(path string, t *Track) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*.wav")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if err := WriteWAV(tmp, t); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// EncodeWAV returns t as WAV bytes.
func EncodeWAV(t *Track) ([]byte, error) {
	ws := &writeSeeker{}
	if err := WriteWAV(ws, t); err != nil {
		return nil, err
	}
	return ws.buf, nil
}

// writeSeeker is an in-memory io.WriteSeeker; the WAV encoder seeks back to
// patch chunk sizes on Close.
type writeSeeker struct {
	buf []byte
	pos int
}

func (w *writeSeeker) Write(p []byte) (int, error) {
	if need := w.pos + len(p); need > len(w.buf) {
		w.buf = append(w.buf, make([]byte, need-len(w.buf))...)
	}
	n := copy(w.buf[w.pos:], p)
	w.pos += n
	return n, nil
}

func (w *writeSeeker) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(w.pos) + offset
	case io.SeekEnd:
		abs = int64(len(w.buf)) + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("negative position")
	}
	w.pos = int(abs)
	return abs, nil
}
