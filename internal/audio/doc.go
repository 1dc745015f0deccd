// Package audio holds decoded PCM tracks and the operations the pipeline
// performs on them: WAV decoding and encoding, concatenation with pauses,
// frame-accurate slicing and local playback through oto.
package audio
