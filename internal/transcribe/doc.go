// Package transcribe turns synthesized audio back into timed text so that
// repeated speech can be found. Transcripts follow the Whisper verbose_json
// shape, with segment and word timestamps.
package transcribe
