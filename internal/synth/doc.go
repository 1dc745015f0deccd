// Package synth turns text chunks into speech through a text-to-speech
// engine. It provides the Orpheus HTTP engine, an offline mock engine, the
// voice catalog and a bounded concurrent batch runner.
package synth
