// Package pipeline turns a document into narrated audio: it cleans and
// optionally summarizes the text, splits it into voiced chunks, synthesizes
// them, transcribes the result and removes repeated speech.
package pipeline
