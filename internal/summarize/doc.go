// Package summarize rewrites document text with a language model before it
// is spoken. The "no_model" choice passes text through unchanged.
package summarize
