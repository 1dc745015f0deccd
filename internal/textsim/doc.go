// Package textsim normalizes transcript text and scores the similarity of two
// normalized strings.
package textsim
