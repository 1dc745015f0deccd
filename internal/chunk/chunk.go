// Package chunk splits script text into pieces a speech engine can take in
// one request and assigns a voice to each piece.
package chunk

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/muesli/reflow/truncate"
)

// DefaultMaxLength is the longest chunk, in characters, sent to the engine.
const DefaultMaxLength = 750

// Chunk is one piece of text and the voice that speaks it.
type Chunk struct {
	Index int    `json:"index" yaml:"index"`
	Text  string `json:"text" yaml:"text"`
	Voice string `json:"voice" yaml:"voice"`
	// Tag is the upper-cased speaker tag the text followed, if any.
	Tag string `json:"tag,omitempty" yaml:"tag,omitempty"`
}

// Preview returns the chunk text cut to width runes for log lines.
func (c Chunk) Preview(width int) string {
	return truncate.StringWithTail(strings.Join(strings.Fields(c.Text), " "), uint(width), "…")
}

var (
	tagPattern  = regexp.MustCompile(`(?i)<(AI Summary|SPEAKER \d+)>`)
	sentenceEnd = regexp.MustCompile(`[.!]`)
)

// SplitLongParagraphs returns paragraphs with every one longer than maxLen
// characters broken up. A break goes just after the first '.' or '!' at or
// beyond maxLen characters into the remainder, or exactly at maxLen when no
// such mark follows. Pieces are trimmed; empty ones are dropped.
func SplitLongParagraphs(paragraphs []string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = DefaultMaxLength
	}

	var out []string
	for _, para := range paragraphs {
		runes := []rune(para)
		if len(runes) <= maxLen {
			if p := strings.TrimSpace(para); p != "" {
				out = append(out, p)
			}
			continue
		}

		log.Debug("Splitting long paragraph", "chars", len(runes))
		for start := 0; start < len(runes); {
			if len(runes)-start <= maxLen {
				out = appendTrimmed(out, runes[start:])
				break
			}
			split := start + maxLen
			rest := string(runes[split:])
			if loc := sentenceEnd.FindStringIndex(rest); loc != nil {
				end := split + utf8.RuneCountInString(rest[:loc[1]])
				out = appendTrimmed(out, runes[start:end])
				start = end
			} else {
				out = appendTrimmed(out, runes[start:split])
				start = split
			}
		}
	}
	return out
}

func appendTrimmed(out []string, r []rune) []string {
	if s := strings.TrimSpace(string(r)); s != "" {
		out = append(out, s)
	}
	return out
}

type section struct {
	tag  string
	text string
}

// splitSections cuts text at speaker tags. Text before the first tag has
// no tag.
func splitSections(text string) []section {
	locs := tagPattern.FindAllStringIndex(text, -1)
	var out []section
	prev := 0
	tag := ""
	for _, loc := range locs {
		if body := text[prev:loc[0]]; tag != "" || strings.TrimSpace(body) != "" {
			out = append(out, section{tag: tag, text: body})
		}
		tag = strings.ToUpper(text[loc[0]:loc[1]])
		prev = loc[1]
	}
	if body := text[prev:]; tag != "" || strings.TrimSpace(body) != "" {
		out = append(out, section{tag: tag, text: body})
	}
	return out
}

// AssignVoices splits text into chunks of at most maxLen characters and
// picks a voice for each. Text after an <AI Summary> or <SPEAKER n> tag
// (any case) is spoken by a voice other than userVoice, handed out from
// allVoices in order and reused whenever the same tag appears again.
// Untagged text uses userVoice. Tags are not spoken.
func AssignVoices(text, userVoice string, allVoices []string, maxLen int) []Chunk {
	var others []string
	for _, v := range allVoices {
		if !strings.EqualFold(v, userVoice) {
			others = append(others, v)
		}
	}

	tagVoices := make(map[string]string)
	next := 0
	var chunks []Chunk
	for _, sec := range splitSections(text) {
		voice := userVoice
		if sec.tag != "" {
			if v, ok := tagVoices[sec.tag]; ok {
				voice = v
			} else {
				if len(others) > 0 {
					voice = others[next%len(others)]
					next++
				}
				tagVoices[sec.tag] = voice
			}
		}

		for _, piece := range SplitLongParagraphs([]string{sec.text}, maxLen) {
			chunks = append(chunks, Chunk{Index: len(chunks), Text: piece, Voice: voice, Tag: sec.tag})
		}
	}
	return chunks
}

// StripTags removes speaker tags from text.
func StripTags(text string) string {
	return tagPattern.ReplaceAllString(text, "")
}
