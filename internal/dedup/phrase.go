package dedup

import (
	"strings"

	"github.com/legaltts/legaltts/internal/textsim"
)

// detectPhrases works on word-level segments. At each position it looks for
// the longest run of words that is immediately spoken again, then for a
// single word stuttered StutterRun or more times.
func detectPhrases(words []Segment, cfg Config) []RepeatSpan {
	norm := make([]string, len(words))
	for i, w := range words {
		norm[i] = textsim.Normalize(w.Text)
	}
	equal := func(a, b, n int) bool {
		for k := 0; k < n; k++ {
			if norm[a+k] == "" || norm[a+k] != norm[b+k] {
				return false
			}
		}
		return true
	}

	var spans []RepeatSpan
	n := len(words)
	for i := 0; i < n; {
		found := false
		for l := cfg.Phrase.MaxWords; l >= cfg.Phrase.MinWords; l-- {
			if i+2*l > n || !equal(i, i+l, l) {
				continue
			}
			if cfg.Lookback.Span > 0 && words[i+l].Start-words[i+l-1].End > cfg.Lookback.Span {
				continue
			}
			spans = append(spans, RepeatSpan{
				Anchor:     IndexRange{First: i, Last: i + l - 1},
				Repeat:     IndexRange{First: i + l, Last: i + 2*l - 1},
				Start:      words[i+l].Start,
				End:        words[i+2*l-1].End,
				Similarity: 1,
				Text:       strings.Join(norm[i:i+l], " "),
			})
			i += l
			found = true
			break
		}
		if found {
			continue
		}

		if run := cfg.Phrase.StutterRun; run > 0 && i+run <= n && norm[i] != "" {
			r := 1
			for i+r < n && norm[i+r] == norm[i] {
				r++
			}
			if r >= run {
				spans = append(spans, RepeatSpan{
					Anchor:     IndexRange{First: i, Last: i},
					Repeat:     IndexRange{First: i + 1, Last: i + r - 1},
					Start:      words[i+1].Start,
					End:        words[i+r-1].End,
					Similarity: 1,
					Text:       norm[i],
				})
				i += r
				continue
			}
		}
		i++
	}
	return spans
}
