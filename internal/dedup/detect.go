package dedup

import (
	"github.com/legaltts/legaltts/internal/textsim"
)

// detectSegments finds, for every segment, the nearest earlier segment within
// the look-back window whose text is at least as similar as the threshold.
func detectSegments(segments []Segment, cfg Config, metric textsim.Metric) []RepeatSpan {
	norm := make([]string, len(segments))
	var longest int64
	for i, s := range segments {
		norm[i] = textsim.Normalize(s.Text)
		longest = max(longest, int64(s.Duration()))
	}

	var spans []RepeatSpan
	for i := 1; i < len(segments); i++ {
		if norm[i] == "" {
			continue
		}

		best, bestScore := -1, 0.0
		for j := i - 1; j >= 0; j-- {
			if cfg.Lookback.Segments > 0 && i-j > cfg.Lookback.Segments {
				break
			}
			if cfg.Lookback.Span > 0 {
				// Starts are ordered, so once the start distance exceeds the
				// span plus the longest segment no earlier end can qualify.
				if int64(segments[i].Start-segments[j].Start) > int64(cfg.Lookback.Span)+longest {
					break
				}
				if segments[i].Start-segments[j].End > cfg.Lookback.Span {
					continue
				}
			}
			if norm[j] == "" {
				continue
			}

			// Strictly greater keeps the nearer anchor on ties.
			if score := metric.Similarity(norm[i], norm[j]); score >= cfg.SimilarityThreshold && score > bestScore {
				best, bestScore = j, score
			}
		}

		if best >= 0 {
			spans = append(spans, RepeatSpan{
				Anchor:     IndexRange{First: best, Last: best},
				Repeat:     IndexRange{First: i, Last: i},
				Start:      segments[i].Start,
				End:        segments[i].End,
				Similarity: bestScore,
				Text:       segments[i].Text,
			})
		}
	}
	return spans
}
