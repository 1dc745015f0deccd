package dedup

import (
	"cmp"
	"slices"
	"time"
)

// EditPlan is the sorted, non-overlapping set of ranges to remove.
type EditPlan struct {
	Ranges []Range `json:"ranges"`
}

// Empty reports whether the plan removes nothing.
func (p EditPlan) Empty() bool {
	return len(p.Ranges) == 0
}

// Total returns the summed duration of all ranges.
func (p EditPlan) Total() time.Duration {
	var d time.Duration
	for _, r := range p.Ranges {
		d += r.Duration()
	}
	return d
}

// Validate checks the plan invariants against a track of length limit.
func (p EditPlan) Validate(limit time.Duration) error {
	for i, r := range p.Ranges {
		if r.Start < 0 || r.End > limit {
			return &PlanConflictError{Ranges: []Range{r}, Reason: "range outside track of " + limit.String()}
		}
		if r.End <= r.Start {
			return &PlanConflictError{Ranges: []Range{r}, Reason: "empty or inverted range"}
		}
		if i > 0 {
			prev := p.Ranges[i-1]
			if r.Start < prev.Start {
				return &PlanConflictError{Ranges: []Range{prev, r}, Reason: "ranges out of order"}
			}
			if r.Start < prev.End {
				return &PlanConflictError{Ranges: []Range{prev, r}, Reason: "overlapping ranges"}
			}
		}
	}
	return nil
}

// Map translates a timestamp on the original track to the edited track. A
// timestamp inside an excised range maps to where that range was cut.
func (p EditPlan) Map(t time.Duration) time.Duration {
	var shift time.Duration
	for _, r := range p.Ranges {
		if t <= r.Start {
			break
		}
		if t < r.End {
			return r.Start - shift
		}
		shift += r.Duration()
	}
	return t - shift
}

// mergeSpans joins a repeat that directly follows another repeat when their
// anchors are adjacent too, so a re-spoken run of segments becomes one span.
func mergeSpans(spans []RepeatSpan) []RepeatSpan {
	if len(spans) == 0 {
		return nil
	}
	sorted := slices.Clone(spans)
	slices.SortStableFunc(sorted, func(a, b RepeatSpan) int {
		return cmp.Compare(a.Repeat.First, b.Repeat.First)
	})

	merged := []RepeatSpan{sorted[0]}
	for _, s := range sorted[1:] {
		last := &merged[len(merged)-1]
		if last.Repeat.Last+1 == s.Repeat.First && last.Anchor.Last+1 == s.Anchor.First {
			last.Repeat.Last = s.Repeat.Last
			last.Anchor.Last = s.Anchor.Last
			last.End = max(last.End, s.End)
			last.Similarity = min(last.Similarity, s.Similarity)
			last.Text += " " + s.Text
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// buildPlan turns spans into ranges clamped to [0, limit] and unions any
// that overlap or touch.
func buildPlan(spans []RepeatSpan, limit time.Duration) EditPlan {
	ranges := make([]Range, 0, len(spans))
	for _, s := range spans {
		r := Range{Start: max(s.Start, 0), End: min(s.End, limit)}
		if r.End > r.Start {
			ranges = append(ranges, r)
		}
	}
	slices.SortFunc(ranges, func(a, b Range) int {
		return cmp.Compare(a.Start, b.Start)
	})

	var out []Range
	for _, r := range ranges {
		if n := len(out); n > 0 && r.Start <= out[n-1].End {
			out[n-1].End = max(out[n-1].End, r.End)
			continue
		}
		out = append(out, r)
	}
	return EditPlan{Ranges: out}
}
