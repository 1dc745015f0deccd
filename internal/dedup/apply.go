package dedup

import (
	"github.com/legaltts/legaltts/internal/audio"
)

// applyPlan copies every frame outside the plan's ranges into a new track.
func applyPlan(track *audio.Track, plan EditPlan) *audio.Track {
	if plan.Empty() {
		return track.Clone()
	}

	ch := track.Channels
	out := make([]int16, 0, len(track.Samples))
	pos := 0
	for _, r := range plan.Ranges {
		from, to := track.FrameAt(r.Start), track.FrameAt(r.End)
		if from > pos {
			out = append(out, track.Samples[pos*ch:from*ch]...)
		}
		pos = max(pos, to)
	}
	out = append(out, track.Samples[pos*ch:]...)

	return &audio.Track{Format: track.Format, Samples: out}
}

// remapSegments drops excised segments and shifts the rest onto the edited
// timeline. A survivor that falls entirely inside a cut is dropped as well.
func remapSegments(segments []Segment, spans []RepeatSpan, plan EditPlan) []Segment {
	excised := make([]bool, len(segments))
	for _, s := range spans {
		for i := s.Repeat.First; i <= s.Repeat.Last && i < len(segments); i++ {
			excised[i] = true
		}
	}

	out := make([]Segment, 0, len(segments))
	for i, s := range segments {
		if excised[i] {
			continue
		}
		ns := Segment{Start: plan.Map(s.Start), End: plan.Map(s.End), Text: s.Text}
		if s.Duration() > 0 && ns.Duration() == 0 {
			continue
		}
		out = append(out, ns)
	}
	return out
}
