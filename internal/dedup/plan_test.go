package dedup

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPlan(t *testing.T) {
	tests := []struct {
		name  string
		spans []RepeatSpan
		limit time.Duration
		want  []Range
	}{
		{
			name:  "no spans",
			limit: sec(10),
			want:  nil,
		},
		{
			name: "sorted and disjoint",
			spans: []RepeatSpan{
				{Start: sec(5), End: sec(6)},
				{Start: sec(1), End: sec(2)},
			},
			limit: sec(10),
			want:  []Range{{sec(1), sec(2)}, {sec(5), sec(6)}},
		},
		{
			name: "overlap unioned",
			spans: []RepeatSpan{
				{Start: sec(1), End: sec(3)},
				{Start: sec(2), End: sec(4)},
			},
			limit: sec(10),
			want:  []Range{{sec(1), sec(4)}},
		},
		{
			name: "touching unioned",
			spans: []RepeatSpan{
				{Start: sec(1), End: sec(2)},
				{Start: sec(2), End: sec(3)},
			},
			limit: sec(10),
			want:  []Range{{sec(1), sec(3)}},
		},
		{
			name: "contained range absorbed",
			spans: []RepeatSpan{
				{Start: sec(1), End: sec(5)},
				{Start: sec(2), End: sec(3)},
			},
			limit: sec(10),
			want:  []Range{{sec(1), sec(5)}},
		},
		{
			name:  "clamped to track",
			spans: []RepeatSpan{{Start: sec(8), End: sec(12)}},
			limit: sec(10),
			want:  []Range{{sec(8), sec(10)}},
		},
		{
			name:  "entirely past track dropped",
			spans: []RepeatSpan{{Start: sec(11), End: sec(12)}},
			limit: sec(10),
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := buildPlan(tt.spans, tt.limit)
			assert.Equal(t, tt.want, plan.Ranges)
			assert.NoError(t, plan.Validate(tt.limit))
		})
	}
}

func TestPlanValidate(t *testing.T) {
	tests := []struct {
		name   string
		ranges []Range
		reason string
	}{
		{"overlap", []Range{{sec(1), sec(3)}, {sec(2), sec(4)}}, "overlapping ranges"},
		{"out of order", []Range{{sec(4), sec(5)}, {sec(1), sec(2)}}, "ranges out of order"},
		{"inverted", []Range{{sec(3), sec(2)}}, "empty or inverted range"},
		{"past end", []Range{{sec(9), sec(11)}}, "range outside track of 10s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := EditPlan{Ranges: tt.ranges}.Validate(sec(10))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrPlanConflict))

			var conflict *PlanConflictError
			require.True(t, errors.As(err, &conflict))
			assert.Equal(t, tt.reason, conflict.Reason)
			assert.NotEmpty(t, conflict.Ranges)
		})
	}
}

func TestPlanMap(t *testing.T) {
	plan := EditPlan{Ranges: []Range{{sec(2), sec(4)}, {sec(6), sec(7)}}}

	tests := []struct {
		in, want time.Duration
	}{
		{sec(0), sec(0)},
		{sec(1), sec(1)},
		{sec(2), sec(2)},
		{sec(3), sec(2)},
		{sec(4), sec(2)},
		{sec(5), sec(3)},
		{sec(6.5), sec(4)},
		{sec(7), sec(4)},
		{sec(9), sec(6)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, plan.Map(tt.in), "Map(%s)", tt.in)
	}

	assert.Equal(t, sec(3), plan.Total())
}

func TestMergeSpans(t *testing.T) {
	spans := []RepeatSpan{
		{Anchor: IndexRange{0, 0}, Repeat: IndexRange{2, 2}, Start: sec(2), End: sec(3), Similarity: 1, Text: "a"},
		{Anchor: IndexRange{1, 1}, Repeat: IndexRange{3, 3}, Start: sec(3), End: sec(4), Similarity: 0.9, Text: "b"},
		{Anchor: IndexRange{6, 6}, Repeat: IndexRange{7, 7}, Start: sec(7), End: sec(8), Similarity: 1, Text: "c"},
		{Anchor: IndexRange{3, 3}, Repeat: IndexRange{8, 8}, Start: sec(8), End: sec(9), Similarity: 1, Text: "d"},
	}

	merged := mergeSpans(spans)
	require.Len(t, merged, 3)
	assert.Equal(t, IndexRange{2, 3}, merged[0].Repeat)
	assert.Equal(t, IndexRange{0, 1}, merged[0].Anchor)
	assert.Equal(t, sec(4), merged[0].End)
	assert.InDelta(t, 0.9, merged[0].Similarity, 1e-9)
	assert.Equal(t, "a b", merged[0].Text)

	// Adjacent repeats whose anchors are not adjacent stay separate.
	assert.Equal(t, IndexRange{7, 7}, merged[1].Repeat)
	assert.Equal(t, IndexRange{8, 8}, merged[2].Repeat)

	assert.Equal(t, "a", spans[0].Text, "input spans must not be modified")
}
