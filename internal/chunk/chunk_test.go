package chunk

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSplitLongParagraphs(t *testing.T) {
	tests := []struct {
		name       string
		paragraphs []string
		maxLen     int
		want       []string
	}{
		{
			name:       "short paragraphs untouched",
			paragraphs: []string{"The court is in session.", "Be seated."},
			maxLen:     750,
			want:       []string{"The court is in session.", "Be seated."},
		},
		{
			name:       "breaks after sentence end past the limit",
			paragraphs: []string{"aaaaaaaaaa bbb. ccc"},
			maxLen:     10,
			want:       []string{"aaaaaaaaaa bbb.", "ccc"},
		},
		{
			name:       "exclamation counts",
			paragraphs: []string{"aaaaaaaaaa ok! then more"},
			maxLen:     10,
			want:       []string{"aaaaaaaaaa ok!", "then more"},
		},
		{
			name:       "hard cut without punctuation",
			paragraphs: []string{strings.Repeat("x", 25)},
			maxLen:     10,
			want:       []string{strings.Repeat("x", 10), strings.Repeat("x", 10), strings.Repeat("x", 5)},
		},
		{
			name:       "counts characters not bytes",
			paragraphs: []string{"ééééé ééééé. z"},
			maxLen:     5,
			want:       []string{"ééééé ééééé.", "z"},
		},
		{
			name:       "blank dropped",
			paragraphs: []string{"  ", "x"},
			maxLen:     10,
			want:       []string{"x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitLongParagraphs(tt.paragraphs, tt.maxLen))
		})
	}
}

func TestSplitLongParagraphsDefaultLimit(t *testing.T) {
	long := strings.Repeat("Sentence here. ", 150)
	got := SplitLongParagraphs([]string{long}, 0)
	assert.Len(t, got, 3)
	for _, c := range got {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), DefaultMaxLength+len("Sentence here."))
	}
}

func TestAssignVoices(t *testing.T) {
	text := "Intro text. <AI Summary> Summary here. <SPEAKER 1> Speaker one. " +
		"<speaker 2> Two. <ai summary> More summary."
	voices := []string{"Tara", "Leah", "Jess", "Leo"}

	got := AssignVoices(text, "Tara", voices, 750)
	want := []Chunk{
		{Index: 0, Text: "Intro text.", Voice: "Tara"},
		{Index: 1, Text: "Summary here.", Voice: "Leah", Tag: "<AI SUMMARY>"},
		{Index: 2, Text: "Speaker one.", Voice: "Jess", Tag: "<SPEAKER 1>"},
		{Index: 3, Text: "Two.", Voice: "Leo", Tag: "<SPEAKER 2>"},
		{Index: 4, Text: "More summary.", Voice: "Leah", Tag: "<AI SUMMARY>"},
	}
	assert.Equal(t, want, got)
}

func TestAssignVoicesRoundRobinWraps(t *testing.T) {
	text := "<SPEAKER 1> a <SPEAKER 2> b <SPEAKER 3> c"
	got := AssignVoices(text, "tara", []string{"Tara", "Leah", "Leo"}, 750)

	var voices []string
	for _, c := range got {
		voices = append(voices, c.Voice)
	}
	assert.Equal(t, []string{"Leah", "Leo", "Leah"}, voices)
}

func TestAssignVoicesOnlyUserVoice(t *testing.T) {
	got := AssignVoices("<AI Summary> summary", "Tara", []string{"Tara"}, 750)
	assert.Equal(t, []Chunk{{Index: 0, Text: "summary", Voice: "Tara", Tag: "<AI SUMMARY>"}}, got)
}

func TestAssignVoicesSplitsLongSections(t *testing.T) {
	text := "<SPEAKER 1> " + strings.Repeat("y", 12)
	got := AssignVoices(text, "Tara", []string{"Tara", "Zoe"}, 5)
	assert.Len(t, got, 3)
	for i, c := range got {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, "Zoe", c.Voice)
	}
}

func TestAssignVoicesEmpty(t *testing.T) {
	assert.Empty(t, AssignVoices("  <SPEAKER 4>  ", "Tara", []string{"Tara", "Leo"}, 750))
	assert.Empty(t, AssignVoices("", "Tara", nil, 750))
}

func TestStripTags(t *testing.T) {
	assert.Equal(t, " hello  world", StripTags("<ai summary> hello <SPEAKER 12> world"))
}

func TestPreview(t *testing.T) {
	c := Chunk{Text: "Short\n text"}
	assert.Equal(t, "Short text", c.Preview(40))

	long := Chunk{Text: strings.Repeat("abc ", 30)}
	p := long.Preview(20)
	assert.True(t, strings.HasSuffix(p, "…"))
	assert.LessOrEqual(t, utf8.RuneCountInString(p), 20)
}
