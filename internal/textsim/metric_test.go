package textsim

import (
	"math"
	"testing"
)

func TestLevenshteinSimilarity(t *testing.T) {
	m := Levenshtein{}
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "the court finds", "the court finds", 1},
		{"both empty", "", "", 1},
		{"one empty", "abc", "", 0},
		{"single edit", "the appellant submits", "the appellant submit", 1 - 1.0/21},
		{"disjoint", "abc", "xyz", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Similarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Similarity(%q, %q) = %f, want %f", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestLevenshteinCountsRunes(t *testing.T) {
	got := Levenshtein{}.Similarity("né", "ne")
	if math.Abs(got-0.5) > 1e-9 {
		t.Errorf("Similarity = %f, want 0.5", got)
	}
}

func TestSimHashSimilarity(t *testing.T) {
	m := SimHash{}
	if got := m.Similarity("the court finds", "the court finds"); got != 1 {
		t.Errorf("identical similarity = %f, want 1", got)
	}
	if got := m.Similarity("the court finds", ""); got != 0 {
		t.Errorf("empty similarity = %f, want 0", got)
	}

	near := m.Similarity(
		"the court finds that the appeal fails on every ground raised by the appellant",
		"the court finds that the appeal fails on every ground raised by the appellants",
	)
	far := m.Similarity(
		"the court finds that the appeal fails on every ground raised by the appellant",
		"costs are awarded to the respondent on the standard basis",
	)
	if near <= far {
		t.Errorf("near-duplicate similarity %f should exceed unrelated similarity %f", near, far)
	}
}

func TestHammingDistance(t *testing.T) {
	if d := HammingDistance(0, 0); d != 0 {
		t.Errorf("HammingDistance(0,0) = %d", d)
	}
	if d := HammingDistance(0, math.MaxUint64); d != 64 {
		t.Errorf("HammingDistance(0,max) = %d", d)
	}
	if d := HammingDistance(0b1010, 0b0110); d != 2 {
		t.Errorf("HammingDistance = %d, want 2", d)
	}
}

func TestMetricByName(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"", MetricLevenshtein, false},
		{"Levenshtein", MetricLevenshtein, false},
		{"simhash", MetricSimHash, false},
		{"cosine", "", true},
	}

	for _, tt := range tests {
		m, err := MetricByName(tt.name)
		if tt.wantErr {
			if err == nil {
				t.Errorf("MetricByName(%q) expected error", tt.name)
			}
			continue
		}
		if err != nil {
			t.Fatalf("MetricByName(%q) unexpected error: %v", tt.name, err)
		}
		if m.Name() != tt.want {
			t.Errorf("MetricByName(%q).Name() = %q, want %q", tt.name, m.Name(), tt.want)
		}
	}
}
