package textsim

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"whitespace only", " \t\n ", ""},
		{"punctuation only", "...!?", ""},
		{"case folding", "The Court FINDS", "the court finds"},
		{"punctuation stripped", "The court, finds: (again).", "the court finds again"},
		{"whitespace collapsed", "  the   court\tfinds \n", "the court finds"},
		{"diacritics stripped", "Café déjà vu", "cafe deja vu"},
		{"symbols become spaces", "section§12", "section 12"},
		{"apostrophes split", "court's", "court s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestWords(t *testing.T) {
	words := Words("The appellant, submits!")
	want := []string{"the", "appellant", "submits"}
	if len(words) != len(want) {
		t.Fatalf("Words() = %v, want %v", words, want)
	}
	for i := range want {
		if words[i] != want[i] {
			t.Errorf("Words()[%d] = %q, want %q", i, words[i], want[i])
		}
	}

	if got := Words("  ... "); got != nil {
		t.Errorf("Words(blank) = %v, want nil", got)
	}
}

func TestIsBlank(t *testing.T) {
	if !IsBlank(" - ") {
		t.Error("expected dash-only text to be blank")
	}
	if IsBlank("a") {
		t.Error("expected single letter to be non-blank")
	}
}
