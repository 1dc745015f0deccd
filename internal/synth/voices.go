package synth

import (
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
)

// Voice is a speaker offered by the Orpheus model.
type Voice struct {
	Name        string
	Description string
}

// DefaultVoice is used when none is configured.
const DefaultVoice = "Tara"

// Voices lists the available speakers in display order.
var Voices = []Voice{
	{"Tara", "Female, English, conversational, clear"},
	{"Leah", "Female, English, warm, gentle"},
	{"Jess", "Female, English, energetic, youthful"},
	{"Leo", "Male, English, authoritative, deep"},
	{"Dan", "Male, English, friendly, casual"},
	{"Mia", "Female, English, professional, articulate"},
	{"Zac", "Male, English, enthusiastic, dynamic"},
	{"Zoe", "Female, English, calm, soothing"},
}

// VoiceNames returns the catalog names in order.
func VoiceNames() []string {
	names := make([]string, len(Voices))
	for i, v := range Voices {
		names[i] = v.Name
	}
	return names
}

// ResolveVoice finds a voice by case-insensitive name. Unknown names get a
// fuzzy suggestion in the error.
func ResolveVoice(name string) (Voice, error) {
	name = strings.TrimSpace(name)
	for _, v := range Voices {
		if strings.EqualFold(v.Name, name) {
			return v, nil
		}
	}

	if matches := fuzzy.Find(strings.ToLower(name), lowerNames()); len(matches) > 0 {
		return Voice{}, fmt.Errorf("%w %q, did you mean %q?", ErrUnknownVoice, name, Voices[matches[0].Index].Name)
	}
	return Voice{}, fmt.Errorf("%w %q (available: %s)", ErrUnknownVoice, name, strings.Join(VoiceNames(), ", "))
}

func lowerNames() []string {
	names := VoiceNames()
	for i := range names {
		names[i] = strings.ToLower(names[i])
	}
	return names
}
