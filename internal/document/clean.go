package document

import (
	"regexp"
	"strings"
)

var (
	bracketCitation = regexp.MustCompile(`\[\s*\d+\s*\]`)
	hangingDash     = regexp.MustCompile(` - `)
	phoneNumber     = regexp.MustCompile(`\b\+?\d[\d\s\-]{7,}\d\b`)
	emailAddress    = regexp.MustCompile(`[\w.-]+@[\w.-]+`)
	// Outline markers such as "1.", "12)", "(a)", "b." and "iv)".
	paragraphNumber = regexp.MustCompile(`^\(?(?:\d+|[a-zA-Z]|[ivxlcdmIVXLCDM]+)\)?[.)]\s+`)
)

// Clean removes bracketed citation numbers, phone numbers, email addresses
// and leading paragraph numbering, and turns " - " into a space. It works
// line by line and drops lines left empty.
func Clean(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = CleanLine(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// CleanLine applies Clean to a single paragraph.
func CleanLine(line string) string {
	line = bracketCitation.ReplaceAllString(line, "")
	line = hangingDash.ReplaceAllString(line, " ")
	line = phoneNumber.ReplaceAllString(line, "")
	line = emailAddress.ReplaceAllString(line, "")
	line = strings.TrimSpace(line)
	line = paragraphNumber.ReplaceAllString(line, "")
	return strings.TrimSpace(line)
}
