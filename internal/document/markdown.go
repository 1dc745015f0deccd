package document

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// speakerTag matches voice tags, which Markdown would otherwise treat as
// raw HTML.
var speakerTag = regexp.MustCompile(`(?i)^\s*<(AI Summary|SPEAKER \d+)>\s*$`)

// MarkdownToText flattens Markdown into one paragraph per line. Code and
// HTML are dropped, link and emphasis text is kept and speaker tags
// survive.
func MarkdownToText(source []byte) string {
	reader := text.NewReader(source)
	doc := goldmark.New().Parser().Parse(reader)

	var buf strings.Builder
	walkNode(doc, reader.Source(), &buf)

	var lines []string
	for _, line := range strings.Split(buf.String(), "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func walkNode(node ast.Node, source []byte, buf *strings.Builder) {
	switch n := node.(type) {
	case *ast.CodeBlock, *ast.FencedCodeBlock:
		return

	case *ast.HTMLBlock:
		for i := 0; i < n.Lines().Len(); i++ {
			seg := n.Lines().At(i)
			if line := string(seg.Value(source)); speakerTag.MatchString(line) {
				buf.WriteString(strings.TrimSpace(line))
				buf.WriteString(" ")
			}
		}
		return

	case *ast.RawHTML:
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			if raw := string(seg.Value(source)); speakerTag.MatchString(raw) {
				buf.WriteString(raw)
			}
		}
		return

	case *ast.Text:
		buf.Write(n.Segment.Value(source))
		if n.HardLineBreak() {
			buf.WriteString("\n")
		} else if n.SoftLineBreak() {
			buf.WriteString(" ")
		}
		return

	case *ast.String:
		buf.Write(n.Value)
		return

	case *ast.CodeSpan:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if t, ok := c.(*ast.Text); ok {
				buf.Write(t.Segment.Value(source))
			}
		}
		return

	case *ast.Image:
		return

	case *ast.Heading:
		walkChildren(n, source, buf)
		endSentence(buf)
		buf.WriteString("\n")
		return

	case *ast.Paragraph, *ast.TextBlock:
		walkChildren(n, source, buf)
		buf.WriteString("\n")
		return

	case *ast.ThematicBreak:
		buf.WriteString("\n")
		return
	}

	walkChildren(node, source, buf)
}

func walkChildren(node ast.Node, source []byte, buf *strings.Builder) {
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		walkNode(c, source, buf)
	}
}

// endSentence adds a period unless the text already ends in punctuation,
// so that headings are read with a pause.
func endSentence(buf *strings.Builder) {
	s := strings.TrimRight(buf.String(), " ")
	if s == "" {
		return
	}
	switch s[len(s)-1] {
	case '.', '!', '?', ':', '\n':
		return
	}
	buf.WriteString(".")
}
