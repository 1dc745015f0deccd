// Package document loads source documents as plain text ready to be read
// aloud and strips the parts that should not be spoken.
package document

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
)

// ErrUnsupportedFormat is returned for file types that cannot be read.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Document is a loaded source document.
type Document struct {
	Path string
	// Base is the file name without directory or extension. Output files
	// are named after it.
	Base   string
	Format string
	Text   string
}

// Extensions lists the file extensions Load accepts.
var Extensions = []string{".txt", ".text", ".md", ".markdown"}

// Supported reports whether path has an extension Load accepts.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Load reads path. Markdown is flattened to speakable text; plain text is
// used as is. Neither is cleaned; see Clean.
func Load(path string) (*Document, error) {
	if !Supported(path) {
		return nil, fmt.Errorf("%w: %s (convert to .txt or .md first)", ErrUnsupportedFormat, filepath.Ext(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: %s is not UTF-8 text", ErrUnsupportedFormat, path)
	}

	doc := &Document{
		Path: path,
		Base: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		doc.Format = "markdown"
		doc.Text = MarkdownToText(data)
	default:
		doc.Format = "text"
		doc.Text = strings.ReplaceAll(string(data), "\r\n", "\n")
	}

	log.Debug("Loaded document", "path", path, "format", doc.Format, "chars", utf8.RuneCountInString(doc.Text))
	return doc, nil
}
