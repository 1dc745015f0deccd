package summarize

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// CustomPromptKey selects the literal custom prompt text instead of a file.
const CustomPromptKey = "__custom__"

// ErrPromptNotFound is returned when no prompt file matches a key.
var ErrPromptNotFound = errors.New("prompt not found")

// DefaultConstants are substituted into prompts as {Name} placeholders.
func DefaultConstants() map[string]string {
	return map[string]string{"Username": "Deponent"}
}

// ResolvePrompt returns the system prompt for key. CustomPromptKey yields
// custom verbatim; any other key loads <promptsDir>/<key>.txt, trying the
// key as given and then lowercased. {Name} placeholders are replaced from
// constants in either case.
func ResolvePrompt(key, custom, promptsDir string, constants map[string]string) (string, error) {
	var text string
	if key == CustomPromptKey {
		text = custom
	} else {
		if key == "" {
			return "", fmt.Errorf("%w: empty prompt key", ErrPromptNotFound)
		}
		var err error
		text, err = readPrompt(promptsDir, key)
		if err != nil {
			return "", err
		}
	}
	return expandConstants(text, constants), nil
}

// ListPrompts returns the prompt keys available in dir, sorted.
func ListPrompts(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var keys []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".txt") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
	}
	sort.Strings(keys)
	return keys, nil
}

func readPrompt(dir, key string) (string, error) {
	for _, name := range []string{key, strings.ToLower(key)} {
		data, err := os.ReadFile(filepath.Join(dir, name+".txt"))
		if err == nil {
			return string(data), nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to read prompt %q: %w", key, err)
		}
	}
	return "", fmt.Errorf("%w: %q in %s", ErrPromptNotFound, key, dir)
}

func expandConstants(text string, constants map[string]string) string {
	if len(constants) == 0 {
		return text
	}
	pairs := make([]string, 0, len(constants)*2)
	for k, v := range constants {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
