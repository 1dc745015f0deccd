package config

import (
	"fmt"
	"os"
	"path/filepath"

	gap "github.com/muesli/go-app-paths"
)

// AppName names the config file, data and cache directories.
const AppName = "legaltts"

// ConfigDirs returns the directories searched for legaltts.yml, most
// specific first. LEGALTTS_CONFIG_HOME and XDG_CONFIG_HOME take precedence.
func ConfigDirs() ([]string, error) {
	scope := gap.NewScope(gap.User, AppName)
	dirs, err := scope.ConfigDirs()
	if err != nil {
		return nil, fmt.Errorf("could not find configuration directory: %w", err)
	}
	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, AppName)}, dirs...)
	}
	if c := os.Getenv("LEGALTTS_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}
	return dirs, nil
}

// ResolvePaths fills in directories left empty with per-user defaults: the
// prompts directory under the data dir and the speech cache under the
// cache dir.
func (c *Config) ResolvePaths() error {
	scope := gap.NewScope(gap.User, AppName)

	if c.PromptsDir == "" {
		p, err := scope.DataPath("prompts")
		if err != nil {
			return fmt.Errorf("could not find data directory: %w", err)
		}
		c.PromptsDir = p
	}
	if c.Cache.Enabled && c.Cache.Dir == "" {
		dir, err := scope.CacheDir()
		if err != nil {
			return fmt.Errorf("could not find cache directory: %w", err)
		}
		c.Cache.Dir = filepath.Join(dir, "speech")
	}
	return nil
}
