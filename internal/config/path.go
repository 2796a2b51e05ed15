package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// candidateNames are tried in order inside the config directory.
var candidateNames = []string{"config.jsonc", "config.json", "config.toml", "config.yaml", "config.yml"}

// ResolvePath applies explicit > XDG_CONFIG_HOME > ~/.config rules.
// Without an explicit path, the first existing candidate wins; otherwise
// config.jsonc is returned.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}

	dir, err := configDir()
	if err != nil {
		return "", err
	}
	for _, name := range candidateNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return filepath.Join(dir, candidateNames[0]), nil
}

func configDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "listen"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}
	return filepath.Join(home, ".config", "listen"), nil
}

// FileFormat is the on-disk encoding of a config file.
type FileFormat string

const (
	FormatJSONC FileFormat = "jsonc"
	FormatTOML  FileFormat = "toml"
	FormatYAML  FileFormat = "yaml"
)

// FormatForPath picks the encoding from the file extension, defaulting to JSONC.
func FormatForPath(path string) FileFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSONC
	}
}
