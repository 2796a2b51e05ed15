package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/gquinteros/listen/internal/failure"
)

// Loaded is the effective file configuration and where it came from.
type Loaded struct {
	Path   string
	Config Config
	// Exists is false when Path was not found and Config holds defaults.
	Exists   bool
	Warnings []Warning
}

// Load reads the config file selected by ResolvePath and layers it over
// Default. A missing file is not an error.
func Load(explicitPath string) (Loaded, error) {
	path, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, failure.Config("%w", err)
	}
	out := Loaded{Path: path, Config: Default()}

	content, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		out.Warnings = append(out.Warnings, Warning{
			Message: fmt.Sprintf("config file %q not found; using defaults", path),
		})
		return out, nil
	case err != nil:
		return Loaded{}, failure.Config("read config %q: %w", path, err)
	}

	cfg, warnings, err := Parse(string(content), FormatForPath(path), out.Config)
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", path, err)
	}
	out.Config = cfg
	out.Warnings = warnings
	out.Exists = true
	return out, nil
}
