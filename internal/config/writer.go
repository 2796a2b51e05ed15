package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/gquinteros/listen/internal/failure"
)

const jsoncHeader = "// listen configuration. Comments and trailing commas are allowed.\n"

// Encode renders every field of cfg in the given format.
func Encode(cfg Config, format FileFormat) ([]byte, error) {
	payload := payloadFrom(cfg)

	switch format {
	case FormatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(payload); err != nil {
			return nil, failure.Config("encode toml: %w", err)
		}
		return buf.Bytes(), nil
	case FormatYAML:
		out, err := yaml.Marshal(payload)
		if err != nil {
			return nil, failure.Config("encode yaml: %w", err)
		}
		return out, nil
	default:
		out, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return nil, failure.Config("encode json: %w", err)
		}
		return append([]byte(jsoncHeader), append(out, '\n')...), nil
	}
}

// Save writes cfg to path in the format implied by its extension.
func Save(path string, cfg Config) error {
	if _, err := Validate(cfg); err != nil {
		return err
	}
	content, err := Encode(cfg, FormatForPath(path))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return failure.File("create config dir: %w", err)
	}
	if err := os.WriteFile(path, content, 0o600); err != nil {
		return failure.File("write config %q: %w", path, err)
	}
	return nil
}

// Remove deletes the config file at path. It reports whether a file existed.
func Remove(path string) (bool, error) {
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, failure.File("remove config %q: %w", path, err)
	}
	return true, nil
}
