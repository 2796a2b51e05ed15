package config

import (
	"encoding/json"
	"strings"

	"github.com/gquinteros/listen/internal/failure"
)

// Set applies a single dotted key (for example "vad.enabled") to cfg.
// Values that parse as JSON keep their type; anything else is a string.
func Set(cfg Config, key, value string) (Config, error) {
	segments := strings.Split(strings.TrimSpace(key), ".")
	for _, segment := range segments {
		if strings.TrimSpace(segment) == "" {
			return Config{}, failure.Config("invalid config key %q", key)
		}
	}

	raw := []byte(strings.TrimSpace(value))
	if !json.Valid(raw) {
		quoted, err := json.Marshal(value)
		if err != nil {
			return Config{}, failure.Config("encode value for %q: %w", key, err)
		}
		raw = quoted
	}

	doc := json.RawMessage(raw)
	var node any = doc
	for i := len(segments) - 1; i >= 0; i-- {
		node = map[string]any{segments[i]: node}
	}
	content, err := json.Marshal(node)
	if err != nil {
		return Config{}, failure.Config("encode %q: %w", key, err)
	}

	payload, err := decodeJSONC(string(content))
	if err != nil {
		return Config{}, failure.Config("cannot set %q: %w", key, err)
	}
	updated, _, err := applyAndValidate(payload, cfg)
	if err != nil {
		return Config{}, failure.Wrap(err, failure.KindConfig)
	}
	return updated, nil
}
