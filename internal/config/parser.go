package config

import (
	"strings"

	"github.com/gquinteros/listen/internal/failure"
)

// Parse decodes content in the given format on top of base and validates the result.
func Parse(content string, format FileFormat, base Config) (Config, []Warning, error) {
	if strings.TrimSpace(content) == "" {
		validatedWarnings, err := Validate(base)
		if err != nil {
			return Config{}, nil, err
		}
		return base, validatedWarnings, nil
	}

	var (
		cfg      Config
		warnings []Warning
		err      error
	)
	switch format {
	case FormatTOML:
		cfg, warnings, err = parseTOML(content, base)
	case FormatYAML:
		cfg, warnings, err = parseYAML(content, base)
	default:
		cfg, warnings, err = parseJSONC(content, base)
	}
	if err != nil {
		return Config{}, nil, failure.Wrap(err, failure.KindConfig)
	}
	return cfg, warnings, nil
}

func applyAndValidate(payload filePayload, base Config) (Config, []Warning, error) {
	cfg := base
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}
