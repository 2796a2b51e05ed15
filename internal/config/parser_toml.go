package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

func parseTOML(content string, base Config) (Config, []Warning, error) {
	var payload filePayload
	meta, err := toml.Decode(content, &payload)
	if err != nil {
		return Config{}, nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return Config{}, nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return applyAndValidate(payload, base)
}
