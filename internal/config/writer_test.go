package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gquinteros/listen/internal/failure"
)

func TestSaveThenLoadRoundTripsEveryFormat(t *testing.T) {
	cfg := Default()
	cfg.Language = "en"
	cfg.ModelDirs = []string{"/opt/whisper"}
	cfg.VAD.Enabled = true
	cfg.VAD.SilenceDuration = 1500 * time.Millisecond
	cfg.Output.Clipboard = CommandConfig{Raw: "wl-copy", Argv: []string{"wl-copy"}}

	for _, name := range []string{"config.jsonc", "config.toml", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			require.NoError(t, Save(path, cfg))

			info, err := os.Stat(path)
			require.NoError(t, err)
			require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

			loaded, err := Load(path)
			require.NoError(t, err)
			require.True(t, loaded.Exists)
			require.Equal(t, cfg, loaded.Config)
		})
	}
}

func TestEncodeJSONCStartsWithComment(t *testing.T) {
	out, err := Encode(Default(), FormatJSONC)
	require.NoError(t, err)
	require.Contains(t, string(out), "// listen configuration")
	require.Contains(t, string(out), `"language": "es"`)
}

func TestSaveRejectsInvalidConfig(t *testing.T) {
	cfg := Default()
	cfg.VAD.SilenceDuration = 0
	path := filepath.Join(t.TempDir(), "config.jsonc")

	err := Save(path, cfg)
	require.True(t, failure.Is(err, failure.KindConfig))
	require.NoFileExists(t, path)
}

func TestRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.jsonc")
	require.NoError(t, Save(path, Default()))

	existed, err := Remove(path)
	require.NoError(t, err)
	require.True(t, existed)

	existed, err = Remove(path)
	require.NoError(t, err)
	require.False(t, existed)
}

func TestSetAppliesTypedAndStringValues(t *testing.T) {
	cfg, err := Set(Default(), "vad.enabled", "true")
	require.NoError(t, err)
	require.True(t, cfg.VAD.Enabled)

	cfg, err = Set(cfg, "vad.silence_duration", "2.5")
	require.NoError(t, err)
	require.Equal(t, 2500*time.Millisecond, cfg.VAD.SilenceDuration)

	cfg, err = Set(cfg, "language", "en")
	require.NoError(t, err)
	require.Equal(t, "en", cfg.Language)

	cfg, err = Set(cfg, "model_dirs", "/a,/b")
	require.NoError(t, err)
	require.Equal(t, []string{"/a", "/b"}, cfg.ModelDirs)
}

func TestSetRejectsUnknownAndInvalid(t *testing.T) {
	_, err := Set(Default(), "vad.mystery", "1")
	require.True(t, failure.Is(err, failure.KindConfig))
	require.Contains(t, err.Error(), "unknown field")

	_, err = Set(Default(), "vad..enabled", "true")
	require.Contains(t, err.Error(), "invalid config key")

	_, err = Set(Default(), "vad.threshold", "3")
	require.True(t, failure.Is(err, failure.KindConfig))
	require.Contains(t, err.Error(), "vad.threshold")
}
