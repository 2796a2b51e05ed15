package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gquinteros/listen/internal/failure"
)

func TestResolvePathPrecedence(t *testing.T) {
	explicit := "/tmp/custom.jsonc"
	resolved, err := ResolvePath(explicit)
	require.NoError(t, err)
	require.Equal(t, explicit, resolved)

	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(xdg, "listen", "config.jsonc"), resolved)

	t.Setenv("XDG_CONFIG_HOME", "")
	home := t.TempDir()
	t.Setenv("HOME", home)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".config", "listen", "config.jsonc"), resolved)
}

func TestResolvePathPicksExistingAlternateFormat(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	tomlPath := filepath.Join(xdg, "listen", "config.toml")
	require.NoError(t, os.MkdirAll(filepath.Dir(tomlPath), 0o700))
	require.NoError(t, os.WriteFile(tomlPath, []byte("language = \"en\"\n"), 0o600))

	resolved, err := ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, tomlPath, resolved)

	loaded, err := Load("")
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Equal(t, "en", loaded.Config.Language)
}

func TestFormatForPath(t *testing.T) {
	require.Equal(t, FormatTOML, FormatForPath("a/config.TOML"))
	require.Equal(t, FormatYAML, FormatForPath("config.yml"))
	require.Equal(t, FormatYAML, FormatForPath("config.yaml"))
	require.Equal(t, FormatJSONC, FormatForPath("config.json"))
	require.Equal(t, FormatJSONC, FormatForPath("config"))
}

func TestLoadMissingConfigUsesDefaultsWithWarning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.jsonc")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, path, loaded.Path)
	require.False(t, loaded.Exists)
	require.Equal(t, Default(), loaded.Config)
	require.NotEmpty(t, loaded.Warnings)
	require.Contains(t, loaded.Warnings[0].Message, "not found")
}

func TestLoadExistingJSONCParsesAndValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.jsonc")
	contents := `
{
  // Spanish dictation with silence auto-stop
  "language": "es",
  "model": "small",
  "vad": {
    "enabled": true,
    "silence_duration": 1.5,
  },
  "capture": {"interrupt_timeout": 10},
}
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Equal(t, path, loaded.Path)
	require.Equal(t, "small", loaded.Config.Model)
	require.True(t, loaded.Config.VAD.Enabled)
	require.Equal(t, 1500*time.Millisecond, loaded.Config.VAD.SilenceDuration)
	require.Equal(t, 10*time.Second, loaded.Config.Capture.InterruptTimeout)
	require.Equal(t, Default().VAD.Threshold, loaded.Config.VAD.Threshold)
}

func TestLoadParseErrorIncludesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.jsonc")
	require.NoError(t, os.WriteFile(path, []byte("{ not-json }"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	require.True(t, failure.Is(err, failure.KindConfig))
	require.Contains(t, err.Error(), "parse config")
	require.Contains(t, err.Error(), path)
}

func TestLoadValidationErrorIsConfigError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("vad:\n  silence_duration: 0\n"), 0o600))

	_, err := Load(path)
	require.True(t, failure.Is(err, failure.KindConfig))
	require.Contains(t, err.Error(), "VAD duration must be positive")
}
