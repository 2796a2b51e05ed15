package transcribe

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gquinteros/listen/internal/failure"
)

// ModelFileName is the artifact name for a model, e.g. ggml-base.bin.
func ModelFileName(name string) string {
	return "ggml-" + name + ".bin"
}

// DefaultModelDirs is the model search order: ~/.cache/whisper,
// /usr/share/whisper, then ./models.
func DefaultModelDirs() []string {
	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		home = "."
	}
	return []string{
		filepath.Join(home, ".cache", "whisper"),
		"/usr/share/whisper",
		filepath.Join(".", "models"),
	}
}

// ResolveModel returns the first existing ggml-<name>.bin across dirs.
func ResolveModel(name string, dirs []string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", failure.Config("model name is required")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", failure.Config("invalid model name %q", name)
	}

	file := ModelFileName(name)
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		path := filepath.Join(expandHome(dir), file)
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", failure.Config("inspect model %s: %w", path, err)
		}
	}

	return "", failure.Config("%s", missingModelHint(name))
}

func missingModelHint(name string) string {
	return fmt.Sprintf("Whisper model '%s' not found. Download it first:\n"+
		"  wget https://huggingface.co/ggerganov/whisper.cpp/resolve/main/%s \\\n"+
		"  -P ~/.cache/whisper/", name, ModelFileName(name))
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
