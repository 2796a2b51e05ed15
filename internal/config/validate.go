package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gquinteros/listen/internal/failure"
)

var modelNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if strings.TrimSpace(cfg.Language) == "" {
		return nil, failure.Config("language must not be empty")
	}
	if !modelNamePattern.MatchString(cfg.Model) {
		return nil, failure.Config("model %q must contain only letters, digits, '.', '-' or '_'", cfg.Model)
	}

	switch cfg.Audio.Backend {
	case BackendPulse, BackendPortAudio:
	default:
		return nil, failure.Config("audio.backend must be one of: %s, %s", BackendPulse, BackendPortAudio)
	}
	if cfg.Audio.FramesPerBuffer < 0 {
		return nil, failure.Config("audio.frames_per_buffer must be >= 0")
	}

	if cfg.Capture.InterruptTimeout < 0 {
		return nil, failure.Config("capture.interrupt_timeout must be >= 0")
	}
	if cfg.Capture.FirstChunkTimeout < 0 {
		return nil, failure.Config("capture.first_chunk_timeout must be >= 0")
	}
	if cfg.Capture.PollInterval < 0 {
		return nil, failure.Config("capture.poll_interval must be >= 0")
	}

	if cfg.VAD.SilenceDuration <= 0 {
		return nil, failure.Config("VAD duration must be positive")
	}
	if cfg.VAD.Threshold <= 0 || cfg.VAD.Threshold > 1 {
		return nil, failure.Config("vad.threshold must be in (0, 1]")
	}
	switch cfg.VAD.Engine {
	case EngineAmplitude:
	case EngineWebRTC:
		if cfg.VAD.WebRTCMode < 0 || cfg.VAD.WebRTCMode > 3 {
			return nil, failure.Config("vad.webrtc_mode must be between 0 and 3")
		}
		if cfg.VAD.Threshold != Default().VAD.Threshold {
			warnings = append(warnings, Warning{Message: "vad.threshold is ignored when vad.engine=webrtc"})
		}
	default:
		return nil, failure.Config("vad.engine must be one of: %s, %s", EngineAmplitude, EngineWebRTC)
	}

	if cfg.Decode.Threads < 0 {
		return nil, failure.Config("decode.threads must be >= 0")
	}
	if cfg.Decode.FastMode && cfg.Decode.Threads > 0 {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("decode.fast_mode overrides decode.threads=%d", cfg.Decode.Threads)})
	}
	if cfg.Output.Clipboard.Raw != "" && len(cfg.Output.Clipboard.Argv) == 0 {
		return nil, failure.Config("output.clipboard_cmd is configured but empty")
	}

	return warnings, nil
}
