// Package doctor runs runtime readiness diagnostics for config, model, audio, and tools.
package doctor

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/gquinteros/listen/internal/audio"
	"github.com/gquinteros/listen/internal/audio/portaudio"
	"github.com/gquinteros/listen/internal/config"
	"github.com/gquinteros/listen/internal/ipc"
	"github.com/gquinteros/listen/internal/transcribe"
	"github.com/gquinteros/listen/internal/vad/webrtc"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
	// Optional failures are reported but do not fail the report.
	Optional bool
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all required checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass && !check.Optional {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		switch {
		case !check.Pass && check.Optional:
			status = "WARN"
		case !check.Pass:
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded) Report {
	checks := []Check{checkConfig(cfg)}

	checks = append(checks, checkModel(cfg.Config))
	checks = append(checks, checkAudioSelection(ctx, cfg.Config))
	checks = append(checks, checkRuntimeDir(cfg.Config))

	if cfg.Config.VAD.Engine == config.EngineWebRTC {
		checks = append(checks, checkWebRTC(cfg.Config))
	}
	if len(cfg.Config.Output.Clipboard.Argv) > 0 {
		checks = append(checks, checkCommand(cfg.Config.Output.Clipboard.Argv, "clipboard_cmd"))
	}

	ffmpeg := checkBinary("ffmpeg", "needed to convert non-WAV input")
	ffmpeg.Optional = true
	checks = append(checks, ffmpeg)

	return Report{Checks: checks}
}

func checkConfig(cfg config.Loaded) Check {
	if !cfg.Exists {
		return Check{Name: "config", Pass: true, Message: fmt.Sprintf("%q not found; using defaults", cfg.Path)}
	}
	return Check{Name: "config", Pass: true, Message: fmt.Sprintf("loaded %q", cfg.Path)}
}

// checkModel resolves the configured model across the search directories.
func checkModel(cfg config.Config) Check {
	dirs := cfg.ModelDirs
	if len(dirs) == 0 {
		dirs = transcribe.DefaultModelDirs()
	}
	path, err := transcribe.ResolveModel(cfg.Model, dirs)
	if err != nil {
		return Check{Name: "model", Pass: false, Message: err.Error()}
	}
	return Check{Name: "model", Pass: true, Message: fmt.Sprintf("%s at %s", cfg.Model, path)}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkAudioSelection runs live device selection for the configured backend.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	if cfg.Audio.Backend == config.BackendPortAudio {
		devices, err := portaudio.ListDevices()
		if err != nil {
			return Check{Name: "audio.device", Pass: false, Message: err.Error()}
		}
		if len(devices) == 0 {
			return Check{Name: "audio.device", Pass: false, Message: "No input device found"}
		}
		return Check{Name: "audio.device", Pass: true, Message: fmt.Sprintf("%d portaudio input device(s)", len(devices))}
	}

	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkRuntimeDir reports where `listen stop` would reach a recording.
func checkRuntimeDir(cfg config.Config) Check {
	path, err := ipc.RuntimeSocketPath()
	if err != nil {
		return Check{
			Name:     "runtime.socket",
			Pass:     false,
			Optional: !cfg.Capture.InterruptMode,
			Message:  err.Error() + "; interrupt mode falls back to SIGUSR1 only",
		}
	}
	return Check{Name: "runtime.socket", Pass: true, Message: path}
}

func checkWebRTC(cfg config.Config) Check {
	format := audio.DefaultFormat()
	if _, err := webrtc.New(format.SampleRate, cfg.VAD.WebRTCMode); err != nil {
		return Check{Name: "vad.webrtc", Pass: false, Message: err.Error()}
	}
	return Check{Name: "vad.webrtc", Pass: true, Message: fmt.Sprintf("mode %d at %dHz", cfg.VAD.WebRTCMode, format.SampleRate)}
}
