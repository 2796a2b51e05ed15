// Package app dispatches parsed commands and maps outcomes to exit codes.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/gquinteros/listen/internal/audio"
	"github.com/gquinteros/listen/internal/audio/portaudio"
	"github.com/gquinteros/listen/internal/capture"
	"github.com/gquinteros/listen/internal/cli"
	"github.com/gquinteros/listen/internal/config"
	"github.com/gquinteros/listen/internal/doctor"
	"github.com/gquinteros/listen/internal/failure"
	"github.com/gquinteros/listen/internal/indicator"
	"github.com/gquinteros/listen/internal/ipc"
	"github.com/gquinteros/listen/internal/logging"
	"github.com/gquinteros/listen/internal/output"
	"github.com/gquinteros/listen/internal/pipeline"
	"github.com/gquinteros/listen/internal/status"
	"github.com/gquinteros/listen/internal/transcribe"
	"github.com/gquinteros/listen/internal/vad"
	"github.com/gquinteros/listen/internal/vad/webrtc"
	"github.com/gquinteros/listen/internal/version"
	"github.com/gquinteros/listen/internal/whisper"
)

const (
	exitOK        = 0
	exitError     = 1
	exitUsage     = 2
	exitCancelled = 130

	forwardTimeout = 500 * time.Millisecond
)

type Runner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger

	// Loader and Backend replace the whisper.cpp loader and the configured
	// capture backend when set.
	Loader  transcribe.Loader
	Backend audio.Backend
}

func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	r := Runner{Stdin: stdin, Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText())
		return exitUsage
	}

	if parsed.Command == cli.CommandHelp {
		fmt.Fprint(r.Stdout, parsed.Help)
		return exitOK
	}

	loaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return exitError
	}
	cfg, err := parsed.Overrides.Apply(loaded.Config)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return exitError
	}

	if parsed.Command == cli.CommandVersion {
		return r.commandVersion(cfg)
	}

	logRuntime, err := logging.New(logging.Options{Verbose: cfg.Output.Verbose, Stderr: r.Stderr})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return exitError
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	for _, w := range loaded.Warnings {
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
		if !loaded.Exists && !cfg.Output.Verbose {
			continue
		}
		if cfg.Output.Quiet {
			continue
		}
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
	}

	logger.Info("command start",
		"command", string(parsed.Command),
		"config", loaded.Path,
		"log", logRuntime.Path,
	)
	logger.Debug("effective configuration",
		"language", cfg.Language,
		"model", cfg.Model,
		"backend", cfg.Audio.Backend,
		"interrupt_mode", cfg.Capture.InterruptMode,
		"vad_enabled", cfg.VAD.Enabled,
		"vad_duration", cfg.VAD.SilenceDuration.String(),
		"vad_engine", cfg.VAD.Engine,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		loaded.Config = cfg
		report := doctor.Run(ctx, loaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return exitOK
		}
		return exitError
	case cli.CommandDevices:
		return r.commandDevices(ctx, cfg)
	case cli.CommandStatus:
		return r.commandStatus(ctx, cfg)
	case cli.CommandStop:
		return r.commandStop(ctx)
	case cli.CommandConfigShow, cli.CommandConfigPath, cli.CommandConfigInit, cli.CommandConfigReset, cli.CommandConfigSet:
		return r.commandConfig(parsed, loaded, cfg)
	case cli.CommandTranscribe:
		return r.commandTranscribe(ctx, parsed, cfg, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return exitUsage
	}
}

func (r Runner) commandVersion(cfg config.Config) int {
	if !cfg.Output.JSON {
		fmt.Fprintln(r.Stdout, version.String())
		return exitOK
	}
	return r.writeJSON(version.Current())
}

func (r Runner) writeJSON(v any) int {
	enc := json.NewEncoder(r.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return exitError
	}
	return exitOK
}

func (r Runner) commandDevices(ctx context.Context, cfg config.Config) int {
	var (
		devices []audio.Device
		err     error
	)
	if cfg.Audio.Backend == config.BackendPortAudio {
		devices, err = portaudio.ListDevices()
	} else {
		devices, err = audio.ListDevices(ctx)
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return exitError
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return exitError
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		availability := "yes"
		if !device.Available {
			availability = "no"
		}
		muted := "no"
		if device.Muted {
			muted = "yes"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			availability,
			muted,
		)
	}

	return exitOK
}

func (r Runner) commandStatus(ctx context.Context, cfg config.Config) int {
	resp := ipc.Response{OK: true, State: "idle"}

	if socketPath, err := ipc.RuntimeSocketPath(); err == nil {
		got, err := ipc.Send(ctx, socketPath, ipc.Request{Command: ipc.CommandStatus}, forwardTimeout)
		switch {
		case err == nil:
			resp = got
		case ipc.IsNotRunning(err):
		default:
			fmt.Fprintf(r.Stderr, "error: %v\n", failure.Signal("query recording status: %w", err))
			return exitError
		}
	}

	if cfg.Output.JSON {
		return r.writeJSON(resp)
	}
	if resp.SessionID == "" {
		fmt.Fprintln(r.Stdout, resp.State)
		return exitOK
	}
	fmt.Fprintf(r.Stdout, "%s session=%s elapsed=%.1fs samples=%d\n", resp.State, resp.SessionID, resp.ElapsedSeconds, resp.Samples)
	return exitOK
}

func (r Runner) commandStop(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", failure.Signal("%w", err))
		return exitError
	}

	resp, err := ipc.Send(ctx, socketPath, ipc.Request{Command: ipc.CommandStop}, forwardTimeout)
	if err != nil {
		if ipc.IsNotRunning(err) {
			fmt.Fprintln(r.Stderr, "error: no active listen recording")
			return exitError
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", failure.Signal("send stop: %w", err))
		return exitError
	}
	if !resp.OK {
		fmt.Fprintf(r.Stderr, "error: %s\n", resp.Error)
		return exitError
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return exitOK
}

func (r Runner) commandConfig(parsed cli.Parsed, loaded config.Loaded, cfg config.Config) int {
	switch parsed.Command {
	case cli.CommandConfigPath:
		fmt.Fprintln(r.Stdout, loaded.Path)
		return exitOK

	case cli.CommandConfigShow:
		content, err := config.Encode(cfg, config.FormatForPath(loaded.Path))
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return exitError
		}
		source := loaded.Path
		if !loaded.Exists {
			source += ", not found; defaults"
		}
		fmt.Fprintf(r.Stdout, "Configuration (%s):\n%s", source, content)
		return exitOK

	case cli.CommandConfigInit:
		if loaded.Exists && !parsed.Force {
			fmt.Fprintf(r.Stderr, "error: %v\n", failure.Config("config file %s already exists (use --force to overwrite)", loaded.Path))
			return exitError
		}
		if err := config.Save(loaded.Path, config.Default()); err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return exitError
		}
		fmt.Fprintf(r.Stdout, "Created %s\n", loaded.Path)
		return exitOK

	case cli.CommandConfigReset:
		existed, err := config.Remove(loaded.Path)
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return exitError
		}
		if !existed {
			fmt.Fprintf(r.Stdout, "No config file at %s\n", loaded.Path)
			return exitOK
		}
		fmt.Fprintf(r.Stdout, "Removed %s\n", loaded.Path)
		return exitOK

	case cli.CommandConfigSet:
		updated, err := config.Set(loaded.Config, parsed.ConfigKey, parsed.ConfigValue)
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return exitError
		}
		if err := config.Save(loaded.Path, updated); err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return exitError
		}
		fmt.Fprintf(r.Stdout, "Set %s = %s in %s\n", parsed.ConfigKey, parsed.ConfigValue, loaded.Path)
		return exitOK
	}
	return exitUsage
}

func (r Runner) commandTranscribe(ctx context.Context, parsed cli.Parsed, cfg config.Config, logger *slog.Logger) int {
	deps, err := r.pipelineDeps(cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return exitError
	}
	p := pipeline.New(deps)

	var result transcribe.Result
	if parsed.InputFile != "" {
		result, err = p.RunFile(ctx, parsed.InputFile)
	} else {
		result, err = p.RunLive(ctx)
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("transcription cancelled")
			fmt.Fprintln(r.Stderr, "cancelled")
			return exitCancelled
		}
		logger.Error("transcription failed", "kind", string(failure.KindOf(err)), "error", err.Error())
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return exitError
	}

	logger.Info("transcription complete",
		"language", result.Language,
		"model", result.Model,
		"chars", len(result.Text),
	)
	return exitOK
}

func (r Runner) pipelineDeps(cfg config.Config, logger *slog.Logger) (pipeline.Deps, error) {
	format := audio.DefaultFormat()

	loader := r.Loader
	if loader == nil {
		loader = whisper.Loader{}
	}
	threads := cfg.Decode.Threads
	if cfg.Decode.FastMode {
		threads = runtime.NumCPU()
	}

	var ind indicator.Indicator = indicator.Noop{}
	if !cfg.Output.Quiet {
		ind = indicator.NewTerminal(r.Stderr, cfg.Output.Visual, cfg.Output.Visual)
	}

	opts := capture.Options{
		Backend:           r.backend(cfg, logger),
		InterruptMode:     cfg.Capture.InterruptMode,
		InterruptTimeout:  cfg.Capture.InterruptTimeout,
		PollInterval:      cfg.Capture.PollInterval,
		FirstChunkTimeout: cfg.Capture.FirstChunkTimeout,
		KeyFd:             -1,
	}
	if !cfg.Capture.InterruptMode && r.Stdin != nil {
		opts.KeyInput = r.Stdin
		if f, ok := r.Stdin.(*os.File); ok {
			opts.KeyFd = int(f.Fd())
		}
	}
	if cfg.VAD.Enabled {
		monitor, err := silenceMonitor(format, cfg.VAD)
		if err != nil {
			return pipeline.Deps{}, err
		}
		opts.Silence = &monitor
	}

	return pipeline.Deps{
		Format:   format,
		Language: cfg.Language,
		Model:    cfg.Model,
		Engine: transcribe.NewEngine(loader, transcribe.Options{
			ModelDirs: cfg.ModelDirs,
			Threads:   threads,
		}, logger),
		Sink: output.NewSink(r.Stdout, r.Stderr, output.Options{
			JSON:      cfg.Output.JSON,
			Quiet:     cfg.Output.Quiet,
			Path:      cfg.Output.File,
			Clipboard: cfg.Output.Clipboard.Argv,
		}, logger),
		Indicator: ind,
		Status:    status.NewFile(cfg.Output.StatusFile),
		Logger:    logger,
		Stderr:    r.Stderr,
		Quiet:     cfg.Output.Quiet,
		Capture:   opts,
		AudioDump: cfg.Debug.EnableAudioDump,
	}, nil
}

func (r Runner) backend(cfg config.Config, logger *slog.Logger) audio.Backend {
	if r.Backend != nil {
		return r.Backend
	}
	if cfg.Audio.Backend == config.BackendPortAudio {
		return portaudio.Backend{Input: cfg.Audio.Input, FramesPerBuffer: cfg.Audio.FramesPerBuffer}
	}
	return audio.PulseBackend{
		Input:    cfg.Audio.Input,
		Fallback: cfg.Audio.Fallback,
		OnWarning: func(msg string) {
			logger.Warn("audio device fallback", "message", msg)
			if !cfg.Output.Quiet {
				fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
			}
		},
	}
}

func silenceMonitor(format audio.Format, cfg config.VADConfig) (vad.Monitor, error) {
	monitor := vad.NewMonitor(format, cfg.SilenceDuration, float32(cfg.Threshold))
	if cfg.Engine == config.EngineWebRTC {
		detector, err := webrtc.New(format.SampleRate, cfg.WebRTCMode)
		if err != nil {
			return vad.Monitor{}, failure.Config("vad.engine=webrtc: %w", err)
		}
		monitor.Detector = detector
	}
	return monitor, nil
}
