// Package config resolves, parses, validates, and defaults listen configuration.
package config

import "time"

// Config is the fully materialized runtime configuration.
type Config struct {
	Language  string
	Model     string
	ModelDirs []string
	Audio     AudioConfig
	Capture   CaptureConfig
	VAD       VADConfig
	Decode    DecodeConfig
	Output    OutputConfig
	Debug     DebugConfig
}

// AudioConfig selects the capture backend and input source.
type AudioConfig struct {
	Backend         string
	Input           string
	Fallback        string
	FramesPerBuffer int
}

// CaptureConfig controls stop triggers and capture timing.
type CaptureConfig struct {
	// InterruptMode stops on SIGUSR1 or `listen stop` instead of a key press.
	InterruptMode     bool
	InterruptTimeout  time.Duration
	FirstChunkTimeout time.Duration
	PollInterval      time.Duration
}

// VADConfig controls silence auto-stop.
type VADConfig struct {
	Enabled         bool
	SilenceDuration time.Duration
	Threshold       float64
	Engine          string
	WebRTCMode      int
}

// DecodeConfig controls decoder parallelism.
type DecodeConfig struct {
	Threads  int
	FastMode bool
}

// OutputConfig controls console, file and clipboard delivery.
type OutputConfig struct {
	JSON       bool
	Quiet      bool
	Verbose    bool
	Visual     bool
	File       string
	StatusFile string
	Clipboard  CommandConfig
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableAudioDump bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
